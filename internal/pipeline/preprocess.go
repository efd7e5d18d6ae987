package pipeline

import (
	"context"
	"image"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/mosaic-geo/internal/config"
	"github.com/ironsheep/mosaic-geo/internal/detection"
	"github.com/ironsheep/mosaic-geo/internal/imaging"
	"github.com/ironsheep/mosaic-geo/internal/mosaic"
)

// PreprocessTile turns a raw prediction tile into a clean 0/1 mask: values
// are thresholded (on a 0..1 scale of the 0..255 range), regions touching
// the tile border are dropped when ClearBorder is set, and regions smaller
// than MinObjectSize pixels are removed. The input tile is not modified.
func PreprocessTile(t mosaic.Tile, cfg config.PreprocessConfig) mosaic.Tile {
	src := &image.Gray{
		Pix:    t.Pix,
		Stride: t.Width,
		Rect:   image.Rect(0, 0, t.Width, t.Height),
	}

	mask := imaging.ThresholdMask(src, cfg.Threshold)
	if cfg.ClearBorder {
		mask = detection.ClearBorder(mask)
	}
	if cfg.MinObjectSize > 0 {
		mask = detection.RemoveSmallObjects(mask, cfg.MinObjectSize)
	}

	return mosaic.Tile{Key: t.Key, Width: t.Width, Height: t.Height, Pix: mask.Pix}
}

// PreprocessTiles applies PreprocessTile to every tile using up to workers
// goroutines. The output keeps the input order.
func PreprocessTiles(ctx context.Context, tiles []mosaic.Tile, cfg config.PreprocessConfig, workers int) ([]mosaic.Tile, error) {
	out := make([]mosaic.Tile, len(tiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, t := range tiles {
		i, t := i, t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = PreprocessTile(t, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	debugf("preprocessed %d tiles", len(tiles))
	return out, nil
}
