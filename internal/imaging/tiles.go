package imaging

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
)

// SplitOptions controls how SplitTiles cuts an image.
type SplitOptions struct {
	// TileWidth and TileHeight are the tile size in pixels.
	TileWidth  int
	TileHeight int

	// StrideX and StrideY are the step between tile origins. Zero means half
	// the tile size, giving 50% overlap in each direction.
	StrideX int
	StrideY int

	// Pad makes every tile exactly TileWidth×TileHeight, filling the part
	// beyond the image edge with transparent black. When false, tiles at the
	// right and bottom edges are clipped to the image.
	Pad bool

	// Prefix is the identifier prefix; "tile" when empty.
	Prefix string
}

// SplitTile describes one tile written by SplitTiles.
type SplitTile struct {
	Path   string `json:"path"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// SplitResult lists the tiles written by SplitTiles in the order they were
// cut (row by row, left to right).
type SplitResult struct {
	Tiles       []SplitTile `json:"tiles"`
	Count       int         `json:"count"`
	ImageWidth  int         `json:"image_width"`
	ImageHeight int         `json:"image_height"`
}

// SplitTiles cuts img into overlapping tiles and writes each one to
// outDir/<prefix>_<x>_<y>.png, where (x, y) is the tile origin in the source
// image. The names are the identifiers the merge step expects, so tiles that
// go through a classifier and keep their names can be merged straight back.
//
// Returns an error if the tile size is not positive or a file cannot be
// written; tiles written before the error are left in place.
func SplitTiles(img image.Image, outDir string, opts SplitOptions) (*SplitResult, error) {
	if opts.TileWidth <= 0 || opts.TileHeight <= 0 {
		return nil, fmt.Errorf("invalid tile size %dx%d", opts.TileWidth, opts.TileHeight)
	}
	strideX, strideY := opts.StrideX, opts.StrideY
	if strideX <= 0 {
		strideX = max(opts.TileWidth/2, 1)
	}
	if strideY <= 0 {
		strideY = max(opts.TileHeight/2, 1)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "tile"
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create tile directory: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	result := &SplitResult{ImageWidth: width, ImageHeight: height}

	for y := 0; y < height; y += strideY {
		for x := 0; x < width; x += strideX {
			rect := image.Rect(x, y, x+opts.TileWidth, y+opts.TileHeight).Add(bounds.Min)
			var tile image.Image = imaging.Crop(img, rect)
			if opts.Pad {
				canvas := imaging.New(opts.TileWidth, opts.TileHeight, color.NRGBA{})
				tile = imaging.Paste(canvas, tile, image.Point{})
			}

			path := filepath.Join(outDir, fmt.Sprintf("%s_%d_%d.png", prefix, x, y))
			if err := imaging.Save(tile, path); err != nil {
				return result, fmt.Errorf("failed to save tile %s: %w", path, err)
			}

			tb := tile.Bounds()
			result.Tiles = append(result.Tiles, SplitTile{
				Path:   path,
				X:      x,
				Y:      y,
				Width:  tb.Dx(),
				Height: tb.Dy(),
			})
		}
	}

	result.Count = len(result.Tiles)
	return result, nil
}

// FilterTilesBySize deletes files in dir that are smaller than minBytes and
// returns the names it removed, sorted.
//
// Nearly uniform tiles compress to very small PNGs, so file size is a cheap
// way to drop tiles with nothing in them before classification.
func FilterTilesBySize(dir string, minBytes int64) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read tile directory: %w", err)
	}

	var removed []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return removed, fmt.Errorf("failed to stat %s: %w", e.Name(), err)
		}
		if info.Size() >= minBytes {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
		removed = append(removed, e.Name())
	}

	sort.Strings(removed)
	return removed, nil
}
