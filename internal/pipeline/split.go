package pipeline

import (
	"fmt"
	"os"

	"github.com/ironsheep/mosaic-geo/internal/config"
	"github.com/ironsheep/mosaic-geo/internal/imaging"
)

// SplitResult is the outcome of Split.
type SplitResult struct {
	*imaging.SplitResult

	// Removed lists tile files deleted for being under split.min_file_size.
	Removed []string `json:"removed"`

	// Kept is the number of tiles left on disk.
	Kept int `json:"kept"`
}

// Split cuts split.source into tiles under split.out_dir and then removes
// tiles smaller than split.min_file_size bytes. cache may be nil.
func Split(cfg *config.Config, cache *imaging.ImageCache) (*SplitResult, error) {
	if err := cfg.ValidateSplit(); err != nil {
		return nil, err
	}
	if cache == nil {
		cache = imaging.NewImageCache()
	}

	img, err := cache.Load(cfg.Split.Source)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Split.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tile dir: %w", err)
	}

	split, err := imaging.SplitTiles(img, cfg.Split.OutDir, cfg.Split.Options())
	if err != nil {
		return nil, err
	}
	res := &SplitResult{SplitResult: split}

	if cfg.Split.MinFileSize > 0 {
		res.Removed, err = imaging.FilterTilesBySize(cfg.Split.OutDir, cfg.Split.MinFileSize)
		if err != nil {
			return nil, err
		}
	}
	res.Kept = split.Count - len(res.Removed)
	debugf("split %s into %d tiles, removed %d small tiles", cfg.Split.Source, split.Count, len(res.Removed))
	return res, nil
}
