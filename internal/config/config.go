// Package config holds the run configuration shared by the pipeline, the CLI
// and the MCP tools.
//
// A configuration file is YAML. Every key is optional; missing keys keep the
// values from Default. Relative paths are resolved against the directory of
// the configuration file.
//
// Example:
//
//	tiles:
//	  dir: predictions
//	  width: 10240
//	  height: 8192
//	  workers: 4
//	preprocess:
//	  enabled: true
//	  threshold: 0.5
//	  clear_border: true
//	  min_object_size: 2400
//	georef:
//	  top_left: [77.5530, 12.9905]
//	  bottom_right: [77.5921, 12.9613]
//	  source_crs: EPSG:4326
//	output:
//	  dir: out
//	  database: out/runs.db
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/mosaic-geo/internal/imaging"
)

// ErrInvalidConfig is matched by every error returned from Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete run configuration.
type Config struct {
	Tiles      TilesConfig      `yaml:"tiles" json:"tiles"`
	Preprocess PreprocessConfig `yaml:"preprocess" json:"preprocess"`
	Split      SplitConfig      `yaml:"split" json:"split"`
	Georef     GeorefConfig     `yaml:"georef" json:"georef"`
	Output     OutputConfig     `yaml:"output" json:"output"`
	Label      LabelConfig      `yaml:"label" json:"label"`
}

// TilesConfig describes the tile set and the canvas it merges into.
type TilesConfig struct {
	Dir     string `yaml:"dir" json:"dir"`
	Width   int    `yaml:"width" json:"width"`
	Height  int    `yaml:"height" json:"height"`
	Workers int    `yaml:"workers" json:"workers"`
}

// PreprocessConfig controls the cleanup applied to each tile before merging.
type PreprocessConfig struct {
	Enabled       bool    `yaml:"enabled" json:"enabled"`
	Threshold     float64 `yaml:"threshold" json:"threshold"`
	ClearBorder   bool    `yaml:"clear_border" json:"clear_border"`
	MinObjectSize int     `yaml:"min_object_size" json:"min_object_size"`
}

// SplitConfig controls cutting a large source image into tiles.
type SplitConfig struct {
	Source      string `yaml:"source" json:"source"`
	OutDir      string `yaml:"out_dir" json:"out_dir"`
	Prefix      string `yaml:"prefix" json:"prefix"`
	TileWidth   int    `yaml:"tile_width" json:"tile_width"`
	TileHeight  int    `yaml:"tile_height" json:"tile_height"`
	StrideX     int    `yaml:"stride_x" json:"stride_x"`
	StrideY     int    `yaml:"stride_y" json:"stride_y"`
	Pad         bool   `yaml:"pad" json:"pad"`
	MinFileSize int64  `yaml:"min_file_size" json:"min_file_size"`
}

// Options converts c into the options SplitTiles takes.
func (c SplitConfig) Options() imaging.SplitOptions {
	return imaging.SplitOptions{
		TileWidth:  c.TileWidth,
		TileHeight: c.TileHeight,
		StrideX:    c.StrideX,
		StrideY:    c.StrideY,
		Pad:        c.Pad,
		Prefix:     c.Prefix,
	}
}

// Coordinate is an (x, y) pair: longitude/latitude or easting/northing.
type Coordinate [2]float64

// Point returns c as an orb.Point.
func (c Coordinate) Point() orb.Point { return orb.Point{c[0], c[1]} }

// GeorefConfig places the mosaic on the ground.
type GeorefConfig struct {
	TopLeft     Coordinate `yaml:"top_left" json:"top_left"`
	BottomRight Coordinate `yaml:"bottom_right" json:"bottom_right"`
	SourceCRS   string     `yaml:"source_crs" json:"source_crs"`
}

// OutputConfig names the artifacts a run writes. File names are relative
// to Dir.
type OutputConfig struct {
	Dir             string `yaml:"dir" json:"dir"`
	Mosaic          string `yaml:"mosaic" json:"mosaic"`
	FailureLog      string `yaml:"failure_log" json:"failure_log"`
	Raster          string `yaml:"raster" json:"raster"`
	CSV             string `yaml:"csv" json:"csv"`
	GeoJSON         string `yaml:"geojson" json:"geojson"`
	Labeled         string `yaml:"labeled" json:"labeled"`
	GeoJSONOutlines bool   `yaml:"geojson_outlines" json:"geojson_outlines"`

	// Database is the SQLite run archive. Empty disables archiving.
	Database string `yaml:"database" json:"database"`
}

// Path returns name inside the output directory. Empty names stay empty.
func (c OutputConfig) Path(name string) string {
	if name == "" {
		return ""
	}
	return filepath.Join(c.Dir, name)
}

// LabelConfig styles the labeled overview image.
type LabelConfig struct {
	// BoxColor is a hex colour; empty gives each object its own colour.
	BoxColor  string `yaml:"box_color" json:"box_color"`
	Thickness int    `yaml:"thickness" json:"thickness"`
}

// Default returns the configuration used for any key a file leaves out.
func Default() *Config {
	return &Config{
		Tiles: TilesConfig{
			Dir:     "tiles",
			Workers: 1,
		},
		Preprocess: PreprocessConfig{
			Threshold:     0.5,
			ClearBorder:   true,
			MinObjectSize: 2400,
		},
		Split: SplitConfig{
			OutDir:      "tiles",
			Prefix:      "tile",
			TileWidth:   256,
			TileHeight:  256,
			MinFileSize: 6496,
		},
		Georef: GeorefConfig{
			SourceCRS: "EPSG:4326",
		},
		Output: OutputConfig{
			Dir:        "out",
			Mosaic:     "mosaic.png",
			FailureLog: "failed_tiles.txt",
			Raster:     "mosaic_georef",
			CSV:        "objects.csv",
			GeoJSON:    "objects.geojson",
			Labeled:    "labeled.png",
		},
		Label: LabelConfig{
			Thickness: 2,
		},
	}
}

// Load reads a YAML configuration file over Default and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolve(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default without validating. Unknown keys are
// rejected so typos do not go unnoticed.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// resolve makes relative paths relative to base.
func (c *Config) resolve(base string) {
	for _, p := range []*string{
		&c.Tiles.Dir,
		&c.Split.Source,
		&c.Split.OutDir,
		&c.Output.Dir,
		&c.Output.Database,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// Validate checks value ranges. It does not require the inputs of any
// particular command; see ValidateRun and ValidateSplit.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Tiles.Width >= 0, "tiles.width must not be negative, got %d", c.Tiles.Width)
	check(c.Tiles.Height >= 0, "tiles.height must not be negative, got %d", c.Tiles.Height)
	check(c.Tiles.Workers >= 0, "tiles.workers must not be negative, got %d", c.Tiles.Workers)
	check(c.Preprocess.Threshold >= 0 && c.Preprocess.Threshold <= 1,
		"preprocess.threshold must be between 0 and 1, got %g", c.Preprocess.Threshold)
	check(c.Preprocess.MinObjectSize >= 0,
		"preprocess.min_object_size must not be negative, got %d", c.Preprocess.MinObjectSize)
	check(c.Split.TileWidth > 0 && c.Split.TileHeight > 0,
		"split tile size must be positive, got %dx%d", c.Split.TileWidth, c.Split.TileHeight)
	check(c.Split.StrideX >= 0 && c.Split.StrideY >= 0,
		"split stride must not be negative, got %d,%d", c.Split.StrideX, c.Split.StrideY)
	check(c.Split.MinFileSize >= 0, "split.min_file_size must not be negative, got %d", c.Split.MinFileSize)
	check(c.Label.Thickness >= 0, "label.thickness must not be negative, got %d", c.Label.Thickness)
	if c.Label.BoxColor != "" {
		_, err := imaging.ParseHexColor(c.Label.BoxColor)
		check(err == nil, "label.box_color: %v", err)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// ValidateRun checks that everything a merge-and-measure run needs is set.
func (c *Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch {
	case c.Tiles.Dir == "":
		return fmt.Errorf("%w: tiles.dir is required", ErrInvalidConfig)
	case c.Tiles.Width <= 0 || c.Tiles.Height <= 0:
		return fmt.Errorf("%w: tiles.width and tiles.height must be positive, got %dx%d",
			ErrInvalidConfig, c.Tiles.Width, c.Tiles.Height)
	case c.Output.Dir == "":
		return fmt.Errorf("%w: output.dir is required", ErrInvalidConfig)
	case c.Output.Mosaic == "":
		return fmt.Errorf("%w: output.mosaic is required", ErrInvalidConfig)
	}
	return nil
}

// ValidateSplit checks that everything a split needs is set.
func (c *Config) ValidateSplit() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch {
	case c.Split.Source == "":
		return fmt.Errorf("%w: split.source is required", ErrInvalidConfig)
	case c.Split.OutDir == "":
		return fmt.Errorf("%w: split.out_dir is required", ErrInvalidConfig)
	}
	return nil
}
