package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ironsheep/mosaic-geo/internal/config"
	"github.com/ironsheep/mosaic-geo/internal/detection"
	"github.com/ironsheep/mosaic-geo/internal/geo"
	"github.com/ironsheep/mosaic-geo/internal/imaging"
	"github.com/ironsheep/mosaic-geo/internal/mosaic"
	"github.com/ironsheep/mosaic-geo/internal/report"
	"github.com/ironsheep/mosaic-geo/internal/store"
)

// GeodeticError means the mosaic was produced but could not be measured on
// the ground: the CRS could not be initialised or a point could not be
// reprojected.
type GeodeticError struct {
	Err error
}

func (e *GeodeticError) Error() string {
	return "georeferencing failed: " + e.Err.Error()
}

func (e *GeodeticError) Unwrap() error {
	return e.Err
}

// Artifacts lists the files a run wrote. Unwritten artifacts are empty.
type Artifacts struct {
	Mosaic     string `json:"mosaic"`
	FailureLog string `json:"failure_log"`
	Raster     string `json:"raster,omitempty"`
	WorldFile  string `json:"world_file,omitempty"`
	PRJ        string `json:"prj,omitempty"`
	CSV        string `json:"csv,omitempty"`
	GeoJSON    string `json:"geojson,omitempty"`
	Labeled    string `json:"labeled,omitempty"`
	Database   string `json:"database,omitempty"`
}

// Result describes a run.
type Result struct {
	RunID string `json:"run_id"`

	Canvas    *mosaic.Canvas        `json:"-"`
	Failures  []mosaic.MergeFailure `json:"failures"`
	TileCount int                   `json:"tile_count"`
	Merged    int                   `json:"merged"`

	// Set once georeferencing succeeds.
	Transform geo.GeoTransform           `json:"-"`
	CRS       *geo.CRSTransform          `json:"-"`
	Objects   []detection.DetectedObject `json:"-"`
	Records   []report.Record            `json:"records"`
	Summary   report.Summary             `json:"summary"`

	Artifacts Artifacts `json:"artifacts"`
}

// Run executes the full pipeline described by cfg.
//
// Load and merge problems with individual tiles are reported in
// Result.Failures (load failures first, then merge failures) and never fail
// the run. A *GeodeticError is returned alongside a non-nil Result whose
// mosaic artifacts are written. Other errors (unreadable tile directory,
// unwritable output, cancellation) return a nil Result.
func Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	if err := cfg.ValidateRun(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	res := &Result{RunID: uuid.New().String()}
	debugf("run %s: loading tiles from %s", res.RunID, cfg.Tiles.Dir)

	tiles, loadFailures, err := mosaic.LoadTiles(cfg.Tiles.Dir)
	if err != nil {
		return nil, fmt.Errorf("load tiles: %w", err)
	}
	res.TileCount = len(tiles) + len(loadFailures)

	if cfg.Preprocess.Enabled {
		tiles, err = PreprocessTiles(ctx, tiles, cfg.Preprocess, cfg.Tiles.Workers)
		if err != nil {
			return nil, fmt.Errorf("preprocess tiles: %w", err)
		}
	}

	merged, err := merge(ctx, tiles, cfg.Tiles)
	if err != nil {
		return nil, fmt.Errorf("merge tiles: %w", err)
	}
	res.Canvas = merged.Canvas
	res.Merged = merged.Merged
	res.Failures = append(loadFailures, merged.Failures...)
	debugf("run %s: merged %d of %d tiles, %d failures", res.RunID, res.Merged, res.TileCount, len(res.Failures))

	res.Artifacts.Mosaic = cfg.Output.Path(cfg.Output.Mosaic)
	if err := mosaic.SaveMosaic(res.Artifacts.Mosaic, res.Canvas); err != nil {
		return nil, err
	}
	if cfg.Output.FailureLog != "" {
		res.Artifacts.FailureLog = cfg.Output.Path(cfg.Output.FailureLog)
		err := writeFile(res.Artifacts.FailureLog, func(w io.Writer) error {
			return mosaic.WriteFailureLog(w, res.Failures)
		})
		if err != nil {
			return nil, err
		}
	}

	if err := measure(ctx, cfg, res); err != nil {
		var gerr *GeodeticError
		if errors.As(err, &gerr) {
			log.Printf("run %s: %v", res.RunID, gerr)
			if aerr := archive(ctx, cfg, res, gerr); aerr != nil {
				return nil, aerr
			}
			return res, gerr
		}
		return nil, err
	}

	if err := archive(ctx, cfg, res, nil); err != nil {
		return nil, err
	}
	return res, nil
}

func merge(ctx context.Context, tiles []mosaic.Tile, cfg config.TilesConfig) (*mosaic.MergeResult, error) {
	if cfg.Workers > 1 {
		return mosaic.MergeParallel(ctx, tiles, cfg.Width, cfg.Height, cfg.Workers)
	}
	return mosaic.MergeContext(ctx, tiles, cfg.Width, cfg.Height)
}

// measure georeferences the canvas and writes the measurement report.
func measure(ctx context.Context, cfg *config.Config, res *Result) error {
	t, err := geo.BuildAffine(res.Canvas.Width, res.Canvas.Height,
		cfg.Georef.TopLeft.Point(), cfg.Georef.BottomRight.Point())
	if err != nil {
		return &GeodeticError{Err: err}
	}
	crs, err := geo.BuildReprojection(cfg.Georef.SourceCRS)
	if err != nil {
		return &GeodeticError{Err: err}
	}
	debugf("run %s: transform %s, source %s", res.RunID, t, cfg.Georef.SourceCRS)

	mosaicImg := mosaic.MosaicImage(res.Canvas)
	if cfg.Output.Raster != "" {
		g, err := geo.WriteGeoreferenced(cfg.Output.Dir, cfg.Output.Raster, mosaicImg, t, crs)
		if err != nil {
			return err
		}
		res.Artifacts.Raster = g.ImagePath
		res.Artifacts.WorldFile = g.WorldFilePath
		res.Artifacts.PRJ = g.PRJPath
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	objects, err := detection.ExtractObjects(res.Canvas.Gray(), t, crs)
	if err != nil {
		return &GeodeticError{Err: err}
	}
	res.Transform = t
	res.CRS = crs
	res.Objects = objects
	res.Records = report.Records(objects)
	res.Summary = report.Summarize(res.Records)
	debugf("run %s: %d objects, total area %g", res.RunID, res.Summary.Count, res.Summary.TotalRealArea)

	if cfg.Output.CSV != "" {
		res.Artifacts.CSV = cfg.Output.Path(cfg.Output.CSV)
		err := writeFile(res.Artifacts.CSV, func(w io.Writer) error {
			return report.WriteCSV(w, res.Records)
		})
		if err != nil {
			return err
		}
	}

	if cfg.Output.GeoJSON != "" {
		fc, err := report.GeoJSON(res.Records, t, crs, cfg.Output.GeoJSONOutlines)
		if err != nil {
			return &GeodeticError{Err: err}
		}
		data, err := fc.MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to encode geojson: %w", err)
		}
		res.Artifacts.GeoJSON = cfg.Output.Path(cfg.Output.GeoJSON)
		if err := os.WriteFile(res.Artifacts.GeoJSON, data, 0o644); err != nil {
			return fmt.Errorf("failed to write geojson: %w", err)
		}
	}

	if cfg.Output.Labeled != "" {
		labeled, err := report.RenderLabeled(mosaicImg, res.Records, report.LabelStyle{
			BoxColor:  cfg.Label.BoxColor,
			Thickness: cfg.Label.Thickness,
		})
		if err != nil {
			return err
		}
		res.Artifacts.Labeled = cfg.Output.Path(cfg.Output.Labeled)
		if err := imaging.Save(res.Artifacts.Labeled, labeled); err != nil {
			return err
		}
	}

	return nil
}

// archive stores the run when a database is configured. gerr, if set, marks
// the run as geodetically failed.
func archive(ctx context.Context, cfg *config.Config, res *Result, gerr *GeodeticError) error {
	if cfg.Output.Database == "" {
		return nil
	}
	if dir := filepath.Dir(cfg.Output.Database); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := store.Open(cfg.Output.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	run := &store.Run{
		RunID:         res.RunID,
		TilesDir:      cfg.Tiles.Dir,
		CanvasWidth:   res.Canvas.Width,
		CanvasHeight:  res.Canvas.Height,
		TileCount:     res.TileCount,
		MergedCount:   res.Merged,
		SourceCRS:     cfg.Georef.SourceCRS,
		ObjectCount:   res.Summary.Count,
		TotalRealArea: res.Summary.TotalRealArea,
		Status:        store.StatusCompleted,
	}
	if gerr != nil {
		run.Status = store.StatusGeodeticFailed
		run.Error = gerr.Error()
	} else {
		gdal := res.Transform.GDAL()
		run.Transform = gdal[:]
	}

	failures := make([]store.Failure, len(res.Failures))
	for i, f := range res.Failures {
		failures[i] = store.Failure{TileID: f.TileID, Reason: string(f.Reason), Message: f.Message()}
	}

	if err := store.NewRunStore(db).Archive(ctx, run, failures, res.Records); err != nil {
		return fmt.Errorf("archive run: %w", err)
	}
	res.Artifacts.Database = cfg.Output.Database
	debugf("run %s: archived to %s", res.RunID, cfg.Output.Database)
	return nil
}

// writeFile creates path and hands it to write.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
