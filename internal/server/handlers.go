package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"

	"github.com/ironsheep/mosaic-geo/internal/config"
	"github.com/ironsheep/mosaic-geo/internal/detection"
	"github.com/ironsheep/mosaic-geo/internal/geo"
	"github.com/ironsheep/mosaic-geo/internal/imaging"
	"github.com/ironsheep/mosaic-geo/internal/mosaic"
	"github.com/ironsheep/mosaic-geo/internal/pipeline"
	"github.com/ironsheep/mosaic-geo/internal/report"
	"github.com/ironsheep/mosaic-geo/internal/store"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "mosaic_merge").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads images from cache as needed
//  4. Calls the mosaic/geo/detection/report/pipeline function
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Tiling and Merging
	case "tiles_split":
		return s.handleTilesSplit(args)
	case "mosaic_merge":
		return s.handleMosaicMerge(ctx, args)

	// Georeferencing
	case "geo_affine":
		return s.handleGeoAffine(args)
	case "geo_pixel_to_geo":
		return s.handleGeoPixelToGeo(args)
	case "mosaic_georeference":
		return s.handleMosaicGeoreference(args)

	// Measurement
	case "objects_measure":
		return s.handleObjectsMeasure(args)

	// Pipeline
	case "pipeline_run":
		return s.handlePipelineRun(ctx, args)
	case "runs_list":
		return s.handleRunsList(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Tiling and Merging Handlers ===

type tilesSplitArgs struct {
	Path        string `json:"path"`
	OutDir      string `json:"out_dir"`
	TileWidth   int    `json:"tile_width"`
	TileHeight  int    `json:"tile_height"`
	StrideX     int    `json:"stride_x"`
	StrideY     int    `json:"stride_y"`
	Pad         bool   `json:"pad"`
	Prefix      string `json:"prefix"`
	MinFileSize *int64 `json:"min_file_size"`
}

func (s *Server) handleTilesSplit(args json.RawMessage) (interface{}, error) {
	var a tilesSplitArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	cfg := config.Default()
	cfg.Split.Source = a.Path
	cfg.Split.OutDir = a.OutDir
	if a.TileWidth != 0 {
		cfg.Split.TileWidth = a.TileWidth
	}
	if a.TileHeight != 0 {
		cfg.Split.TileHeight = a.TileHeight
	}
	cfg.Split.StrideX = a.StrideX
	cfg.Split.StrideY = a.StrideY
	cfg.Split.Pad = a.Pad
	if a.Prefix != "" {
		cfg.Split.Prefix = a.Prefix
	}
	if a.MinFileSize != nil {
		cfg.Split.MinFileSize = *a.MinFileSize
	}

	return pipeline.Split(cfg, s.cache)
}

type mosaicMergeArgs struct {
	TilesDir      string   `json:"tiles_dir"`
	Output        string   `json:"output"`
	Width         int      `json:"width"`
	Height        int      `json:"height"`
	Reference     string   `json:"reference"`
	FailureLog    string   `json:"failure_log"`
	Workers       int      `json:"workers"`
	Threshold     *float64 `json:"threshold"`
	MinObjectSize *int     `json:"min_object_size"`
}

type failureResult struct {
	TileID  string `json:"tile_id"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type mosaicMergeResult struct {
	Output     string          `json:"output"`
	FailureLog string          `json:"failure_log,omitempty"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Tiles      int             `json:"tiles"`
	Merged     int             `json:"merged"`
	Foreground int             `json:"foreground_pixels"`
	Failures   []failureResult `json:"failures"`
}

func (s *Server) handleMosaicMerge(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a mosaicMergeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.TilesDir == "" || a.Output == "" {
		return nil, errors.New("tiles_dir and output are required")
	}

	if a.Width == 0 && a.Height == 0 && a.Reference != "" {
		dims, err := imaging.GetDimensions(s.cache, a.Reference)
		if err != nil {
			return nil, err
		}
		a.Width, a.Height = dims.Width, dims.Height
	}
	if a.Width <= 0 || a.Height <= 0 {
		return nil, fmt.Errorf("canvas size must be positive, got %dx%d (give width and height or a reference image)", a.Width, a.Height)
	}

	tiles, failures, err := mosaic.LoadTiles(a.TilesDir)
	if err != nil {
		return nil, err
	}
	loaded := len(tiles) + len(failures)

	if a.Threshold != nil {
		pre := config.Default().Preprocess
		pre.Threshold = *a.Threshold
		if a.MinObjectSize != nil {
			pre.MinObjectSize = *a.MinObjectSize
		}
		tiles, err = pipeline.PreprocessTiles(ctx, tiles, pre, a.Workers)
		if err != nil {
			return nil, err
		}
	}

	res, err := mosaic.MergeParallel(ctx, tiles, a.Width, a.Height, a.Workers)
	if err != nil {
		return nil, err
	}
	failures = append(failures, res.Failures...)

	if err := mosaic.SaveMosaic(a.Output, res.Canvas); err != nil {
		return nil, err
	}
	// Replace any previous mosaic cached at the same path.
	s.cache.Store(a.Output, mosaic.MosaicImage(res.Canvas))

	if a.FailureLog != "" {
		f, err := os.Create(a.FailureLog)
		if err != nil {
			return nil, fmt.Errorf("failed to create failure log: %w", err)
		}
		werr := mosaic.WriteFailureLog(f, failures)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return nil, werr
		}
	}

	out := &mosaicMergeResult{
		Output:     a.Output,
		FailureLog: a.FailureLog,
		Width:      a.Width,
		Height:     a.Height,
		Tiles:      loaded,
		Merged:     res.Merged,
		Foreground: res.Canvas.Foreground(),
		Failures:   make([]failureResult, len(failures)),
	}
	for i, f := range failures {
		out.Failures[i] = failureResult{TileID: f.TileID, Reason: string(f.Reason), Message: f.Message()}
	}
	return out, nil
}

// === Georeferencing Handlers ===

type georefArgs struct {
	TopLeft     []float64 `json:"top_left"`
	BottomRight []float64 `json:"bottom_right"`
	SourceCRS   string    `json:"source_crs"`
}

func coordinate(name string, v []float64) (orb.Point, error) {
	if len(v) != 2 {
		return orb.Point{}, fmt.Errorf("%s must be [x, y], got %d values", name, len(v))
	}
	return orb.Point{v[0], v[1]}, nil
}

// placement builds the transform and reprojection for a width×height raster.
func (a georefArgs) placement(width, height int) (geo.GeoTransform, *geo.CRSTransform, error) {
	tl, err := coordinate("top_left", a.TopLeft)
	if err != nil {
		return geo.GeoTransform{}, nil, err
	}
	br, err := coordinate("bottom_right", a.BottomRight)
	if err != nil {
		return geo.GeoTransform{}, nil, err
	}
	t, err := geo.BuildAffine(width, height, tl, br)
	if err != nil {
		return geo.GeoTransform{}, nil, err
	}

	descriptor := a.SourceCRS
	if descriptor == "" {
		descriptor = "EPSG:4326"
	}
	crs, err := geo.BuildReprojection(descriptor)
	if err != nil {
		return geo.GeoTransform{}, nil, err
	}
	return t, crs, nil
}

type geoAffineArgs struct {
	georefArgs
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Path   string `json:"path"`
}

type geoAffineResult struct {
	Transform   [6]float64 `json:"transform"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	PixelArea   float64    `json:"pixel_area"`
	TopLeft     geo.LatLon `json:"top_left_wgs84"`
	BottomRight geo.LatLon `json:"bottom_right_wgs84"`
}

func (s *Server) handleGeoAffine(args json.RawMessage) (interface{}, error) {
	var a geoAffineArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Width == 0 && a.Height == 0 && a.Path != "" {
		dims, err := imaging.GetDimensions(s.cache, a.Path)
		if err != nil {
			return nil, err
		}
		a.Width, a.Height = dims.Width, dims.Height
	}

	t, crs, err := a.placement(a.Width, a.Height)
	if err != nil {
		return nil, err
	}
	origin, err := crs.ToWGS84(t.Origin())
	if err != nil {
		return nil, fmt.Errorf("reproject origin: %w", err)
	}
	tl := geo.LatLon{Lat: origin.Y(), Lon: origin.X()}
	br, err := geo.PixelToGeo(t, crs, float64(a.Width), float64(a.Height))
	if err != nil {
		return nil, err
	}

	return &geoAffineResult{
		Transform:   t.GDAL(),
		Width:       a.Width,
		Height:      a.Height,
		PixelArea:   t.PixelArea(),
		TopLeft:     tl,
		BottomRight: br,
	}, nil
}

type geoPixelToGeoArgs struct {
	Transform []float64 `json:"transform"`
	SourceCRS string    `json:"source_crs"`
	Points    []struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"points"`
}

type pixelGeoResult struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (s *Server) handleGeoPixelToGeo(args json.RawMessage) (interface{}, error) {
	var a geoPixelToGeoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Transform) != 6 {
		return nil, fmt.Errorf("transform must have 6 coefficients, got %d", len(a.Transform))
	}
	if a.SourceCRS == "" {
		a.SourceCRS = "EPSG:4326"
	}

	t := geo.FromGDAL([6]float64(a.Transform))
	crs, err := geo.BuildReprojection(a.SourceCRS)
	if err != nil {
		return nil, err
	}

	results := make([]pixelGeoResult, len(a.Points))
	for i, p := range a.Points {
		ll, err := geo.PixelToGeo(t, crs, p.X, p.Y)
		if err != nil {
			return nil, err
		}
		results[i] = pixelGeoResult{X: p.X, Y: p.Y, Lat: ll.Lat, Lon: ll.Lon}
	}
	return map[string]interface{}{
		"source_crs": a.SourceCRS,
		"points":     results,
	}, nil
}

type mosaicGeoreferenceArgs struct {
	georefArgs
	Path   string `json:"path"`
	OutDir string `json:"out_dir"`
	Base   string `json:"base"`
}

type georeferenceResult struct {
	Raster    string     `json:"raster"`
	WorldFile string     `json:"world_file"`
	PRJ       string     `json:"prj"`
	Transform [6]float64 `json:"transform"`
	EPSG      int        `json:"epsg"`
}

func (s *Server) handleMosaicGeoreference(args json.RawMessage) (interface{}, error) {
	var a mosaicGeoreferenceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	t, crs, err := a.placement(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}

	if a.OutDir == "" {
		a.OutDir = filepath.Dir(a.Path)
	}
	if a.Base == "" {
		a.Base = strings.TrimSuffix(filepath.Base(a.Path), filepath.Ext(a.Path)) + "_georef"
	}

	g, err := geo.WriteGeoreferenced(a.OutDir, a.Base, img, t, crs)
	if err != nil {
		return nil, err
	}
	s.cache.Evict(g.ImagePath)

	epsg := geo.EPSGWGS84
	if crs != nil {
		epsg = crs.EPSG()
	}
	return &georeferenceResult{
		Raster:    g.ImagePath,
		WorldFile: g.WorldFilePath,
		PRJ:       g.PRJPath,
		Transform: t.GDAL(),
		EPSG:      epsg,
	}, nil
}

// === Measurement Handlers ===

type objectsMeasureArgs struct {
	georefArgs
	Path     string `json:"path"`
	CSV      string `json:"csv"`
	GeoJSON  string `json:"geojson"`
	Outlines bool   `json:"outlines"`
	Labeled  string `json:"labeled"`
	BoxColor string `json:"box_color"`
}

type objectsMeasureResult struct {
	Transform [6]float64      `json:"transform"`
	Summary   report.Summary  `json:"summary"`
	Objects   []report.Record `json:"objects"`
	Artifacts []string        `json:"artifacts,omitempty"`
}

func (s *Server) handleObjectsMeasure(args json.RawMessage) (interface{}, error) {
	var a objectsMeasureArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	img, t, crs, err := s.measurable(a)
	if err != nil {
		return nil, err
	}

	objects, err := detection.ExtractObjects(img, t, crs)
	if err != nil {
		return nil, err
	}
	records := report.Records(objects)
	out := &objectsMeasureResult{
		Transform: t.GDAL(),
		Summary:   report.Summarize(records),
		Objects:   records,
	}

	if a.CSV != "" {
		if err := writeReport(a.CSV, func(f *os.File) error { return report.WriteCSV(f, records) }); err != nil {
			return nil, err
		}
		out.Artifacts = append(out.Artifacts, a.CSV)
	}
	if a.GeoJSON != "" {
		err := writeReport(a.GeoJSON, func(f *os.File) error {
			return report.WriteGeoJSON(f, records, t, crs, a.Outlines)
		})
		if err != nil {
			return nil, err
		}
		out.Artifacts = append(out.Artifacts, a.GeoJSON)
	}
	if a.Labeled != "" {
		labeled, err := report.RenderLabeled(img, records, report.LabelStyle{BoxColor: a.BoxColor, Thickness: 2})
		if err != nil {
			return nil, err
		}
		if err := imaging.Save(a.Labeled, labeled); err != nil {
			return nil, err
		}
		s.cache.Evict(a.Labeled)
		out.Artifacts = append(out.Artifacts, a.Labeled)
	}
	return out, nil
}

// measurable loads the raster to measure with its placement. A .tif with a
// world file carries its own placement unless corners are given.
func (s *Server) measurable(a objectsMeasureArgs) (image.Image, geo.GeoTransform, *geo.CRSTransform, error) {
	ext := strings.ToLower(filepath.Ext(a.Path))
	if a.TopLeft == nil && a.BottomRight == nil && (ext == ".tif" || ext == ".tiff") {
		g, err := geo.ReadGeoreferenced(a.Path)
		if err != nil {
			return nil, geo.GeoTransform{}, nil, err
		}
		crs, err := geo.BuildReprojection(g.CRS)
		if err != nil {
			return nil, geo.GeoTransform{}, nil, err
		}
		return g.Image, g.Transform, crs, nil
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, geo.GeoTransform{}, nil, err
	}
	b := img.Bounds()
	t, crs, err := a.placement(b.Dx(), b.Dy())
	if err != nil {
		return nil, geo.GeoTransform{}, nil, err
	}
	return img, t, crs, nil
}

func writeReport(path string, write func(f *os.File) error) error {
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

// === Pipeline Handlers ===

type pipelineRunArgs struct {
	Config string `json:"config"`
}

type pipelineRunResult struct {
	*pipeline.Result
	GeodeticError string `json:"geodetic_error,omitempty"`
}

func (s *Server) handlePipelineRun(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pipelineRunArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg, err := config.Load(a.Config)
	if err != nil {
		return nil, err
	}

	res, err := pipeline.Run(ctx, cfg)
	var gerr *pipeline.GeodeticError
	if err != nil && !errors.As(err, &gerr) {
		return nil, err
	}

	// The mosaic is rewritten even when georeferencing fails.
	for _, p := range []string{res.Artifacts.Mosaic, res.Artifacts.Raster, res.Artifacts.Labeled} {
		if p != "" {
			s.cache.Evict(p)
		}
	}
	out := &pipelineRunResult{Result: res}
	if gerr != nil {
		out.GeodeticError = gerr.Error()
	}
	return out, nil
}

type runsListArgs struct {
	Database string `json:"database"`
	Limit    int    `json:"limit"`
	RunID    string `json:"run_id"`
	Delete   bool   `json:"delete"`
}

type runDetail struct {
	*store.Run
	Failures []store.Failure `json:"failures"`
	Objects  []report.Record `json:"objects"`
}

func (s *Server) handleRunsList(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a runsListArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if _, err := os.Stat(a.Database); err != nil {
		return nil, fmt.Errorf("run archive: %w", err)
	}
	if a.Delete && a.RunID == "" {
		return nil, errors.New("delete requires run_id")
	}
	if a.Limit == 0 {
		a.Limit = 20
	}

	db, err := store.Open(a.Database)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rs := store.NewRunStore(db)

	if a.RunID == "" {
		runs, err := rs.ListRuns(ctx, a.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"runs": runs, "count": len(runs)}, nil
	}

	if a.Delete {
		if err := rs.DeleteRun(ctx, a.RunID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("run %s not found", a.RunID)
			}
			return nil, err
		}
		return map[string]interface{}{"deleted": a.RunID}, nil
	}

	run, err := rs.GetRun(ctx, a.RunID)
	if err != nil {
		return nil, err
	}
	failures, err := rs.ListFailures(ctx, a.RunID)
	if err != nil {
		return nil, err
	}
	objects, err := rs.ListObjects(ctx, a.RunID)
	if err != nil {
		return nil, err
	}
	return &runDetail{Run: run, Failures: failures, Objects: objects}, nil
}
