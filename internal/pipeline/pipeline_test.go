package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/mosaic-geo/internal/config"
	"github.com/ironsheep/mosaic-geo/internal/geo"
	"github.com/ironsheep/mosaic-geo/internal/gridkey"
	"github.com/ironsheep/mosaic-geo/internal/mosaic"
	"github.com/ironsheep/mosaic-geo/internal/store"
)

// writeGrayTile writes a w×h gray PNG whose pixels inside fg are set to v.
func writeGrayTile(t *testing.T, dir, name string, w, h int, fg image.Rectangle, v uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := fg.Min.Y; y < fg.Max.Y; y++ {
		for x := fg.Min.X; x < fg.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// testConfig sets up an 8×4 canvas with three tiles: one holding a 3×3
// square, one empty, one hanging off the canvas, plus a badly named file.
// One pixel is one degree, with the top-left corner at (0, 4).
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	tiles := filepath.Join(root, "tiles")
	require.NoError(t, os.MkdirAll(tiles, 0o755))

	writeGrayTile(t, tiles, "tile_0_0.png", 4, 4, image.Rect(1, 1, 4, 4), 255)
	writeGrayTile(t, tiles, "tile_4_0.png", 4, 4, image.Rectangle{}, 0)
	writeGrayTile(t, tiles, "tile_8_0.png", 4, 4, image.Rect(0, 0, 4, 4), 255)
	writeGrayTile(t, tiles, "badname.png", 4, 4, image.Rect(0, 0, 4, 4), 255)

	cfg := config.Default()
	cfg.Tiles.Dir = tiles
	cfg.Tiles.Width = 8
	cfg.Tiles.Height = 4
	cfg.Georef.TopLeft = config.Coordinate{0, 4}
	cfg.Georef.BottomRight = config.Coordinate{8, 0}
	cfg.Output.Dir = filepath.Join(root, "out")
	cfg.Output.Database = filepath.Join(root, "out", "runs.db")
	return cfg
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	res, err := Run(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, 4, res.TileCount)
	assert.Equal(t, 2, res.Merged)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, "badname", res.Failures[0].TileID)
	assert.Equal(t, mosaic.ReasonMalformedIdentifier, res.Failures[0].Reason)
	assert.Equal(t, "tile_8_0", res.Failures[1].TileID)
	assert.Equal(t, mosaic.ReasonGeometryMismatch, res.Failures[1].Reason)

	assert.Equal(t, 9, res.Canvas.Foreground())
	assert.Equal(t, [6]float64{0, 1, 0, 4, 0, -1}, res.Transform.GDAL())

	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, 1, rec.Label)
	assert.InDelta(t, 4, rec.PixelArea, 1e-12)
	assert.InDelta(t, 4, rec.RealArea, 1e-12)
	assert.Equal(t, 2, rec.CenterX)
	assert.Equal(t, 2, rec.CenterY)
	assert.InDelta(t, 2, rec.CenterLat, 1e-12)
	assert.InDelta(t, 2, rec.CenterLong, 1e-12)
	assert.Equal(t, 1, res.Summary.Count)

	log, err := os.ReadFile(res.Artifacts.FailureLog)
	require.NoError(t, err)
	assert.Equal(t, "badname\ntile_8_0\n", string(log))

	for _, p := range []string{
		res.Artifacts.Mosaic, res.Artifacts.Raster, res.Artifacts.WorldFile,
		res.Artifacts.PRJ, res.Artifacts.CSV, res.Artifacts.GeoJSON, res.Artifacts.Labeled,
	} {
		assert.FileExists(t, p)
	}

	g, err := geo.ReadGeoreferenced(res.Artifacts.Raster)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1, 0, 4, 0, -1}, gdalSlice(g.Transform), 1e-9)

	db, err := store.Open(res.Artifacts.Database)
	require.NoError(t, err)
	defer db.Close()
	rs := store.NewRunStore(db)

	run, err := rs.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, run.Status)
	assert.Equal(t, 2, run.MergedCount)

	failures, err := rs.ListFailures(ctx, res.RunID)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, "malformed_identifier", failures[0].Reason)

	objects, err := rs.ListObjects(ctx, res.RunID)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, image.Rect(1, 1, 4, 4), objects[0].Bounds)
}

func gdalSlice(t geo.GeoTransform) []float64 {
	g := t.GDAL()
	return g[:]
}

func TestRun_GeodeticError(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Georef.SourceCRS = "EPSG:1234"

	res, err := Run(ctx, cfg)
	require.Error(t, err)
	require.NotNil(t, res, "mosaic results survive a CRS failure")

	var gerr *GeodeticError
	require.True(t, errors.As(err, &gerr))
	assert.ErrorIs(t, err, geo.ErrCRSInitialization)

	assert.FileExists(t, res.Artifacts.Mosaic)
	assert.FileExists(t, res.Artifacts.FailureLog)
	assert.Empty(t, res.Artifacts.CSV)
	assert.Empty(t, res.Records)

	db, err := store.Open(cfg.Output.Database)
	require.NoError(t, err)
	defer db.Close()
	run, err := store.NewRunStore(db).GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusGeodeticFailed, run.Status)
	assert.Contains(t, run.Error, "EPSG:1234")
}

func TestRun_Errors(t *testing.T) {
	t.Run("missing tile dir", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Tiles.Dir = filepath.Join(t.TempDir(), "nope")
		res, err := Run(context.Background(), cfg)
		assert.Error(t, err)
		assert.Nil(t, res)
	})

	t.Run("no canvas size", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Tiles.Width = 0
		_, err := Run(context.Background(), cfg)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := Run(ctx, testConfig(t))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, res)
	})
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	seq := testConfig(t)
	seq.Output.Database = ""
	want, err := Run(context.Background(), seq)
	require.NoError(t, err)

	par := testConfig(t)
	par.Output.Database = ""
	par.Tiles.Workers = 3
	got, err := Run(context.Background(), par)
	require.NoError(t, err)

	if diff := cmp.Diff(want.Canvas, got.Canvas); diff != "" {
		t.Errorf("canvas mismatch (-sequential +parallel):\n%s", diff)
	}
	assert.Empty(t, got.Artifacts.Database)
}

func TestPreprocessTile(t *testing.T) {
	// 6×6: a blob on the left edge, a bright 2×2 interior blob and one dim
	// interior pixel.
	pix := make([]uint8, 36)
	set := func(x, y int, v uint8) { pix[y*6+x] = v }
	set(0, 0, 255)
	set(0, 1, 255)
	set(2, 2, 200)
	set(3, 2, 200)
	set(2, 3, 200)
	set(3, 3, 200)
	set(4, 4, 100)

	tile, err := mosaic.NewTile(gridkey.Key{ID: "tile_0_0", Prefix: "tile"}, 6, 6, pix)
	require.NoError(t, err)

	out := PreprocessTile(tile, config.PreprocessConfig{Threshold: 0.5, ClearBorder: true})
	want := make([]uint8, 36)
	want[2*6+2], want[2*6+3], want[3*6+2], want[3*6+3] = 1, 1, 1, 1
	if diff := cmp.Diff(want, out.Pix); diff != "" {
		t.Errorf("mask mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, tile.Key, out.Key)
	assert.Equal(t, uint8(255), tile.Pix[0], "input tile must not change")

	out = PreprocessTile(tile, config.PreprocessConfig{Threshold: 0.5, MinObjectSize: 3})
	assert.Equal(t, uint8(0), out.Pix[0], "2-pixel edge blob is too small")
	assert.Equal(t, uint8(1), out.Pix[2*6+2])
}

func TestPreprocessTiles_KeepsOrder(t *testing.T) {
	var tiles []mosaic.Tile
	for i := 0; i < 5; i++ {
		key, err := gridkey.Parse("tile_" + string(rune('0'+i)) + "_0")
		require.NoError(t, err)
		tile, err := mosaic.NewTile(key, 2, 2, []uint8{255, 0, 0, 0})
		require.NoError(t, err)
		tiles = append(tiles, tile)
	}

	out, err := PreprocessTiles(context.Background(), tiles, config.PreprocessConfig{Threshold: 0.5}, 3)
	require.NoError(t, err)
	require.Len(t, out, 5)
	for i, tile := range out {
		assert.Equal(t, tiles[i].Key, tile.Key)
		assert.Equal(t, []uint8{1, 0, 0, 0}, tile.Pix)
	}
}

func TestSplit_ThenRun(t *testing.T) {
	root := t.TempDir()

	// 8×8 source with one 3×3 block straddling all four tiles.
	src := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 3; y < 6; y++ {
		for x := 3; x < 6; x++ {
			src.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	srcPath := filepath.Join(root, "scene.png")
	f, err := os.Create(srcPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	cfg := config.Default()
	cfg.Split.Source = srcPath
	cfg.Split.OutDir = filepath.Join(root, "tiles")
	cfg.Split.TileWidth = 4
	cfg.Split.TileHeight = 4
	cfg.Split.StrideX = 4
	cfg.Split.StrideY = 4
	cfg.Split.MinFileSize = 0

	split, err := Split(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, split.Count)
	assert.Equal(t, 4, split.Kept)
	assert.Empty(t, split.Removed)

	cfg.Tiles.Dir = cfg.Split.OutDir
	cfg.Tiles.Width = 8
	cfg.Tiles.Height = 8
	cfg.Georef.TopLeft = config.Coordinate{0, 8}
	cfg.Georef.BottomRight = config.Coordinate{8, 0}
	cfg.Output.Dir = filepath.Join(root, "out")

	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 9, res.Canvas.Foreground())
	require.Len(t, res.Records, 1)
	assert.Equal(t, 4, res.Records[0].CenterX)
}

func TestSplit_RemovesSmallTiles(t *testing.T) {
	root := t.TempDir()
	srcPath := filepath.Join(root, "scene.png")
	f, err := os.Create(srcPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 10, 10))))
	require.NoError(t, f.Close())

	cfg := config.Default()
	cfg.Split.Source = srcPath
	cfg.Split.OutDir = filepath.Join(root, "tiles")
	cfg.Split.TileWidth = 4
	cfg.Split.TileHeight = 4
	cfg.Split.StrideX = 4
	cfg.Split.StrideY = 4
	cfg.Split.MinFileSize = 1 << 20

	res, err := Split(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 9, res.Count)
	assert.Len(t, res.Removed, 9)
	assert.Zero(t, res.Kept)

	_, err = Split(config.Default(), nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
