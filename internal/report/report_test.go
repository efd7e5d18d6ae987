package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/mosaic-geo/internal/detection"
	"github.com/ironsheep/mosaic-geo/internal/geo"
)

func sampleObjects() []detection.DetectedObject {
	return []detection.DetectedObject{
		{
			Contour:       detection.Contour{{1, 1}, {1, 3}, {3, 3}, {3, 1}},
			Bounds:        image.Rect(1, 1, 4, 4),
			PixelArea:     4,
			PixelCentroid: image.Pt(2, 2),
			RealArea:      16,
			Centroid:      geo.LatLon{Lat: 12.5, Lon: 77.25},
		},
		{
			Contour:   detection.Contour{{6, 0}},
			Bounds:    image.Rect(6, 0, 7, 1),
			PixelArea: 0,
			RealArea:  0,
			Centroid:  geo.LatLon{Lat: 13, Lon: 77},
		},
	}
}

func TestRecords_Labels(t *testing.T) {
	recs := Records(sampleObjects())
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].Label)
	assert.Equal(t, 2, recs[1].Label)
	assert.Equal(t, 2, recs[0].CenterX)
	assert.Equal(t, 77.25, recs[0].CenterLong)
	assert.Equal(t, 12.5, recs[0].CenterLat)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Records(sampleObjects())))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	want := [][]string{
		{"label", "pixel_area", "real_area", "center_x", "center_y", "center_lat", "center_long"},
		{"1", "4", "16", "2", "2", "12.5", "77.25"},
		{"2", "0", "0", "0", "0", "13", "77"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "label,pixel_area,real_area,center_x,center_y,center_lat,center_long\n", buf.String())
}

func TestGeoJSON_Points(t *testing.T) {
	tr := geo.FromGDAL([6]float64{77, 0.25, 0, 13, 0, -0.25})
	fc, err := GeoJSON(Records(sampleObjects()), tr, nil, false)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	p, ok := fc.Features[0].Geometry.(orb.Point)
	require.True(t, ok)
	assert.Equal(t, orb.Point{77.25, 12.5}, p)
	assert.Equal(t, 1, fc.Features[0].Properties["label"])
	assert.Equal(t, 16.0, fc.Features[0].Properties["real_area"])
}

func TestGeoJSON_Outlines(t *testing.T) {
	tr := geo.FromGDAL([6]float64{77, 0.25, 0, 13, 0, -0.25})
	fc, err := GeoJSON(Records(sampleObjects()), tr, nil, true)
	require.NoError(t, err)

	poly, ok := fc.Features[0].Geometry.(orb.Polygon)
	require.True(t, ok, "object with an area should have an outline")
	require.Len(t, poly, 1)
	ring := poly[0]
	assert.True(t, ring.Closed())
	assert.Equal(t, orb.CCW, ring.Orientation())
	assert.Len(t, ring, 5)

	// Single-pixel object keeps its centroid point.
	_, ok = fc.Features[1].Geometry.(orb.Point)
	assert.True(t, ok)
}

func TestWriteGeoJSON_RoundTrip(t *testing.T) {
	tr := geo.FromGDAL([6]float64{77, 0.25, 0, 13, 0, -0.25})

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, Records(sampleObjects()), tr, nil, false))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, "FeatureCollection", raw["type"])

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
	assert.InDelta(t, 4.0, fc.Features[0].Properties.MustFloat64("pixel_area"), 1e-12)
}

func TestSummarize(t *testing.T) {
	recs := []Record{
		{Label: 1, PixelArea: 1, RealArea: 10},
		{Label: 2, PixelArea: 2, RealArea: 20},
		{Label: 3, PixelArea: 3, RealArea: 60},
	}
	s := Summarize(recs)

	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 6, s.TotalPixelArea, 1e-12)
	assert.InDelta(t, 90, s.TotalRealArea, 1e-12)
	assert.InDelta(t, 30, s.MeanRealArea, 1e-12)
	assert.InDelta(t, 20, s.MedianRealArea, 1e-12)
	assert.InDelta(t, 10, s.MinRealArea, 1e-12)
	assert.InDelta(t, 60, s.MaxRealArea, 1e-12)
	// Sample standard deviation of {10, 20, 60}.
	assert.InDelta(t, math.Sqrt(700), s.StdDevRealArea, 1e-9)

	// Input order is untouched.
	assert.Equal(t, 10.0, recs[0].RealArea)
}

func TestSummarize_EdgeCases(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	s := Summarize([]Record{{Label: 1, RealArea: 5}})
	assert.Equal(t, 1, s.Count)
	assert.Zero(t, s.StdDevRealArea)
	assert.InDelta(t, 5, s.MedianRealArea, 1e-12)
}

func TestRenderLabeled(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 30, 30))
	recs := []Record{{Label: 1, Bounds: image.Rect(1, 1, 6, 6), CenterX: 20, CenterY: 20}}

	out, err := RenderLabeled(img, recs, LabelStyle{BoxColor: "#FF0000", Thickness: 1})
	require.NoError(t, err)
	red := color.RGBA{255, 0, 0, 255}
	assert.Equal(t, red, out.RGBAAt(1, 1))
	assert.Equal(t, red, out.RGBAAt(5, 5))
	assert.Equal(t, color.RGBA{}, out.RGBAAt(3, 3), "box interior stays untouched")

	// The label glyph for "1" lights (21, 20).
	assert.Equal(t, red, out.RGBAAt(21, 20))

	_, err = RenderLabeled(img, recs, LabelStyle{BoxColor: "red"})
	assert.Error(t, err)
}

func TestRenderLabeled_PaletteColours(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	recs := []Record{
		{Label: 1, Bounds: image.Rect(0, 0, 10, 10), CenterX: 30, CenterY: 30},
		{Label: 2, Bounds: image.Rect(20, 0, 30, 10), CenterX: 30, CenterY: 30},
	}

	out, err := RenderLabeled(img, recs, LabelStyle{})
	require.NoError(t, err)
	assert.NotEqual(t, out.RGBAAt(0, 5), out.RGBAAt(20, 5), "objects should get distinct colours")
}
