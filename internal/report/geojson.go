package report

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/ironsheep/mosaic-geo/internal/geo"
)

// GeoJSON builds a FeatureCollection with one feature per record.
//
// Each feature's geometry is the object centroid in WGS84. With outlines set,
// objects whose contour has at least three points get their outline instead,
// reprojected vertex by vertex through t and crs; the centroid then stays
// available in the center_lat/center_long properties.
func GeoJSON(records []Record, t geo.GeoTransform, crs *geo.CRSTransform, outlines bool) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()

	for _, r := range records {
		var g orb.Geometry = orb.Point{r.CenterLong, r.CenterLat}
		if outlines && len(r.Contour) >= 3 {
			poly, err := outline(r, t, crs)
			if err != nil {
				return nil, err
			}
			g = poly
		}

		f := geojson.NewFeature(g)
		f.ID = r.Label
		f.Properties["label"] = r.Label
		f.Properties["pixel_area"] = r.PixelArea
		f.Properties["real_area"] = r.RealArea
		f.Properties["center_x"] = r.CenterX
		f.Properties["center_y"] = r.CenterY
		f.Properties["center_lat"] = r.CenterLat
		f.Properties["center_long"] = r.CenterLong
		fc.Append(f)
	}

	return fc, nil
}

func outline(r Record, t geo.GeoTransform, crs *geo.CRSTransform) (orb.Polygon, error) {
	ring := make(orb.Ring, 0, len(r.Contour)+1)
	for _, p := range r.Contour {
		ll, err := geo.PixelToGeo(t, crs, float64(p.X), float64(p.Y))
		if err != nil {
			return nil, fmt.Errorf("outline of object %d: %w", r.Label, err)
		}
		ring = append(ring, ll.Point())
	}
	ring = append(ring, ring[0])

	// GeoJSON wants counter-clockwise outer rings.
	if ring.Orientation() == orb.CW {
		ring.Reverse()
	}
	return orb.Polygon{ring}, nil
}

// WriteGeoJSON writes the GeoJSON FeatureCollection for records to w.
func WriteGeoJSON(w io.Writer, records []Record, t geo.GeoTransform, crs *geo.CRSTransform, outlines bool) error {
	fc, err := GeoJSON(records, t, crs, outlines)
	if err != nil {
		return err
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode geojson: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write geojson: %w", err)
	}
	return nil
}
