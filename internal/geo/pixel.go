package geo

import (
	"fmt"

	"github.com/paulmach/orb"
)

// LatLon is a WGS84 position in decimal degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point returns the position as orb.Point{lon, lat}.
func (ll LatLon) Point() orb.Point {
	return orb.Point{ll.Lon, ll.Lat}
}

func (ll LatLon) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", ll.Lat, ll.Lon)
}

// PixelToGeo converts a pixel position to WGS84.
//
// The affine transform is applied first; when crs is non-nil the resulting
// source coordinate is reprojected. The only error source is the
// reprojection.
//
// # Example
//
//	t, _ := geo.BuildAffine(4849, 6937, orb.Point{77.10, 12.90}, orb.Point{77.12, 12.87})
//	ll, err := geo.PixelToGeo(t, nil, 2424, 3468)
func PixelToGeo(t GeoTransform, crs *CRSTransform, col, row float64) (LatLon, error) {
	p, err := crs.ToWGS84(t.Apply(col, row))
	if err != nil {
		return LatLon{}, fmt.Errorf("reproject pixel (%g, %g): %w", col, row, err)
	}
	return LatLon{Lat: p.Y(), Lon: p.X()}, nil
}
