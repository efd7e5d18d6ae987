package detection

import (
	"fmt"
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/ironsheep/mosaic-geo/internal/geo"
)

// DetectedObject is one foreground region measured in pixel and world terms.
type DetectedObject struct {
	// Contour is the region's outer border (simplified).
	Contour Contour `json:"-"`

	// Bounds is the bounding box of the contour (exclusive Max).
	Bounds image.Rectangle `json:"bounds"`

	// PixelArea is the polygon area enclosed by the contour, in pixels².
	// Single pixels and straight lines have zero area.
	PixelArea float64 `json:"pixel_area"`

	// PixelCentroid is the polygon centroid truncated toward zero, or (0, 0)
	// for regions with zero area.
	PixelCentroid image.Point `json:"pixel_centroid"`

	// RealArea is PixelArea scaled by the size of one pixel in source units.
	RealArea float64 `json:"real_area"`

	// Centroid is PixelCentroid converted to WGS84.
	Centroid geo.LatLon `json:"centroid"`
}

// ExtractObjects finds the outermost foreground regions of mask and measures
// each one.
//
// Parameters:
//   - mask: classification raster; any pixel with a gray level above zero is
//     foreground.
//   - t: pixel-to-source transform for the raster.
//   - crs: reprojection from the source system to WGS84, nil for WGS84 input.
//
// Returns objects in contour discovery order (see FindExternalContours). The
// only error source is a failed reprojection; regions with zero area are
// reported, not rejected.
func ExtractObjects(mask image.Image, t geo.GeoTransform, crs *geo.CRSTransform) ([]DetectedObject, error) {
	contours := FindExternalContours(Binarize(mask))
	objects := make([]DetectedObject, 0, len(contours))

	for i, c := range contours {
		area, centroid := centroidOf(c)

		ll, err := geo.PixelToGeo(t, crs, float64(centroid.X), float64(centroid.Y))
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i+1, err)
		}

		objects = append(objects, DetectedObject{
			Contour:       c,
			Bounds:        c.Bounds(),
			PixelArea:     area,
			PixelCentroid: centroid,
			RealArea:      area * t.PixelArea(),
			Centroid:      ll,
		})
	}

	return objects, nil
}

// centroidOf returns the polygon area of c and its centroid truncated toward
// zero. Degenerate polygons (area 0) have centroid (0, 0).
func centroidOf(c Contour) (float64, image.Point) {
	if len(c) < 3 {
		return 0, image.Point{}
	}

	ring := make(orb.Ring, 0, len(c)+1)
	for _, p := range c {
		ring = append(ring, orb.Point{float64(p.X), float64(p.Y)})
	}
	ring = append(ring, ring[0])

	center, area := planar.CentroidArea(ring)
	area = math.Abs(area)
	if area == 0 {
		return 0, image.Point{}
	}
	return area, image.Point{X: int(center.X()), Y: int(center.Y())}
}
