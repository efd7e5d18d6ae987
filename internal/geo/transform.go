package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"golang.org/x/image/math/f64"
)

// ErrInvalidDimensions is returned by BuildAffine for non-positive raster sizes.
var ErrInvalidDimensions = errors.New("raster dimensions must be positive")

// GeoTransform is the affine pixel-to-coordinate model.
//
// Coefficients are stored row-major like f64.Aff3:
//
//	{scale_x, shear_x, origin_x,
//	 shear_y, scale_y, origin_y}
//
// so that
//
//	x = origin_x + col*scale_x + row*shear_x
//	y = origin_y + col*shear_y + row*scale_y
type GeoTransform f64.Aff3

// BuildAffine derives the transform for a pixelWidth×pixelHeight raster whose
// top-left and bottom-right corners are at the given coordinates.
//
// The y scale is always negative (row 0 is the northern edge) regardless of the
// order the corner latitudes are given in. Shear terms are zero.
//
// Parameters:
//   - pixelWidth, pixelHeight: raster size in pixels, both > 0
//   - topLeft, bottomRight: corner coordinates as orb.Point{lon, lat}
//
// Returns ErrInvalidDimensions if either size is not positive.
func BuildAffine(pixelWidth, pixelHeight int, topLeft, bottomRight orb.Point) (GeoTransform, error) {
	if pixelWidth <= 0 || pixelHeight <= 0 {
		return GeoTransform{}, fmt.Errorf("build affine for %dx%d: %w", pixelWidth, pixelHeight, ErrInvalidDimensions)
	}

	scaleX := (bottomRight.X() - topLeft.X()) / float64(pixelWidth)
	scaleY := -math.Abs((topLeft.Y() - bottomRight.Y()) / float64(pixelHeight))

	return GeoTransform{
		scaleX, 0, topLeft.X(),
		0, scaleY, topLeft.Y(),
	}, nil
}

// FromGDAL builds a transform from the GDAL coefficient order
// [origin_x, scale_x, shear_x, origin_y, shear_y, scale_y].
func FromGDAL(c [6]float64) GeoTransform {
	return GeoTransform{
		c[1], c[2], c[0],
		c[4], c[5], c[3],
	}
}

// GDAL returns the coefficients in GDAL order
// [origin_x, scale_x, shear_x, origin_y, shear_y, scale_y].
func (t GeoTransform) GDAL() [6]float64 {
	return [6]float64{t[2], t[0], t[1], t[5], t[3], t[4]}
}

// Apply maps a pixel position to source coordinates.
func (t GeoTransform) Apply(col, row float64) orb.Point {
	return orb.Point{
		t[2] + col*t[0] + row*t[1],
		t[5] + col*t[3] + row*t[4],
	}
}

// ScaleX is the width of one pixel in source units.
func (t GeoTransform) ScaleX() float64 { return t[0] }

// ScaleY is the height of one pixel in source units (negative for north-up).
func (t GeoTransform) ScaleY() float64 { return t[4] }

// Origin is the coordinate of the top-left corner of pixel (0, 0).
func (t GeoTransform) Origin() orb.Point { return orb.Point{t[2], t[5]} }

// PixelArea is the area one pixel covers in source units squared.
func (t GeoTransform) PixelArea() float64 {
	return t.ScaleX() * math.Abs(t.ScaleY())
}

func (t GeoTransform) String() string {
	g := t.GDAL()
	return fmt.Sprintf("[%g, %g, %g, %g, %g, %g]", g[0], g[1], g[2], g[3], g[4], g[5])
}
