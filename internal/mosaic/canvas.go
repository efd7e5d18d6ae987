package mosaic

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/ironsheep/mosaic-geo/internal/gridkey"
)

// Canvas is the full-resolution raster being reconstructed.
//
// Pixels are stored row-major in Pix with a stride of Width, one byte per
// pixel. A freshly created canvas is all background (0).
type Canvas struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewCanvas returns an all-background canvas. Negative dimensions, or
// dimensions whose pixel count overflows int, are treated as zero, which
// yields a canvas that no tile can fit into.
func NewCanvas(width, height int) *Canvas {
	if width < 0 || height < 0 || (height > 0 && width > math.MaxInt/height) {
		width, height = 0, 0
	}
	return &Canvas{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// CanvasFromImage builds a canvas from the gray level of each pixel of img.
// Fully transparent pixels become 0.
func CanvasFromImage(img image.Image) *Canvas {
	b := img.Bounds()
	gray, ok := img.(*image.Gray)
	if !ok || b.Min != (image.Point{}) || gray.Stride != b.Dx() {
		gray = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	}
	c := &Canvas{Width: b.Dx(), Height: b.Dy(), Pix: make([]uint8, b.Dx()*b.Dy())}
	copy(c.Pix, gray.Pix)
	return c
}

// At returns the value at column x, row y. Out-of-range reads return 0.
func (c *Canvas) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return 0
	}
	return c.Pix[y*c.Width+x]
}

// Foreground counts nonzero pixels.
func (c *Canvas) Foreground() int {
	n := 0
	for _, v := range c.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Gray returns an *image.Gray view that shares the canvas pixels.
func (c *Canvas) Gray() *image.Gray {
	return &image.Gray{
		Pix:    c.Pix,
		Stride: c.Width,
		Rect:   image.Rect(0, 0, c.Width, c.Height),
	}
}

// Fits reports whether a w×h window at (x, y) lies fully inside the canvas.
// Offsets may be as large as any int, so the bounds are compared without
// adding them.
func (c *Canvas) Fits(x, y, w, h int) bool {
	if x < 0 || y < 0 || w <= 0 || h <= 0 {
		return false
	}
	return x <= c.Width && y <= c.Height && w <= c.Width-x && h <= c.Height-y
}

// GeometryMismatchError reports a tile whose window does not fit the canvas.
type GeometryMismatchError struct {
	TileID        string
	X, Y          int
	Width, Height int
	CanvasWidth   int
	CanvasHeight  int
}

func (e *GeometryMismatchError) Error() string {
	return fmt.Sprintf("tile %s (%dx%d at %d,%d) does not fit canvas %dx%d",
		e.TileID, e.Width, e.Height, e.X, e.Y, e.CanvasWidth, e.CanvasHeight)
}

// Tile is one rectangular piece of classification output.
type Tile struct {
	Key    gridkey.Key
	Width  int
	Height int
	Pix    []uint8
}

// NewTile validates dimensions and wraps pix (row-major, len w*h) as a tile.
func NewTile(key gridkey.Key, width, height int, pix []uint8) (Tile, error) {
	if width <= 0 || height <= 0 {
		return Tile{}, fmt.Errorf("tile %s: dimensions must be positive, got %dx%d", key.ID, width, height)
	}
	if len(pix) != width*height {
		return Tile{}, fmt.Errorf("tile %s: have %d pixels, want %d", key.ID, len(pix), width*height)
	}
	return Tile{Key: key, Width: width, Height: height, Pix: pix}, nil
}

// ID returns the tile identifier.
func (t Tile) ID() string {
	return t.Key.ID
}

// At returns the tile value at local column x, row y.
func (t Tile) At(x, y int) uint8 {
	return t.Pix[y*t.Width+x]
}
