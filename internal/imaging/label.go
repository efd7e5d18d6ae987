package imaging

import (
	"image"
	"image/color"
	"image/draw"
)

// LabelBox is a rectangle to outline, with a text label drawn at Anchor.
type LabelBox struct {
	Rect   image.Rectangle
	Anchor image.Point
	Text   string
	Color  color.RGBA
}

// DrawLabels returns a copy of img with every box outlined (thickness pixels
// wide, drawn inside the rectangle) and its label drawn at its anchor on a
// dark background. Boxes are drawn in order, so later boxes are on top.
func DrawLabels(img image.Image, boxes []LabelBox, thickness int) *image.RGBA {
	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	if thickness < 1 {
		thickness = 1
	}
	bg := color.RGBA{0, 0, 0, 180}

	for _, b := range boxes {
		drawRect(result, b.Rect, thickness, b.Color)
		drawLabel(result, b.Anchor.X, b.Anchor.Y, b.Text, b.Color, bg)
	}
	return result
}

// drawRect outlines r with lines t pixels thick, clipped to the image.
func drawRect(img *image.RGBA, r image.Rectangle, t int, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, min(r.Min.Y+t, r.Max.Y)),
		image.Rect(r.Min.X, max(r.Max.Y-t, r.Min.Y), r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, min(r.Min.X+t, r.Max.X), r.Max.Y),
		image.Rect(max(r.Max.X-t, r.Min.X), r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e, src, image.Point{}, draw.Over)
	}
}

// glyphs is a 3x5 pixel font covering what labels need.
var glyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	',': {"000", "000", "000", "010", "010"},
	'.': {"000", "000", "000", "000", "010"},
	'-': {"000", "000", "111", "000", "000"},
	'#': {"101", "111", "101", "111", "101"},
}

const (
	glyphAdvance = 4
	glyphHeight  = 5
)

// LabelSize returns the pixel size drawLabel uses for text, background
// included.
func LabelSize(text string) image.Point {
	return image.Pt(len([]rune(text))*glyphAdvance+1, glyphHeight+2)
}

// drawLabel draws text with its top-left corner at (x, y). Unknown runes
// advance the cursor without drawing.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	bounds := img.Bounds()
	size := LabelSize(text)

	bgRect := image.Rect(x-1, y-1, x-1+size.X, y-1+size.Y).Intersect(bounds)
	draw.Draw(img, bgRect, image.NewUniform(bg), image.Point{}, draw.Over)

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += glyphAdvance
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel != '1' {
					continue
				}
				p := image.Pt(cx+col, y+row)
				if p.In(bounds) {
					img.SetRGBA(p.X, p.Y, fg)
				}
			}
		}
		cx += glyphAdvance
	}
}
