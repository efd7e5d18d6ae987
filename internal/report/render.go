package report

import (
	"fmt"
	"image"
	"image/color"
	"strconv"

	"github.com/ironsheep/mosaic-geo/internal/imaging"
)

// LabelStyle controls RenderLabeled.
type LabelStyle struct {
	// BoxColor is a hex colour for every box. Empty gives each object its
	// own colour from imaging.Palette.
	BoxColor string

	// Thickness is the box line width in pixels (minimum 1).
	Thickness int
}

// RenderLabeled draws each record's bounding box and label number over img.
// Labels are placed at the object's pixel centroid.
func RenderLabeled(img image.Image, records []Record, style LabelStyle) (*image.RGBA, error) {
	var fixed *color.RGBA
	if style.BoxColor != "" {
		c, err := imaging.ParseHexColor(style.BoxColor)
		if err != nil {
			return nil, fmt.Errorf("invalid box colour: %w", err)
		}
		fixed = &c
	}

	palette := imaging.Palette(len(records))
	origin := img.Bounds().Min
	boxes := make([]imaging.LabelBox, len(records))
	for i, r := range records {
		c := palette[i]
		if fixed != nil {
			c = *fixed
		}
		boxes[i] = imaging.LabelBox{
			Rect:   r.Bounds.Add(origin),
			Anchor: image.Pt(r.CenterX, r.CenterY).Add(origin),
			Text:   strconv.Itoa(r.Label),
			Color:  c,
		}
	}

	return imaging.DrawLabels(img, boxes, style.Thickness), nil
}
