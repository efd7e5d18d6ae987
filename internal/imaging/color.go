package imaging

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA" (the leading '#' is
// optional).
func ParseHexColor(hex string) (color.RGBA, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")

	var alpha uint8 = 255
	switch len(s) {
	case 6:
	case 8:
		a, err := strconv.ParseUint(s[6:], 16, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid alpha in color %q: %w", hex, err)
		}
		alpha = uint8(a)
		s = s[:6]
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: want #RRGGBB or #RRGGBBAA", hex)
	}

	c, err := colorful.Hex("#" + s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()

	// color.RGBA is alpha-premultiplied.
	return color.RGBA{
		R: premultiply(r, alpha),
		G: premultiply(g, alpha),
		B: premultiply(b, alpha),
		A: alpha,
	}, nil
}

func premultiply(v, a uint8) uint8 {
	return uint8((uint32(v)*uint32(a) + 127) / 255)
}

// goldenAngle spreads consecutive hues as far apart as possible.
const goldenAngle = 137.50776405003785

// Palette returns n distinct, saturated colours in a fixed order, so the same
// object label always gets the same colour.
func Palette(n int) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := range out {
		h := math.Mod(float64(i)*goldenAngle, 360)
		c := colorful.Hsv(h, 0.85, 0.95).Clamped()
		r, g, b := c.RGB255()
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

// Hex formats c as "#RRGGBB", dropping alpha.
func Hex(c color.Color) string {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		// Fully transparent colours cannot be un-premultiplied.
		return "#000000"
	}
	return strings.ToUpper(cf.Hex())
}
