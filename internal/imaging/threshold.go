package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// ThresholdMask converts img to a 0/1 mask.
//
// The image is reduced to luminance first, then every pixel whose luminance,
// on a 0..1 scale, is strictly greater than threshold becomes 1. A threshold of
// 0.5 therefore keeps pixels of gray level 128 and above.
func ThresholdMask(img image.Image, threshold float64) *image.Gray {
	level := thresholdLevel(threshold)
	gray := effect.Grayscale(img)

	var out *image.Gray
	if level > 255 {
		out = image.NewGray(gray.Bounds())
	} else {
		out = segment.Threshold(gray, uint8(level))
	}

	for i, v := range out.Pix {
		if v != 0 {
			out.Pix[i] = 1
		}
	}
	return out
}

// thresholdLevel is the smallest 8-bit gray level strictly above threshold.
// It is 256 when no level qualifies.
func thresholdLevel(threshold float64) int {
	if threshold < 0 {
		return 0
	}
	return int(math.Floor(threshold*255)) + 1
}
