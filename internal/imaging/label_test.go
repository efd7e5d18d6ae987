package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestDrawLabels_BoxOutline(t *testing.T) {
	img := createInMemoryImage(40, 40, color.Black)
	red := color.RGBA{255, 0, 0, 255}

	out := DrawLabels(img, []LabelBox{{
		Rect:   image.Rect(10, 10, 30, 30),
		Anchor: image.Pt(100, 100), // off-image label is clipped away
		Text:   "1",
		Color:  red,
	}}, 2)

	if out.Bounds() != img.Bounds() {
		t.Fatalf("bounds changed: %v", out.Bounds())
	}

	checks := []struct {
		p    image.Point
		want color.RGBA
	}{
		{image.Pt(10, 10), red},
		{image.Pt(11, 20), red},
		{image.Pt(29, 29), red},
		{image.Pt(20, 28), red},
		{image.Pt(12, 12), color.RGBA{0, 0, 0, 255}},
		{image.Pt(20, 20), color.RGBA{0, 0, 0, 255}},
		{image.Pt(30, 30), color.RGBA{0, 0, 0, 255}},
	}
	for _, c := range checks {
		if got := out.RGBAAt(c.p.X, c.p.Y); got != c.want {
			t.Errorf("pixel %v: got %v, want %v", c.p, got, c.want)
		}
	}

	// Source untouched.
	if r, _, _, _ := img.At(10, 10).RGBA(); r != 0 {
		t.Error("DrawLabels must not modify its input")
	}
}

func TestDrawLabels_Text(t *testing.T) {
	img := createInMemoryImage(30, 12, color.Black)
	fg := color.RGBA{0, 255, 0, 255}

	out := DrawLabels(img, []LabelBox{{
		Rect:   image.Rectangle{},
		Anchor: image.Pt(2, 2),
		Text:   "17",
		Color:  fg,
	}}, 1)

	// '1' row 0 is "010": only the middle column is lit.
	if got := out.RGBAAt(3, 2); got != fg {
		t.Errorf("glyph pixel (3,2): got %v, want %v", got, fg)
	}
	if got := out.RGBAAt(2, 2); got == fg {
		t.Error("pixel (2,2) should be background, not glyph")
	}
	// '7' starts one advance later; its top row is "111".
	for x := 6; x < 9; x++ {
		if got := out.RGBAAt(x, 2); got != fg {
			t.Errorf("glyph pixel (%d,2): got %v, want %v", x, got, fg)
		}
	}
}

func TestDrawLabels_ClipsAtEdges(t *testing.T) {
	img := createInMemoryImage(10, 10, color.Black)
	// Must not panic when boxes and labels run off the image.
	out := DrawLabels(img, []LabelBox{
		{Rect: image.Rect(-5, -5, 5, 5), Anchor: image.Pt(-3, -3), Text: "123", Color: color.RGBA{255, 255, 255, 255}},
		{Rect: image.Rect(8, 8, 20, 20), Anchor: image.Pt(8, 8), Text: "9", Color: color.RGBA{255, 255, 255, 255}},
		{Rect: image.Rect(50, 50, 60, 60), Anchor: image.Pt(50, 50), Text: "x", Color: color.RGBA{255, 255, 255, 255}},
	}, 3)
	if out.Bounds().Dx() != 10 {
		t.Errorf("unexpected bounds %v", out.Bounds())
	}
}

func TestLabelSize(t *testing.T) {
	if got := LabelSize("12"); got != image.Pt(9, 7) {
		t.Errorf("LabelSize: got %v, want (9,7)", got)
	}
}
