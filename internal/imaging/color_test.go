package imaging

import (
	"image/color"
	"testing"
)

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"#FF0000", color.RGBA{255, 0, 0, 255}},
		{"00ff00", color.RGBA{0, 255, 0, 255}},
		{"#0000FFFF", color.RGBA{0, 0, 255, 255}},
		{"#FFFFFF00", color.RGBA{0, 0, 0, 0}},
		{"#FF000080", color.RGBA{128, 0, 0, 128}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if err != nil {
				t.Fatalf("ParseHexColor(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseHexColor_Invalid(t *testing.T) {
	for _, in := range []string{"", "#", "#FFF", "#GGGGGG", "#FF0000ZZ", "#1234567"} {
		if _, err := ParseHexColor(in); err == nil {
			t.Errorf("ParseHexColor(%q) should fail", in)
		}
	}
}

func TestPalette(t *testing.T) {
	p := Palette(12)
	if len(p) != 12 {
		t.Fatalf("len: got %d, want 12", len(p))
	}

	seen := map[color.RGBA]bool{}
	for i, c := range p {
		if c.A != 255 {
			t.Errorf("colour %d not opaque: %v", i, c)
		}
		if seen[c] {
			t.Errorf("colour %d repeats: %v", i, c)
		}
		seen[c] = true
	}

	again := Palette(3)
	for i := range again {
		if again[i] != p[i] {
			t.Errorf("Palette must be deterministic: colour %d %v != %v", i, again[i], p[i])
		}
	}
}

func TestPalette_Empty(t *testing.T) {
	if got := Palette(0); len(got) != 0 {
		t.Errorf("Palette(0): got %d colours", len(got))
	}
}

func TestHex(t *testing.T) {
	if got := Hex(color.RGBA{255, 128, 0, 255}); got != "#FF8000" {
		t.Errorf("Hex: got %s, want #FF8000", got)
	}
	if got := Hex(color.NRGBA{10, 20, 30, 0}); got != "#000000" {
		t.Errorf("transparent Hex: got %s, want #000000", got)
	}
}
