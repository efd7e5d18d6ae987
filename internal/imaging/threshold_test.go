package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestThresholdMask(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	img.Pix = []uint8{0, 100, 200, 255}

	got := ThresholdMask(img, 0.5)

	if diff := cmp.Diff([]uint8{0, 0, 1, 1}, got.Pix); diff != "" {
		t.Errorf("mask mismatch (-want +got):\n%s", diff)
	}
}

func TestThresholdMask_Scale(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 5, 1))
	img.Pix = []uint8{0, 1, 127, 128, 255}

	tests := []struct {
		threshold float64
		want      []uint8
	}{
		// Single-channel levels are rescaled like any other input.
		{0.5, []uint8{0, 0, 0, 1, 1}},
		// Zero keeps every nonzero level.
		{0, []uint8{0, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		got := ThresholdMask(img, tt.threshold)
		if diff := cmp.Diff(tt.want, got.Pix); diff != "" {
			t.Errorf("threshold %v: mask mismatch (-want +got):\n%s", tt.threshold, diff)
		}
	}
}

func TestThresholdMask_Colour(t *testing.T) {
	img := createInMemoryImage(2, 1, color.Black)
	img.Set(1, 0, color.RGBA{250, 250, 250, 255})

	got := ThresholdMask(img, 0.5)
	if got.Pix[0] != 0 || got.Pix[1] != 1 {
		t.Errorf("got %v, want [0 1]", got.Pix)
	}
}

func TestThresholdMask_Extremes(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	img.Pix = []uint8{0, 10, 255}

	if got := ThresholdMask(img, 1.0); got.Pix[2] != 0 {
		t.Errorf("threshold 1.0 should reject everything, got %v", got.Pix)
	}
	if got := ThresholdMask(img, -1); got.Pix[0] != 1 {
		t.Errorf("negative threshold should accept everything, got %v", got.Pix)
	}
}

func TestThresholdLevel(t *testing.T) {
	tests := []struct {
		threshold float64
		want      int
	}{
		{0, 1},
		{0.5, 128},
		{1, 256},
		{-0.1, 0},
	}
	for _, tt := range tests {
		if got := thresholdLevel(tt.threshold); got != tt.want {
			t.Errorf("thresholdLevel(%v): got %d, want %d", tt.threshold, got, tt.want)
		}
	}
}
