package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// createInMemoryImage creates a solid in-memory image.
func createInMemoryImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createMaskImage creates a transparent image with an opaque white block,
// the way merged mosaics look.
func createMaskImage(width, height int, block image.Rectangle) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := block.Min.Y; y < block.Max.Y; y++ {
		for x := block.Min.X; x < block.Max.X; x++ {
			img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}
	return img
}

// writeTestImage encodes img as PNG into a temp dir and returns the path.
func writeTestImage(t *testing.T, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func cachedCount(c *ImageCache) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache()
	path := writeTestImage(t, "tile_0_0.png", createInMemoryImage(64, 48, color.White))

	img1, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b := img1.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("unexpected dimensions: got %dx%d, want 64x48", b.Dx(), b.Dy())
	}

	img2, err := cache.Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}
	if n := cachedCount(cache); n != 1 {
		t.Errorf("cached images: got %d, want 1", n)
	}
}

func TestImageCache_Load_Errors(t *testing.T) {
	cache := NewImageCache()

	if _, err := cache.Load(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Load should fail for a missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Load(bad); err == nil {
		t.Error("Load should fail for invalid image data")
	}
	if n := cachedCount(cache); n != 0 {
		t.Errorf("failed loads must not be cached, have %d", n)
	}
}

func TestImageCache_StoreEvict(t *testing.T) {
	cache := NewImageCache()
	img := createInMemoryImage(2, 2, color.Black)

	cache.Store("/virtual/a.png", img)
	cache.Store("/virtual/b.png", img)
	got, err := cache.Load("/virtual/a.png")
	if err != nil || got != image.Image(img) {
		t.Fatalf("Load after Store: got %v, %v", got, err)
	}

	cache.Evict("/virtual/a.png")
	cache.Evict("/virtual/never-loaded.png")
	if n := cachedCount(cache); n != 1 {
		t.Errorf("cached after Evict: got %d, want 1", n)
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache()
	path := writeTestImage(t, "m.png", createInMemoryImage(32, 32, color.Gray{128}))

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestLoadImageInfo_Mask(t *testing.T) {
	cache := NewImageCache()
	path := writeTestImage(t, "mosaic.png", createMaskImage(20, 10, image.Rect(2, 2, 7, 6)))

	info, err := LoadImageInfo(cache, path)
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}

	if info.Width != 20 || info.Height != 10 {
		t.Errorf("dimensions: got %dx%d, want 20x10", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
	if !info.HasAlpha {
		t.Error("mask mosaic should report an alpha channel")
	}
	if info.ForegroundPixels != 20 {
		t.Errorf("ForegroundPixels: got %d, want 20", info.ForegroundPixels)
	}
	if info.FileSizeBytes <= 0 {
		t.Error("FileSizeBytes should be positive")
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path   string
		format string
	}{
		{"a.png", "png"},
		{"a.PNG", "png"},
		{"a.jpg", "jpeg"},
		{"a.jpeg", "jpeg"},
		{"a.gif", "gif"},
		{"a.bmp", "bmp"},
		{"mosaic_georef.tif", "tiff"},
		{"a.tiff", "tiff"},
		{"tile_0_0.npy", "unknown"},
	}
	for _, tt := range tests {
		if got := formatOf(tt.path); got != tt.format {
			t.Errorf("formatOf(%q): got %s, want %s", tt.path, got, tt.format)
		}
	}
}

func TestCountForeground(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 255})
	img.SetNRGBA(1, 0, color.NRGBA{255, 255, 255, 0}) // invisible
	img.SetNRGBA(2, 0, color.NRGBA{0, 0, 0, 255})     // black

	if got := CountForeground(img); got != 1 {
		t.Errorf("CountForeground: got %d, want 1", got)
	}
}

func TestGetDimensions(t *testing.T) {
	cache := NewImageCache()
	path := writeTestImage(t, "ref.png", createInMemoryImage(300, 200, color.White))

	dims, err := GetDimensions(cache, path)
	if err != nil {
		t.Fatalf("GetDimensions failed: %v", err)
	}
	if dims.Width != 300 || dims.Height != 200 {
		t.Errorf("got %dx%d, want 300x200", dims.Width, dims.Height)
	}

	if _, err := GetDimensions(cache, filepath.Join(t.TempDir(), "none.png")); err == nil {
		t.Error("GetDimensions should fail for a missing file")
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labeled.png")
	if err := Save(path, createMaskImage(8, 6, image.Rect(2, 2, 4, 4))); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	dims, err := GetDimensions(NewImageCache(), path)
	if err != nil {
		t.Fatalf("GetDimensions failed: %v", err)
	}
	if dims.Width != 8 || dims.Height != 6 {
		t.Errorf("unexpected dimensions: got %dx%d, want 8x6", dims.Width, dims.Height)
	}

	if err := Save(filepath.Join(t.TempDir(), "out.unknown"), createInMemoryImage(1, 1, color.White)); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
