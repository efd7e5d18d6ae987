package mosaic

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/sbinet/npyio"

	"github.com/ironsheep/mosaic-geo/internal/gridkey"
)

// tileExtensions lists the file types LoadTiles picks up from a directory.
var tileExtensions = map[string]bool{
	".npy":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

// IsTileFile reports whether name has an extension LoadTile understands.
func IsTileFile(name string) bool {
	return tileExtensions[strings.ToLower(filepath.Ext(name))]
}

// LoadTile reads one tile file.
//
// The grid offset comes from the file name ("<prefix>_<x>_<y>.<ext>").
// Supported contents:
//   - .npy: 2-D NumPy arrays of dtype u1, b1, i4 or i8 in C order. Values
//     above 255 are clamped to 255, negative values become 0.
//   - image formats: the gray level of each pixel (transparent pixels are 0).
//
// Name errors wrap gridkey.ErrMalformedIdentifier so callers can tell them
// apart from decode errors.
func LoadTile(path string) (Tile, error) {
	key, err := gridkey.ParseFilename(path)
	if err != nil {
		return Tile{}, err
	}

	if strings.ToLower(filepath.Ext(path)) == ".npy" {
		return loadNPY(path, key)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return Tile{}, fmt.Errorf("failed to open tile image: %w", err)
	}
	c := CanvasFromImage(img)
	return NewTile(key, c.Width, c.Height, c.Pix)
}

func loadNPY(path string, key gridkey.Key) (Tile, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tile{}, fmt.Errorf("failed to open tile array: %w", err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return Tile{}, fmt.Errorf("failed to read npy header: %w", err)
	}

	shape := r.Header.Descr.Shape
	if len(shape) != 2 {
		return Tile{}, fmt.Errorf("tile %s: expected a 2-D array, got shape %v", key.ID, shape)
	}
	if r.Header.Descr.Fortran {
		return Tile{}, fmt.Errorf("tile %s: Fortran-ordered arrays are not supported", key.ID)
	}
	height, width := shape[0], shape[1]

	var pix []uint8
	switch strings.TrimLeft(r.Header.Descr.Type, "<|=") {
	case "u1":
		if err := r.Read(&pix); err != nil {
			return Tile{}, fmt.Errorf("failed to read npy data: %w", err)
		}
	case "b1":
		var data []bool
		if err := r.Read(&data); err != nil {
			return Tile{}, fmt.Errorf("failed to read npy data: %w", err)
		}
		pix = make([]uint8, len(data))
		for i, v := range data {
			if v {
				pix[i] = 1
			}
		}
	case "i4":
		var data []int32
		if err := r.Read(&data); err != nil {
			return Tile{}, fmt.Errorf("failed to read npy data: %w", err)
		}
		pix = make([]uint8, len(data))
		for i, v := range data {
			pix[i] = clampClass(int64(v))
		}
	case "i8":
		var data []int64
		if err := r.Read(&data); err != nil {
			return Tile{}, fmt.Errorf("failed to read npy data: %w", err)
		}
		pix = make([]uint8, len(data))
		for i, v := range data {
			pix[i] = clampClass(v)
		}
	default:
		return Tile{}, fmt.Errorf("tile %s: unsupported dtype %q", key.ID, r.Header.Descr.Type)
	}

	return NewTile(key, width, height, pix)
}

func clampClass(v int64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}

// LoadTiles reads every tile file in dir.
//
// Files with unknown extensions are ignored. A file whose name cannot be
// parsed or whose contents cannot be decoded becomes a MergeFailure (in
// directory listing order) rather than an error; only a failure to read the
// directory itself is returned as an error. The returned tiles are in gridkey
// order.
func LoadTiles(dir string) ([]Tile, []MergeFailure, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read tile directory: %w", err)
	}

	var tiles []Tile
	var failures []MergeFailure
	for _, e := range entries {
		if e.IsDir() || !IsTileFile(e.Name()) {
			continue
		}
		t, err := LoadTile(filepath.Join(dir, e.Name()))
		if err != nil {
			reason := ReasonUnreadable
			if errors.Is(err, gridkey.ErrMalformedIdentifier) {
				reason = ReasonMalformedIdentifier
			}
			id := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			failures = append(failures, MergeFailure{TileID: id, Reason: reason, Err: err})
			continue
		}
		tiles = append(tiles, t)
	}

	gridkey.Sort(tiles, tileKey)
	return tiles, failures, nil
}

// MosaicImage renders the canvas as RGBA: foreground pixels are opaque white,
// background pixels fully transparent.
func MosaicImage(c *Canvas) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, c.Width, c.Height))
	fg := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	for y := 0; y < c.Height; y++ {
		row := c.Pix[y*c.Width : (y+1)*c.Width]
		for x, v := range row {
			if v != 0 {
				img.SetNRGBA(x, y, fg)
			}
		}
	}
	return img
}

// EncodeMosaic writes the canvas to w as a PNG (see MosaicImage).
func EncodeMosaic(w io.Writer, c *Canvas) error {
	if err := imaging.Encode(w, MosaicImage(c), imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode mosaic: %w", err)
	}
	return nil
}

// SaveMosaic writes the canvas PNG to path.
func SaveMosaic(path string, c *Canvas) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create mosaic file: %w", err)
	}
	if err := EncodeMosaic(f, c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteFailureLog writes one tile identifier per line, in the given order.
func WriteFailureLog(w io.Writer, failures []MergeFailure) error {
	bw := bufio.NewWriter(w)
	for _, f := range failures {
		if _, err := bw.WriteString(f.TileID + "\n"); err != nil {
			return fmt.Errorf("failed to write failure log: %w", err)
		}
	}
	return bw.Flush()
}
