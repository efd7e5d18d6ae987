package detection

import (
	"image"
	"image/draw"
)

// Contour is a closed border as an ordered list of pixel positions. The last
// point connects back to the first.
type Contour []image.Point

// Bounds returns the smallest rectangle containing every contour pixel.
func (c Contour) Bounds() image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: c[0], Max: c[0].Add(image.Pt(1, 1))}
	for _, p := range c[1:] {
		r = r.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
	}
	return r
}

// Binarize converts img to a 0/1 mask: any pixel whose gray level is above
// zero becomes 1. Fully transparent pixels are 0.
func Binarize(img image.Image) *image.Gray {
	b := img.Bounds()
	gray, ok := img.(*image.Gray)
	if !ok {
		gray = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
		b = gray.Bounds()
	}

	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := gray.Pix[gray.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			if src[x] > 0 {
				dst[x] = 1
			}
		}
	}
	return out
}

// neighbours in counter-clockwise order starting east, as (row, col) steps.
var neighbours = [8][2]int{
	{0, 1},   // E
	{-1, 1},  // NE
	{-1, 0},  // N
	{-1, -1}, // NW
	{0, -1},  // W
	{1, -1},  // SW
	{1, 0},   // S
	{1, 1},   // SE
}

func directionOf(dr, dc int) int {
	for d, n := range neighbours {
		if n[0] == dr && n[1] == dc {
			return d
		}
	}
	return -1
}

// border records the topology of one traced border.
type border struct {
	hole   bool
	parent int
}

// FindExternalContours returns the outermost borders of the foreground
// regions of mask, using Suzuki-Abe border following with 8-connectivity.
//
// Any nonzero pixel is foreground. Holes, and regions lying inside holes of
// other regions, are not reported. Each contour keeps only the end points of
// its horizontal, vertical and diagonal runs. Contours are returned in the
// order their first pixel is met by a top-to-bottom, left-to-right scan.
//
// The mask is not modified.
func FindExternalContours(mask *image.Gray) []Contour {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	// One pixel of background padding on every side plays the role of the
	// frame border, so tracing never has to bounds-check.
	stride := w + 2
	f := make([]int32, stride*(h+2))
	for y := 0; y < h; y++ {
		row := mask.Pix[mask.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < w; x++ {
			if row[x] != 0 {
				f[(y+1)*stride+x+1] = 1
			}
		}
	}

	// Border 1 is the frame, which behaves like a hole.
	borders := []border{{}, {hole: true}}
	nbd := int32(1)
	var contours []Contour

	for i := 1; i <= h; i++ {
		lnbd := int32(1)
		for j := 1; j <= w; j++ {
			idx := i*stride + j
			fij := f[idx]

			outer := fij == 1 && f[idx-1] == 0
			hole := !outer && fij >= 1 && f[idx+1] == 0

			if outer || hole {
				nbd++
				from := [2]int{i, j - 1}
				if hole {
					from = [2]int{i, j + 1}
					if fij > 1 {
						lnbd = fij
					}
				}

				parent := int(lnbd)
				if prev := borders[lnbd]; prev.hole == hole {
					parent = prev.parent
				}
				borders = append(borders, border{hole: hole, parent: parent})

				pts := traceBorder(f, stride, i, j, from, nbd)
				if !hole && parent == 1 {
					contours = append(contours, approxSimple(pts))
				}
			}

			if v := f[idx]; v != 0 && v != 1 {
				if v < 0 {
					v = -v
				}
				lnbd = v
			}
		}
	}

	return contours
}

// traceBorder follows the border starting at (i, j), labelling it nbd in f,
// and returns its pixels in image coordinates.
func traceBorder(f []int32, stride, i, j int, from [2]int, nbd int32) Contour {
	at := func(r, c int) int32 { return f[r*stride+c] }
	toPoint := func(r, c int) image.Point { return image.Point{X: c - 1, Y: r - 1} }

	// Clockwise search for the first nonzero neighbour.
	start := directionOf(from[0]-i, from[1]-j)
	found := -1
	for k := 0; k < 8; k++ {
		d := (start - k + 8) % 8
		if at(i+neighbours[d][0], j+neighbours[d][1]) != 0 {
			found = d
			break
		}
	}
	if found < 0 {
		f[i*stride+j] = -nbd
		return Contour{toPoint(i, j)}
	}

	i1, j1 := i+neighbours[found][0], j+neighbours[found][1]
	i3, j3 := i, j
	d2 := found

	var pts Contour
	for {
		pts = append(pts, toPoint(i3, j3))

		// Counter-clockwise search starting just after the previous pixel.
		eastZero := false
		d4 := -1
		for k := 1; k <= 8; k++ {
			d := (d2 + k) % 8
			if at(i3+neighbours[d][0], j3+neighbours[d][1]) != 0 {
				d4 = d
				break
			}
			if d == 0 {
				eastZero = true
			}
		}
		i4, j4 := i3+neighbours[d4][0], j3+neighbours[d4][1]

		idx := i3*stride + j3
		if eastZero {
			f[idx] = -nbd
		} else if f[idx] == 1 {
			f[idx] = nbd
		}

		if i4 == i && j4 == j && i3 == i1 && j3 == j1 {
			return pts
		}
		i3, j3 = i4, j4
		d2 = (d4 + 4) % 8
	}
}

// approxSimple drops the interior points of straight runs, keeping the first
// point and every point where the step direction changes.
func approxSimple(pts Contour) Contour {
	n := len(pts)
	if n < 3 {
		return pts
	}
	step := func(a, b image.Point) image.Point { return b.Sub(a) }

	out := Contour{pts[0]}
	for k := 1; k < n; k++ {
		in := step(pts[k-1], pts[k])
		next := step(pts[k], pts[(k+1)%n])
		if in != next {
			out = append(out, pts[k])
		}
	}
	return out
}
