package detection

import (
	"image"
)

// Component is one 8-connected foreground region.
type Component struct {
	// Label is the 1-based component number in scan order.
	Label int `json:"label"`

	// Area is the number of pixels in the component.
	Area int `json:"area"`

	// Bounds is the bounding box (exclusive Max).
	Bounds image.Rectangle `json:"bounds"`

	// TouchesBorder is true when any pixel lies on the image edge.
	TouchesBorder bool `json:"touches_border"`

	pixels []image.Point
}

// LabelComponents groups the nonzero pixels of mask into 8-connected
// components, numbered in the order a top-to-bottom, left-to-right scan first
// meets them.
func LabelComponents(mask *image.Gray) []Component {
	b := mask.Bounds()
	width, height := b.Dx(), b.Dy()

	visited := make([]bool, width*height)
	fg := func(x, y int) bool {
		return mask.Pix[mask.PixOffset(b.Min.X+x, b.Min.Y+y)] != 0
	}

	var comps []Component
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if visited[y*width+x] || !fg(x, y) {
				continue
			}
			c := Component{Label: len(comps) + 1}
			floodFill(fg, visited, x, y, width, height, &c)
			comps = append(comps, c)
		}
	}
	return comps
}

// floodFill collects the component containing (startX, startY).
//
// Uses an explicit stack rather than recursion, so large regions cannot
// overflow the goroutine stack.
func floodFill(fg func(x, y int) bool, visited []bool, startX, startY, width, height int, c *Component) {
	stack := []image.Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y*width+p.X] || !fg(p.X, p.Y) {
			continue
		}
		visited[p.Y*width+p.X] = true

		c.pixels = append(c.pixels, p)
		c.Area++
		px := image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))}
		if c.Area == 1 {
			c.Bounds = px
		} else {
			c.Bounds = c.Bounds.Union(px)
		}
		if p.X == 0 || p.Y == 0 || p.X == width-1 || p.Y == height-1 {
			c.TouchesBorder = true
		}

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, image.Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}

// ClearBorder returns a copy of mask with every component that touches the
// image edge set to 0.
func ClearBorder(mask *image.Gray) *image.Gray {
	return removeWhere(mask, func(c Component) bool { return c.TouchesBorder })
}

// RemoveSmallObjects returns a copy of mask with every component of fewer than
// minSize pixels set to 0.
func RemoveSmallObjects(mask *image.Gray, minSize int) *image.Gray {
	return removeWhere(mask, func(c Component) bool { return c.Area < minSize })
}

func removeWhere(mask *image.Gray, drop func(Component) bool) *image.Gray {
	b := mask.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], mask.Pix[mask.PixOffset(b.Min.X, b.Min.Y+y):])
	}

	for _, c := range LabelComponents(mask) {
		if !drop(c) {
			continue
		}
		for _, p := range c.pixels {
			out.Pix[p.Y*out.Stride+p.X] = 0
		}
	}
	return out
}
