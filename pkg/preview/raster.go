package preview

import (
	"image"
	"image/color"
	"math"
)

type screenPoint struct {
	x, y, z float64
}

// newCanvas allocates an image and a depth buffer cleared to infinity
func newCanvas(width, height int) (*image.RGBA, []float64) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	zbuffer := make([]float64, width*height)
	for i := range zbuffer {
		zbuffer[i] = math.Inf(1)
	}
	return img, zbuffer
}

// fillTriangleWithDepth fills a triangle with depth testing
func fillTriangleWithDepth(img *image.RGBA, zbuffer []float64, a, b, c screenPoint, col color.RGBA) {
	v := [3]screenPoint{a, b, c}

	// Sort vertices by Y coordinate (top to bottom)
	if v[0].y > v[1].y {
		v[0], v[1] = v[1], v[0]
	}
	if v[1].y > v[2].y {
		v[1], v[2] = v[2], v[1]
	}
	if v[0].y > v[1].y {
		v[0], v[1] = v[1], v[0]
	}

	if v[0].y == v[2].y {
		return
	}

	bounds := img.Bounds()
	width := bounds.Max.X
	along := func(p, q screenPoint, fy float64) (float64, float64) {
		t := (fy - p.y) / (q.y - p.y)
		return p.x + t*(q.x-p.x), p.z + t*(q.z-p.z)
	}

	for y := int(math.Max(0, math.Ceil(v[0].y))); y <= int(math.Floor(math.Min(float64(bounds.Max.Y-1), v[2].y))); y++ {
		fy := float64(y)

		var xs, zs [2]float64
		xs[0], zs[0] = along(v[0], v[2], fy)
		if fy < v[1].y || v[1].y == v[2].y {
			xs[1], zs[1] = along(v[0], v[1], fy)
		} else {
			xs[1], zs[1] = along(v[1], v[2], fy)
		}

		xStart, xEnd, zStart, zEnd := xs[0], xs[1], zs[0], zs[1]
		if xStart > xEnd {
			xStart, xEnd = xEnd, xStart
			zStart, zEnd = zEnd, zStart
		}

		xStartInt := int(math.Max(0, math.Ceil(xStart)))
		xEndInt := int(math.Floor(math.Min(float64(bounds.Max.X-1), xEnd)))

		// Draw horizontal line with depth testing
		for x := xStartInt; x <= xEndInt; x++ {
			t := 0.0
			if xEnd != xStart {
				t = (float64(x) - xStart) / (xEnd - xStart)
			}
			z := zStart + t*(zEnd-zStart)

			idx := y*width + x
			if z < zbuffer[idx] {
				zbuffer[idx] = z
				img.SetRGBA(x, y, col)
			}
		}
	}
}

// drawLine draws a line on an image using Bresenham's algorithm
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, col color.RGBA) {
	bounds := img.Bounds()

	dx := abs(x2 - x1)
	dy := abs(y2 - y1)

	sx, sy := -1, -1
	if x1 < x2 {
		sx = 1
	}
	if y1 < y2 {
		sy = 1
	}

	err := dx - dy
	for {
		if x1 >= 0 && x1 < bounds.Max.X && y1 >= 0 && y1 < bounds.Max.Y {
			img.SetRGBA(x1, y1, col)
		}
		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
