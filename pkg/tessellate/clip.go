package tessellate

import (
	"errors"
	"fmt"
	"math"

	"github.com/philipparndt/stp2stl/pkg/geometry"
	"github.com/philipparndt/stp2stl/pkg/kernel"
)

var (
	// ErrSelfIntersectingLoop marks a trimming loop whose edges cross each other
	ErrSelfIntersectingLoop = errors.New("trimming loop intersects itself")

	// ErrDegenerateLoop marks a trimming loop with fewer than three points
	ErrDegenerateLoop = errors.New("trimming loop has fewer than three points")

	// ErrClipLimit marks a face whose trimming produced too many pieces
	ErrClipLimit = errors.New("trimming piece limit reached")
)

// maxClipPieces caps the pieces produced from one grid triangle
const maxClipPieces = 4096

type segment struct {
	a, b   geometry.Vector2
	lo, hi geometry.Vector2
	length float64
}

// clipper cuts convex parameter-space polygons along the segments of the
// trimming loops and keeps the pieces inside the trimmed region.
type clipper struct {
	loops    []geometry.Polygon2
	segments []segment
	eps      float64
	areaEps  float64
}

type clipWork struct {
	poly geometry.Polygon2
	segs []int
}

func newClipper(loops []kernel.Loop, d kernel.Domain) (*clipper, []error) {
	dim := math.Max(d.Width(), d.Height())
	c := &clipper{
		eps: 1e-9 * dim,
	}
	c.areaEps = c.eps * dim

	var warnings []error
	for i, loop := range loops {
		if len(loop.Points) < 3 {
			warnings = append(warnings, fmt.Errorf("loop %d: %w", i, ErrDegenerateLoop))
			continue
		}
		if loop.Points.SelfIntersects() {
			warnings = append(warnings, fmt.Errorf("loop %d: %w", i, ErrSelfIntersectingLoop))
		}
		c.loops = append(c.loops, loop.Points)
		for k := range loop.Points {
			a := loop.Points[k]
			b := loop.Points[(k+1)%len(loop.Points)]
			length := b.Sub(a).Length()
			if length <= c.eps {
				continue
			}
			lo, hi := geometry.Polygon2{a, b}.Bounds()
			c.segments = append(c.segments, segment{a: a, b: b, lo: lo, hi: hi, length: length})
		}
	}
	return c, warnings
}

// overlapping returns the members of candidates whose bounding box touches
// the bounding box of poly
func (c *clipper) overlapping(poly geometry.Polygon2, candidates []int) []int {
	lo, hi := poly.Bounds()
	var out []int
	for _, i := range candidates {
		s := c.segments[i]
		if s.hi.U < lo.U-c.eps || s.lo.U > hi.U+c.eps || s.hi.V < lo.V-c.eps || s.lo.V > hi.V+c.eps {
			continue
		}
		out = append(out, i)
	}
	return out
}

// clip returns the convex pieces of tri that lie inside the loops under the
// even-odd rule. Without usable loops tri is kept whole. limited reports that
// the piece cap stopped further cuts.
func (c *clipper) clip(tri geometry.Polygon2) (pieces []geometry.Polygon2, limited bool) {
	if tri.SignedArea() < 0 {
		tri = geometry.Polygon2{tri[0], tri[2], tri[1]}
	}
	if len(c.loops) == 0 {
		return []geometry.Polygon2{tri}, false
	}

	all := make([]int, len(c.segments))
	for i := range all {
		all[i] = i
	}
	stack := []clipWork{{poly: tri, segs: c.overlapping(tri, all)}}

	for len(stack) > 0 {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		split := false
		if len(pieces)+len(stack) < maxClipPieces {
			for k, si := range w.segs {
				s := c.segments[si]
				t0, t1, ok := w.poly.ClipSegment(s.a, s.b)
				if !ok || (t1-t0)*s.length <= c.eps {
					continue
				}
				left, right := w.poly.SplitByLine(s.a, s.b, c.eps)
				if left.Area() <= c.areaEps || right.Area() <= c.areaEps {
					continue
				}
				rest := w.segs[k+1:]
				stack = append(stack,
					clipWork{poly: right, segs: c.overlapping(right, rest)},
					clipWork{poly: left, segs: c.overlapping(left, rest)},
				)
				split = true
				break
			}
		} else if len(w.segs) > 0 {
			limited = true
		}

		if !split && geometry.InsideEvenOdd(c.loops, w.poly.Centroid()) {
			pieces = append(pieces, w.poly)
		}
	}
	return pieces, limited
}
