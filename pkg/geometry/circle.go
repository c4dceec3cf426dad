package geometry

import "math"

// Circumradius returns the radius of the circle passing through a, b and c.
//
// Uses R = |ab|·|bc|·|ca| / (4·A). Degenerate (collinear) input has no finite
// circle and yields +Inf, so that comparisons prefer any proper triangle.
func Circumradius(a, b, c Vector3) float64 {
	ab := a.Distance(b)
	bc := b.Distance(c)
	ca := c.Distance(a)

	twiceArea := b.Sub(a).Cross(c.Sub(a)).Length()
	if twiceArea == 0 {
		return math.Inf(1)
	}
	return ab * bc * ca / (2 * twiceArea)
}
