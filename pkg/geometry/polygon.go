package geometry

import "math"

// Polygon2 is a closed polygon in parameter space. The last vertex connects
// back to the first one; the closing point is not repeated.
type Polygon2 []Vector2

// SignedArea returns the area of the polygon, positive for counter-clockwise winding
func (p Polygon2) SignedArea() float64 {
	if len(p) < 3 {
		return 0
	}
	sum := 0.0
	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i].Cross(p[j])
	}
	return sum / 2
}

// Area returns the unsigned area of the polygon
func (p Polygon2) Area() float64 {
	return math.Abs(p.SignedArea())
}

// Centroid returns the area centroid, or the vertex average for polygons
// without area.
func (p Polygon2) Centroid() Vector2 {
	if len(p) == 0 {
		return Vector2{}
	}
	area := p.SignedArea()
	if area == 0 {
		var sum Vector2
		for _, q := range p {
			sum = sum.Add(q)
		}
		return sum.Mul(1 / float64(len(p)))
	}
	var cu, cv float64
	for i := range p {
		j := (i + 1) % len(p)
		cross := p[i].Cross(p[j])
		cu += (p[i].U + p[j].U) * cross
		cv += (p[i].V + p[j].V) * cross
	}
	return Vector2{U: cu / (6 * area), V: cv / (6 * area)}
}

// Bounds returns the lower and upper corners of the polygon's bounding rectangle
func (p Polygon2) Bounds() (lo, hi Vector2) {
	lo = Vector2{U: math.MaxFloat64, V: math.MaxFloat64}
	hi = Vector2{U: -math.MaxFloat64, V: -math.MaxFloat64}
	for _, q := range p {
		lo.U = math.Min(lo.U, q.U)
		lo.V = math.Min(lo.V, q.V)
		hi.U = math.Max(hi.U, q.U)
		hi.V = math.Max(hi.V, q.V)
	}
	return lo, hi
}

// Crossings counts how many edges of the polygon a ray from pt towards +U
// crosses.
func (p Polygon2) Crossings(pt Vector2) int {
	n := 0
	for i := range p {
		a := p[i]
		b := p[(i+1)%len(p)]
		if (a.V > pt.V) == (b.V > pt.V) {
			continue
		}
		u := a.U + (pt.V-a.V)*(b.U-a.U)/(b.V-a.V)
		if u > pt.U {
			n++
		}
	}
	return n
}

// InsideEvenOdd reports whether pt lies inside the region bounded by loops
// under the even-odd rule. Holes need no particular orientation.
func InsideEvenOdd(loops []Polygon2, pt Vector2) bool {
	n := 0
	for _, loop := range loops {
		n += loop.Crossings(pt)
	}
	return n%2 == 1
}

// SplitByLine cuts a convex polygon with the line through a and b. left
// holds the part where (b-a)×(q-a) > 0. Points within eps of the line
// belong to both halves.
func (p Polygon2) SplitByLine(a, b Vector2, eps float64) (left, right Polygon2) {
	dir := b.Sub(a)
	length := dir.Length()
	if length == 0 {
		return p, nil
	}
	side := func(q Vector2) float64 {
		return dir.Cross(q.Sub(a)) / length
	}

	for i := range p {
		cur := p[i]
		next := p[(i+1)%len(p)]
		sc, sn := side(cur), side(next)

		if sc >= -eps {
			left = append(left, cur)
		}
		if sc <= eps {
			right = append(right, cur)
		}
		if (sc > eps && sn < -eps) || (sc < -eps && sn > eps) {
			t := sc / (sc - sn)
			x := cur.Lerp(next, t)
			left = append(left, x)
			right = append(right, x)
		}
	}
	return left, right
}

// ClipSegment clips the segment a-b against a convex counter-clockwise
// polygon and returns the parameter range [t0, t1] inside it.
func (p Polygon2) ClipSegment(a, b Vector2) (t0, t1 float64, ok bool) {
	t0, t1 = 0, 1
	d := b.Sub(a)
	for i := range p {
		e0 := p[i]
		e1 := p[(i+1)%len(p)]
		edge := e1.Sub(e0)
		// inside is the left side of each edge
		num := edge.Cross(a.Sub(e0))
		den := edge.Cross(d)
		if den == 0 {
			if num < 0 {
				return 0, 0, false
			}
			continue
		}
		t := -num / den
		if den > 0 {
			t0 = math.Max(t0, t)
		} else {
			t1 = math.Min(t1, t)
		}
		if t0 > t1 {
			return 0, 0, false
		}
	}
	return t0, t1, true
}

// SegmentsIntersect reports whether segments a-b and c-d cross at a point
// interior to both.
func SegmentsIntersect(a, b, c, d Vector2) bool {
	d1 := b.Sub(a).Cross(c.Sub(a))
	d2 := b.Sub(a).Cross(d.Sub(a))
	d3 := d.Sub(c).Cross(a.Sub(c))
	d4 := d.Sub(c).Cross(b.Sub(c))
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

// SelfIntersects reports whether two non-adjacent edges of the polygon cross
func (p Polygon2) SelfIntersects() bool {
	n := len(p)
	for i := 0; i < n; i++ {
		a, b := p[i], p[(i+1)%n]
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if SegmentsIntersect(a, b, p[j], p[(j+1)%n]) {
				return true
			}
		}
	}
	return false
}
