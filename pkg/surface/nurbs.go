package surface

import (
	"fmt"
	"math"

	"github.com/philipparndt/stp2stl/pkg/geometry"
	"github.com/philipparndt/stp2stl/pkg/kernel"
)

// NURBS is a rational B-spline surface. ControlPoints[i][j] has i running
// along u and j along v. Weights may be nil for a non-rational surface.
type NURBS struct {
	DegreeU, DegreeV int
	KnotsU, KnotsV   []float64
	ControlPoints    [][]geometry.Vector3
	Weights          [][]float64
}

// Validate checks that degrees, knots and control net fit together
func (s *NURBS) Validate() error {
	nu := len(s.ControlPoints)
	if nu == 0 {
		return fmt.Errorf("nurbs has no control points")
	}
	nv := len(s.ControlPoints[0])
	for i, row := range s.ControlPoints {
		if len(row) != nv {
			return fmt.Errorf("nurbs control row %d has %d points, expected %d", i, len(row), nv)
		}
	}
	if s.DegreeU < 1 || s.DegreeV < 1 || s.DegreeU >= nu || s.DegreeV >= nv {
		return fmt.Errorf("nurbs degree %dx%d does not fit %dx%d control points", s.DegreeU, s.DegreeV, nu, nv)
	}
	if len(s.KnotsU) != nu+s.DegreeU+1 || len(s.KnotsV) != nv+s.DegreeV+1 {
		return fmt.Errorf("nurbs needs %d and %d knots, got %d and %d",
			nu+s.DegreeU+1, nv+s.DegreeV+1, len(s.KnotsU), len(s.KnotsV))
	}
	for _, knots := range [][]float64{s.KnotsU, s.KnotsV} {
		for i := 1; i < len(knots); i++ {
			if knots[i] < knots[i-1] {
				return fmt.Errorf("nurbs knots must not decrease")
			}
		}
	}
	if s.Weights != nil {
		if len(s.Weights) != nu {
			return fmt.Errorf("nurbs has %d weight rows, expected %d", len(s.Weights), nu)
		}
		for i, row := range s.Weights {
			if len(row) != nv {
				return fmt.Errorf("nurbs weight row %d has %d entries, expected %d", i, len(row), nv)
			}
			for _, w := range row {
				if !(w > 0) {
					return fmt.Errorf("nurbs weights must be positive, got %v", w)
				}
			}
		}
	}
	return nil
}

// Domain returns the parameter range between the clamped end knots
func (s *NURBS) Domain() kernel.Domain {
	p, q := s.DegreeU, s.DegreeV
	return kernel.Domain{
		UMin: s.KnotsU[p], UMax: s.KnotsU[len(s.KnotsU)-p-1],
		VMin: s.KnotsV[q], VMax: s.KnotsV[len(s.KnotsV)-q-1],
	}
}

func (s *NURBS) weight(i, j int) float64 {
	if s.Weights == nil {
		return 1
	}
	return s.Weights[i][j]
}

// Lattice returns the number of non-empty knot spans in u and v
func (s *NURBS) Lattice() (nu, nv int) {
	return knotSpans(s.KnotsU, s.DegreeU), knotSpans(s.KnotsV, s.DegreeV)
}

func knotSpans(knots []float64, degree int) int {
	n := 0
	for i := degree + 1; i < len(knots)-degree; i++ {
		if knots[i] > knots[i-1] {
			n++
		}
	}
	return n
}

// Evaluate implements Surface. The surface must have passed Validate.
func (s *NURBS) Evaluate(u, v float64) (geometry.Vector3, geometry.Vector3, error) {
	d := s.Domain()
	u = math.Max(d.UMin, math.Min(d.UMax, u))
	v = math.Max(d.VMin, math.Min(d.VMax, v))

	point, su, sv := s.derivatives(u, v)
	normal := su.Cross(sv)
	if normal.Length() == 0 {
		// collapsed edge: take the normal a little towards the domain center
		const shift = 1e-6
		cu := u + shift*((d.UMin+d.UMax)/2-u)
		cv := v + shift*((d.VMin+d.VMax)/2-v)
		_, su, sv = s.derivatives(cu, cv)
		normal = su.Cross(sv)
	}
	return point, normal.Normalize(), nil
}

// derivatives returns the point and both first partial derivatives
func (s *NURBS) derivatives(u, v float64) (point, du, dv geometry.Vector3) {
	p, q := s.DegreeU, s.DegreeV
	spanU := knotSpan(len(s.ControlPoints)-1, p, u, s.KnotsU)
	spanV := knotSpan(len(s.ControlPoints[0])-1, q, v, s.KnotsV)
	nu := basisFunctions(spanU, u, p, s.KnotsU)
	nv := basisFunctions(spanV, v, q, s.KnotsV)
	dnu := basisDerivatives(spanU, u, p, s.KnotsU)
	dnv := basisDerivatives(spanV, v, q, s.KnotsV)

	var a, au, av geometry.Vector3
	var w, wu, wv float64
	for k := 0; k <= p; k++ {
		for l := 0; l <= q; l++ {
			i, j := spanU-p+k, spanV-q+l
			wt := s.weight(i, j)
			cp := s.ControlPoints[i][j].Mul(wt)

			a = a.Add(cp.Mul(nu[k] * nv[l]))
			au = au.Add(cp.Mul(dnu[k] * nv[l]))
			av = av.Add(cp.Mul(nu[k] * dnv[l]))
			w += nu[k] * nv[l] * wt
			wu += dnu[k] * nv[l] * wt
			wv += nu[k] * dnv[l] * wt
		}
	}

	point = a.Mul(1 / w)
	du = au.Sub(point.Mul(wu)).Mul(1 / w)
	dv = av.Sub(point.Mul(wv)).Mul(1 / w)
	return point, du, dv
}

// knotSpan finds the knot span containing t, with n+1 basis functions
func knotSpan(n, degree int, t float64, knots []float64) int {
	if t >= knots[n+1] {
		return n
	}
	if t < knots[degree] {
		return degree
	}

	low, high := degree, n+1
	mid := (low + high) / 2
	for t < knots[mid] || t >= knots[mid+1] {
		if t < knots[mid] {
			high = mid
		} else {
			low = mid
		}
		mid = (low + high) / 2
	}
	return mid
}

// basisFunctions computes the degree+1 non-vanishing basis functions of span
func basisFunctions(span int, t float64, degree int, knots []float64) []float64 {
	n := make([]float64, degree+1)
	left := make([]float64, degree+1)
	right := make([]float64, degree+1)
	n[0] = 1

	for j := 1; j <= degree; j++ {
		left[j] = t - knots[span+1-j]
		right[j] = knots[span+j] - t
		saved := 0.0
		for r := 0; r < j; r++ {
			temp := n[r] / (right[r+1] + left[j-r])
			n[r] = saved + right[r+1]*temp
			saved = left[j-r] * temp
		}
		n[j] = saved
	}
	return n
}

// basisDerivatives computes the first derivatives of the non-vanishing
// basis functions of span from the basis of one degree lower
func basisDerivatives(span int, t float64, degree int, knots []float64) []float64 {
	lower := basisFunctions(span, t, degree-1, knots)
	at := func(k int) float64 {
		if k < 0 || k >= len(lower) {
			return 0
		}
		return lower[k]
	}
	ratio := func(num, den float64) float64 {
		if den == 0 {
			return 0
		}
		return num / den
	}

	d := make([]float64, degree+1)
	p := float64(degree)
	for k := 0; k <= degree; k++ {
		i := span - degree + k
		d[k] = p * (ratio(at(k-1), knots[i+degree]-knots[i]) - ratio(at(k), knots[i+degree+1]-knots[i+1]))
	}
	return d
}
