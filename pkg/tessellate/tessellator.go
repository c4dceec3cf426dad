// Package tessellate turns B-Rep faces into triangle patches and assembles
// the patches of a shape into one mesh.
package tessellate

import (
	"context"
	"fmt"

	"github.com/philipparndt/stp2stl/pkg/geometry"
	"github.com/philipparndt/stp2stl/pkg/kernel"
)

// Tessellator triangulates single faces. It holds no mutable state and can
// be shared by concurrent workers.
type Tessellator struct {
	tol Tolerance
}

// New creates a tessellator for the given tolerance
func New(tol Tolerance) (*Tessellator, error) {
	if err := tol.Validate(); err != nil {
		return nil, err
	}
	return &Tessellator{tol: tol}, nil
}

// Tolerance returns the tolerance the tessellator was created with
func (t *Tessellator) Tolerance() Tolerance {
	return t.tol
}

type sample struct {
	point  geometry.Vector3
	normal geometry.Vector3
	index  int
}

// sampler memoizes surface evaluations of one face and numbers the points
// that end up in the patch.
type sampler struct {
	face  kernel.Face
	cache map[geometry.Vector2]*sample
	patch *Patch
}

func newSampler(face kernel.Face, patch *Patch) *sampler {
	return &sampler{
		face:  face,
		cache: make(map[geometry.Vector2]*sample),
		patch: patch,
	}
}

func (s *sampler) eval(u, v float64) (*sample, error) {
	key := geometry.NewVector2(u, v)
	if cached, ok := s.cache[key]; ok {
		return cached, nil
	}
	p, n, err := s.face.Evaluate(u, v)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate surface at (%g, %g): %w", u, v, err)
	}
	if !p.IsFinite() || !n.IsFinite() {
		return nil, fmt.Errorf("%w: non-finite value at (%g, %g)", kernel.ErrEvaluation, u, v)
	}
	smp := &sample{point: p, normal: n, index: -1}
	s.cache[key] = smp
	return smp, nil
}

func (s *sampler) vertex(smp *sample) int {
	if smp.index < 0 {
		smp.index = len(s.patch.Points)
		s.patch.Points = append(s.patch.Points, smp.point)
	}
	return smp.index
}

// Tessellate triangulates face. A face without area yields an empty patch.
// Surface evaluation failures are returned as errors; inconsistent trimming
// loops only add warnings to the patch.
func (t *Tessellator) Tessellate(ctx context.Context, face kernel.Face) (*Patch, error) {
	patch := &Patch{FaceID: face.ID()}
	d := face.Domain()
	if !(d.Width() > 0) || !(d.Height() > 0) {
		return patch, nil
	}

	s := newSampler(face, patch)
	us, vs, err := t.refine(ctx, s, d)
	if err != nil {
		return nil, err
	}

	loops, err := face.Loops(t.tol.LinearDeflection)
	if err != nil {
		return nil, fmt.Errorf("failed to sample trimming loops: %w", err)
	}
	var clip *clipper
	if len(loops) > 0 {
		var warnings []error
		clip, warnings = newClipper(loops, d)
		for _, w := range warnings {
			patch.Warnings = append(patch.Warnings, &kernel.GeometryError{Face: face.ID(), Err: w})
		}
	}

	limited := false
	for j := 0; j+1 < len(vs); j++ {
		for i := 0; i+1 < len(us); i++ {
			quad := [4]geometry.Vector2{
				geometry.NewVector2(us[i], vs[j]),
				geometry.NewVector2(us[i+1], vs[j]),
				geometry.NewVector2(us[i+1], vs[j+1]),
				geometry.NewVector2(us[i], vs[j+1]),
			}
			var corners [4]geometry.Vector3
			for k, q := range quad {
				smp, err := s.eval(q.U, q.V)
				if err != nil {
					return nil, err
				}
				corners[k] = smp.point
			}

			for _, tri := range quadSplits[chooseSplit(corners)] {
				uv := geometry.Polygon2{quad[tri[0]], quad[tri[1]], quad[tri[2]]}
				if clip == nil {
					if err := t.emit(s, uv); err != nil {
						return nil, err
					}
					continue
				}

				pieces, hitLimit := clip.clip(uv)
				limited = limited || hitLimit
				for _, piece := range pieces {
					if err := t.emit(s, piece); err != nil {
						return nil, err
					}
				}
			}
		}
	}
	if limited {
		patch.Warnings = append(patch.Warnings, &kernel.GeometryError{Face: face.ID(), Err: ErrClipLimit})
	}

	patch.compact()
	return patch, nil
}

// refine runs the level-bounded subdivision passes and returns the final
// u and v breakpoints.
func (t *Tessellator) refine(ctx context.Context, s *sampler, d kernel.Domain) ([]float64, []float64, error) {
	us, vs, err := t.seed(s, d)
	if err != nil {
		return nil, nil, err
	}

	for level := 0; level < t.tol.depth(); level++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		splitU := make([]bool, len(us)-1)
		splitV := make([]bool, len(vs)-1)
		changed := false
		for j := 0; j+1 < len(vs); j++ {
			for i := 0; i+1 < len(us); i++ {
				if splitU[i] && splitV[j] {
					continue
				}
				su, sv, err := t.checkCell(s, us[i], us[i+1], vs[j], vs[j+1])
				if err != nil {
					return nil, nil, err
				}
				if su && !splitU[i] {
					splitU[i] = true
					changed = true
				}
				if sv && !splitV[j] {
					splitV[j] = true
					changed = true
				}
			}
		}
		if !changed {
			break
		}
		us = bisect(us, splitU)
		vs = bisect(vs, splitV)
	}
	return us, vs, nil
}

// seed samples the face on a uniform lattice and returns the starting
// breakpoints. A direction along which every lattice line stays on the
// chord between its ends and keeps its normal starts from one interval, so
// flat faces are not split.
func (t *Tessellator) seed(s *sampler, d kernel.Domain) ([]float64, []float64, error) {
	nu, nv := DefaultLattice, DefaultLattice
	if l, ok := s.face.(kernel.Lattice); ok {
		hu, hv := l.Lattice()
		nu = max(nu, min(hu, maxLattice))
		nv = max(nv, min(hv, maxLattice))
	}
	us := uniform(d.UMin, d.UMax, nu)
	vs := uniform(d.VMin, d.VMax, nv)

	lattice := make([][]*sample, len(vs))
	for j, v := range vs {
		lattice[j] = make([]*sample, len(us))
		for i, u := range us {
			smp, err := s.eval(u, v)
			if err != nil {
				return nil, nil, err
			}
			lattice[j][i] = smp
		}
	}

	bentU := false
	for _, row := range lattice {
		if t.bent(row, us) {
			bentU = true
			break
		}
	}
	bentV := false
	column := make([]*sample, len(vs))
	for i := range us {
		for j := range vs {
			column[j] = lattice[j][i]
		}
		if t.bent(column, vs) {
			bentV = true
			break
		}
	}

	if !bentU {
		us = []float64{d.UMin, d.UMax}
	}
	if !bentV {
		vs = []float64{d.VMin, d.VMax}
	}
	return us, vs, nil
}

// bent reports whether samples along one lattice line leave the chord
// between its end points by more than the linear deflection, or turn their
// normal by more than the angular deflection
func (t *Tessellator) bent(line []*sample, params []float64) bool {
	first, last := line[0], line[len(line)-1]
	span := params[len(params)-1] - params[0]
	for k, smp := range line {
		chord := first.point.Lerp(last.point, (params[k]-params[0])/span)
		if smp.point.Distance(chord) > t.tol.LinearDeflection ||
			smp.normal.Angle(first.normal) > t.tol.AngularDeflection {
			return true
		}
	}
	return false
}

// uniform splits [lo, hi] into n equal intervals
func uniform(lo, hi float64, n int) []float64 {
	out := make([]float64, n+1)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n)
	}
	out[n] = hi
	return out
}

// checkCell decides whether the cell [u0,u1]×[v0,v1] needs its u or v
// interval halved. Edge chords and edge normal turns select one direction;
// a failing center with passing edges selects both.
func (t *Tessellator) checkCell(s *sampler, u0, u1, v0, v1 float64) (splitU, splitV bool, err error) {
	lin := t.tol.LinearDeflection
	ang := t.tol.AngularDeflection
	um := (u0 + u1) / 2
	vm := (v0 + v1) / 2

	var pts [9]*sample
	params := [9][2]float64{
		{u0, v0}, {u1, v0}, {u1, v1}, {u0, v1},
		{um, v0}, {um, v1}, {u0, vm}, {u1, vm},
		{um, vm},
	}
	for k, p := range params {
		if pts[k], err = s.eval(p[0], p[1]); err != nil {
			return false, false, err
		}
	}
	p00, p10, p11, p01 := pts[0], pts[1], pts[2], pts[3]
	bottom, top, left, right, center := pts[4], pts[5], pts[6], pts[7], pts[8]

	chord := func(mid, a, b *sample) bool {
		return mid.point.Distance(a.point.Lerp(b.point, 0.5)) > lin
	}
	turn := func(a, b *sample) bool {
		return a.normal.Angle(b.normal) > ang
	}

	splitU = chord(bottom, p00, p10) || chord(top, p01, p11) ||
		turn(p00, p10) || turn(p01, p11) || turn(bottom, p00) || turn(top, p11)
	splitV = chord(left, p00, p01) || chord(right, p10, p11) ||
		turn(p00, p01) || turn(p10, p11) || turn(left, p00) || turn(right, p11)
	if splitU || splitV {
		return splitU, splitV, nil
	}

	bilinear := p00.point.Add(p10.point).Add(p11.point).Add(p01.point).Mul(0.25)
	if center.point.Distance(bilinear) > lin ||
		turn(center, p00) || turn(center, p10) || turn(center, p11) || turn(center, p01) {
		return true, true, nil
	}
	return false, false, nil
}

// bisect inserts the midpoint of every flagged interval
func bisect(breaks []float64, split []bool) []float64 {
	out := make([]float64, 0, 2*len(breaks))
	for i := 0; i+1 < len(breaks); i++ {
		out = append(out, breaks[i])
		if split[i] {
			out = append(out, (breaks[i]+breaks[i+1])/2)
		}
	}
	return append(out, breaks[len(breaks)-1])
}

// quadSplits are the two triangulations of a counter-clockwise quad
// q0 q1 q2 q3, along the diagonals q0-q2 and q1-q3.
var quadSplits = [2][2][3]int{
	{{0, 1, 2}, {0, 2, 3}},
	{{0, 1, 3}, {1, 2, 3}},
}

// chooseSplit picks the diagonal whose triangles have the smaller largest
// circumradius. Ties keep the q0-q2 diagonal.
func chooseSplit(q [4]geometry.Vector3) int {
	worst := func(split [2][3]int) float64 {
		r := 0.0
		for _, tri := range split {
			r = max(r, geometry.Circumradius(q[tri[0]], q[tri[1]], q[tri[2]]))
		}
		return r
	}
	if worst(quadSplits[1]) < worst(quadSplits[0]) {
		return 1
	}
	return 0
}

// emit fan-triangulates a convex parameter-space polygon onto the surface.
// Degenerate facets are counted and dropped; each facet is wound so that its
// normal agrees with the surface normal.
func (t *Tessellator) emit(s *sampler, poly geometry.Polygon2) error {
	if len(poly) < 3 {
		return nil
	}
	smps := make([]*sample, len(poly))
	for k, q := range poly {
		smp, err := s.eval(q.U, q.V)
		if err != nil {
			return err
		}
		smps[k] = smp
	}

	eps := t.tol.DegenerateEpsilon()
	for k := 1; k+1 < len(smps); k++ {
		a, b, c := smps[0], smps[k], smps[k+1]
		facet := geometry.NewTriangle(geometry.Vector3{}, a.point, b.point, c.point)
		if facet.MinHeight() <= eps {
			s.patch.Dropped++
			continue
		}
		if facet.CalculateNormal().Dot(a.normal.Add(b.normal).Add(c.normal)) < 0 {
			b, c = c, b
		}
		s.patch.Triangles = append(s.patch.Triangles, [3]int{s.vertex(a), s.vertex(b), s.vertex(c)})
	}
	return nil
}
