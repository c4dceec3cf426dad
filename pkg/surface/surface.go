// Package surface provides analytic and sampled parametric surfaces that
// implement kernel.Face. They back the B-Rep interchange decoder and serve as
// synthetic faces in tests.
package surface

import (
	"fmt"
	"math"

	"github.com/philipparndt/stp2stl/pkg/geometry"
	"github.com/philipparndt/stp2stl/pkg/kernel"
)

// Surface maps a parameter pair to a point and an outward unit normal
type Surface interface {
	Evaluate(u, v float64) (point, normal geometry.Vector3, err error)
}

// Plane is Origin + u·XDir + v·YDir
type Plane struct {
	Origin geometry.Vector3
	XDir   geometry.Vector3
	YDir   geometry.Vector3
}

// Evaluate implements Surface
func (p Plane) Evaluate(u, v float64) (geometry.Vector3, geometry.Vector3, error) {
	point := p.Origin.Add(p.XDir.Mul(u)).Add(p.YDir.Mul(v))
	return point, p.XDir.Cross(p.YDir).Normalize(), nil
}

// frame returns the unit radial direction at angle u around axis
func frame(axis, xdir geometry.Vector3, u float64) geometry.Vector3 {
	x := xdir.Normalize()
	y := axis.Normalize().Cross(x)
	return x.Mul(math.Cos(u)).Add(y.Mul(math.Sin(u)))
}

// Cylinder has u as the angle around Axis starting at XDir and v as the
// height along Axis.
type Cylinder struct {
	Center geometry.Vector3
	Axis   geometry.Vector3
	XDir   geometry.Vector3
	Radius float64
}

// Evaluate implements Surface
func (c Cylinder) Evaluate(u, v float64) (geometry.Vector3, geometry.Vector3, error) {
	radial := frame(c.Axis, c.XDir, u)
	point := c.Center.Add(radial.Mul(c.Radius)).Add(c.Axis.Normalize().Mul(v))
	return point, radial, nil
}

// Cone opens with SemiAngle from the circle of Radius at v = 0; v is the
// distance along the generating line.
type Cone struct {
	Center    geometry.Vector3
	Axis      geometry.Vector3
	XDir      geometry.Vector3
	Radius    float64
	SemiAngle float64
}

// Evaluate implements Surface
func (c Cone) Evaluate(u, v float64) (geometry.Vector3, geometry.Vector3, error) {
	radial := frame(c.Axis, c.XDir, u)
	axis := c.Axis.Normalize()
	sin, cos := math.Sincos(c.SemiAngle)

	r := c.Radius + v*sin
	point := c.Center.Add(radial.Mul(r)).Add(axis.Mul(v * cos))
	normal := radial.Mul(cos).Sub(axis.Mul(sin))
	return point, normal.Normalize(), nil
}

// Sphere has u as longitude around Axis and v as latitude in [-π/2, π/2]
type Sphere struct {
	Center geometry.Vector3
	Axis   geometry.Vector3
	XDir   geometry.Vector3
	Radius float64
}

// Evaluate implements Surface
func (s Sphere) Evaluate(u, v float64) (geometry.Vector3, geometry.Vector3, error) {
	radial := frame(s.Axis, s.XDir, u)
	sin, cos := math.Sincos(v)
	normal := radial.Mul(cos).Add(s.Axis.Normalize().Mul(sin))
	return s.Center.Add(normal.Mul(s.Radius)), normal, nil
}

// Grid is a surface sampled on a regular NU×NV lattice over a domain and
// interpolated bilinearly. Points are stored row by row, u varying fastest.
// Normals are optional; without them the lattice derivatives define the
// normal.
type Grid struct {
	Domain  kernel.Domain
	NU, NV  int
	Points  []geometry.Vector3
	Normals []geometry.Vector3
}

// Validate checks the lattice dimensions
func (g *Grid) Validate() error {
	if g.NU < 2 || g.NV < 2 {
		return fmt.Errorf("grid needs at least 2x2 samples, got %dx%d", g.NU, g.NV)
	}
	if len(g.Points) != g.NU*g.NV {
		return fmt.Errorf("grid has %d points, expected %d", len(g.Points), g.NU*g.NV)
	}
	if len(g.Normals) != 0 && len(g.Normals) != len(g.Points) {
		return fmt.Errorf("grid has %d normals, expected %d", len(g.Normals), len(g.Points))
	}
	return nil
}

func (g *Grid) locate(t, lo, hi float64, n int) (int, float64) {
	if hi == lo {
		return 0, 0
	}
	s := (t - lo) / (hi - lo) * float64(n-1)
	s = math.Max(0, math.Min(float64(n-1), s))
	i := int(math.Floor(s))
	if i >= n-1 {
		i = n - 2
	}
	return i, s - float64(i)
}

// Lattice returns the number of sample intervals in u and v
func (g *Grid) Lattice() (nu, nv int) {
	return g.NU - 1, g.NV - 1
}

// Evaluate implements Surface. The grid must have passed Validate.
func (g *Grid) Evaluate(u, v float64) (geometry.Vector3, geometry.Vector3, error) {
	i, fu := g.locate(u, g.Domain.UMin, g.Domain.UMax, g.NU)
	j, fv := g.locate(v, g.Domain.VMin, g.Domain.VMax, g.NV)

	at := func(s []geometry.Vector3, a, b int) geometry.Vector3 { return s[b*g.NU+a] }
	bilinear := func(s []geometry.Vector3) geometry.Vector3 {
		bottom := at(s, i, j).Lerp(at(s, i+1, j), fu)
		top := at(s, i, j+1).Lerp(at(s, i+1, j+1), fu)
		return bottom.Lerp(top, fv)
	}

	point := bilinear(g.Points)
	var normal geometry.Vector3
	if len(g.Normals) > 0 {
		normal = bilinear(g.Normals).Normalize()
	} else {
		du := at(g.Points, i+1, j).Sub(at(g.Points, i, j)).Lerp(at(g.Points, i+1, j+1).Sub(at(g.Points, i, j+1)), fv)
		dv := at(g.Points, i, j+1).Sub(at(g.Points, i, j)).Lerp(at(g.Points, i+1, j+1).Sub(at(g.Points, i+1, j)), fu)
		normal = du.Cross(dv).Normalize()
	}
	return point, normal, nil
}

// Broken is a surface the kernel failed to describe; every evaluation fails
type Broken struct {
	Reason string
}

// Evaluate implements Surface
func (b Broken) Evaluate(u, v float64) (geometry.Vector3, geometry.Vector3, error) {
	return geometry.Vector3{}, geometry.Vector3{}, fmt.Errorf("%w: %s", kernel.ErrEvaluation, b.Reason)
}
