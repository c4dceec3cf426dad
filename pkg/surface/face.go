package surface

import (
	"math"

	"github.com/philipparndt/stp2stl/pkg/geometry"
	"github.com/philipparndt/stp2stl/pkg/kernel"
)

// Trim is a closed trimming curve in parameter space
type Trim interface {
	// Sample approximates the curve by a polyline whose chords stay within
	// deflection of the curve. scale converts parameter units into model
	// units along the curve.
	Sample(deflection, scale float64) geometry.Polygon2
}

// Polyline is a trimming curve that is already a polygon
type Polyline geometry.Polygon2

// Sample implements Trim
func (p Polyline) Sample(deflection, scale float64) geometry.Polygon2 {
	return geometry.Polygon2(p)
}

// Circle is a circular trimming curve in parameter space
type Circle struct {
	Center    geometry.Vector2
	Radius    float64
	Clockwise bool
}

// minCircleSegments keeps coarse deflections from collapsing a circle
const minCircleSegments = 8

// Sample implements Trim
func (c Circle) Sample(deflection, scale float64) geometry.Polygon2 {
	n := minCircleSegments
	r := c.Radius * scale
	if deflection > 0 && deflection < r {
		// sagitta r(1 - cos(θ/2)) <= deflection
		step := 2 * math.Acos(1-deflection/r)
		n = max(n, int(math.Ceil(2*math.Pi/step)))
	}

	points := make(geometry.Polygon2, n)
	for i := range points {
		a := 2 * math.Pi * float64(i) / float64(n)
		if c.Clockwise {
			a = -a
		}
		points[i] = geometry.NewVector2(c.Center.U+c.Radius*math.Cos(a), c.Center.V+c.Radius*math.Sin(a))
	}
	return points
}

// Face is a kernel.Face backed by a Surface
type Face struct {
	Name     string
	Surface  Surface
	Bounds   kernel.Domain
	Reversed bool
	Trims    []Trim

	// TrimScale converts parameter units to model units for trim sampling.
	// Zero means 1.
	TrimScale float64
}

// ID implements kernel.Face
func (f *Face) ID() string {
	return f.Name
}

// Domain implements kernel.Face
func (f *Face) Domain() kernel.Domain {
	return f.Bounds
}

// Evaluate implements kernel.Face
func (f *Face) Evaluate(u, v float64) (geometry.Vector3, geometry.Vector3, error) {
	p, n, err := f.Surface.Evaluate(u, v)
	if err != nil {
		return p, n, err
	}
	if f.Reversed {
		n = n.Mul(-1)
	}
	return p, n, nil
}

// Lattice implements kernel.Lattice for surfaces sampled at a known
// resolution; other surfaces report zero
func (f *Face) Lattice() (nu, nv int) {
	if l, ok := f.Surface.(kernel.Lattice); ok {
		return l.Lattice()
	}
	return 0, 0
}

// Loops implements kernel.Face
func (f *Face) Loops(deflection float64) ([]kernel.Loop, error) {
	scale := f.TrimScale
	if scale == 0 {
		scale = 1
	}
	loops := make([]kernel.Loop, 0, len(f.Trims))
	for _, t := range f.Trims {
		loops = append(loops, kernel.Loop{Points: t.Sample(deflection, scale)})
	}
	return loops, nil
}

// Shape is an ordered list of faces
type Shape struct {
	Name      string
	FaceItems []kernel.Face
}

// ID implements kernel.Shape
func (s *Shape) ID() string {
	return s.Name
}

// Faces implements kernel.Shape
func (s *Shape) Faces() ([]kernel.Face, error) {
	return s.FaceItems, nil
}

// Document is an in-memory kernel.Document
type Document struct {
	Title      string
	ShapeItems []kernel.Shape
}

// Name implements kernel.Document
func (d *Document) Name() string {
	return d.Title
}

// Shapes implements kernel.Document
func (d *Document) Shapes() ([]kernel.Shape, error) {
	return d.ShapeItems, nil
}

// Close implements kernel.Document
func (d *Document) Close() error {
	return nil
}

// Rectangle returns the trimming loop covering the whole domain
func Rectangle(d kernel.Domain) Polyline {
	return Polyline{
		geometry.NewVector2(d.UMin, d.VMin),
		geometry.NewVector2(d.UMax, d.VMin),
		geometry.NewVector2(d.UMax, d.VMax),
		geometry.NewVector2(d.UMin, d.VMax),
	}
}
