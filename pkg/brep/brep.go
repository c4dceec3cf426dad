// Package brep decodes the B-Rep interchange format, a JSON description of
// shapes made of parametric faces with trimming loops in parameter space.
// The FreeCAD bridge emits it and tests use it to describe fixtures.
package brep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/philipparndt/stp2stl/pkg/geometry"
	"github.com/philipparndt/stp2stl/pkg/kernel"
	"github.com/philipparndt/stp2stl/pkg/surface"
)

// ErrNoShapes is returned for a document without a shapes list
var ErrNoShapes = errors.New("document has no shapes")

type vec3 [3]float64

func (v vec3) vector() geometry.Vector3 {
	return geometry.NewVector3(v[0], v[1], v[2])
}

type vec2 [2]float64

func (v vec2) vector() geometry.Vector2 {
	return geometry.NewVector2(v[0], v[1])
}

type document struct {
	Name   string  `json:"name"`
	Shapes []shape `json:"shapes"`
}

type shape struct {
	Name  string `json:"name"`
	Faces []face `json:"faces"`
}

type face struct {
	Name      string      `json:"name"`
	Surface   *surfaceDef `json:"surface"`
	Domain    []float64   `json:"domain"`
	Reversed  bool        `json:"reversed"`
	TrimScale float64     `json:"trim_scale"`
	Loops     []loop      `json:"loops"`

	// Error is set by the exporter when the kernel could not describe
	// the face
	Error string `json:"error"`
}

type loop struct {
	Points []vec2  `json:"points"`
	Circle *circle `json:"circle"`
}

type circle struct {
	Center    vec2    `json:"center"`
	Radius    float64 `json:"radius"`
	Clockwise bool    `json:"clockwise"`
}

type surfaceDef struct {
	Type string `json:"type"`

	Origin    vec3    `json:"origin"`
	Axis      vec3    `json:"axis"`
	XDir      vec3    `json:"x_dir"`
	YDir      vec3    `json:"y_dir"`
	Radius    float64 `json:"radius"`
	SemiAngle float64 `json:"semi_angle"`

	NU      int    `json:"nu"`
	NV      int    `json:"nv"`
	Points  []vec3 `json:"points"`
	Normals []vec3 `json:"normals"`

	DegreeU       int         `json:"degree_u"`
	DegreeV       int         `json:"degree_v"`
	KnotsU        []float64   `json:"knots_u"`
	KnotsV        []float64   `json:"knots_v"`
	ControlPoints [][]vec3    `json:"control_points"`
	Weights       [][]float64 `json:"weights"`
}

// Decode reads an interchange document from r. Syntax errors fail the whole
// document; a face whose surface cannot be built is kept as a face that
// fails on evaluation so the walker reports it as a warning.
func Decode(r io.Reader) (*surface.Document, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if doc.Shapes == nil {
		return nil, ErrNoShapes
	}

	out := &surface.Document{Title: doc.Name}
	for i, s := range doc.Shapes {
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("Shape%d", i+1)
		}
		sh := &surface.Shape{Name: name, FaceItems: make([]kernel.Face, 0, len(s.Faces))}
		for k, f := range s.Faces {
			sh.FaceItems = append(sh.FaceItems, buildFace(k, f))
		}
		out.ShapeItems = append(out.ShapeItems, sh)
	}
	return out, nil
}

func buildFace(index int, f face) *surface.Face {
	name := f.Name
	if name == "" {
		name = fmt.Sprintf("Face%d", index+1)
	}
	out := &surface.Face{
		Name:      name,
		Reversed:  f.Reversed,
		TrimScale: f.TrimScale,
	}

	if f.Error != "" {
		out.Surface = surface.Broken{Reason: f.Error}
		return out
	}
	srf, natural, err := buildSurface(f.Surface)
	if err != nil {
		out.Surface = surface.Broken{Reason: err.Error()}
		return out
	}
	out.Surface = srf

	switch {
	case len(f.Domain) == 4:
		out.Bounds = kernel.Domain{UMin: f.Domain[0], UMax: f.Domain[1], VMin: f.Domain[2], VMax: f.Domain[3]}
	case natural != nil:
		out.Bounds = *natural
	default:
		out.Surface = surface.Broken{Reason: fmt.Sprintf("domain needs 4 values, got %d", len(f.Domain))}
		return out
	}
	if g, ok := srf.(*surface.Grid); ok {
		g.Domain = out.Bounds
	}

	for _, l := range f.Loops {
		if l.Circle != nil {
			out.Trims = append(out.Trims, surface.Circle{
				Center:    l.Circle.Center.vector(),
				Radius:    l.Circle.Radius,
				Clockwise: l.Circle.Clockwise,
			})
			continue
		}
		points := make(surface.Polyline, len(l.Points))
		for i, p := range l.Points {
			points[i] = p.vector()
		}
		out.Trims = append(out.Trims, points)
	}
	return out
}

// buildSurface returns the surface and, for sampled and spline surfaces,
// the domain they are defined on
func buildSurface(s *surfaceDef) (surface.Surface, *kernel.Domain, error) {
	if s == nil {
		return nil, nil, errors.New("face has no surface")
	}
	switch s.Type {
	case "plane":
		return surface.Plane{Origin: s.Origin.vector(), XDir: s.XDir.vector(), YDir: s.YDir.vector()}, nil, nil
	case "cylinder":
		if s.Radius <= 0 {
			return nil, nil, fmt.Errorf("cylinder radius must be positive, got %g", s.Radius)
		}
		return surface.Cylinder{Center: s.Origin.vector(), Axis: s.Axis.vector(), XDir: s.XDir.vector(), Radius: s.Radius}, nil, nil
	case "cone":
		return surface.Cone{
			Center:    s.Origin.vector(),
			Axis:      s.Axis.vector(),
			XDir:      s.XDir.vector(),
			Radius:    s.Radius,
			SemiAngle: s.SemiAngle,
		}, nil, nil
	case "sphere":
		if s.Radius <= 0 {
			return nil, nil, fmt.Errorf("sphere radius must be positive, got %g", s.Radius)
		}
		return surface.Sphere{Center: s.Origin.vector(), Axis: s.Axis.vector(), XDir: s.XDir.vector(), Radius: s.Radius}, nil, nil
	case "grid":
		g := &surface.Grid{NU: s.NU, NV: s.NV}
		for _, p := range s.Points {
			g.Points = append(g.Points, p.vector())
		}
		for _, n := range s.Normals {
			g.Normals = append(g.Normals, n.vector())
		}
		if err := g.Validate(); err != nil {
			return nil, nil, err
		}
		// grid samples span the unit square unless the face says otherwise
		g.Domain = kernel.Domain{UMin: 0, UMax: 1, VMin: 0, VMax: 1}
		return g, &g.Domain, nil
	case "nurbs", "bspline":
		n := &surface.NURBS{
			DegreeU: s.DegreeU,
			DegreeV: s.DegreeV,
			KnotsU:  s.KnotsU,
			KnotsV:  s.KnotsV,
			Weights: s.Weights,
		}
		for _, row := range s.ControlPoints {
			points := make([]geometry.Vector3, len(row))
			for j, p := range row {
				points[j] = p.vector()
			}
			n.ControlPoints = append(n.ControlPoints, points)
		}
		if err := n.Validate(); err != nil {
			return nil, nil, err
		}
		d := n.Domain()
		return n, &d, nil
	case "":
		return nil, nil, errors.New("surface has no type")
	}
	return nil, nil, fmt.Errorf("unsupported surface type %q", s.Type)
}

// Open reads the interchange document stored at path
func Open(path string) (*surface.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &kernel.InputError{Path: path, Err: err}
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, &kernel.InputError{Path: path, Err: err}
	}
	return doc, nil
}

// Opener opens interchange documents from disk
type Opener struct{}

// Open implements kernel.Opener
func (Opener) Open(ctx context.Context, path string) (kernel.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Open(path)
}
