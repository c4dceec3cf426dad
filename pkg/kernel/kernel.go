// Package kernel describes the capabilities the converter needs from a B-Rep
// CAD kernel. Implementations are read-only views and must be safe for
// concurrent use by multiple goroutines.
package kernel

import (
	"context"
	"errors"
	"fmt"

	"github.com/philipparndt/stp2stl/pkg/geometry"
)

// Domain is the rectangular (u,v) parameter range of a face
type Domain struct {
	UMin, UMax float64
	VMin, VMax float64
}

// Width returns the extent of the domain in u
func (d Domain) Width() float64 {
	return d.UMax - d.UMin
}

// Height returns the extent of the domain in v
func (d Domain) Height() float64 {
	return d.VMax - d.VMin
}

// Loop is a closed trimming curve sampled as a polyline in parameter space
type Loop struct {
	Points geometry.Polygon2
}

// Face is a bounded parametric surface
type Face interface {
	// ID identifies the face within its document, e.g. "Face7"
	ID() string

	// Domain returns the parameter range covered by the surface
	Domain() Domain

	// Evaluate returns the surface point and the outward unit normal at (u,v)
	Evaluate(u, v float64) (point, normal geometry.Vector3, err error)

	// Loops returns the trimming loops sampled so that the polyline stays
	// within deflection of the true curve. No loops means the whole domain.
	Loops(deflection float64) ([]Loop, error)
}

// Lattice is implemented by faces whose surface was defined at a known
// resolution, such as a sampled grid or the knot spans of a B-spline.
// Tessellation samples such faces at least that densely.
type Lattice interface {
	Lattice() (nu, nv int)
}

// Shape is one solid or compound made of faces
type Shape interface {
	ID() string
	Faces() ([]Face, error)
}

// Document is an opened CAD file
type Document interface {
	Name() string
	Shapes() ([]Shape, error)
	Close() error
}

// Opener opens the document stored at path
type Opener interface {
	Open(ctx context.Context, path string) (Document, error)
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func(ctx context.Context, path string) (Document, error)

// Open calls f(ctx, path)
func (f OpenerFunc) Open(ctx context.Context, path string) (Document, error) {
	return f(ctx, path)
}

// ErrEvaluation marks a surface that cannot be evaluated at a parameter
var ErrEvaluation = errors.New("surface evaluation failed")

// InputError reports a document that cannot be read at all
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// GeometryError reports a face or shape that could not be tessellated
type GeometryError struct {
	Shape string
	Face  string
	Err   error
}

func (e *GeometryError) Error() string {
	switch {
	case e.Face != "" && e.Shape != "":
		return fmt.Sprintf("%s/%s: %v", e.Shape, e.Face, e.Err)
	case e.Face != "":
		return fmt.Sprintf("%s: %v", e.Face, e.Err)
	case e.Shape != "":
		return fmt.Sprintf("%s: %v", e.Shape, e.Err)
	}
	return e.Err.Error()
}

func (e *GeometryError) Unwrap() error {
	return e.Err
}
