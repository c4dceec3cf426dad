package pipeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/philipparndt/stp2stl/pkg/merge"
	"github.com/philipparndt/stp2stl/pkg/stl"
	"github.com/philipparndt/stp2stl/pkg/tessellate"
)

// GLTFMode selects the optional glTF output
type GLTFMode string

const (
	GLTFNone   GLTFMode = ""
	GLTFJSON   GLTFMode = "gltf"
	GLTFBinary GLTFMode = "glb"
)

// Scale is a per-axis scale factor applied after merging
type Scale struct {
	X, Y, Z float64
}

// Identity is the scale that leaves the mesh unchanged
var Identity = Scale{X: 1, Y: 1, Z: 1}

// MillimetersToMeters converts models drawn in mm to m
var MillimetersToMeters = Scale{X: 0.001, Y: 0.001, Z: 0.001}

// IsIdentity reports whether s changes nothing
func (s Scale) IsIdentity() bool {
	return s == Identity
}

// Options configures one conversion run. It is an immutable value shared by
// every input of a batch.
type Options struct {
	Tolerance tessellate.Tolerance
	Workers   int

	Merge       merge.Policy
	WeldEpsilon float64

	// STL holds the format, header and empty-mesh policy of the output
	STL stl.Options

	Scale Scale

	// SplitShapes writes one STL per shape instead of one merged file
	SplitShapes bool

	// GLTF additionally writes the shapes as a glTF scene
	GLTF GLTFMode

	// Preview additionally renders a PNG thumbnail of the merged mesh
	Preview bool

	// Output overrides the output path of a single input, or names the
	// directory for a batch when it is an existing directory
	Output string
}

// DefaultOptions returns binary STL output with default tolerance
func DefaultOptions() Options {
	return Options{
		Tolerance:   tessellate.DefaultTolerance(),
		Merge:       merge.Concatenate,
		WeldEpsilon: 1e-6,
		STL:         stl.Options{Format: stl.Binary},
		Scale:       Identity,
	}
}

// Validate checks the options before any file is touched
func (o Options) Validate() error {
	var errs []error
	if err := o.Tolerance.Validate(); err != nil {
		errs = append(errs, err)
	}
	if o.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", o.Workers))
	}
	if o.WeldEpsilon < 0 || math.IsNaN(o.WeldEpsilon) || math.IsInf(o.WeldEpsilon, 0) {
		errs = append(errs, fmt.Errorf("weld epsilon must be a non-negative finite number, got %v", o.WeldEpsilon))
	}
	for axis, f := range [3]float64{o.Scale.X, o.Scale.Y, o.Scale.Z} {
		if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			errs = append(errs, fmt.Errorf("scale %c must be a non-zero finite number, got %v", 'x'+axis, f))
		}
	}
	switch o.GLTF {
	case GLTFNone, GLTFJSON, GLTFBinary:
	default:
		errs = append(errs, fmt.Errorf("unknown glTF mode %q", o.GLTF))
	}
	return errors.Join(errs...)
}
