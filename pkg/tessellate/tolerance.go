package tessellate

import (
	"fmt"
	"math"
)

// DefaultMaxDepth bounds the number of subdivision levels of one face
const DefaultMaxDepth = 10

// DefaultLattice is the number of intervals per direction sampled before
// adaptive refinement starts
const DefaultLattice = 4

// maxLattice caps the starting resolution taken from sampled surfaces
const maxLattice = 64

// Tolerance bounds the deviation of the mesh from the true surface. It is a
// value type so that concurrent face tasks each hold their own copy.
type Tolerance struct {
	// LinearDeflection is the largest allowed distance between a facet and
	// the surface, in model units
	LinearDeflection float64

	// AngularDeflection is the largest allowed normal change across one
	// facet edge, in radians
	AngularDeflection float64

	// MaxDepth caps the subdivision levels; zero selects DefaultMaxDepth
	MaxDepth int
}

// DefaultTolerance returns 0.1 model units and 5 degrees
func DefaultTolerance() Tolerance {
	return Tolerance{
		LinearDeflection:  0.1,
		AngularDeflection: 5 * math.Pi / 180,
		MaxDepth:          DefaultMaxDepth,
	}
}

// Validate checks that both deflections are positive finite numbers
func (t Tolerance) Validate() error {
	if !(t.LinearDeflection > 0) || math.IsInf(t.LinearDeflection, 0) {
		return fmt.Errorf("linear deflection must be a positive finite number, got %v", t.LinearDeflection)
	}
	if !(t.AngularDeflection > 0) || math.IsInf(t.AngularDeflection, 0) {
		return fmt.Errorf("angular deflection must be a positive finite number, got %v", t.AngularDeflection)
	}
	if t.MaxDepth < 0 {
		return fmt.Errorf("max depth must not be negative, got %d", t.MaxDepth)
	}
	return nil
}

func (t Tolerance) depth() int {
	if t.MaxDepth == 0 {
		return DefaultMaxDepth
	}
	return t.MaxDepth
}

// DegenerateEpsilon is the smallest facet height kept by tessellation
func (t Tolerance) DegenerateEpsilon() float64 {
	return t.LinearDeflection * 1e-6
}
