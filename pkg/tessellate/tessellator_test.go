package tessellate_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/stp2stl/pkg/geometry"
	"github.com/philipparndt/stp2stl/pkg/kernel"
	"github.com/philipparndt/stp2stl/pkg/surface"
	"github.com/philipparndt/stp2stl/pkg/tessellate"
)

func xyPlane() surface.Plane {
	return surface.Plane{
		XDir: geometry.NewVector3(1, 0, 0),
		YDir: geometry.NewVector3(0, 1, 0),
	}
}

func planeFace(name string, d kernel.Domain) *surface.Face {
	return &surface.Face{Name: name, Surface: xyPlane(), Bounds: d}
}

func cylinderFace(radius, height float64) *surface.Face {
	return &surface.Face{
		Name: "Face1",
		Surface: surface.Cylinder{
			Axis:   geometry.NewVector3(0, 0, 1),
			XDir:   geometry.NewVector3(1, 0, 0),
			Radius: radius,
		},
		Bounds: kernel.Domain{UMin: 0, UMax: 2 * math.Pi, VMin: 0, VMax: height},
	}
}

func newTessellator(t *testing.T, tol tessellate.Tolerance) *tessellate.Tessellator {
	t.Helper()
	tess, err := tessellate.New(tol)
	require.NoError(t, err)
	return tess
}

func TestNewRejectsInvalidTolerance(t *testing.T) {
	_, err := tessellate.New(tessellate.Tolerance{LinearDeflection: 0, AngularDeflection: 0.1})
	assert.Error(t, err)

	_, err = tessellate.New(tessellate.Tolerance{LinearDeflection: 0.1, AngularDeflection: math.NaN()})
	assert.Error(t, err)

	_, err = tessellate.New(tessellate.Tolerance{LinearDeflection: 0.1, AngularDeflection: 0.1, MaxDepth: -1})
	assert.Error(t, err)
}

func TestTessellatePlanarRectangle(t *testing.T) {
	tess := newTessellator(t, tessellate.DefaultTolerance())
	face := planeFace("Face1", kernel.Domain{UMin: 0, UMax: 2, VMin: 0, VMax: 1})

	patch, err := tess.Tessellate(context.Background(), face)
	require.NoError(t, err)

	assert.Equal(t, "Face1", patch.FaceID)
	assert.Equal(t, 2, patch.Len())
	assert.Len(t, patch.Points, 4)
	assert.InDelta(t, 2.0, patch.Area(), 1e-12)
	assert.Empty(t, patch.Warnings)

	for facet := range patch.Facets() {
		assert.InDelta(t, 1.0, facet.Normal.Z, 1e-12)
	}
}

func TestTessellateRectangleLoopKeepsWholeFace(t *testing.T) {
	tess := newTessellator(t, tessellate.DefaultTolerance())
	d := kernel.Domain{UMin: 0, UMax: 2, VMin: 0, VMax: 1}
	face := planeFace("Face1", d)
	face.Trims = []surface.Trim{surface.Rectangle(d)}

	patch, err := tess.Tessellate(context.Background(), face)
	require.NoError(t, err)

	assert.Equal(t, 2, patch.Len())
	assert.InDelta(t, 2.0, patch.Area(), 1e-12)
}

func TestTessellateReversedFace(t *testing.T) {
	tess := newTessellator(t, tessellate.DefaultTolerance())
	face := planeFace("Face1", kernel.Domain{UMin: 0, UMax: 1, VMin: 0, VMax: 1})
	face.Reversed = true

	patch, err := tess.Tessellate(context.Background(), face)
	require.NoError(t, err)
	require.NotZero(t, patch.Len())

	for facet := range patch.Facets() {
		assert.InDelta(t, -1.0, facet.Normal.Z, 1e-12)
	}
}

func TestTessellateZeroAreaDomain(t *testing.T) {
	tess := newTessellator(t, tessellate.DefaultTolerance())
	face := planeFace("Face1", kernel.Domain{UMin: 1, UMax: 1, VMin: 0, VMax: 1})

	patch, err := tess.Tessellate(context.Background(), face)
	require.NoError(t, err)
	assert.Zero(t, patch.Len())
	assert.Empty(t, patch.Points)
}

func TestTessellateCylinder(t *testing.T) {
	tess := newTessellator(t, tessellate.DefaultTolerance())

	patch, err := tess.Tessellate(context.Background(), cylinderFace(10, 5))
	require.NoError(t, err)

	// 5 degrees needs 128 intervals around the axis, none along it
	assert.Equal(t, 256, patch.Len())

	for _, p := range patch.Points {
		assert.InDelta(t, 10.0, math.Hypot(p.X, p.Y), 1e-9)
	}
	for facet := range patch.Facets() {
		c := facet.Center()
		assert.GreaterOrEqual(t, math.Hypot(c.X, c.Y), 10.0-0.1)

		radial := geometry.NewVector3(c.X, c.Y, 0).Normalize()
		assert.Greater(t, facet.Normal.Dot(radial), 0.0, "facet should face outwards")
	}
}

func TestTessellateIsDeterministic(t *testing.T) {
	tess := newTessellator(t, tessellate.Tolerance{LinearDeflection: 0.05, AngularDeflection: 0.2})
	face := cylinderFace(3, 2)

	first, err := tess.Tessellate(context.Background(), face)
	require.NoError(t, err)
	second, err := tess.Tessellate(context.Background(), face)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTessellateTighterToleranceNeverCoarser(t *testing.T) {
	face := cylinderFace(10, 5)
	previous := 0
	for _, lin := range []float64{1, 0.5, 0.1, 0.01, 0.001} {
		tess := newTessellator(t, tessellate.Tolerance{LinearDeflection: lin, AngularDeflection: math.Pi})
		patch, err := tess.Tessellate(context.Background(), face)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, patch.Len(), previous, "linear deflection %v", lin)
		previous = patch.Len()
	}
}

func TestTessellateSphere(t *testing.T) {
	tess := newTessellator(t, tessellate.Tolerance{LinearDeflection: 0.01, AngularDeflection: 0.3})
	face := &surface.Face{
		Name: "Face1",
		Surface: surface.Sphere{
			Axis:   geometry.NewVector3(0, 0, 1),
			XDir:   geometry.NewVector3(1, 0, 0),
			Radius: 1,
		},
		Bounds: kernel.Domain{UMin: 0, UMax: 2 * math.Pi, VMin: -math.Pi / 2, VMax: math.Pi / 2},
	}

	patch, err := tess.Tessellate(context.Background(), face)
	require.NoError(t, err)

	for _, p := range patch.Points {
		assert.InDelta(t, 1.0, p.Length(), 1e-9)
	}
	// the collapsed pole cells lose one triangle each
	assert.Positive(t, patch.Dropped)
	assert.InEpsilon(t, 4*math.Pi, patch.Area(), 0.05)
}

func TestTessellateCircularHole(t *testing.T) {
	tol := tessellate.DefaultTolerance()
	tess := newTessellator(t, tol)
	d := kernel.Domain{UMin: 0, UMax: 10, VMin: 0, VMax: 10}
	hole := surface.Circle{Center: geometry.NewVector2(5, 5), Radius: 2, Clockwise: true}
	face := planeFace("Face1", d)
	face.Trims = []surface.Trim{surface.Rectangle(d), hole}

	patch, err := tess.Tessellate(context.Background(), face)
	require.NoError(t, err)
	assert.Empty(t, patch.Warnings)

	holeArea := hole.Sample(tol.LinearDeflection, 1).Area()
	assert.InDelta(t, 100-holeArea, patch.Area(), 1e-6)

	for facet := range patch.Facets() {
		c := facet.Center()
		assert.GreaterOrEqual(t, math.Hypot(c.X-5, c.Y-5), 1.9)
		assert.InDelta(t, 1.0, facet.Normal.Z, 1e-9)
	}
}

func TestTessellateSelfIntersectingLoopWarns(t *testing.T) {
	tess := newTessellator(t, tessellate.DefaultTolerance())
	face := planeFace("Face3", kernel.Domain{UMin: 0, UMax: 1, VMin: 0, VMax: 1})
	face.Trims = []surface.Trim{surface.Polyline{
		geometry.NewVector2(0, 0),
		geometry.NewVector2(1, 1),
		geometry.NewVector2(1, 0),
		geometry.NewVector2(0, 1),
	}}

	patch, err := tess.Tessellate(context.Background(), face)
	require.NoError(t, err)
	require.Len(t, patch.Warnings, 1)
	assert.ErrorIs(t, patch.Warnings[0], tessellate.ErrSelfIntersectingLoop)

	var ge *kernel.GeometryError
	require.ErrorAs(t, patch.Warnings[0], &ge)
	assert.Equal(t, "Face3", ge.Face)
}

func TestTessellateDegenerateLoopIgnored(t *testing.T) {
	tess := newTessellator(t, tessellate.DefaultTolerance())
	face := planeFace("Face1", kernel.Domain{UMin: 0, UMax: 1, VMin: 0, VMax: 1})
	face.Trims = []surface.Trim{surface.Polyline{geometry.NewVector2(0, 0), geometry.NewVector2(1, 1)}}

	patch, err := tess.Tessellate(context.Background(), face)
	require.NoError(t, err)
	require.Len(t, patch.Warnings, 1)
	assert.ErrorIs(t, patch.Warnings[0], tessellate.ErrDegenerateLoop)
	assert.InDelta(t, 1.0, patch.Area(), 1e-12)
}

func TestTessellateEvaluationFailure(t *testing.T) {
	tess := newTessellator(t, tessellate.DefaultTolerance())
	face := &surface.Face{
		Name:    "Face2",
		Surface: surface.Broken{Reason: "unsupported surface"},
		Bounds:  kernel.Domain{UMin: 0, UMax: 1, VMin: 0, VMax: 1},
	}

	_, err := tess.Tessellate(context.Background(), face)
	require.Error(t, err)
	assert.ErrorIs(t, err, kernel.ErrEvaluation)
}

type nanSurface struct{}

func (nanSurface) Evaluate(u, v float64) (geometry.Vector3, geometry.Vector3, error) {
	return geometry.NewVector3(math.NaN(), 0, 0), geometry.NewVector3(0, 0, 1), nil
}

func TestTessellateNonFinitePoint(t *testing.T) {
	tess := newTessellator(t, tessellate.DefaultTolerance())
	face := &surface.Face{
		Name:    "Face1",
		Surface: nanSurface{},
		Bounds:  kernel.Domain{UMin: 0, UMax: 1, VMin: 0, VMax: 1},
	}

	_, err := tess.Tessellate(context.Background(), face)
	assert.ErrorIs(t, err, kernel.ErrEvaluation)
}

func TestTessellateCancelled(t *testing.T) {
	tess := newTessellator(t, tessellate.DefaultTolerance())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tess.Tessellate(ctx, cylinderFace(1, 1))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestTessellateDepthCap(t *testing.T) {
	tol := tessellate.Tolerance{LinearDeflection: 1e-6, AngularDeflection: 1e-3, MaxDepth: 1}
	tess := newTessellator(t, tol)

	patch, err := tess.Tessellate(context.Background(), cylinderFace(1, 1))
	require.NoError(t, err)
	// one level at most doubles the starting lattice in each direction
	n := 2 * tessellate.DefaultLattice
	assert.Greater(t, patch.Len(), 0)
	assert.LessOrEqual(t, patch.Len(), 2*n*n)
}

// egg crate is z = 0.5·sin(2πu)·sin(2πv) over the unit square, with x = u
// and y = v. Its corners and edge midpoints all lie in the plane z = 0.
type eggCrate struct{}

func (eggCrate) Evaluate(u, v float64) (geometry.Vector3, geometry.Vector3, error) {
	su, cu := math.Sincos(2 * math.Pi * u)
	sv, cv := math.Sincos(2 * math.Pi * v)
	dz := math.Pi
	normal := geometry.NewVector3(-dz*cu*sv, -dz*su*cv, 1).Normalize()
	return geometry.NewVector3(u, v, 0.5*su*sv), normal, nil
}

func TestTessellateWavySurfaceStaysWithinDeflection(t *testing.T) {
	tol := tessellate.DefaultTolerance()
	tess := newTessellator(t, tol)
	face := &surface.Face{
		Name:    "Face1",
		Surface: eggCrate{},
		Bounds:  kernel.Domain{UMin: 0, UMax: 1, VMin: 0, VMax: 1},
	}

	patch, err := tess.Tessellate(context.Background(), face)
	require.NoError(t, err)
	require.Greater(t, patch.Len(), 2)

	peak := 0.0
	for _, p := range patch.Points {
		peak = max(peak, p.Z)
	}
	assert.InDelta(t, 0.5, peak, tol.LinearDeflection)

	for facet := range patch.Facets() {
		c := facet.Center()
		want, _, _ := eggCrate{}.Evaluate(c.X, c.Y)
		assert.LessOrEqual(t, math.Abs(c.Z-want.Z), tol.LinearDeflection)
	}
}

func TestTessellatePlanarFaceIgnoresDeflection(t *testing.T) {
	face := planeFace("Face1", kernel.Domain{UMin: 0, UMax: 2, VMin: 0, VMax: 1})
	for _, lin := range []float64{1e-4, 1e-2, 0.1, 1, 10} {
		for _, ang := range []float64{0.01, 0.1, math.Pi / 4, math.Pi} {
			tess := newTessellator(t, tessellate.Tolerance{LinearDeflection: lin, AngularDeflection: ang})

			patch, err := tess.Tessellate(context.Background(), face)
			require.NoError(t, err)
			assert.Equal(t, 2, patch.Len(), "linear %v angular %v", lin, ang)
			assert.InDelta(t, 2.0, patch.Area(), 1e-12)
		}
	}
}
