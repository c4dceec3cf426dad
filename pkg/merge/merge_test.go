package merge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/stp2stl/pkg/geometry"
	"github.com/philipparndt/stp2stl/pkg/merge"
	"github.com/philipparndt/stp2stl/pkg/mesh"
)

// square returns a unit square of two triangles with its lower left corner at x
func square(t *testing.T, name string, x float64) *mesh.Mesh {
	t.Helper()
	m := mesh.New(name, 0)
	m.AddVertex(geometry.NewVector3(x, 0, 0))
	m.AddVertex(geometry.NewVector3(x+1, 0, 0))
	m.AddVertex(geometry.NewVector3(x+1, 1, 0))
	m.AddVertex(geometry.NewVector3(x, 1, 0))
	require.NoError(t, m.AddTriangle(0, 1, 2))
	require.NoError(t, m.AddTriangle(0, 2, 3))
	return m
}

func TestParsePolicy(t *testing.T) {
	p, err := merge.ParsePolicy("Weld")
	require.NoError(t, err)
	assert.Equal(t, merge.Weld, p)

	p, err = merge.ParsePolicy("concatenate")
	require.NoError(t, err)
	assert.Equal(t, merge.Concatenate, p)

	_, err = merge.ParsePolicy("glue")
	assert.Error(t, err)
}

func TestPolicyText(t *testing.T) {
	var p merge.Policy
	require.NoError(t, p.UnmarshalText([]byte("weld")))
	assert.Equal(t, merge.Weld, p)

	text, err := merge.Concatenate.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "concatenate", string(text))
}

func TestConcatenateRemapsIndices(t *testing.T) {
	a := square(t, "A", 0)
	b := square(t, "B", 1)

	merged, removed := merge.Merge([]*mesh.Mesh{a, b}, merge.Concatenate, 1e-6)

	assert.Zero(t, removed)
	assert.Equal(t, "A", merged.Name)
	assert.Equal(t, 8, merged.VertexCount())
	assert.Equal(t, 4, merged.TriangleCount())
	assert.Equal(t, mesh.Triangle{I: 4, J: 5, K: 6, Normal: b.Triangles[0].Normal}, merged.Triangles[2])
	assert.InDelta(t, 2.0, merged.Area(), 1e-12)

	// inputs stay untouched
	assert.Equal(t, 4, a.VertexCount())
	assert.Equal(t, 4, b.VertexCount())
}

func TestWeldSharedBoundary(t *testing.T) {
	a := square(t, "A", 0)
	b := square(t, "B", 1)

	merged, removed := merge.Merge([]*mesh.Mesh{a, b}, merge.Weld, 1e-6)

	assert.Equal(t, 2, removed)
	assert.Equal(t, 6, merged.VertexCount())
	assert.Equal(t, 4, merged.TriangleCount())
	assert.InDelta(t, 2.0, merged.Area(), 1e-12)
}

func TestWeldZeroEpsilonEqualsConcatenate(t *testing.T) {
	meshes := []*mesh.Mesh{square(t, "A", 0), square(t, "B", 1)}

	concatenated, _ := merge.Merge(meshes, merge.Concatenate, 0)
	welded, removed := merge.Merge(meshes, merge.Weld, 0)

	assert.Zero(t, removed)
	assert.Equal(t, concatenated, welded)
}

func TestMergeIsDeterministic(t *testing.T) {
	meshes := []*mesh.Mesh{square(t, "A", 0), square(t, "B", 1), square(t, "C", 0.5)}

	first, _ := merge.Merge(meshes, merge.Weld, 1e-3)
	second, _ := merge.Merge(meshes, merge.Weld, 1e-3)

	assert.Equal(t, first, second)
}

func TestMergeNothing(t *testing.T) {
	merged, removed := merge.Merge(nil, merge.Weld, 1e-3)
	assert.Zero(t, removed)
	assert.True(t, merged.IsEmpty())
}
