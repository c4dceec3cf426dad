package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/stp2stl/pkg/analysis"
	"github.com/philipparndt/stp2stl/pkg/geometry"
	"github.com/philipparndt/stp2stl/pkg/mesh"
)

// tetrahedron builds a closed, outward facing unit corner tetrahedron
func tetrahedron(t *testing.T) *mesh.Mesh {
	t.Helper()
	m := mesh.New("tetra", 0)
	m.AddVertex(geometry.NewVector3(0, 0, 0))
	m.AddVertex(geometry.NewVector3(1, 0, 0))
	m.AddVertex(geometry.NewVector3(0, 1, 0))
	m.AddVertex(geometry.NewVector3(0, 0, 1))
	require.NoError(t, m.AddTriangle(0, 2, 1))
	require.NoError(t, m.AddTriangle(0, 1, 3))
	require.NoError(t, m.AddTriangle(0, 3, 2))
	require.NoError(t, m.AddTriangle(1, 2, 3))
	return m
}

func TestAnalyzeTetrahedron(t *testing.T) {
	report := analysis.Analyze(tetrahedron(t))

	assert.Equal(t, "tetra", report.Name)
	assert.Equal(t, 4, report.TriangleCount)
	assert.Equal(t, 4, report.VertexCount)
	assert.Equal(t, 12, report.EdgeCount)
	assert.InDelta(t, 1.0/6, report.Volume, 1e-12)
	assert.Equal(t, geometry.NewVector3(1, 1, 1), report.Dimensions)
	assert.InDelta(t, 1.0, report.MinEdgeLength, 1e-12)
	assert.InDelta(t, 1.4142135623730951, report.MaxEdgeLength, 1e-12)

	assert.Equal(t, 6, report.Topology.UniqueEdges)
	assert.True(t, report.Topology.Watertight())
}

func TestTopologyOpenMesh(t *testing.T) {
	m := tetrahedron(t)
	m.Triangles = m.Triangles[:3]

	topo := analysis.CheckTopology(m)
	assert.Equal(t, 3, topo.OpenEdges)
	assert.Zero(t, topo.NonManifoldEdges)
	assert.False(t, topo.Watertight())
}

func TestTopologyMatchesByPosition(t *testing.T) {
	m := mesh.New("split", 0)
	// two triangles sharing an edge but not its vertex indices
	for _, p := range []geometry.Vector3{
		geometry.NewVector3(0, 0, 0), geometry.NewVector3(1, 0, 0), geometry.NewVector3(0, 1, 0),
		geometry.NewVector3(1, 0, 0), geometry.NewVector3(1, 1, 0), geometry.NewVector3(0, 1, 0),
	} {
		m.AddVertex(p)
	}
	require.NoError(t, m.AddTriangle(0, 1, 2))
	require.NoError(t, m.AddTriangle(3, 4, 5))

	topo := analysis.CheckTopology(m)
	assert.Equal(t, 5, topo.UniqueEdges)
	assert.Equal(t, 4, topo.OpenEdges)
}

func TestTopologyNonManifold(t *testing.T) {
	m := mesh.New("fin", 0)
	m.AddVertex(geometry.NewVector3(0, 0, 0))
	m.AddVertex(geometry.NewVector3(1, 0, 0))
	m.AddVertex(geometry.NewVector3(0, 1, 0))
	m.AddVertex(geometry.NewVector3(0, -1, 0))
	m.AddVertex(geometry.NewVector3(0, 0, 1))
	require.NoError(t, m.AddTriangle(0, 1, 2))
	require.NoError(t, m.AddTriangle(1, 0, 3))
	require.NoError(t, m.AddTriangle(0, 1, 4))

	topo := analysis.CheckTopology(m)
	assert.Equal(t, 1, topo.NonManifoldEdges)
}

func TestFindEdges(t *testing.T) {
	report := analysis.Analyze(tetrahedron(t))

	longest := analysis.FindLongestEdges(report, 3)
	require.Len(t, longest, 3)
	for _, e := range longest {
		assert.InDelta(t, 1.4142135623730951, e.Length, 1e-12)
	}

	shortest := analysis.FindShortestEdges(report, 100)
	assert.Len(t, shortest, 12)
	assert.InDelta(t, 1.0, shortest[0].Length, 1e-12)

	assert.Len(t, analysis.FindEdgesByLength(report, 0.9, 1.1), 6)
}

func TestFormatVector(t *testing.T) {
	assert.Equal(t, "(1.000000, 2.500000, -3.000000)", analysis.FormatVector(geometry.NewVector3(1, 2.5, -3)))
	assert.Equal(t, "2.000000 mm", analysis.FormatMeasurement(2, "mm"))
	assert.Equal(t, "2.000000 units", analysis.FormatMeasurement(2, ""))
}
