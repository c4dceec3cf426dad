// Package analysis measures meshes and checks their topology.
package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/philipparndt/stp2stl/pkg/geometry"
	"github.com/philipparndt/stp2stl/pkg/mesh"
)

// EdgeInfo contains information about an edge in the mesh
type EdgeInfo struct {
	Start      geometry.Vector3
	End        geometry.Vector3
	Length     float64
	TriangleID int
}

// Report contains the measurements of a mesh
type Report struct {
	Name          string
	BoundingBox   geometry.BoundingBox
	Dimensions    geometry.Vector3
	SurfaceArea   float64
	Volume        float64
	TriangleCount int
	VertexCount   int
	EdgeCount     int
	MinEdgeLength float64
	MaxEdgeLength float64
	AvgEdgeLength float64
	AllEdges      []EdgeInfo
	Topology      Topology
}

// Analyze measures m
func Analyze(m *mesh.Mesh) *Report {
	result := &Report{
		Name:          m.Name,
		BoundingBox:   m.BoundingBox(),
		SurfaceArea:   m.Area(),
		Volume:        Volume(m),
		TriangleCount: m.TriangleCount(),
		VertexCount:   m.VertexCount(),
		AllEdges:      make([]EdgeInfo, 0, 3*m.TriangleCount()),
		Topology:      CheckTopology(m),
	}
	result.Dimensions = result.BoundingBox.Size()

	minLength := math.MaxFloat64
	maxLength := 0.0
	totalLength := 0.0

	for i := range m.Triangles {
		facet := m.Facet(i)
		edges := [3][2]geometry.Vector3{
			{facet.V1, facet.V2},
			{facet.V2, facet.V3},
			{facet.V3, facet.V1},
		}
		for _, edge := range edges {
			length := edge[0].Distance(edge[1])
			result.AllEdges = append(result.AllEdges, EdgeInfo{
				Start:      edge[0],
				End:        edge[1],
				Length:     length,
				TriangleID: i,
			})

			totalLength += length
			minLength = math.Min(minLength, length)
			maxLength = math.Max(maxLength, length)
		}
	}

	result.EdgeCount = len(result.AllEdges)
	if result.EdgeCount > 0 {
		result.MinEdgeLength = minLength
		result.MaxEdgeLength = maxLength
		result.AvgEdgeLength = totalLength / float64(result.EdgeCount)
	}
	return result
}

// Volume returns the signed volume enclosed by m. It is positive for a
// closed mesh with outward facing triangles and meaningless for open ones.
func Volume(m *mesh.Mesh) float64 {
	total := 0.0
	for i := range m.Triangles {
		f := m.Facet(i)
		total += f.V1.Dot(f.V2.Cross(f.V3))
	}
	return total / 6
}

// FindEdgesByLength finds all edges within a length range
func FindEdgesByLength(result *Report, minLength, maxLength float64) []EdgeInfo {
	var edges []EdgeInfo
	for _, edge := range result.AllEdges {
		if edge.Length >= minLength && edge.Length <= maxLength {
			edges = append(edges, edge)
		}
	}
	return edges
}

func sortedEdges(result *Report, less func(a, b EdgeInfo) bool, count int) []EdgeInfo {
	edges := make([]EdgeInfo, len(result.AllEdges))
	copy(edges, result.AllEdges)

	sort.SliceStable(edges, func(i, j int) bool {
		return less(edges[i], edges[j])
	})

	if count > len(edges) {
		count = len(edges)
	}
	return edges[:count]
}

// FindLongestEdges returns the N longest edges in the mesh
func FindLongestEdges(result *Report, count int) []EdgeInfo {
	return sortedEdges(result, func(a, b EdgeInfo) bool { return a.Length > b.Length }, count)
}

// FindShortestEdges returns the N shortest edges in the mesh
func FindShortestEdges(result *Report, count int) []EdgeInfo {
	return sortedEdges(result, func(a, b EdgeInfo) bool { return a.Length < b.Length }, count)
}

// FormatMeasurement formats a measurement with appropriate units
func FormatMeasurement(value float64, unit string) string {
	if unit == "" {
		unit = "units"
	}
	return fmt.Sprintf("%.6f %s", value, unit)
}

// FormatVector formats a 3D vector
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", v.X, v.Y, v.Z)
}
