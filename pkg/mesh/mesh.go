// Package mesh holds the indexed triangle mesh produced by tessellation.
package mesh

import (
	"errors"
	"fmt"

	"github.com/philipparndt/stp2stl/pkg/geometry"
)

// DefaultEpsilon is the degenerate-triangle tolerance used by New when no
// epsilon is given.
const DefaultEpsilon = 1e-12

var (
	// ErrDegenerateTriangle is returned for triangles whose points are
	// collinear or coincident within the mesh epsilon.
	ErrDegenerateTriangle = errors.New("degenerate triangle")

	// ErrIndexOutOfRange is returned when a triangle references a vertex that
	// does not exist, or references the same vertex twice.
	ErrIndexOutOfRange = errors.New("vertex index out of range")
)

// Triangle references three vertices of the owning mesh
type Triangle struct {
	I, J, K int
	Normal  geometry.Vector3
}

// Mesh is an ordered list of vertices and triangles indexing them
type Mesh struct {
	Name      string
	Vertices  []geometry.Vector3
	Triangles []Triangle

	// Epsilon is the smallest triangle height accepted by AddTriangle
	Epsilon float64
}

// New creates an empty mesh. A non-positive epsilon selects DefaultEpsilon.
func New(name string, epsilon float64) *Mesh {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Mesh{
		Name:      name,
		Vertices:  make([]geometry.Vector3, 0),
		Triangles: make([]Triangle, 0),
		Epsilon:   epsilon,
	}
}

// AddVertex appends a vertex and returns its index
func (m *Mesh) AddVertex(p geometry.Vector3) int {
	m.Vertices = append(m.Vertices, p)
	return len(m.Vertices) - 1
}

// AddTriangle appends the triangle (i, j, k). The normal follows the
// right-hand rule over the vertex order.
func (m *Mesh) AddTriangle(i, j, k int) error {
	n := len(m.Vertices)
	if i < 0 || j < 0 || k < 0 || i >= n || j >= n || k >= n {
		return fmt.Errorf("%w: (%d, %d, %d) with %d vertices", ErrIndexOutOfRange, i, j, k, n)
	}
	if i == j || j == k || i == k {
		return fmt.Errorf("%w: repeated index in (%d, %d, %d)", ErrIndexOutOfRange, i, j, k)
	}

	facet := geometry.NewTriangle(geometry.Vector3{}, m.Vertices[i], m.Vertices[j], m.Vertices[k])
	if facet.MinHeight() <= m.Epsilon {
		return ErrDegenerateTriangle
	}

	m.Triangles = append(m.Triangles, Triangle{I: i, J: j, K: k, Normal: facet.CalculateNormal()})
	return nil
}

// TriangleCount returns the number of triangles in the mesh
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// VertexCount returns the number of vertices in the mesh
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// IsEmpty reports whether the mesh has no triangles
func (m *Mesh) IsEmpty() bool {
	return len(m.Triangles) == 0
}

// Facet returns triangle t with its vertex positions resolved
func (m *Mesh) Facet(t int) geometry.Triangle {
	tri := m.Triangles[t]
	return geometry.NewTriangle(tri.Normal, m.Vertices[tri.I], m.Vertices[tri.J], m.Vertices[tri.K])
}

// Append copies all vertices and triangles of other into m and returns the
// offset added to other's vertex indices.
func (m *Mesh) Append(other *Mesh) int {
	offset := len(m.Vertices)
	m.Vertices = append(m.Vertices, other.Vertices...)
	for _, tri := range other.Triangles {
		m.Triangles = append(m.Triangles, Triangle{
			I:      tri.I + offset,
			J:      tri.J + offset,
			K:      tri.K + offset,
			Normal: tri.Normal,
		})
	}
	return offset
}

// Clone returns a deep copy of the mesh
func (m *Mesh) Clone() *Mesh {
	c := New(m.Name, m.Epsilon)
	c.Append(m)
	return c
}

// BoundingBox calculates the bounding box of all referenced vertices
func (m *Mesh) BoundingBox() geometry.BoundingBox {
	bbox := geometry.NewBoundingBox()
	for _, tri := range m.Triangles {
		bbox.Extend(m.Vertices[tri.I])
		bbox.Extend(m.Vertices[tri.J])
		bbox.Extend(m.Vertices[tri.K])
	}
	return bbox
}

// Area calculates the total surface area of the mesh
func (m *Mesh) Area() float64 {
	total := 0.0
	for t := range m.Triangles {
		total += m.Facet(t).Area()
	}
	return total
}
