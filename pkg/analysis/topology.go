package analysis

import (
	"github.com/philipparndt/stp2stl/pkg/geometry"
	"github.com/philipparndt/stp2stl/pkg/mesh"
)

// Topology summarizes how the triangles of a mesh share their edges.
// Edges are matched by vertex position, so concatenated meshes whose
// patches meet exactly are treated like welded ones.
type Topology struct {
	// UniqueEdges is the number of distinct undirected edges
	UniqueEdges int

	// OpenEdges are used by exactly one triangle
	OpenEdges int

	// NonManifoldEdges are used by more than two triangles
	NonManifoldEdges int
}

// Watertight reports whether every edge is shared by exactly two triangles
func (t Topology) Watertight() bool {
	return t.UniqueEdges > 0 && t.OpenEdges == 0 && t.NonManifoldEdges == 0
}

type edgeKey struct {
	a, b geometry.Vector3
}

func less(p, q geometry.Vector3) bool {
	if p.X != q.X {
		return p.X < q.X
	}
	if p.Y != q.Y {
		return p.Y < q.Y
	}
	return p.Z < q.Z
}

func newEdgeKey(p, q geometry.Vector3) edgeKey {
	if less(q, p) {
		p, q = q, p
	}
	return edgeKey{a: p, b: q}
}

// CheckTopology counts open and non-manifold edges of m
func CheckTopology(m *mesh.Mesh) Topology {
	uses := make(map[edgeKey]int, 3*len(m.Triangles)/2)
	for _, tri := range m.Triangles {
		v := [3]geometry.Vector3{m.Vertices[tri.I], m.Vertices[tri.J], m.Vertices[tri.K]}
		for k := range v {
			uses[newEdgeKey(v[k], v[(k+1)%3])]++
		}
	}

	t := Topology{UniqueEdges: len(uses)}
	for _, n := range uses {
		switch {
		case n == 1:
			t.OpenEdges++
		case n > 2:
			t.NonManifoldEdges++
		}
	}
	return t
}
