package mesh

import (
	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/flywave/go3d/float64/vec4"

	"github.com/philipparndt/stp2stl/pkg/geometry"
)

// ScaleMatrix returns a transform scaling each axis independently
func ScaleMatrix(sx, sy, sz float64) *dmat.T {
	return &dmat.T{
		vec4.T{sx, 0, 0, 0},
		vec4.T{0, sy, 0, 0},
		vec4.T{0, 0, sz, 0},
		vec4.T{0, 0, 0, 1},
	}
}

// Transform applies mat to every vertex. Normals are recomputed, mirroring
// transforms reverse the winding so normals keep pointing outwards, and
// triangles flattened by the transform are dropped.
func (m *Mesh) Transform(mat *dmat.T) {
	for i, p := range m.Vertices {
		v := dvec3.T{p.X, p.Y, p.Z}
		r := mat.MulVec3(&v)
		m.Vertices[i] = geometry.NewVector3(r[0], r[1], r[2])
	}

	mirror := determinant3(mat) < 0
	tris := m.Triangles[:0]
	for _, tri := range m.Triangles {
		if mirror {
			tri.J, tri.K = tri.K, tri.J
		}
		facet := geometry.NewTriangle(geometry.Vector3{}, m.Vertices[tri.I], m.Vertices[tri.J], m.Vertices[tri.K])
		if facet.MinHeight() <= m.Epsilon {
			continue
		}
		tri.Normal = facet.CalculateNormal()
		tris = append(tris, tri)
	}
	m.Triangles = tris
}

// determinant3 returns the determinant of the linear 3x3 part
func determinant3(mat *dmat.T) float64 {
	a, b, c := mat[0], mat[1], mat[2]
	return a[0]*(b[1]*c[2]-b[2]*c[1]) -
		b[0]*(a[1]*c[2]-a[2]*c[1]) +
		c[0]*(a[1]*b[2]-a[2]*b[1])
}
