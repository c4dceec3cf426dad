package mesh

import (
	"math"

	"github.com/philipparndt/stp2stl/pkg/geometry"
)

type cellKey struct {
	x, y, z int64
}

// maxCells bounds |coordinate / cell| so that every key is an exact
// integer well inside the int64 range
const maxCells = 1 << 52

// cellSize returns the hash cell edge for welding within epsilon. Cells are
// never smaller than epsilon, and grow for coordinates too large to be
// divided into epsilon-sized cells.
func cellSize(vertices []geometry.Vector3, epsilon float64) float64 {
	extent := 0.0
	for _, p := range vertices {
		extent = max(extent, math.Abs(p.X), math.Abs(p.Y), math.Abs(p.Z))
	}
	return max(epsilon, extent/maxCells)
}

func quantize(p geometry.Vector3, cell float64) cellKey {
	return cellKey{
		x: int64(math.Floor(p.X / cell)),
		y: int64(math.Floor(p.Y / cell)),
		z: int64(math.Floor(p.Z / cell)),
	}
}

// Weld merges vertices closer than epsilon into one and returns how many
// vertices were removed.
//
// Vertices are hashed into cubic cells of edge at least epsilon, so any partner lies
// in the 27 surrounding cells. Each vertex joins the earliest kept vertex
// within range; the kept vertices retain their first-seen order. Triangles
// that collapse are dropped and vertices no triangle references any more
// are removed. A non-positive epsilon leaves the mesh untouched.
func (m *Mesh) Weld(epsilon float64) int {
	if epsilon <= 0 || len(m.Vertices) == 0 {
		return 0
	}

	before := len(m.Vertices)
	cell := cellSize(m.Vertices, epsilon)
	grid := make(map[cellKey][]int)
	remap := make([]int, len(m.Vertices))
	kept := make([]geometry.Vector3, 0, len(m.Vertices))

	for i, p := range m.Vertices {
		key := quantize(p, cell)
		rep := -1
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for dz := int64(-1); dz <= 1; dz++ {
					for _, r := range grid[cellKey{key.x + dx, key.y + dy, key.z + dz}] {
						if (rep < 0 || r < rep) && kept[r].Distance(p) < epsilon {
							rep = r
						}
					}
				}
			}
		}

		if rep >= 0 {
			remap[i] = rep
			continue
		}
		kept = append(kept, p)
		remap[i] = len(kept) - 1
		grid[key] = append(grid[key], remap[i])
	}

	tris := m.Triangles[:0]
	for _, tri := range m.Triangles {
		t := Triangle{I: remap[tri.I], J: remap[tri.J], K: remap[tri.K]}
		if t.I == t.J || t.J == t.K || t.I == t.K {
			continue
		}
		facet := geometry.NewTriangle(geometry.Vector3{}, kept[t.I], kept[t.J], kept[t.K])
		if facet.MinHeight() <= m.Epsilon {
			continue
		}
		t.Normal = facet.CalculateNormal()
		tris = append(tris, t)
	}

	m.Vertices = kept
	m.Triangles = tris
	m.compact()

	return before - len(m.Vertices)
}

// compact drops vertices that no triangle references
func (m *Mesh) compact() {
	used := make([]int, len(m.Vertices))
	for i := range used {
		used[i] = -1
	}
	for _, tri := range m.Triangles {
		used[tri.I] = 0
		used[tri.J] = 0
		used[tri.K] = 0
	}

	verts := make([]geometry.Vector3, 0, len(m.Vertices))
	for i, p := range m.Vertices {
		if used[i] < 0 {
			continue
		}
		used[i] = len(verts)
		verts = append(verts, p)
	}

	for t := range m.Triangles {
		m.Triangles[t].I = used[m.Triangles[t].I]
		m.Triangles[t].J = used[m.Triangles[t].J]
		m.Triangles[t].K = used[m.Triangles[t].K]
	}
	m.Vertices = verts
}
