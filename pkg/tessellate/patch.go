package tessellate

import (
	"iter"

	"github.com/philipparndt/stp2stl/pkg/geometry"
)

// Patch is the triangulation of one face in model coordinates. It is owned
// by the task that produced it until the walker appends it to a mesh.
type Patch struct {
	FaceID    string
	Points    []geometry.Vector3
	Triangles [][3]int

	// Dropped counts degenerate triangles discarded during tessellation
	Dropped int

	// Warnings collects recoverable problems, such as inconsistent loops
	Warnings []error
}

// Len returns the number of triangles in the patch
func (p *Patch) Len() int {
	return len(p.Triangles)
}

// Facets yields the triangles of the patch in order
func (p *Patch) Facets() iter.Seq[geometry.Triangle] {
	return func(yield func(geometry.Triangle) bool) {
		for _, tri := range p.Triangles {
			facet := geometry.NewTriangle(geometry.Vector3{}, p.Points[tri[0]], p.Points[tri[1]], p.Points[tri[2]])
			facet.Normal = facet.CalculateNormal()
			if !yield(facet) {
				return
			}
		}
	}
}

// Area returns the summed area of all triangles
func (p *Patch) Area() float64 {
	total := 0.0
	for facet := range p.Facets() {
		total += facet.Area()
	}
	return total
}

// compact drops points no triangle references, keeping their order
func (p *Patch) compact() {
	index := make([]int, len(p.Points))
	for i := range index {
		index[i] = -1
	}
	for _, tri := range p.Triangles {
		for _, v := range tri {
			index[v] = 0
		}
	}

	points := make([]geometry.Vector3, 0, len(p.Points))
	for i, pt := range p.Points {
		if index[i] < 0 {
			continue
		}
		index[i] = len(points)
		points = append(points, pt)
	}
	for t, tri := range p.Triangles {
		p.Triangles[t] = [3]int{index[tri[0]], index[tri[1]], index[tri[2]]}
	}
	p.Points = points
}
