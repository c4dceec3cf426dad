package tessellate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/philipparndt/stp2stl/pkg/geometry"
)

func quadArea(q [4]geometry.Vector3, split int) float64 {
	total := 0.0
	for _, tri := range quadSplits[split] {
		total += geometry.NewTriangle(geometry.Vector3{}, q[tri[0]], q[tri[1]], q[tri[2]]).Area()
	}
	return total
}

func TestQuadSplitsConserveArea(t *testing.T) {
	quads := [][4]geometry.Vector3{
		{
			geometry.NewVector3(0, 0, 0),
			geometry.NewVector3(1, 0, 0),
			geometry.NewVector3(1, 1, 0),
			geometry.NewVector3(0, 1, 0),
		},
		{
			geometry.NewVector3(0, 0, 0),
			geometry.NewVector3(4, 0, 0),
			geometry.NewVector3(3, 2, 0),
			geometry.NewVector3(1, 2, 0),
		},
		{
			geometry.NewVector3(0, 0, 1),
			geometry.NewVector3(2, 0.5, 1),
			geometry.NewVector3(2.5, 3, 1),
			geometry.NewVector3(-0.5, 2, 1),
		},
	}
	for _, q := range quads {
		assert.InDelta(t, quadArea(q, 0), quadArea(q, 1), 1e-12)
	}
}

func TestChooseSplitPrefersCompactTriangles(t *testing.T) {
	// a flat kite: the long diagonal q0-q2 leaves two obtuse slivers, the
	// short diagonal q1-q3 two compact triangles
	q := [4]geometry.Vector3{
		geometry.NewVector3(0, 0, 0),
		geometry.NewVector3(5, -0.5, 0),
		geometry.NewVector3(10, 0, 0),
		geometry.NewVector3(5, 0.5, 0),
	}
	assert.Equal(t, 1, chooseSplit(q))

	square := [4]geometry.Vector3{
		geometry.NewVector3(0, 0, 0),
		geometry.NewVector3(1, 0, 0),
		geometry.NewVector3(1, 1, 0),
		geometry.NewVector3(0, 1, 0),
	}
	assert.Equal(t, 0, chooseSplit(square), "ties keep the first diagonal")
}

func TestBisect(t *testing.T) {
	got := bisect([]float64{0, 1, 3}, []bool{true, false})
	assert.Equal(t, []float64{0, 0.5, 1, 3}, got)
}
