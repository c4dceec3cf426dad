package preview

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/stp2stl/pkg/geometry"
	"github.com/philipparndt/stp2stl/pkg/mesh"
)

func cube(t *testing.T) *mesh.Mesh {
	t.Helper()
	m := mesh.New("cube", 0)
	for _, p := range [][3]float64{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	} {
		m.AddVertex(geometry.NewVector3(p[0], p[1], p[2]))
	}
	for _, q := range [][4]int{
		{0, 3, 2, 1}, {4, 5, 6, 7}, {0, 1, 5, 4},
		{1, 2, 6, 5}, {2, 3, 7, 6}, {3, 0, 4, 7},
	} {
		require.NoError(t, m.AddTriangle(q[0], q[1], q[2]))
		require.NoError(t, m.AddTriangle(q[0], q[2], q[3]))
	}
	return m
}

func TestRenderDrawsModelInCenter(t *testing.T) {
	opts := DefaultOptions()
	opts.Width, opts.Height = 64, 48

	img, err := Render(cube(t), opts)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())

	assert.NotEqual(t, opts.Background, img.RGBAAt(32, 24), "center should show the model")

	corner := img.RGBAAt(0, 0)
	assert.InDelta(t, opts.Background.R, corner.R, 2, "corner should show the background")
	assert.InDelta(t, opts.Background.G, corner.G, 2)
	assert.InDelta(t, opts.Background.B, corner.B, 2)
}

func TestRenderRejectsEmptyMesh(t *testing.T) {
	_, err := Render(mesh.New("empty", 0), DefaultOptions())
	assert.ErrorIs(t, err, ErrNothingToRender)

	opts := DefaultOptions()
	opts.Width = 0
	_, err = Render(cube(t), opts)
	assert.Error(t, err)
}

func TestEncodePNG(t *testing.T) {
	opts := DefaultOptions()
	opts.Width, opts.Height, opts.Supersample = 16, 16, 1
	opts.Wireframe = true

	img, err := Render(cube(t), opts)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestFillTriangleDepthTest(t *testing.T) {
	img, zbuffer := newCanvas(10, 10)
	near := color.RGBA{R: 255, A: 255}
	far := color.RGBA{B: 255, A: 255}

	fillTriangleWithDepth(img, zbuffer, screenPoint{0, 0, 1}, screenPoint{9, 0, 1}, screenPoint{0, 9, 1}, near)
	fillTriangleWithDepth(img, zbuffer, screenPoint{0, 0, 5}, screenPoint{9, 0, 5}, screenPoint{0, 9, 5}, far)

	assert.Equal(t, near, img.RGBAAt(1, 1))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(9, 9))
}
