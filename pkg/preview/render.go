// Package preview renders a shaded thumbnail of a mesh.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"

	"github.com/philipparndt/stp2stl/pkg/mesh"
)

// Options controls the preview image
type Options struct {
	Width, Height int

	// Supersample renders at this multiple of the size and scales down
	Supersample int

	Background color.RGBA
	Color      color.RGBA

	// Wireframe draws triangle edges on top of the shading
	Wireframe bool

	// Elevation and Azimuth orient the camera, in radians
	Elevation float64
	Azimuth   float64
}

// DefaultOptions returns a 512x512 isometric-ish view
func DefaultOptions() Options {
	return Options{
		Width:       512,
		Height:      512,
		Supersample: 2,
		Background:  color.RGBA{R: 255, G: 255, B: 255, A: 255},
		Color:       color.RGBA{R: 70, G: 130, B: 180, A: 255},
		Elevation:   math.Pi / 6,
		Azimuth:     math.Pi / 4,
	}
}

// ErrNothingToRender is returned for meshes without triangles
var ErrNothingToRender = errors.New("mesh has no triangles to render")

// Render draws m with flat shading lit from the camera
func Render(m *mesh.Mesh, opts Options) (*image.RGBA, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid preview size %dx%d", opts.Width, opts.Height)
	}
	if m.IsEmpty() {
		return nil, ErrNothingToRender
	}
	ss := max(opts.Supersample, 1)
	width, height := opts.Width*ss, opts.Height*ss

	camera := NewCamera(m.BoundingBox())
	camera.Rotate(opts.Elevation, opts.Azimuth)
	light := camera.Forward().Mul(-1)

	img, zbuffer := newCanvas(width, height)
	draw.Draw(img, img.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)

	project := func(i int) screenPoint {
		x, y, z := camera.Project(m.Vertices[i], float64(width), float64(height))
		return screenPoint{x: x, y: y, z: z}
	}

	for t, tri := range m.Triangles {
		normal := m.Facet(t).CalculateNormal()
		// two-sided lighting keeps inverted patches visible
		brightness := 0.25 + 0.75*math.Abs(normal.Dot(light))
		fillTriangleWithDepth(img, zbuffer, project(tri.I), project(tri.J), project(tri.K), shade(opts.Color, brightness))
	}

	if opts.Wireframe {
		edge := shade(opts.Color, 0.3)
		for _, tri := range m.Triangles {
			p := [3]screenPoint{project(tri.I), project(tri.J), project(tri.K)}
			for k := range p {
				q := p[(k+1)%3]
				drawLine(img, int(p[k].x), int(p[k].y), int(q.x), int(q.y), edge)
			}
		}
	}

	if ss == 1 {
		return img, nil
	}
	out := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)
	return out, nil
}

func shade(c color.RGBA, f float64) color.RGBA {
	scale := func(v uint8) uint8 {
		return uint8(math.Min(255, math.Round(float64(v)*f)))
	}
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
}

// Encode writes img as PNG
func Encode(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}
