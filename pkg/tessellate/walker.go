package tessellate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/philipparndt/stp2stl/pkg/kernel"
	"github.com/philipparndt/stp2stl/pkg/mesh"
)

// Walker tessellates every face of a shape on a bounded worker pool and
// joins the patches into one mesh in face order.
type Walker struct {
	tess    *Tessellator
	workers int
	logger  *slog.Logger
}

// ShapeResult is the tessellation of one shape
type ShapeResult struct {
	Mesh *mesh.Mesh

	// Warnings holds one GeometryError per failed face plus any loop
	// warnings raised while trimming
	Warnings []error

	Faces       int
	FailedFaces int
	Dropped     int
}

// NewWalker creates a walker. workers <= 0 selects the number of CPUs and a
// nil logger discards all output.
func NewWalker(tol Tolerance, workers int, logger *slog.Logger) (*Walker, error) {
	tess, err := New(tol)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Walker{tess: tess, workers: workers, logger: logger}, nil
}

// Tolerance returns the tolerance applied to every face
func (w *Walker) Tolerance() Tolerance {
	return w.tess.Tolerance()
}

type faceOutcome struct {
	patch *Patch
	err   error
}

// Tessellate triangulates all faces of shape. Faces that fail become
// warnings; the shape fails only when it has faces and every one of them
// failed. Cancelling ctx stops the walk and returns the context error.
func (w *Walker) Tessellate(ctx context.Context, shape kernel.Shape) (*ShapeResult, error) {
	faces, err := shape.Faces()
	if err != nil {
		return nil, &kernel.GeometryError{Shape: shape.ID(), Err: fmt.Errorf("failed to list faces: %w", err)}
	}

	outcomes := make([]faceOutcome, len(faces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)
	for i, face := range faces {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			patch, err := w.tess.Tessellate(gctx, face)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			outcomes[i] = faceOutcome{patch: patch, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &ShapeResult{
		Mesh:  mesh.New(shape.ID(), w.tess.Tolerance().DegenerateEpsilon()),
		Faces: len(faces),
	}
	var failures []error
	for i, out := range outcomes {
		if out.err != nil {
			ge := &kernel.GeometryError{Shape: shape.ID(), Face: faces[i].ID(), Err: out.err}
			w.logger.Warn("face skipped", "shape", shape.ID(), "face", faces[i].ID(), "error", out.err)
			res.Warnings = append(res.Warnings, ge)
			failures = append(failures, ge)
			res.FailedFaces++
			continue
		}
		for _, warn := range out.patch.Warnings {
			var ge *kernel.GeometryError
			if errors.As(warn, &ge) && ge.Shape == "" {
				ge.Shape = shape.ID()
			}
			w.logger.Warn("face trimmed approximately", "shape", shape.ID(), "face", faces[i].ID(), "error", warn)
			res.Warnings = append(res.Warnings, warn)
		}
		res.Dropped += out.patch.Dropped + w.appendPatch(res.Mesh, out.patch)
		w.logger.Debug("face tessellated", "shape", shape.ID(), "face", faces[i].ID(),
			"triangles", out.patch.Len(), "dropped", out.patch.Dropped)
	}

	if len(faces) > 0 && res.FailedFaces == len(faces) {
		return res, &kernel.GeometryError{Shape: shape.ID(), Err: errors.Join(failures...)}
	}
	return res, nil
}

// appendPatch copies patch into m and returns the number of triangles the
// mesh rejected as degenerate
func (w *Walker) appendPatch(m *mesh.Mesh, patch *Patch) int {
	offset := m.VertexCount()
	for _, p := range patch.Points {
		m.AddVertex(p)
	}
	rejected := 0
	for _, tri := range patch.Triangles {
		if err := m.AddTriangle(offset+tri[0], offset+tri[1], offset+tri[2]); err != nil {
			rejected++
		}
	}
	return rejected
}
