// Package pipeline drives one conversion: open the document, tessellate
// every shape, merge, scale and write the outputs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/philipparndt/stp2stl/pkg/gltfexport"
	"github.com/philipparndt/stp2stl/pkg/kernel"
	"github.com/philipparndt/stp2stl/pkg/merge"
	"github.com/philipparndt/stp2stl/pkg/mesh"
	"github.com/philipparndt/stp2stl/pkg/preview"
	"github.com/philipparndt/stp2stl/pkg/stl"
	"github.com/philipparndt/stp2stl/pkg/tessellate"
)

// ErrAllShapesFailed marks a document in which no shape could be tessellated
var ErrAllShapesFailed = errors.New("every shape failed")

// Converter runs conversions with fixed options
type Converter struct {
	opener kernel.Opener
	walker *tessellate.Walker
	opts   Options
	logger *slog.Logger
}

// New creates a converter reading documents through opener
func New(opener kernel.Opener, opts Options, logger *slog.Logger) (*Converter, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	walker, err := tessellate.NewWalker(opts.Tolerance, opts.Workers, logger)
	if err != nil {
		return nil, err
	}
	return &Converter{opener: opener, walker: walker, opts: opts, logger: logger}, nil
}

// Options returns the options of the converter
func (c *Converter) Options() Options {
	return c.opts
}

// Convert converts input. An empty output writes next to the input. The
// returned error is fatal; recoverable problems are Result.Warnings.
func (c *Converter) Convert(ctx context.Context, input, output string) (*Result, error) {
	start := time.Now()
	res := &Result{Input: input}
	if output == "" {
		output = OutputPath(input, c.opts.Output, ".stl")
	}
	c.logger.Info("converting", "input", input, "output", output)

	doc, err := c.opener.Open(ctx, input)
	if err != nil {
		return res, asInputError(input, err)
	}
	defer doc.Close()

	shapes, err := doc.Shapes()
	if err != nil {
		return res, &kernel.InputError{Path: input, Err: fmt.Errorf("failed to list shapes: %w", err)}
	}

	meshes, err := c.tessellate(ctx, shapes, res)
	if err != nil {
		return res, err
	}

	merged, removed := merge.Merge(meshes, c.opts.Merge, c.opts.WeldEpsilon)
	merged.Name = documentName(doc, input)
	res.Welded = removed
	if !c.opts.Scale.IsIdentity() {
		scale := mesh.ScaleMatrix(c.opts.Scale.X, c.opts.Scale.Y, c.opts.Scale.Z)
		merged.Transform(scale)
		for _, m := range meshes {
			m.Transform(scale)
		}
		c.logger.Debug("scaled", "x", c.opts.Scale.X, "y", c.opts.Scale.Y, "z", c.opts.Scale.Z)
	}
	res.Triangles = merged.TriangleCount()
	res.Vertices = merged.VertexCount()

	if merged.IsEmpty() && !c.opts.STL.AllowEmpty {
		return res, stl.ErrEmptyMesh
	}
	if err := c.writeSTL(output, merged, meshes, res); err != nil {
		return res, err
	}
	if err := c.writeExtras(output, merged, meshes, res); err != nil {
		return res, err
	}

	res.Elapsed = time.Since(start)
	c.logger.Info("converted", "input", input, "triangles", res.Triangles,
		"warnings", len(res.Warnings), "elapsed", res.Elapsed)
	return res, nil
}

// tessellate walks every shape and returns the meshes of those that
// succeeded, in document order
func (c *Converter) tessellate(ctx context.Context, shapes []kernel.Shape, res *Result) ([]*mesh.Mesh, error) {
	var (
		meshes   []*mesh.Mesh
		failures []error
	)
	res.Shapes = len(shapes)
	for _, shape := range shapes {
		sr, err := c.walker.Tessellate(ctx, shape)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Warn("shape skipped", "shape", shape.ID(), "error", err)
			res.FailedShapes++
			res.Warnings = append(res.Warnings, err)
			failures = append(failures, err)
			if sr != nil {
				res.Faces += sr.Faces
				res.FailedFaces += sr.FailedFaces
			}
			continue
		}
		res.Faces += sr.Faces
		res.FailedFaces += sr.FailedFaces
		res.Dropped += sr.Dropped
		res.Warnings = append(res.Warnings, sr.Warnings...)
		meshes = append(meshes, sr.Mesh)
		if sr.Dropped > 0 {
			c.logger.Debug("degenerate triangles dropped", "shape", shape.ID(), "count", sr.Dropped)
		}
	}
	if len(shapes) > 0 && len(failures) == len(shapes) {
		return nil, &kernel.GeometryError{Err: fmt.Errorf("%w: %w", ErrAllShapesFailed, errors.Join(failures...))}
	}
	return meshes, nil
}

func (c *Converter) writeSTL(output string, merged *mesh.Mesh, meshes []*mesh.Mesh, res *Result) error {
	if !c.opts.SplitShapes {
		if err := stl.WriteFile(output, merged, c.opts.STL); err != nil {
			return err
		}
		res.Outputs = append(res.Outputs, output)
		return nil
	}

	base := strings.TrimSuffix(output, filepath.Ext(output))
	used := make(map[string]int)
	for _, m := range meshes {
		if m.IsEmpty() && !c.opts.STL.AllowEmpty {
			res.Warnings = append(res.Warnings, &kernel.GeometryError{Shape: m.Name, Err: stl.ErrEmptyMesh})
			continue
		}
		path := base + "-" + uniqueName(used, m.Name) + filepath.Ext(output)
		if err := stl.WriteFile(path, m, c.opts.STL); err != nil {
			return err
		}
		res.Outputs = append(res.Outputs, path)
	}
	return nil
}

func (c *Converter) writeExtras(output string, merged *mesh.Mesh, meshes []*mesh.Mesh, res *Result) error {
	base := strings.TrimSuffix(output, filepath.Ext(output))

	if c.opts.GLTF != GLTFNone && !merged.IsEmpty() {
		opts := gltfexport.DefaultOptions()
		opts.Binary = c.opts.GLTF == GLTFBinary
		path := base + "." + string(c.opts.GLTF)
		err := stl.AtomicWrite(path, func(w io.Writer) error {
			return gltfexport.Encode(w, meshes, opts)
		})
		if err != nil {
			return err
		}
		res.Outputs = append(res.Outputs, path)
	}

	if c.opts.Preview && !merged.IsEmpty() {
		img, err := preview.Render(merged, preview.DefaultOptions())
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Errorf("failed to render preview: %w", err))
			return nil
		}
		path := base + ".png"
		if err := stl.AtomicWrite(path, func(w io.Writer) error { return preview.Encode(w, img) }); err != nil {
			return err
		}
		res.Outputs = append(res.Outputs, path)
	}
	return nil
}

func asInputError(input string, err error) error {
	var ie *kernel.InputError
	if errors.As(err, &ie) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &kernel.InputError{Path: input, Err: err}
}

func documentName(doc kernel.Document, input string) string {
	if name := doc.Name(); name != "" {
		return name
	}
	return strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
}

// uniqueName turns a shape name into a file name fragment and numbers
// repeated names
func uniqueName(used map[string]int, name string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
	if clean == "" {
		clean = "shape"
	}
	used[clean]++
	if n := used[clean]; n > 1 {
		return fmt.Sprintf("%s_%d", clean, n)
	}
	return clean
}

// OutputPath returns the path of the ext output for input. A dir that is an
// existing directory receives the file; otherwise it sits next to input.
func OutputPath(input, dir, ext string) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ext
	if dir != "" && isDir(dir) {
		return filepath.Join(dir, name)
	}
	return filepath.Join(filepath.Dir(input), name)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
