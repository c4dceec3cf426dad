package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/philipparndt/stp2stl/pkg/kernel"
)

// Status summarizes the outcome of a run
type Status int

const (
	// StatusOK means every output was written without warnings
	StatusOK Status = iota
	// StatusFailed means at least one input failed fatally
	StatusFailed
	// StatusWarnings means outputs were written but some faces or shapes
	// were skipped
	StatusWarnings
)

// ExitCode is the process exit code for s
func (s Status) ExitCode() int {
	return int(s)
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarnings:
		return "warnings"
	}
	return "failed"
}

// Result describes the conversion of one input
type Result struct {
	Input   string
	Outputs []string

	// Warnings are GeometryErrors for skipped faces and shapes and
	// trimming warnings
	Warnings []error

	Shapes       int
	FailedShapes int
	Faces        int
	FailedFaces  int

	Triangles int
	Vertices  int

	// Dropped counts degenerate triangles removed during tessellation
	Dropped int
	// Welded counts vertices removed by the weld policy
	Welded int

	Elapsed time.Duration
}

// Status returns StatusWarnings when r carries warnings
func (r *Result) Status() Status {
	if len(r.Warnings) > 0 {
		return StatusWarnings
	}
	return StatusOK
}

// AffectedIDs lists the shape/face identifiers named by the warnings in
// order of first appearance
func (r *Result) AffectedIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	var add func(err error)
	add = func(err error) {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				add(e)
			}
			return
		}
		var ge *kernel.GeometryError
		if !errors.As(err, &ge) {
			return
		}
		id := ge.Shape
		if ge.Face != "" {
			if id != "" {
				id += "/"
			}
			id += ge.Face
		}
		if id == "" {
			add(ge.Err)
			return
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, w := range r.Warnings {
		add(w)
	}
	return ids
}

// Failure records an input that could not be converted
type Failure struct {
	Input string
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Input, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Batch is the outcome of converting several inputs
type Batch struct {
	Results  []*Result
	Failures []Failure

	// Skipped holds patterns that matched nothing and files that are not
	// STEP files
	Skipped []error
}

// Status is StatusFailed if any input failed, StatusWarnings if any result
// or skipped pattern carries warnings, StatusOK otherwise
func (b *Batch) Status() Status {
	if len(b.Failures) > 0 {
		return StatusFailed
	}
	if len(b.Skipped) > 0 {
		return StatusWarnings
	}
	for _, r := range b.Results {
		if r.Status() == StatusWarnings {
			return StatusWarnings
		}
	}
	return StatusOK
}

// Err joins the failures
func (b *Batch) Err() error {
	errs := make([]error, len(b.Failures))
	for i, f := range b.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Run converts every input. A fatal error of one input is recorded and the
// batch continues; cancelling ctx stops it and returns the context error.
func (c *Converter) Run(ctx context.Context, inputs []string) (*Batch, error) {
	batch := &Batch{}
	explicit := ""
	if c.opts.Output != "" && !isDir(c.opts.Output) {
		if len(inputs) > 1 {
			return batch, fmt.Errorf("output %s must be an existing directory for %d inputs", c.opts.Output, len(inputs))
		}
		explicit = c.opts.Output
	}
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		res, err := c.Convert(ctx, input, explicit)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return batch, ctxErr
			}
			c.logger.Error("conversion failed", "input", input, "error", err)
			batch.Failures = append(batch.Failures, Failure{Input: input, Err: err})
			continue
		}
		batch.Results = append(batch.Results, res)
	}
	return batch, nil
}
