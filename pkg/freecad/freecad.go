// Package freecad opens STEP files through a FreeCAD installation. It runs
// freecadcmd with an embedded export script that writes the B-Rep
// interchange format and decodes the result with package brep.
package freecad

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/philipparndt/stp2stl/pkg/brep"
	"github.com/philipparndt/stp2stl/pkg/kernel"
)

//go:embed export.py
var exportScript []byte

// EnvRoot names the environment variable holding the FreeCAD installation root
const EnvRoot = "FREECAD_PATH"

// ErrNotFound is returned when no FreeCAD command line executable is found
var ErrNotFound = errors.New("freecadcmd not found; install FreeCAD or set " + EnvRoot)

func executableNames() []string {
	names := []string{"freecadcmd", "FreeCADCmd"}
	if runtime.GOOS == "windows" {
		for i, n := range names {
			names[i] = n + ".exe"
		}
	}
	return names
}

// Locate finds the FreeCAD command line executable. A non-empty root is an
// installation directory searched in bin/ and at its top level; otherwise
// PATH is searched.
func Locate(root string) (string, error) {
	names := executableNames()
	if root != "" {
		for _, dir := range []string{filepath.Join(root, "bin"), root} {
			for _, name := range names {
				candidate := filepath.Join(dir, name)
				if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
					return candidate, nil
				}
			}
		}
		return "", fmt.Errorf("%w in %s", ErrNotFound, root)
	}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}

// Bridge is a kernel.Opener backed by freecadcmd
type Bridge struct {
	root       string
	deflection float64
	logger     *slog.Logger

	// command builds the process; replaced in tests
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewBridge creates a bridge for the installation at root (empty searches
// PATH). deflection is the chord tolerance used to sample face boundaries.
func NewBridge(root string, deflection float64, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bridge{
		root:       root,
		deflection: deflection,
		logger:     logger,
		command:    exec.CommandContext,
	}
}

// Open implements kernel.Opener
func (b *Bridge) Open(ctx context.Context, path string) (kernel.Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &kernel.InputError{Path: path, Err: err}
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &kernel.InputError{Path: path, Err: err}
	}
	exe, err := Locate(b.root)
	if err != nil {
		return nil, &kernel.InputError{Path: path, Err: err}
	}

	workDir, err := os.MkdirTemp("", "stp2stl-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	script := filepath.Join(workDir, "export.py")
	if err := os.WriteFile(script, exportScript, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write export script: %w", err)
	}
	output := filepath.Join(workDir, "document.json")

	cmd := b.command(ctx, exe, script)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		"STP2STL_INPUT="+absPath,
		"STP2STL_OUTPUT="+output,
		"STP2STL_DEFLECTION="+strconv.FormatFloat(b.deflection, 'g', -1, 64),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	b.logger.Debug("running freecad", "exe", exe, "input", absPath)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &kernel.InputError{Path: path, Err: commandError(err, &stdout, &stderr)}
	}

	doc, err := brep.Open(output)
	if err != nil {
		var ie *kernel.InputError
		if errors.As(err, &ie) {
			err = ie.Err
		}
		return nil, &kernel.InputError{Path: path, Err: fmt.Errorf("failed to read export: %w", err)}
	}
	return doc, nil
}

func commandError(err error, stdout, stderr *bytes.Buffer) error {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("freecadcmd failed: %v", err))
	if stderr.Len() > 0 {
		msg.WriteString("\nstderr: ")
		msg.WriteString(strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() > 0 {
		msg.WriteString("\nstdout: ")
		msg.WriteString(strings.TrimSpace(stdout.String()))
	}
	return errors.New(msg.String())
}
