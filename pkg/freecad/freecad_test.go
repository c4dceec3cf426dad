package freecad

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/stp2stl/pkg/kernel"
)

const helperEnv = "STP2STL_FREECAD_HELPER"

const exported = `{"name": "part", "shapes": [{"name": "Part", "faces": [{
	"name": "Face1",
	"surface": {"type": "plane", "origin": [0, 0, 0], "x_dir": [1, 0, 0], "y_dir": [0, 1, 0]},
	"domain": [0, 1, 0, 1]
}]}]}`

// TestHelperProcess stands in for freecadcmd when run as a child process
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv(helperEnv)
	if mode == "" {
		return
	}
	switch mode {
	case "ok":
		if err := os.WriteFile(os.Getenv("STP2STL_OUTPUT"), []byte(exported), 0o644); err != nil {
			os.Exit(3)
		}
	case "garbage":
		_ = os.WriteFile(os.Getenv("STP2STL_OUTPUT"), []byte("Traceback"), 0o644)
	case "fail":
		fmt.Fprintln(os.Stderr, "Cannot open file")
		os.Exit(1)
	}
	os.Exit(0)
}

func fakeCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
}

func installation(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bin", executableNames()[0]), []byte("#!/bin/sh\n"), 0o755))
	return root
}

func stepFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "part.step")
	require.NoError(t, os.WriteFile(path, []byte("ISO-10303-21;"), 0o644))
	return path
}

func newBridge(t *testing.T, mode string) *Bridge {
	t.Helper()
	t.Setenv(helperEnv, mode)
	b := NewBridge(installation(t), 0.1, nil)
	b.command = fakeCommand
	return b
}

func TestLocateInstallationRoot(t *testing.T) {
	root := installation(t)
	exe, err := Locate(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "bin", executableNames()[0]), exe)
}

func TestLocateMissingInstallation(t *testing.T) {
	_, err := Locate(t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocateSearchesPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, executableNames()[0]), []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("PATH", dir)

	exe, err := Locate("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, executableNames()[0]), exe)

	t.Setenv("PATH", t.TempDir())
	_, err = Locate("")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenDecodesExport(t *testing.T) {
	b := newBridge(t, "ok")

	doc, err := b.Open(context.Background(), stepFile(t))
	require.NoError(t, err)
	assert.Equal(t, "part", doc.Name())

	shapes, err := doc.Shapes()
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	faces, err := shapes[0].Faces()
	require.NoError(t, err)
	assert.Len(t, faces, 1)
}

func TestOpenReportsFailure(t *testing.T) {
	b := newBridge(t, "fail")

	_, err := b.Open(context.Background(), stepFile(t))
	var ie *kernel.InputError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, err.Error(), "Cannot open file")
}

func TestOpenRejectsUnreadableExport(t *testing.T) {
	b := newBridge(t, "garbage")

	_, err := b.Open(context.Background(), stepFile(t))
	var ie *kernel.InputError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, err.Error(), "failed to read export")
}

func TestOpenMissingInput(t *testing.T) {
	b := newBridge(t, "ok")

	_, err := b.Open(context.Background(), filepath.Join(t.TempDir(), "missing.step"))
	var ie *kernel.InputError
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExportScriptEmbedded(t *testing.T) {
	assert.Contains(t, string(exportScript), "STP2STL_OUTPUT")
}
