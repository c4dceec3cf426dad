package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/stp2stl/internal/config"
	"github.com/philipparndt/stp2stl/pkg/merge"
	"github.com/philipparndt/stp2stl/pkg/stl"
)

const plateJSON = `{"name": "plate", "shapes": [{"name": "Solid1", "faces": [
	{"name": "Face1", "surface": {"type": "plane", "x_dir": [1, 0, 0], "y_dir": [0, 1, 0]}, "domain": [0, 2, 0, 1]},
	{"name": "Face2", "error": "unsupported surface"}
]}]}`

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(&exitError{code: 2}))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestApplyFlagsOnlyChanged(t *testing.T) {
	flags := pflag.NewFlagSet("convert", pflag.ContinueOnError)
	flags.StringVar(&convertOpts.format, "format", "binary", "")
	flags.StringVar(&convertOpts.merge, "merge", "concatenate", "")
	flags.Float64Var(&convertOpts.scaleZ, "scale-z", 0, "")
	flags.Float64Var(&convertOpts.linear, "linear-deflection", 0.1, "")
	require.NoError(t, flags.Parse([]string{"--format", "ascii", "--merge", "weld", "--scale-z", "2"}))

	cfg := config.Default()
	cfg.LinearDeflection = 0.5
	require.NoError(t, applyFlags(cfg, flags))

	assert.Equal(t, stl.ASCII, cfg.Format)
	assert.Equal(t, merge.Weld, cfg.Merge)
	assert.Equal(t, 2.0, cfg.Scale.Z)
	assert.Equal(t, 0.5, cfg.LinearDeflection, "unset flags keep lower layers")
}

func TestConvertInterchange(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "plate.json")
	require.NoError(t, os.WriteFile(input, []byte(plateJSON), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"convert", "--interchange", "--format", "ascii", input})
	err := rootCmd.Execute()

	var ee *exitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 2, ee.code, "the broken face is a warning")
	assert.Contains(t, out.String(), "Solid1/Face2")

	m, err := stl.Parse(filepath.Join(dir, "plate.stl"))
	require.NoError(t, err)
	assert.Equal(t, 2, m.TriangleCount())
}
