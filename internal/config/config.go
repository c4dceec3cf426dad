// Package config loads converter settings. Values are layered: built-in
// defaults, then a TOML file, then STP2STL_* environment variables, then
// the command line flags the user set explicitly.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/philipparndt/stp2stl/internal/pipeline"
	"github.com/philipparndt/stp2stl/pkg/freecad"
	"github.com/philipparndt/stp2stl/pkg/merge"
	"github.com/philipparndt/stp2stl/pkg/stl"
	"github.com/philipparndt/stp2stl/pkg/tessellate"
)

// DefaultFile is read from the working directory when no file is named
const DefaultFile = "stp2stl.toml"

// Config holds every setting of a conversion run
type Config struct {
	// LinearDeflection is in model units
	LinearDeflection float64 `toml:"linear_deflection"`
	// AngularDeflection is in degrees
	AngularDeflection float64 `toml:"angular_deflection"`
	MaxDepth          int     `toml:"max_depth"`
	Workers           int     `toml:"workers"`

	Format     stl.Format   `toml:"format"`
	Header     string       `toml:"header"`
	AllowEmpty bool         `toml:"allow_empty"`
	Merge      merge.Policy `toml:"merge"`
	// WeldEpsilon is the distance below which the weld policy merges
	// vertices
	WeldEpsilon float64 `toml:"weld_epsilon"`

	Scale Scale `toml:"scale"`

	SplitShapes bool   `toml:"split_shapes"`
	GLTF        string `toml:"gltf"`
	Preview     bool   `toml:"preview"`
	Output      string `toml:"output"`

	// FreeCADPath is the FreeCAD installation root; empty searches PATH
	FreeCADPath string `toml:"freecad_path"`
}

// Scale resolves like the command line: MMToM sets 0.001 on every axis,
// Uniform overrides that and X, Y and Z override single axes. Zero means
// unset.
type Scale struct {
	MMToM   bool    `toml:"mm_to_m"`
	Uniform float64 `toml:"uniform"`
	X       float64 `toml:"x"`
	Y       float64 `toml:"y"`
	Z       float64 `toml:"z"`
}

// Resolve returns the per-axis factors
func (s Scale) Resolve() pipeline.Scale {
	out := pipeline.Identity
	if s.MMToM {
		out = pipeline.MillimetersToMeters
	}
	if s.Uniform != 0 {
		out = pipeline.Scale{X: s.Uniform, Y: s.Uniform, Z: s.Uniform}
	}
	if s.X != 0 {
		out.X = s.X
	}
	if s.Y != 0 {
		out.Y = s.Y
	}
	if s.Z != 0 {
		out.Z = s.Z
	}
	return out
}

// Default returns the built-in settings
func Default() *Config {
	tol := tessellate.DefaultTolerance()
	return &Config{
		LinearDeflection:  tol.LinearDeflection,
		AngularDeflection: tol.AngularDeflection * 180 / math.Pi,
		MaxDepth:          tol.MaxDepth,
		Format:            stl.Binary,
		Merge:             merge.Concatenate,
		WeldEpsilon:       1e-6,
	}
}

// LoadFile decodes the TOML file at path over cfg. Unknown keys are
// rejected so that typos do not go unnoticed.
func LoadFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// Load returns the defaults overlaid with the file at path and the
// environment. An empty path reads DefaultFile if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies environment overrides:
//   - STP2STL_LINEAR_DEFLECTION: linear_deflection
//   - STP2STL_ANGULAR_DEFLECTION: angular_deflection in degrees
//   - STP2STL_FORMAT: format, ascii or binary
//   - STP2STL_MERGE: merge, concatenate or weld
//   - STP2STL_WORKERS: workers
//   - FREECAD_PATH: freecad_path
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	float("STP2STL_LINEAR_DEFLECTION", &c.LinearDeflection)
	float("STP2STL_ANGULAR_DEFLECTION", &c.AngularDeflection)

	if v, ok := lookup("STP2STL_FORMAT"); ok && v != "" {
		if err := c.Format.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("STP2STL_FORMAT: %w", err))
		}
	}
	if v, ok := lookup("STP2STL_MERGE"); ok && v != "" {
		if err := c.Merge.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("STP2STL_MERGE: %w", err))
		}
	}
	if v, ok := lookup("STP2STL_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("STP2STL_WORKERS: %w", err))
		} else {
			c.Workers = n
		}
	}
	if v, ok := lookup(freecad.EnvRoot); ok && v != "" {
		c.FreeCADPath = v
	}
	return errors.Join(errs...)
}

// ValidationError names the setting that failed validation
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the settings that the pipeline cannot check itself
func (c *Config) Validate() error {
	var errs []error
	positive := func(field string, v float64) {
		if !(v > 0) || math.IsInf(v, 0) {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("must be a positive finite number, got %v", v)})
		}
	}
	positive("linear_deflection", c.LinearDeflection)
	positive("angular_deflection", c.AngularDeflection)
	if c.AngularDeflection >= 180 {
		errs = append(errs, ValidationError{Field: "angular_deflection", Message: fmt.Sprintf("must be below 180 degrees, got %v", c.AngularDeflection)})
	}
	if c.MaxDepth < 0 {
		errs = append(errs, ValidationError{Field: "max_depth", Message: fmt.Sprintf("must not be negative, got %d", c.MaxDepth)})
	}
	if c.Workers < 0 {
		errs = append(errs, ValidationError{Field: "workers", Message: fmt.Sprintf("must not be negative, got %d", c.Workers)})
	}
	if c.WeldEpsilon < 0 {
		errs = append(errs, ValidationError{Field: "weld_epsilon", Message: fmt.Sprintf("must not be negative, got %v", c.WeldEpsilon)})
	}
	for _, s := range []struct {
		field string
		value float64
	}{{"scale.uniform", c.Scale.Uniform}, {"scale.x", c.Scale.X}, {"scale.y", c.Scale.Y}, {"scale.z", c.Scale.Z}} {
		if math.IsNaN(s.value) || math.IsInf(s.value, 0) {
			errs = append(errs, ValidationError{Field: s.field, Message: fmt.Sprintf("must be finite, got %v", s.value)})
		}
	}
	switch pipeline.GLTFMode(c.GLTF) {
	case pipeline.GLTFNone, pipeline.GLTFJSON, pipeline.GLTFBinary:
	default:
		errs = append(errs, ValidationError{Field: "gltf", Message: fmt.Sprintf("must be gltf or glb, got %q", c.GLTF)})
	}
	return errors.Join(errs...)
}

// Options converts the settings into pipeline options
func (c *Config) Options() (pipeline.Options, error) {
	if err := c.Validate(); err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Tolerance: tessellate.Tolerance{
			LinearDeflection:  c.LinearDeflection,
			AngularDeflection: c.AngularDeflection * math.Pi / 180,
			MaxDepth:          c.MaxDepth,
		},
		Workers:     c.Workers,
		Merge:       c.Merge,
		WeldEpsilon: c.WeldEpsilon,
		STL: stl.Options{
			Format:     c.Format,
			Header:     c.Header,
			AllowEmpty: c.AllowEmpty,
		},
		Scale:       c.Scale.Resolve(),
		SplitShapes: c.SplitShapes,
		GLTF:        pipeline.GLTFMode(c.GLTF),
		Preview:     c.Preview,
		Output:      c.Output,
	}, nil
}
