// Package stl reads and writes STL files in ASCII and binary encoding.
package stl

import (
	"errors"
	"fmt"
	"strings"
)

// Format is the encoding of an STL file
type Format int

const (
	// Binary is the compact little-endian encoding
	Binary Format = iota
	// ASCII is the human-readable text encoding
	ASCII
)

func (f Format) String() string {
	switch f {
	case Binary:
		return "binary"
	case ASCII:
		return "ascii"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat parses "ascii" or "binary", ignoring case
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binary", "bin":
		return Binary, nil
	case "ascii", "text":
		return ASCII, nil
	}
	return 0, fmt.Errorf("unknown STL format %q (expected ascii or binary)", s)
}

// MarshalText implements encoding.TextMarshaler
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

const headerSize = 80

// ErrEmptyMesh is returned when a mesh without triangles is written and
// empty output was not allowed
var ErrEmptyMesh = errors.New("mesh has no triangles")

// ErrInvalidHeader is returned for binary headers that are too long or
// start with "solid", which readers would take for ASCII
var ErrInvalidHeader = errors.New("invalid binary STL header")

// Options controls how a mesh is encoded
type Options struct {
	Format Format

	// Name replaces the mesh name in the ASCII solid line
	Name string

	// Header is copied into the 80-byte binary header; empty means zeros
	Header string

	// AllowEmpty writes a valid zero-triangle file instead of failing
	AllowEmpty bool
}

func (o Options) validate() error {
	if o.Format != Binary && o.Format != ASCII {
		return fmt.Errorf("unknown STL format %d", int(o.Format))
	}
	if len(o.Header) > headerSize {
		return fmt.Errorf("%w: %d bytes exceed %d", ErrInvalidHeader, len(o.Header), headerSize)
	}
	if strings.HasPrefix(strings.ToLower(o.Header), "solid") {
		return fmt.Errorf("%w: must not start with \"solid\"", ErrInvalidHeader)
	}
	return nil
}

// IOError reports a failure to write an output file
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
