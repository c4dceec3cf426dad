package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/philipparndt/stp2stl/pkg/geometry"
	"github.com/philipparndt/stp2stl/pkg/mesh"
)

// record is one binary facet: normal, three vertices and the attribute count
type record struct {
	Normal     [3]float32
	V1, V2, V3 [3]float32
	Attributes uint16
}

// Encode writes m to w. The mesh is not modified.
func Encode(w io.Writer, m *mesh.Mesh, opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	if m.IsEmpty() && !opts.AllowEmpty {
		return ErrEmptyMesh
	}

	bw := bufio.NewWriter(w)
	var err error
	if opts.Format == ASCII {
		err = encodeASCII(bw, m, opts)
	} else {
		err = encodeBinary(bw, m, opts)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

func facetNormal(m *mesh.Mesh, t int) geometry.Vector3 {
	facet := m.Facet(t)
	if facet.Normal.Length() == 0 {
		return facet.CalculateNormal()
	}
	return facet.Normal
}

func encodeBinary(w io.Writer, m *mesh.Mesh, opts Options) error {
	var header [headerSize]byte
	copy(header[:], opts.Header)
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(m.TriangleCount())); err != nil {
		return fmt.Errorf("failed to write triangle count: %w", err)
	}

	for t, tri := range m.Triangles {
		rec := record{
			Normal: facetNormal(m, t).Float32(),
			V1:     m.Vertices[tri.I].Float32(),
			V2:     m.Vertices[tri.J].Float32(),
			V3:     m.Vertices[tri.K].Float32(),
		}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("failed to write triangle %d: %w", t, err)
		}
	}
	return nil
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'e', -1, 32)
}

func writeTriple(w *bufio.Writer, prefix string, v [3]float32) {
	w.WriteString(prefix)
	for _, c := range v {
		w.WriteByte(' ')
		w.WriteString(formatFloat(c))
	}
	w.WriteByte('\n')
}

// solidName joins the words of name with underscores, dropping control
// characters, so that it fits on the solid and endsolid lines
func solidName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
	return strings.Join(words, "_")
}

func encodeASCII(w *bufio.Writer, m *mesh.Mesh, opts Options) error {
	name := opts.Name
	if name == "" {
		name = m.Name
	}
	solid := "solid"
	if name = solidName(name); name != "" {
		solid += " " + name
	}

	w.WriteString(solid + "\n")
	for t, tri := range m.Triangles {
		writeTriple(w, "  facet normal", facetNormal(m, t).Float32())
		w.WriteString("    outer loop\n")
		writeTriple(w, "      vertex", m.Vertices[tri.I].Float32())
		writeTriple(w, "      vertex", m.Vertices[tri.J].Float32())
		writeTriple(w, "      vertex", m.Vertices[tri.K].Float32())
		w.WriteString("    endloop\n")
		w.WriteString("  endfacet\n")
	}
	if _, err := w.WriteString("end" + solid + "\n"); err != nil {
		return fmt.Errorf("failed to write ASCII STL: %w", err)
	}
	return nil
}

// WriteFile encodes m into path. The data goes to a temporary file in the
// same directory that replaces path only after everything was written, so a
// failed write never leaves a truncated file behind. Failures while
// touching the file system are reported as *IOError.
func WriteFile(path string, m *mesh.Mesh, opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	if m.IsEmpty() && !opts.AllowEmpty {
		return ErrEmptyMesh
	}
	return AtomicWrite(path, func(w io.Writer) error {
		return Encode(w, m, opts)
	})
}

// AtomicWrite streams encode into a temporary sibling of path and renames it
// into place once encode and the close succeeded
func AtomicWrite(path string, encode func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &IOError{Path: path, Err: err}
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := encode(tmp); err != nil {
		return &IOError{Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &IOError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Path: path, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return &IOError{Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &IOError{Path: path, Err: err}
	}
	return nil
}
