package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/philipparndt/stp2stl/pkg/geometry"
	"github.com/philipparndt/stp2stl/pkg/mesh"
)

const recordSize = 50

// Parse reads an STL file into a mesh. Facets keep their own three vertices
// and the normal stored in the file.
func Parse(filename string) (*mesh.Mesh, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return decode(data)
}

// Decode reads an STL stream into a mesh
func Decode(r io.Reader) (*mesh.Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read STL: %w", err)
	}
	return decode(data)
}

// decode tells the encodings apart by size first: many binary writers put
// "solid" into the header, so only data that is not a well-formed binary
// file is treated as ASCII when it starts with "solid".
func decode(data []byte) (*mesh.Mesh, error) {
	if len(data) >= headerSize+4 {
		count := binary.LittleEndian.Uint32(data[headerSize:])
		if int64(len(data)) == int64(headerSize+4)+int64(count)*recordSize {
			return parseBinary(bytes.NewReader(data))
		}
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return parseASCII(bytes.NewReader(data))
	}
	return parseBinary(bytes.NewReader(data))
}

func parseVector(fields []string) (geometry.Vector3, error) {
	var c [3]float64
	for i := range c {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return geometry.Vector3{}, fmt.Errorf("invalid number %q: %w", fields[i], err)
		}
		c[i] = v
	}
	return geometry.NewVector3(c[0], c[1], c[2]), nil
}

func addFacet(m *mesh.Mesh, normal geometry.Vector3, v [3]geometry.Vector3) {
	i := m.AddVertex(v[0])
	j := m.AddVertex(v[1])
	k := m.AddVertex(v[2])
	m.Triangles = append(m.Triangles, mesh.Triangle{I: i, J: j, K: k, Normal: normal})
}

// parseASCII parses an ASCII STL file
func parseASCII(reader io.Reader) (*mesh.Mesh, error) {
	scanner := bufio.NewScanner(reader)
	m := mesh.New("", 0)

	var currentNormal geometry.Vector3
	var vertices []geometry.Vector3
	line := 0

	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "solid":
			if len(fields) > 1 {
				m.Name = strings.Join(fields[1:], " ")
			}

		case "facet":
			if len(fields) < 5 || fields[1] != "normal" {
				return nil, fmt.Errorf("line %d: malformed facet", line)
			}
			n, err := parseVector(fields[2:5])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			currentNormal = n
			vertices = vertices[:0]

		case "vertex":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: malformed vertex", line)
			}
			v, err := parseVector(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			vertices = append(vertices, v)

		case "endfacet":
			if len(vertices) != 3 {
				return nil, fmt.Errorf("line %d: facet has %d vertices", line, len(vertices))
			}
			addFacet(m, currentNormal, [3]geometry.Vector3{vertices[0], vertices[1], vertices[2]})
			vertices = vertices[:0]
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ASCII STL: %w", err)
	}
	return m, nil
}

func toVector(v [3]float32) geometry.Vector3 {
	return geometry.NewVector3(float64(v[0]), float64(v[1]), float64(v[2]))
}

// parseBinary parses a binary STL file
func parseBinary(reader io.Reader) (*mesh.Mesh, error) {
	m := mesh.New("", 0)

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(reader, header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	m.Name = strings.TrimSpace(string(bytes.TrimRight(header, "\x00")))

	var triangleCount uint32
	if err := binary.Read(reader, binary.LittleEndian, &triangleCount); err != nil {
		return nil, fmt.Errorf("failed to read triangle count: %w", err)
	}

	for i := uint32(0); i < triangleCount; i++ {
		var rec record
		if err := binary.Read(reader, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("failed to read triangle %d: %w", i, err)
		}
		addFacet(m, toVector(rec.Normal), [3]geometry.Vector3{toVector(rec.V1), toVector(rec.V2), toVector(rec.V3)})
	}
	return m, nil
}
