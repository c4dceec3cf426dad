// Package gltfexport writes meshes as glTF 2.0 scenes for web viewers.
package gltfexport

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/qmuntal/gltf"

	"github.com/philipparndt/stp2stl/pkg/mesh"
)

const gltfVersion = "2.0"

// ErrNoMeshes is returned when there is nothing to export
var ErrNoMeshes = errors.New("no meshes to export")

// Options controls the glTF encoding
type Options struct {
	// Binary writes a single GLB container instead of JSON with an
	// embedded buffer
	Binary bool

	// Color is the RGBA base color of the shared material
	Color [4]float32
}

// DefaultOptions returns JSON output with a neutral grey material
func DefaultOptions() Options {
	return Options{Color: [4]float32{0.8, 0.8, 0.8, 1}}
}

func createDoc() *gltf.Document {
	doc := &gltf.Document{}
	doc.Asset.Version = gltfVersion
	doc.Asset.Generator = "stp2stl"
	sceneIndex := uint32(0)
	doc.Scene = &sceneIndex
	doc.Scenes = append(doc.Scenes, &gltf.Scene{})
	doc.Buffers = append(doc.Buffers, &gltf.Buffer{})
	return doc
}

// Build assembles a document with one node per mesh. Empty meshes are
// skipped.
func Build(meshes []*mesh.Mesh, opts Options) (*gltf.Document, error) {
	doc := createDoc()
	material := uint32(0)
	color := opts.Color
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:        "default",
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &color,
		},
	})

	for _, m := range meshes {
		if m.IsEmpty() {
			continue
		}
		if err := addMesh(doc, m, material); err != nil {
			return nil, fmt.Errorf("failed to add mesh %s: %w", m.Name, err)
		}
	}
	if len(doc.Meshes) == 0 {
		return nil, ErrNoMeshes
	}
	return doc, nil
}

func addMesh(doc *gltf.Document, m *mesh.Mesh, material uint32) error {
	if len(m.Vertices) > math.MaxUint32 {
		return fmt.Errorf("%d vertices exceed the index range", len(m.Vertices))
	}
	buffer := doc.Buffers[0]
	buf := new(bytes.Buffer)

	indices := make([]uint32, 0, 3*len(m.Triangles))
	for _, tri := range m.Triangles {
		indices = append(indices, uint32(tri.I), uint32(tri.J), uint32(tri.K))
	}
	positions := make([][3]float32, len(m.Vertices))
	lo := [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi := [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for i, v := range m.Vertices {
		positions[i] = v.Float32()
		for k, c := range positions[i] {
			lo[k] = min(lo[k], c)
			hi[k] = max(hi[k], c)
		}
	}

	indexView := &gltf.BufferView{Buffer: 0, ByteOffset: buffer.ByteLength, Target: gltf.TargetElementArrayBuffer}
	if err := binary.Write(buf, binary.LittleEndian, indices); err != nil {
		return err
	}
	indexView.ByteLength = uint32(buf.Len())

	positionView := &gltf.BufferView{Buffer: 0, ByteOffset: buffer.ByteLength + uint32(buf.Len()), Target: gltf.TargetArrayBuffer}
	if err := binary.Write(buf, binary.LittleEndian, positions); err != nil {
		return err
	}
	positionView.ByteLength = buffer.ByteLength + uint32(buf.Len()) - positionView.ByteOffset

	buffer.ByteLength += uint32(buf.Len())
	buffer.Data = append(buffer.Data, buf.Bytes()...)

	indexViewID := uint32(len(doc.BufferViews))
	doc.BufferViews = append(doc.BufferViews, indexView)
	positionViewID := uint32(len(doc.BufferViews))
	doc.BufferViews = append(doc.BufferViews, positionView)

	indexAccessor := uint32(len(doc.Accessors))
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView:    &indexViewID,
		ComponentType: gltf.ComponentUint,
		Type:          gltf.AccessorScalar,
		Count:         uint32(len(indices)),
	})
	positionAccessor := uint32(len(doc.Accessors))
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView:    &positionViewID,
		ComponentType: gltf.ComponentFloat,
		Type:          gltf.AccessorVec3,
		Count:         uint32(len(positions)),
		Min:           lo[:],
		Max:           hi[:],
	})

	meshID := uint32(len(doc.Meshes))
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: m.Name,
		Primitives: []*gltf.Primitive{{
			Indices:    &indexAccessor,
			Attributes: gltf.Attribute{"POSITION": positionAccessor},
			Material:   &material,
			Mode:       gltf.PrimitiveTriangles,
		}},
	})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)))
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: m.Name, Mesh: &meshID})
	return nil
}

// Encode writes meshes to w as glTF or GLB
func Encode(w io.Writer, meshes []*mesh.Mesh, opts Options) error {
	doc, err := Build(meshes, opts)
	if err != nil {
		return err
	}
	if !opts.Binary {
		buffer := doc.Buffers[0]
		buffer.URI = "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(buffer.Data)
	}

	enc := gltf.NewEncoder(w)
	enc.AsBinary = opts.Binary
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode glTF: %w", err)
	}
	return nil
}
