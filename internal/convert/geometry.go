package convert

import (
	"bytes"
	gomath "math"

	"github.com/chewxy/math32"

	"github.com/embercraft/assetconv/pkg/asset"
	"github.com/embercraft/assetconv/pkg/scene"
)

// Skinned reports whether the scene gets the skinned vertex layout.
// The choice is structural: a root with at least one child is treated
// as a skeleton. Presence of actual bone data is not consulted; this
// mirrors the consuming runtime's expectation.
func Skinned(s *scene.Scene) bool {
	return s.Root != nil && len(s.Root.Children) > 0
}

// VertexSize returns the declared per-vertex stride for the scene.
func VertexSize(s *scene.Scene) int32 {
	if Skinned(s) {
		return asset.SkinnedVertexSize
	}
	return asset.RigidVertexSize
}

var (
	skinnedAttributes = []asset.Attribute{
		{Name: "in_weights", Type: asset.AttrFloat4},
		{Name: "in_indices", Type: asset.AttrInt4},
		{Name: "in_position", Type: asset.AttrPosition},
		{Name: "in_normal", Type: asset.AttrByte4},
		{Name: "in_tangents", Type: asset.AttrByte4},
		{Name: "in_tex_coords", Type: asset.AttrShort2},
	}
	rigidAttributes = skinnedAttributes[2:]
)

// BuildModel encodes the scene's meshes into a model file: mesh table,
// shared index buffer, interleaved vertex buffer, flattened skeleton and
// a placeholder LOD entry.
//
// Every stored vertex carries the 32-byte skin block even under the
// rigid layout, whose declared stride omits it. The mismatch is part of
// the established file contract; consumers recover the vertex count
// from the declared stride.
func BuildModel(s *scene.Scene, skins []SkinInfo) (*asset.Model, error) {
	vertexSize := VertexSize(s)
	attrs := rigidAttributes
	if Skinned(s) {
		attrs = skinnedAttributes
	}

	m := &asset.Model{}

	var vertexOffset, indexOffset int32
	for _, mesh := range s.Meshes {
		name := mesh.Name
		if name == "" {
			name = s.MaterialName(mesh.MaterialIndex)
		}
		declared := int32(mesh.VertexCount()) * vertexSize
		m.Meshes = append(m.Meshes, asset.MeshEntry{
			Material:      s.MaterialName(mesh.MaterialIndex),
			VertexOffset:  vertexOffset,
			VertexBytes:   declared,
			IndexOffset:   indexOffset,
			TriangleCount: int32(len(mesh.Faces)),
			Name:          name,
			Attributes:    attrs,
		})
		vertexOffset += declared
		indexOffset += int32(len(mesh.Faces)) * 3
	}
	m.DeclaredVertexBytes = vertexOffset

	for _, mesh := range s.Meshes {
		for _, f := range mesh.Faces {
			m.Indices = append(m.Indices, int32(f[0]), int32(f[1]), int32(f[2]))
		}
	}

	var buf bytes.Buffer
	w := asset.NewWriter(&buf)
	vi := 0
	for _, mesh := range s.Meshes {
		for v := 0; v < mesh.VertexCount(); v++ {
			w.Put(skins[vi].Weights)
			w.Put(skins[vi].Indices)
			vi++

			w.Put(mesh.Positions[v])
			w.Put(quantizeByte4(mesh.Normals[v]))
			w.Put(quantizeByte4(mesh.Tangents[v]))
			w.Put(quantizeUV(mesh.TexCoords[v]))
		}
	}
	if err := w.Err(); err != nil {
		return nil, err
	}
	m.VertexData = buf.Bytes()

	nodes, err := EncodeSkeleton(s.Root)
	if err != nil {
		return nil, err
	}
	m.Nodes = nodes

	m.LODs = []asset.LOD{{
		ToMesh:      int32(len(s.Meshes) - 1),
		MaxDistance: gomath.MaxFloat32,
	}}

	return m, nil
}

// quantizeByte4 packs a unit vector into 4 signed bytes, swapping the Y
// and Z axes to the runtime's coordinate convention.
func quantizeByte4(v [3]float32) [4]int8 {
	return [4]int8{
		int8(math32.Round(v[0] * 127)),
		int8(math32.Round(v[2] * 127)),
		int8(math32.Round(v[1] * 127)),
		0,
	}
}

// quantizeUV packs texture coordinates into 2 signed 16-bit fixed-point
// values with 2048 units per texel repeat. The rounded value saturates
// at the int16 limits; a float to int conversion out of range would
// otherwise wrap.
func quantizeUV(uv [2]float32) [2]int16 {
	return [2]int16{
		saturateInt16(math32.Round(uv[0] * 2048)),
		saturateInt16(math32.Round(uv[1] * 2048)),
	}
}

func saturateInt16(v float32) int16 {
	if v >= gomath.MaxInt16 {
		return gomath.MaxInt16
	}
	if v <= gomath.MinInt16 {
		return gomath.MinInt16
	}
	return int16(v)
}
