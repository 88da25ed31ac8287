package asset

import (
	"bytes"
	"fmt"
	"io"

	"github.com/embercraft/assetconv/pkg/math"
)

// Model file constants.
const (
	ModelMagic   uint32 = 0x4C444D45 // "EMDL"
	ModelVersion uint32 = 1

	// Per-vertex stride declared in the mesh table. The skinned layout
	// prepends a 32-byte weight/bone-index block to the rigid layout.
	RigidVertexSize   = 24
	SkinnedVertexSize = 56
)

// AttributeType tags a vertex attribute's wire format in the mesh table.
type AttributeType uint32

const (
	AttrPosition AttributeType = iota
	AttrFloat1
	AttrFloat2
	AttrFloat3
	AttrFloat4
	AttrInt1
	AttrInt2
	AttrInt3
	AttrInt4
	AttrShort2
	AttrShort4
	AttrByte4
	AttrNone
)

// Attribute describes one vertex attribute: shader input name plus type tag.
type Attribute struct {
	Name string
	Type AttributeType
}

// MeshEntry is one mesh table record. Offsets address the shared vertex
// and index buffers.
type MeshEntry struct {
	Material      string
	VertexOffset  int32 // byte offset into the vertex buffer
	VertexBytes   int32 // declared byte size of this mesh's vertex slice
	IndexOffset   int32 // first index of this mesh in the index buffer
	TriangleCount int32
	Name          string
	Attributes    []Attribute
}

// SkeletonNode is one flattened hierarchy record. Position and Rotation
// are the node's pose relative to the scene root; the parent link by
// name carries the hierarchy.
type SkeletonNode struct {
	Name     string
	Parent   string // empty for the root
	Position math.Vec3
	Rotation math.Quat
}

// LOD is a distance-based mesh selection entry.
type LOD struct {
	ToMesh      int32
	MaxDistance float32
}

// Model is the in-memory form of a .msh file.
//
// DeclaredVertexBytes is the vertex-buffer size field as written to the
// file. For rigid models it is computed from the 24-byte declared stride
// while the stored vertex records always carry the 32-byte skin block,
// so it may be smaller than len(VertexData). This mismatch is the
// runtime's documented contract, preserved as-is.
type Model struct {
	Meshes              []MeshEntry
	Indices             []int32
	VertexData          []byte
	DeclaredVertexBytes int32
	Nodes               []SkeletonNode
	LODs                []LOD
}

// Stride returns the declared per-vertex byte stride of a mesh entry.
func (e *MeshEntry) Stride() int32 {
	var stride int32
	for _, a := range e.Attributes {
		stride += a.Type.size()
	}
	return stride
}

func (t AttributeType) size() int32 {
	switch t {
	case AttrPosition, AttrFloat3, AttrInt3:
		return 12
	case AttrFloat1, AttrInt1, AttrByte4, AttrShort2:
		return 4
	case AttrFloat2, AttrInt2, AttrShort4:
		return 8
	case AttrFloat4, AttrInt4:
		return 16
	default:
		return 0
	}
}

// Marshal writes the model in the engine's binary layout.
func (m *Model) Marshal(out io.Writer) error {
	w := NewWriter(out)

	w.Put(ModelMagic)
	w.Put(ModelVersion)

	w.Put(int32(len(m.Meshes)))
	for i := range m.Meshes {
		e := &m.Meshes[i]
		w.PutString(e.Material)
		w.Put(e.VertexOffset)
		w.Put(e.VertexBytes)
		w.Put(e.IndexOffset)
		w.Put(e.TriangleCount)
		w.PutString(e.Name)
		w.Put(int32(len(e.Attributes)))
		for _, a := range e.Attributes {
			w.PutString(a.Name)
			w.Put(uint32(a.Type))
		}
	}

	w.Put(int32(len(m.Indices)))
	w.Put(m.Indices)

	w.Put(m.DeclaredVertexBytes)
	w.PutBytes(m.VertexData)

	w.Put(int32(len(m.Nodes)))
	for i := range m.Nodes {
		n := &m.Nodes[i]
		w.PutString(n.Name)
		w.PutString(n.Parent)
		w.Put([3]float32{n.Position.X, n.Position.Y, n.Position.Z})
		w.Put([4]float32{n.Rotation.X, n.Rotation.Y, n.Rotation.Z, n.Rotation.W})
	}

	w.Put(int32(len(m.LODs)))
	for _, l := range m.LODs {
		w.Put(l.ToMesh)
		w.Put(l.MaxDistance)
	}

	return w.Err()
}

// ParseModel parses a .msh file from a byte slice.
//
// The stored vertex records always include the skin block, so the actual
// record size is SkinnedVertexSize regardless of the declared stride;
// the vertex count is recovered from the declared size and stride.
func ParseModel(data []byte) (*Model, error) {
	r := bytes.NewReader(data)

	var magic, version uint32
	if err := readValue(r, &magic); err != nil {
		return nil, err
	}
	if magic != ModelMagic {
		return nil, ErrBadMagic
	}
	if err := readValue(r, &version); err != nil {
		return nil, err
	}
	if version != ModelVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	m := &Model{}

	var meshCount int32
	if err := readValue(r, &meshCount); err != nil {
		return nil, err
	}
	if meshCount < 0 {
		return nil, ErrTruncated
	}
	for i := int32(0); i < meshCount; i++ {
		var e MeshEntry
		var err error
		if e.Material, err = readString(r); err != nil {
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}
		if err = readValue(r, &e.VertexOffset); err != nil {
			return nil, err
		}
		if err = readValue(r, &e.VertexBytes); err != nil {
			return nil, err
		}
		if err = readValue(r, &e.IndexOffset); err != nil {
			return nil, err
		}
		if err = readValue(r, &e.TriangleCount); err != nil {
			return nil, err
		}
		if e.Name, err = readString(r); err != nil {
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}
		var attrCount int32
		if err = readValue(r, &attrCount); err != nil {
			return nil, err
		}
		for a := int32(0); a < attrCount; a++ {
			var attr Attribute
			if attr.Name, err = readString(r); err != nil {
				return nil, fmt.Errorf("mesh %d attribute %d: %w", i, a, err)
			}
			var ty uint32
			if err = readValue(r, &ty); err != nil {
				return nil, err
			}
			attr.Type = AttributeType(ty)
			e.Attributes = append(e.Attributes, attr)
		}
		m.Meshes = append(m.Meshes, e)
	}

	var indexCount int32
	if err := readValue(r, &indexCount); err != nil {
		return nil, err
	}
	if indexCount < 0 || int(indexCount)*4 > r.Len() {
		return nil, ErrTruncated
	}
	m.Indices = make([]int32, indexCount)
	if err := readValue(r, m.Indices); err != nil {
		return nil, err
	}

	if err := readValue(r, &m.DeclaredVertexBytes); err != nil {
		return nil, err
	}
	vertexCount := 0
	for i := range m.Meshes {
		stride := m.Meshes[i].Stride()
		if stride > 0 {
			vertexCount += int(m.Meshes[i].VertexBytes / stride)
		}
	}
	blob := vertexCount * SkinnedVertexSize
	if blob > r.Len() {
		return nil, ErrTruncated
	}
	m.VertexData = make([]byte, blob)
	if _, err := io.ReadFull(r, m.VertexData); err != nil {
		return nil, ErrTruncated
	}

	var nodeCount int32
	if err := readValue(r, &nodeCount); err != nil {
		return nil, err
	}
	if nodeCount < 0 {
		return nil, ErrTruncated
	}
	for i := int32(0); i < nodeCount; i++ {
		var n SkeletonNode
		var err error
		if n.Name, err = readString(r); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		if n.Parent, err = readString(r); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		var pos [3]float32
		var rot [4]float32
		if err = readValue(r, &pos); err != nil {
			return nil, err
		}
		if err = readValue(r, &rot); err != nil {
			return nil, err
		}
		n.Position = math.Vec3{X: pos[0], Y: pos[1], Z: pos[2]}
		n.Rotation = math.Quat{X: rot[0], Y: rot[1], Z: rot[2], W: rot[3]}
		m.Nodes = append(m.Nodes, n)
	}

	var lodCount int32
	if err := readValue(r, &lodCount); err != nil {
		return nil, err
	}
	if lodCount < 0 {
		return nil, ErrTruncated
	}
	for i := int32(0); i < lodCount; i++ {
		var l LOD
		if err := readValue(r, &l.ToMesh); err != nil {
			return nil, err
		}
		if err := readValue(r, &l.MaxDistance); err != nil {
			return nil, err
		}
		m.LODs = append(m.LODs, l)
	}

	return m, nil
}
