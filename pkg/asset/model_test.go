package asset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/embercraft/assetconv/pkg/math"
)

var skinnedAttrs = []Attribute{
	{Name: "in_weights", Type: AttrFloat4},
	{Name: "in_indices", Type: AttrInt4},
	{Name: "in_position", Type: AttrPosition},
	{Name: "in_normal", Type: AttrByte4},
	{Name: "in_tangents", Type: AttrByte4},
	{Name: "in_tex_coords", Type: AttrShort2},
}

func testModel(vertices int, attrs []Attribute) *Model {
	stride := int32(0)
	for _, a := range attrs {
		stride += a.Type.size()
	}
	return &Model{
		Meshes: []MeshEntry{{
			Material:      "stone",
			VertexOffset:  0,
			VertexBytes:   int32(vertices) * stride,
			IndexOffset:   0,
			TriangleCount: 1,
			Name:          "mesh0",
			Attributes:    attrs,
		}},
		Indices:             []int32{0, 1, 2},
		VertexData:          bytes.Repeat([]byte{0xAB}, vertices*SkinnedVertexSize),
		DeclaredVertexBytes: int32(vertices) * stride,
		Nodes: []SkeletonNode{
			{Name: "root", Parent: "", Position: math.Vec3{X: 1, Y: 2, Z: 3}, Rotation: math.QuatIdentity()},
			{Name: "arm", Parent: "root", Position: math.Vec3{X: 0, Y: 1, Z: 0}, Rotation: math.QuatIdentity()},
		},
		LODs: []LOD{{ToMesh: 0, MaxDistance: 1e10}},
	}
}

func TestModelRoundTrip_Skinned(t *testing.T) {
	want := testModel(3, skinnedAttrs)

	var buf bytes.Buffer
	if err := want.Marshal(&buf); err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := ParseModel(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseModel: %v", err)
	}

	if len(got.Meshes) != 1 {
		t.Fatalf("mesh count = %d, want 1", len(got.Meshes))
	}
	e := got.Meshes[0]
	if e.Material != "stone" || e.Name != "mesh0" || e.TriangleCount != 1 {
		t.Errorf("mesh entry = %+v", e)
	}
	if e.Stride() != SkinnedVertexSize {
		t.Errorf("stride = %d, want %d", e.Stride(), SkinnedVertexSize)
	}
	if len(got.Indices) != 3 {
		t.Errorf("index count = %d, want 3", len(got.Indices))
	}
	if !bytes.Equal(got.VertexData, want.VertexData) {
		t.Error("vertex data mismatch")
	}
	if len(got.Nodes) != 2 || got.Nodes[1].Parent != "root" {
		t.Errorf("nodes = %+v", got.Nodes)
	}
	if got.Nodes[0].Position != (math.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("root position = %+v", got.Nodes[0].Position)
	}
	if len(got.LODs) != 1 || got.LODs[0].ToMesh != 0 {
		t.Errorf("lods = %+v", got.LODs)
	}
}

// The rigid layout declares a 24-byte stride while each stored vertex
// record still occupies 56 bytes. The parser must recover the vertex
// count from the declared stride and read the full records.
func TestModelRoundTrip_RigidDeclaredStride(t *testing.T) {
	rigid := skinnedAttrs[2:]
	want := testModel(4, rigid)
	if want.DeclaredVertexBytes != 4*RigidVertexSize {
		t.Fatalf("declared bytes = %d, want %d", want.DeclaredVertexBytes, 4*RigidVertexSize)
	}

	var buf bytes.Buffer
	if err := want.Marshal(&buf); err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := ParseModel(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseModel: %v", err)
	}

	if got.DeclaredVertexBytes != 4*RigidVertexSize {
		t.Errorf("declared bytes = %d, want %d", got.DeclaredVertexBytes, 4*RigidVertexSize)
	}
	if len(got.VertexData) != 4*SkinnedVertexSize {
		t.Errorf("vertex data = %d bytes, want %d", len(got.VertexData), 4*SkinnedVertexSize)
	}
}

func TestParseModel_Errors(t *testing.T) {
	var valid bytes.Buffer
	if err := testModel(3, skinnedAttrs).Marshal(&valid); err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	badVersion := make([]byte, valid.Len())
	copy(badVersion, valid.Bytes())
	binary.LittleEndian.PutUint32(badVersion[4:], 99)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncated},
		{"bad magic", []byte{'X', 'X', 'X', 'X', 1, 0, 0, 0}, ErrBadMagic},
		{"bad version", badVersion, ErrUnsupportedVersion},
		{"truncated body", valid.Bytes()[:valid.Len()/2], ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModel(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseModel = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriterPutString(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.PutString("abc")
	w.PutString("")
	if err := w.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}

	want := []byte{3, 0, 0, 0, 'a', 'b', 'c', 0, 0, 0, 0}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("bytes = %v, want %v", buf.Bytes(), want)
	}
}
