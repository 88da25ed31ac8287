package convert

import (
	"encoding/binary"
	gomath "math"
	"testing"

	"github.com/embercraft/assetconv/pkg/asset"
	"github.com/embercraft/assetconv/pkg/math"
	"github.com/embercraft/assetconv/pkg/scene"
)

func rigidScene() *scene.Scene {
	return &scene.Scene{
		Root: &scene.Node{Name: "prop", Transform: math.Identity()},
		Meshes: []*scene.Mesh{{
			Name:      "prop",
			Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Normals:   [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
			Tangents:  [][3]float32{{1, 0, 0}, {1, 0, 0}, {1, 0, 0}},
			TexCoords: [][2]float32{{0, 0}, {1, 0}, {0, 1}},
			Faces:     [][3]uint32{{0, 1, 2}},
		}},
		Materials: []*scene.Material{{Name: "stone", Texture: "stone.png"}},
	}
}

func skinnedScene() *scene.Scene {
	s := rigidScene()
	root := &scene.Node{Name: "root", Transform: math.Identity()}
	bone := &scene.Node{Name: "spine", Transform: math.Translate(0, 1, 0)}
	link(root, bone)
	s.Root = root
	s.Meshes[0].Bones = []scene.Bone{{
		Name: "spine",
		Weights: []scene.VertexWeight{
			{VertexID: 0, Weight: 1},
			{VertexID: 1, Weight: 1},
			{VertexID: 2, Weight: 1},
		},
	}}
	return s
}

func TestSkinned_StructuralHeuristic(t *testing.T) {
	if Skinned(rigidScene()) {
		t.Error("childless root classified as skinned")
	}
	if !Skinned(skinnedScene()) {
		t.Error("root with children classified as rigid")
	}

	if got := VertexSize(rigidScene()); got != asset.RigidVertexSize {
		t.Errorf("rigid vertex size = %d, want %d", got, asset.RigidVertexSize)
	}
	if got := VertexSize(skinnedScene()); got != asset.SkinnedVertexSize {
		t.Errorf("skinned vertex size = %d, want %d", got, asset.SkinnedVertexSize)
	}
}

func buildTestModel(t *testing.T, s *scene.Scene) *asset.Model {
	t.Helper()
	table, err := FlattenBoneNames(s.Root)
	if err != nil {
		t.Fatalf("FlattenBoneNames: %v", err)
	}
	skins, err := BindSkin(s.Meshes, table)
	if err != nil {
		t.Fatalf("BindSkin: %v", err)
	}
	m, err := BuildModel(s, skins)
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	return m
}

func TestBuildModel_Rigid(t *testing.T) {
	m := buildTestModel(t, rigidScene())

	if len(m.Meshes) != 1 {
		t.Fatalf("mesh count = %d, want 1", len(m.Meshes))
	}
	e := m.Meshes[0]
	if e.Material != "stone" || e.TriangleCount != 1 {
		t.Errorf("entry = %+v", e)
	}
	if e.Stride() != asset.RigidVertexSize {
		t.Errorf("stride = %d, want %d", e.Stride(), asset.RigidVertexSize)
	}
	if len(e.Attributes) != 4 || e.Attributes[0].Name != "in_position" {
		t.Errorf("attributes = %+v", e.Attributes)
	}

	// The declared size uses the rigid stride while the stored records
	// always carry the skin block.
	if m.DeclaredVertexBytes != 3*asset.RigidVertexSize {
		t.Errorf("declared bytes = %d, want %d", m.DeclaredVertexBytes, 3*asset.RigidVertexSize)
	}
	if len(m.VertexData) != 3*asset.SkinnedVertexSize {
		t.Errorf("vertex data = %d bytes, want %d", len(m.VertexData), 3*asset.SkinnedVertexSize)
	}

	if len(m.Nodes) != 1 || m.Nodes[0].Name != "prop" {
		t.Errorf("nodes = %+v", m.Nodes)
	}
	if len(m.LODs) != 1 || m.LODs[0].ToMesh != 0 {
		t.Errorf("lods = %+v", m.LODs)
	}
}

func TestBuildModel_SkinnedAttributes(t *testing.T) {
	m := buildTestModel(t, skinnedScene())

	e := m.Meshes[0]
	if e.Stride() != asset.SkinnedVertexSize {
		t.Errorf("stride = %d, want %d", e.Stride(), asset.SkinnedVertexSize)
	}
	wantNames := []string{"in_weights", "in_indices", "in_position", "in_normal", "in_tangents", "in_tex_coords"}
	if len(e.Attributes) != len(wantNames) {
		t.Fatalf("attributes = %+v", e.Attributes)
	}
	for i, name := range wantNames {
		if e.Attributes[i].Name != name {
			t.Errorf("attribute %d = %q, want %q", i, e.Attributes[i].Name, name)
		}
	}

	if len(m.Nodes) != 2 {
		t.Errorf("node count = %d, want 2", len(m.Nodes))
	}
	if m.DeclaredVertexBytes != 3*asset.SkinnedVertexSize {
		t.Errorf("declared bytes = %d", m.DeclaredVertexBytes)
	}
}

// Walks the first stored vertex record field by field.
func TestBuildModel_VertexRecordLayout(t *testing.T) {
	m := buildTestModel(t, skinnedScene())
	rec := m.VertexData[:asset.SkinnedVertexSize]

	le := binary.LittleEndian

	// Weights: vertex 0 is fully bound to the spine bone.
	if w := gomathFloat32(le.Uint32(rec[0:])); w != 1 {
		t.Errorf("weight[0] = %g, want 1", w)
	}
	// Bone index: spine flattens to index 1 (after the root).
	if idx := int32(le.Uint32(rec[16:])); idx != 1 {
		t.Errorf("index[0] = %d, want 1", idx)
	}
	// Position is stored unmodified.
	if p := gomathFloat32(le.Uint32(rec[32:])); p != 0 {
		t.Errorf("position.x = %g, want 0", p)
	}
	// Normal (0,0,1) quantizes to bytes (0,127,0,0) after the axis swap.
	if n := [4]int8{int8(rec[44]), int8(rec[45]), int8(rec[46]), int8(rec[47])}; n != [4]int8{0, 127, 0, 0} {
		t.Errorf("normal = %v, want [0 127 0 0]", n)
	}
	// Tangent (1,0,0) quantizes to (127,0,0,0).
	if tg := [4]int8{int8(rec[48]), int8(rec[49]), int8(rec[50]), int8(rec[51])}; tg != [4]int8{127, 0, 0, 0} {
		t.Errorf("tangent = %v, want [127 0 0 0]", tg)
	}
	// UV (0,0) stays zero in 2048-per-unit fixed point.
	if u := int16(le.Uint16(rec[52:])); u != 0 {
		t.Errorf("u = %d, want 0", u)
	}

	// Second vertex: uv (1,0) becomes 2048.
	rec2 := m.VertexData[asset.SkinnedVertexSize : 2*asset.SkinnedVertexSize]
	if u := int16(le.Uint16(rec2[52:])); u != 2048 {
		t.Errorf("vertex 1 u = %d, want 2048", u)
	}
}

func TestQuantizeByte4(t *testing.T) {
	tests := []struct {
		name string
		in   [3]float32
		want [4]int8
	}{
		{"unit z swaps into byte 1", [3]float32{0, 0, 1}, [4]int8{0, 127, 0, 0}},
		{"unit y swaps into byte 2", [3]float32{0, 1, 0}, [4]int8{0, 0, 127, 0}},
		{"unit x stays first", [3]float32{1, 0, 0}, [4]int8{127, 0, 0, 0}},
		{"negative", [3]float32{-1, 0, 0}, [4]int8{-127, 0, 0, 0}},
		{"rounding", [3]float32{0.5, 0, 0}, [4]int8{64, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := quantizeByte4(tt.in); got != tt.want {
				t.Errorf("quantizeByte4(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestQuantizeUV(t *testing.T) {
	tests := []struct {
		name string
		in   [2]float32
		want [2]int16
	}{
		{"zero", [2]float32{0, 0}, [2]int16{0, 0}},
		{"unit", [2]float32{1, 1}, [2]int16{2048, 2048}},
		{"fractional", [2]float32{0.5, -0.25}, [2]int16{1024, -512}},
		// Components just under 16 round past int16 range and must
		// saturate, not wrap negative.
		{"upper edge", [2]float32{15.9999, 15.9999}, [2]int16{32767, 32767}},
		{"lower edge", [2]float32{-16, -16}, [2]int16{-32768, -32768}},
		{"far out of range", [2]float32{100, -100}, [2]int16{32767, -32768}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := quantizeUV(tt.in); got != tt.want {
				t.Errorf("quantizeUV(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func gomathFloat32(bits uint32) float32 {
	return gomath.Float32frombits(bits)
}
