package scene

import (
	"testing"

	"github.com/qmuntal/gltf"

	"github.com/embercraft/assetconv/pkg/math"
)

func TestFromDocument_Hierarchy(t *testing.T) {
	doc := &gltf.Document{
		Nodes: []*gltf.Node{
			{Name: "torso", Children: []uint32{1, 2}},
			{Name: "arm.L", Translation: [3]float32{-1, 0, 0}},
			{Name: "arm.R", Translation: [3]float32{1, 0, 0}},
		},
		Scenes: []*gltf.Scene{{Nodes: []uint32{0}}},
	}

	s, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}

	if s.Root == nil || s.Root.Name != "torso" {
		t.Fatalf("root = %+v", s.Root)
	}
	if len(s.Root.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(s.Root.Children))
	}
	armL := s.Root.Children[0]
	if armL.Name != "arm.L" || armL.Parent != s.Root {
		t.Errorf("child 0 = %+v", armL)
	}
	if got := armL.Transform.Translation(); got != (math.Vec3{X: -1}) {
		t.Errorf("arm.L translation = %+v, want {-1 0 0}", got)
	}

	// No materials in the document; a default slot is synthesized.
	if len(s.Materials) != 1 || s.Materials[0].Name != "default" {
		t.Errorf("materials = %+v", s.Materials)
	}
}

func TestFromDocument_MultiRootGetsSyntheticRoot(t *testing.T) {
	doc := &gltf.Document{
		Nodes: []*gltf.Node{
			{Name: "a"},
			{Name: "b"},
		},
		Scenes: []*gltf.Scene{{Nodes: []uint32{0, 1}}},
	}

	s, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}

	if s.Root == nil || s.Root.Name != "root" {
		t.Fatalf("root = %+v", s.Root)
	}
	if len(s.Root.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(s.Root.Children))
	}
	for _, c := range s.Root.Children {
		if c.Parent != s.Root {
			t.Errorf("child %q not adopted", c.Name)
		}
	}
	if s.Root.Transform != math.Identity() {
		t.Errorf("synthetic root transform = %+v, want identity", s.Root.Transform)
	}
}

func TestFromDocument_MultipleParentsRejected(t *testing.T) {
	doc := &gltf.Document{
		Nodes: []*gltf.Node{
			{Name: "a", Children: []uint32{2}},
			{Name: "b", Children: []uint32{2}},
			{Name: "shared"},
		},
		Scenes: []*gltf.Scene{{Nodes: []uint32{0, 1}}},
	}

	if _, err := FromDocument(doc); err == nil {
		t.Fatal("expected error for a node with two parents")
	}
}

func TestFromDocument_Nil(t *testing.T) {
	if _, err := FromDocument(nil); err != ErrNilScene {
		t.Fatalf("FromDocument(nil) = %v, want %v", err, ErrNilScene)
	}
}

func TestLocalTransform(t *testing.T) {
	// Unset TRS means identity.
	id := localTransform(&gltf.Node{})
	if id != math.Identity() {
		t.Errorf("empty node transform = %+v, want identity", id)
	}

	// An explicit matrix wins over TRS fields.
	var m [16]float32
	for i := range m {
		m[i] = float32(i)
	}
	got := localTransform(&gltf.Node{Matrix: m, Translation: [3]float32{9, 9, 9}})
	if got != math.Mat4(m) {
		t.Errorf("matrix node transform = %+v", got)
	}

	// Composed TRS places the translation in the last column.
	trs := localTransform(&gltf.Node{
		Translation: [3]float32{1, 2, 3},
		Scale:       [3]float32{2, 2, 2},
	})
	if trs.Translation() != (math.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("translation = %+v", trs.Translation())
	}
	if p := trs.TransformPoint([3]float32{1, 0, 0}); p != [3]float32{3, 2, 3} {
		t.Errorf("scaled point = %v, want [3 2 3]", p)
	}
}
