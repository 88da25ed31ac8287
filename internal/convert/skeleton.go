// Package convert implements the scene-to-asset conversion pipeline:
// skeleton flattening, skin weight binding, geometry encoding, animation
// resampling, and the material pass. Each conversion owns its derived
// data; nothing is shared between invocations.
package convert

import (
	"errors"
	"fmt"

	"github.com/embercraft/assetconv/pkg/asset"
	"github.com/embercraft/assetconv/pkg/math"
	"github.com/embercraft/assetconv/pkg/scene"
)

// Pipeline errors.
var (
	ErrCyclicHierarchy = errors.New("node hierarchy contains a cycle")
	ErrUnknownBone     = errors.New("bone name not present in the flattened bone table")
	ErrEmptyChannel    = errors.New("animation channel has no keys")
)

// BoneTable is the ordered bone-name list produced by flattening the
// node hierarchy. A bone's position in the list is the bone index used
// by skin weights, animation channels and skeleton parent links.
type BoneTable struct {
	Names []string
	index map[string]int
}

// Len returns the number of bones.
func (t *BoneTable) Len() int {
	return len(t.Names)
}

// Lookup resolves a bone name to its index. For duplicate names the
// first occurrence in traversal order wins.
func (t *BoneTable) Lookup(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// FlattenBoneNames walks the hierarchy in pre-order, root first, and
// returns the bone table. The traversal is iterative and rejects cyclic
// graphs. The order is deterministic: children are visited in their
// stored order, so the same tree always flattens identically.
func FlattenBoneNames(root *scene.Node) (*BoneTable, error) {
	if root == nil {
		return nil, scene.ErrNoRootNode
	}

	t := &BoneTable{index: make(map[string]int)}
	seen := make(map[*scene.Node]bool)
	stack := []*scene.Node{root}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen[n] {
			return nil, fmt.Errorf("node %q: %w", n.Name, ErrCyclicHierarchy)
		}
		seen[n] = true

		if _, dup := t.index[n.Name]; !dup {
			t.index[n.Name] = len(t.Names)
		}
		t.Names = append(t.Names, n.Name)

		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return t, nil
}

// CountNodes returns the total node count of the hierarchy.
func CountNodes(root *scene.Node) int {
	if root == nil {
		return 0
	}
	count := 0
	stack := []*scene.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return count
}

// EncodeSkeleton emits one record per node in the same pre-order as
// FlattenBoneNames. Each node's pose is the decomposition of its
// accumulated root-space transform: translation plus a unit quaternion,
// with any scale discarded. Hierarchy is carried by the parent name
// (empty for the root), so decoded poses are root-relative while links
// remain by name.
func EncodeSkeleton(root *scene.Node) ([]asset.SkeletonNode, error) {
	if root == nil {
		return nil, scene.ErrNoRootNode
	}

	type frame struct {
		node  *scene.Node
		accum math.Mat4
	}

	var nodes []asset.SkeletonNode
	seen := make(map[*scene.Node]bool)
	stack := []frame{{node: root, accum: math.Identity()}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen[f.node] {
			return nil, fmt.Errorf("node %q: %w", f.node.Name, ErrCyclicHierarchy)
		}
		seen[f.node] = true

		world := f.accum.Mul(f.node.Transform)
		parent := ""
		if f.node.Parent != nil {
			parent = f.node.Parent.Name
		}
		nodes = append(nodes, asset.SkeletonNode{
			Name:     f.node.Name,
			Parent:   parent,
			Position: world.Translation(),
			Rotation: math.QuatFromMat4(world),
		})

		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[i], accum: world})
		}
	}
	return nodes, nil
}
