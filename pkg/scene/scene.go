// Package scene provides a read-only model of a decoded 3D scene:
// a node hierarchy, meshes with skinning data, materials, and keyframe
// animations. A Scene is produced once by a decoder and never mutated
// by the conversion pipeline.
package scene

import (
	"errors"
	"fmt"

	"github.com/embercraft/assetconv/pkg/math"
)

// Scene decode errors.
var (
	ErrNilScene         = errors.New("scene is nil")
	ErrNoRootNode       = errors.New("scene has no root node")
	ErrNoMeshes         = errors.New("scene has no meshes")
	ErrMissingChannel   = errors.New("mesh lacks a required per-vertex channel")
	ErrFaceOutOfRange   = errors.New("face index exceeds vertex count")
	ErrBadMaterialIndex = errors.New("mesh material index out of range")
)

// Node is a single entry in the scene hierarchy.
type Node struct {
	Name      string
	Parent    *Node // nil for the root
	Transform math.Mat4
	Children  []*Node
}

// VertexWeight binds one vertex to a bone with the given influence.
type VertexWeight struct {
	VertexID uint32
	Weight   float32
}

// Bone names a node that deforms a mesh together with its per-vertex weights.
type Bone struct {
	Name    string
	Weights []VertexWeight
}

// Mesh holds one mesh's geometry in object space.
// Normals, Tangents and TexCoords run parallel to Positions.
type Mesh struct {
	Name          string
	MaterialIndex int
	Positions     [][3]float32
	Normals       [][3]float32
	Tangents      [][3]float32
	TexCoords     [][2]float32
	Faces         [][3]uint32
	Bones         []Bone
}

// VertexCount returns the number of vertices in the mesh.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// Skinned reports whether the mesh carries bone weights.
func (m *Mesh) Skinned() bool {
	return len(m.Bones) > 0
}

// Material describes a surface: a name and an optional diffuse texture path.
type Material struct {
	Name    string
	Texture string
}

// PositionKey is a timed translation sample.
type PositionKey struct {
	Time  float64
	Value math.Vec3
}

// RotationKey is a timed rotation sample.
type RotationKey struct {
	Time  float64
	Value math.Quat
}

// Channel holds the independently timed position and rotation keys
// animating a single node.
type Channel struct {
	NodeName     string
	PositionKeys []PositionKey
	RotationKeys []RotationKey
}

// Animation is one clip: a set of channels plus timing metadata.
// Duration and key times are in ticks; TicksPerSecond may be zero
// when the source format does not specify a rate.
type Animation struct {
	Name           string
	Duration       float64
	TicksPerSecond float64
	Channels       []*Channel
}

// Scene is the decoded asset graph handed to the conversion pipeline.
type Scene struct {
	Root       *Node
	Meshes     []*Mesh
	Materials  []*Material
	Animations []*Animation
}

// MaterialName returns the name of the material at index, or "" when the
// index is out of range.
func (s *Scene) MaterialName(index int) string {
	if index < 0 || index >= len(s.Materials) {
		return ""
	}
	return s.Materials[index].Name
}

// VertexCount returns the total vertex count across all meshes.
func (s *Scene) VertexCount() int {
	total := 0
	for _, m := range s.Meshes {
		total += m.VertexCount()
	}
	return total
}

// FaceCount returns the total triangle count across all meshes.
func (s *Scene) FaceCount() int {
	total := 0
	for _, m := range s.Meshes {
		total += len(m.Faces)
	}
	return total
}

// HasAnimations reports whether the scene carries any animation clips.
func (s *Scene) HasAnimations() bool {
	return len(s.Animations) > 0
}

// Validate checks the invariants the conversion pipeline relies on.
// Geometry encoding has no fallback for missing normal, tangent or
// texture-coordinate channels, so their absence is a decode error.
func (s *Scene) Validate() error {
	if s == nil {
		return ErrNilScene
	}
	if s.Root == nil {
		return ErrNoRootNode
	}
	if len(s.Meshes) == 0 {
		return ErrNoMeshes
	}
	for i, m := range s.Meshes {
		n := m.VertexCount()
		if len(m.Normals) != n {
			return fmt.Errorf("mesh %d (%s): normals: %w", i, m.Name, ErrMissingChannel)
		}
		if len(m.Tangents) != n {
			return fmt.Errorf("mesh %d (%s): tangents: %w", i, m.Name, ErrMissingChannel)
		}
		if len(m.TexCoords) != n {
			return fmt.Errorf("mesh %d (%s): texture coordinates: %w", i, m.Name, ErrMissingChannel)
		}
		for _, f := range m.Faces {
			for _, idx := range f {
				if int(idx) >= n {
					return fmt.Errorf("mesh %d (%s): index %d: %w", i, m.Name, idx, ErrFaceOutOfRange)
				}
			}
		}
		if m.MaterialIndex < 0 || m.MaterialIndex >= len(s.Materials) {
			return fmt.Errorf("mesh %d (%s): material %d: %w", i, m.Name, m.MaterialIndex, ErrBadMaterialIndex)
		}
	}
	return nil
}
