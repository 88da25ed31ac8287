package convert

import (
	"fmt"

	"github.com/embercraft/assetconv/pkg/scene"
)

// SkinInfo holds the up-to-four bone influences of one vertex.
// Unfilled slots stay zero.
type SkinInfo struct {
	Weights [4]float32
	Indices [4]int32
	Filled  int
}

// BindSkin builds one SkinInfo per vertex across all meshes, in mesh
// order. Influences are written into slots in bone and weight call
// order; once a vertex's four slots are filled, further influences are
// dropped without renormalizing the kept weights. Meshes without bone
// data contribute zero-filled records. A bone name that does not
// resolve in the table is a NameResolutionError.
func BindSkin(meshes []*scene.Mesh, table *BoneTable) ([]SkinInfo, error) {
	total := 0
	for _, m := range meshes {
		total += m.VertexCount()
	}
	infos := make([]SkinInfo, total)

	offset := 0
	for _, m := range meshes {
		for _, bone := range m.Bones {
			boneIndex, ok := table.Lookup(bone.Name)
			if !ok {
				return nil, fmt.Errorf("mesh %s: bone %q: %w", m.Name, bone.Name, ErrUnknownBone)
			}
			for _, vw := range bone.Weights {
				if int(vw.VertexID) >= m.VertexCount() {
					return nil, fmt.Errorf("mesh %s: bone %q: vertex %d out of range", m.Name, bone.Name, vw.VertexID)
				}
				info := &infos[offset+int(vw.VertexID)]
				if info.Filled < 4 {
					info.Weights[info.Filled] = vw.Weight
					info.Indices[info.Filled] = int32(boneIndex)
					info.Filled++
				}
			}
		}
		offset += m.VertexCount()
	}
	return infos, nil
}
