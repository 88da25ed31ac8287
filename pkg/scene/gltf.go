package scene

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/embercraft/assetconv/pkg/math"
)

// SampleRate is the tick rate assigned to decoded glTF animations.
// glTF keys are timed in seconds; the importer rescales them to ticks so
// the resampler can step whole frames.
const SampleRate = 25

// LoadGLTF decodes a .gltf or .glb file into a Scene.
func LoadGLTF(path string) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening glTF %s: %w", path, err)
	}
	return FromDocument(doc)
}

// FromDocument builds a Scene from an already decoded glTF document.
func FromDocument(doc *gltf.Document) (*Scene, error) {
	if doc == nil {
		return nil, ErrNilScene
	}

	s := &Scene{}

	nodes, err := buildHierarchy(doc)
	if err != nil {
		return nil, err
	}
	s.Root = findRoot(doc, nodes)

	for i, mt := range doc.Materials {
		s.Materials = append(s.Materials, &Material{
			Name:    materialName(mt, i),
			Texture: textureURI(doc, mt),
		})
	}
	// Meshes without a material reference need a slot to resolve to.
	if len(s.Materials) == 0 {
		s.Materials = append(s.Materials, &Material{Name: "default"})
	}

	skins := meshSkins(doc)
	for mi, mh := range doc.Meshes {
		for pi, prim := range mh.Primitives {
			mesh, err := buildMesh(doc, mh, prim, mi, pi, skins[mi])
			if err != nil {
				return nil, err
			}
			s.Meshes = append(s.Meshes, mesh)
		}
	}

	for ai, anim := range doc.Animations {
		clip, err := buildAnimation(doc, anim, ai)
		if err != nil {
			return nil, err
		}
		if len(clip.Channels) > 0 {
			s.Animations = append(s.Animations, clip)
		}
	}

	return s, nil
}

// buildHierarchy creates one scene node per glTF node and links parents
// and children.
func buildHierarchy(doc *gltf.Document) ([]*Node, error) {
	nodes := make([]*Node, len(doc.Nodes))
	for i, nd := range doc.Nodes {
		nodes[i] = &Node{
			Name:      nodeName(nd, i),
			Transform: localTransform(nd),
		}
	}
	for i, nd := range doc.Nodes {
		for _, ci := range nd.Children {
			if int(ci) >= len(nodes) {
				return nil, fmt.Errorf("node %d: child %d out of range", i, ci)
			}
			child := nodes[ci]
			if child.Parent != nil {
				return nil, fmt.Errorf("node %q has multiple parents", child.Name)
			}
			child.Parent = nodes[i]
			nodes[i].Children = append(nodes[i].Children, child)
		}
	}
	return nodes, nil
}

// findRoot picks the hierarchy root. A glTF scene may list several root
// nodes; when it does, a synthetic identity root adopts them so the
// pipeline always sees a single-rooted tree.
func findRoot(doc *gltf.Document, nodes []*Node) *Node {
	var roots []*Node
	if len(doc.Scenes) > 0 {
		si := 0
		if doc.Scene != nil {
			si = int(*doc.Scene)
		}
		for _, ni := range doc.Scenes[si].Nodes {
			if int(ni) < len(nodes) && nodes[ni].Parent == nil {
				roots = append(roots, nodes[ni])
			}
		}
	}
	if len(roots) == 0 {
		for _, n := range nodes {
			if n.Parent == nil {
				roots = append(roots, n)
			}
		}
	}
	switch len(roots) {
	case 0:
		return nil
	case 1:
		return roots[0]
	default:
		root := &Node{Name: "root", Transform: math.Identity(), Children: roots}
		for _, c := range roots {
			c.Parent = root
		}
		return root
	}
}

func buildMesh(doc *gltf.Document, mh *gltf.Mesh, prim *gltf.Primitive, mi, pi int, skin *gltf.Skin) (*Mesh, error) {
	mesh := &Mesh{Name: meshName(mh, mi, pi)}

	if prim.Material != nil {
		mesh.MaterialIndex = int(*prim.Material)
	}

	idx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("mesh %s: positions: %w", mesh.Name, ErrMissingChannel)
	}
	pos, err := modeler.ReadPosition(doc, doc.Accessors[idx], nil)
	if err != nil {
		return nil, fmt.Errorf("mesh %s: positions: %w", mesh.Name, err)
	}
	mesh.Positions = pos

	if idx, ok = prim.Attributes["NORMAL"]; ok {
		nrm, err := modeler.ReadNormal(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("mesh %s: normals: %w", mesh.Name, err)
		}
		mesh.Normals = nrm
	}

	if idx, ok = prim.Attributes["TANGENT"]; ok {
		tan, err := modeler.ReadTangent(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("mesh %s: tangents: %w", mesh.Name, err)
		}
		mesh.Tangents = make([][3]float32, len(tan))
		for i, t := range tan {
			mesh.Tangents[i] = [3]float32{t[0], t[1], t[2]}
		}
	}

	if idx, ok = prim.Attributes["TEXCOORD_0"]; ok {
		uv, err := modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("mesh %s: texture coordinates: %w", mesh.Name, err)
		}
		mesh.TexCoords = uv
	}

	if prim.Indices == nil {
		return nil, fmt.Errorf("mesh %s: indices: %w", mesh.Name, ErrMissingChannel)
	}
	indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
	if err != nil {
		return nil, fmt.Errorf("mesh %s: indices: %w", mesh.Name, err)
	}
	mesh.Faces = make([][3]uint32, 0, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		mesh.Faces = append(mesh.Faces, [3]uint32{indices[i], indices[i+1], indices[i+2]})
	}

	if skin != nil {
		if err := bindBones(doc, prim, skin, mesh); err != nil {
			return nil, err
		}
	}

	return mesh, nil
}

// bindBones converts glTF per-vertex joint/weight attributes into
// per-bone weight lists, one Bone per referenced skin joint in joint
// order.
func bindBones(doc *gltf.Document, prim *gltf.Primitive, skin *gltf.Skin, mesh *Mesh) error {
	ji, ok := prim.Attributes["JOINTS_0"]
	if !ok {
		return nil
	}
	wi, ok := prim.Attributes["WEIGHTS_0"]
	if !ok {
		return nil
	}

	joints, err := modeler.ReadJoints(doc, doc.Accessors[ji], nil)
	if err != nil {
		return fmt.Errorf("mesh %s: joints: %w", mesh.Name, err)
	}
	weights, err := modeler.ReadWeights(doc, doc.Accessors[wi], nil)
	if err != nil {
		return fmt.Errorf("mesh %s: weights: %w", mesh.Name, err)
	}

	byJoint := make(map[uint16]*Bone)
	for v := range weights {
		for slot := 0; slot < 4; slot++ {
			w := weights[v][slot]
			if w <= 0 {
				continue
			}
			j := joints[v][slot]
			if int(j) >= len(skin.Joints) {
				return fmt.Errorf("mesh %s: joint %d out of range", mesh.Name, j)
			}
			bone := byJoint[j]
			if bone == nil {
				ni := skin.Joints[j]
				bone = &Bone{Name: nodeName(doc.Nodes[ni], int(ni))}
				byJoint[j] = bone
			}
			bone.Weights = append(bone.Weights, VertexWeight{VertexID: uint32(v), Weight: w})
		}
	}

	for j := range skin.Joints {
		if bone, ok := byJoint[uint16(j)]; ok {
			mesh.Bones = append(mesh.Bones, *bone)
		}
	}
	return nil
}

func buildAnimation(doc *gltf.Document, anim *gltf.Animation, ai int) (*Animation, error) {
	clip := &Animation{
		Name:           anim.Name,
		TicksPerSecond: SampleRate,
	}
	if clip.Name == "" {
		clip.Name = fmt.Sprintf("clip_%d", ai)
	}

	byNode := make(map[string]*Channel)
	channel := func(name string) *Channel {
		ch := byNode[name]
		if ch == nil {
			ch = &Channel{NodeName: name}
			byNode[name] = ch
			clip.Channels = append(clip.Channels, ch)
		}
		return ch
	}

	for _, gc := range anim.Channels {
		if gc.Target.Node == nil || gc.Sampler == nil {
			continue
		}
		sampler := anim.Samplers[*gc.Sampler]
		times, err := readTimes(doc, sampler)
		if err != nil {
			return nil, fmt.Errorf("animation %s: %w", clip.Name, err)
		}
		name := nodeName(doc.Nodes[*gc.Target.Node], int(*gc.Target.Node))

		switch gc.Target.Path {
		case gltf.TRSTranslation:
			out, err := modeler.ReadAccessor(doc, doc.Accessors[*sampler.Output], nil)
			if err != nil {
				return nil, fmt.Errorf("animation %s: translation output: %w", clip.Name, err)
			}
			values, ok := out.([][3]float32)
			if !ok {
				return nil, fmt.Errorf("animation %s: translation output is not vec3", clip.Name)
			}
			ch := channel(name)
			for i, t := range times {
				tick := float64(t) * SampleRate
				ch.PositionKeys = append(ch.PositionKeys, PositionKey{
					Time:  tick,
					Value: math.Vec3{X: values[i][0], Y: values[i][1], Z: values[i][2]},
				})
				if tick > clip.Duration {
					clip.Duration = tick
				}
			}
		case gltf.TRSRotation:
			out, err := modeler.ReadAccessor(doc, doc.Accessors[*sampler.Output], nil)
			if err != nil {
				return nil, fmt.Errorf("animation %s: rotation output: %w", clip.Name, err)
			}
			values, ok := out.([][4]float32)
			if !ok {
				return nil, fmt.Errorf("animation %s: rotation output is not vec4", clip.Name)
			}
			ch := channel(name)
			for i, t := range times {
				tick := float64(t) * SampleRate
				ch.RotationKeys = append(ch.RotationKeys, RotationKey{
					Time:  tick,
					Value: math.Quat{X: values[i][0], Y: values[i][1], Z: values[i][2], W: values[i][3]},
				})
				if tick > clip.Duration {
					clip.Duration = tick
				}
			}
		}
	}

	return clip, nil
}

func readTimes(doc *gltf.Document, sampler *gltf.AnimationSampler) ([]float32, error) {
	in, err := modeler.ReadAccessor(doc, doc.Accessors[*sampler.Input], nil)
	if err != nil {
		return nil, fmt.Errorf("sampler input: %w", err)
	}
	times, ok := in.([]float32)
	if !ok {
		return nil, fmt.Errorf("sampler input is not scalar float")
	}
	return times, nil
}

// meshSkins maps each glTF mesh index to the skin of the first node
// instancing it, if any.
func meshSkins(doc *gltf.Document) map[int]*gltf.Skin {
	skins := make(map[int]*gltf.Skin)
	for _, nd := range doc.Nodes {
		if nd.Mesh == nil || nd.Skin == nil {
			continue
		}
		mi := int(*nd.Mesh)
		if _, ok := skins[mi]; !ok {
			skins[mi] = doc.Skins[*nd.Skin]
		}
	}
	return skins
}

// localTransform returns a node's local transform, composing
// translation, rotation and scale when no explicit matrix is present.
func localTransform(nd *gltf.Node) math.Mat4 {
	var zero [16]float32
	if nd.Matrix != zero && nd.Matrix != identityMatrix {
		return math.Mat4(nd.Matrix)
	}

	m := math.Identity()
	if nd.Translation != ([3]float32{}) {
		m = math.Translate(nd.Translation[0], nd.Translation[1], nd.Translation[2])
	}
	if nd.Rotation != ([4]float32{}) && nd.Rotation != ([4]float32{0, 0, 0, 1}) {
		q := math.Quat{X: nd.Rotation[0], Y: nd.Rotation[1], Z: nd.Rotation[2], W: nd.Rotation[3]}
		m = m.Mul(q.ToMat4())
	}
	if s := nd.Scale; s != ([3]float32{}) && s != ([3]float32{1, 1, 1}) {
		m = m.Mul(math.Scale(s[0], s[1], s[2]))
	}
	return m
}

var identityMatrix = [16]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

func nodeName(nd *gltf.Node, i int) string {
	if nd.Name != "" {
		return nd.Name
	}
	return fmt.Sprintf("node_%d", i)
}

func meshName(mh *gltf.Mesh, mi, pi int) string {
	name := mh.Name
	if name == "" {
		name = fmt.Sprintf("mesh_%d", mi)
	}
	if pi > 0 {
		name = fmt.Sprintf("%s_%d", name, pi)
	}
	return name
}

func materialName(mt *gltf.Material, i int) string {
	if mt.Name != "" {
		return mt.Name
	}
	return fmt.Sprintf("material_%d", i)
}

func textureURI(doc *gltf.Document, mt *gltf.Material) string {
	if mt.PBRMetallicRoughness == nil || mt.PBRMetallicRoughness.BaseColorTexture == nil {
		return ""
	}
	ti := mt.PBRMetallicRoughness.BaseColorTexture.Index
	if int(ti) >= len(doc.Textures) || doc.Textures[ti].Source == nil {
		return ""
	}
	si := *doc.Textures[ti].Source
	if int(si) >= len(doc.Images) {
		return ""
	}
	return doc.Images[si].URI
}
