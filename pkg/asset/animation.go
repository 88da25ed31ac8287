package asset

import (
	"bytes"
	"fmt"
	"io"

	"github.com/embercraft/assetconv/pkg/math"
)

// Animation file constants.
const (
	AnimationMagic   uint32 = 0x494E4145 // "EANI"
	AnimationVersion uint32 = 1
)

// Animation is the in-memory form of a .ani clip file: densely resampled
// per-frame poses for every bone in the skeleton's bone table.
//
// Positions and Rotations are frame-major, bone-minor:
// index = frame*BoneCount + bone. Hashes holds one CRC-32 of each bone's
// ASCII name, in bone-table order, letting the runtime rebuild the
// name-to-index mapping.
type Animation struct {
	FPS        float32
	FrameCount int32
	BoneCount  int32
	Positions  []math.Vec3
	Rotations  []math.Quat
	Hashes     []uint32
}

// Marshal writes the clip in the engine's binary layout.
func (a *Animation) Marshal(out io.Writer) error {
	w := NewWriter(out)

	w.Put(AnimationMagic)
	w.Put(AnimationVersion)
	w.Put(a.FPS)
	w.Put(a.FrameCount)
	w.Put(a.BoneCount)
	for _, p := range a.Positions {
		w.Put([3]float32{p.X, p.Y, p.Z})
	}
	for _, q := range a.Rotations {
		w.Put([4]float32{q.X, q.Y, q.Z, q.W})
	}
	w.Put(a.Hashes)

	return w.Err()
}

// ParseAnimation parses a .ani file from a byte slice.
func ParseAnimation(data []byte) (*Animation, error) {
	r := bytes.NewReader(data)

	var magic, version uint32
	if err := readValue(r, &magic); err != nil {
		return nil, err
	}
	if magic != AnimationMagic {
		return nil, ErrBadMagic
	}
	if err := readValue(r, &version); err != nil {
		return nil, err
	}
	if version != AnimationVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	a := &Animation{}
	if err := readValue(r, &a.FPS); err != nil {
		return nil, err
	}
	if err := readValue(r, &a.FrameCount); err != nil {
		return nil, err
	}
	if err := readValue(r, &a.BoneCount); err != nil {
		return nil, err
	}
	if a.FrameCount < 0 || a.BoneCount < 0 {
		return nil, ErrTruncated
	}

	samples := int(a.FrameCount) * int(a.BoneCount)
	if samples*(12+16) > r.Len() {
		return nil, ErrTruncated
	}
	a.Positions = make([]math.Vec3, samples)
	for i := range a.Positions {
		var p [3]float32
		if err := readValue(r, &p); err != nil {
			return nil, err
		}
		a.Positions[i] = math.Vec3{X: p[0], Y: p[1], Z: p[2]}
	}
	a.Rotations = make([]math.Quat, samples)
	for i := range a.Rotations {
		var q [4]float32
		if err := readValue(r, &q); err != nil {
			return nil, err
		}
		a.Rotations[i] = math.Quat{X: q[0], Y: q[1], Z: q[2], W: q[3]}
	}

	a.Hashes = make([]uint32, a.BoneCount)
	if err := readValue(r, a.Hashes); err != nil {
		return nil, err
	}

	return a, nil
}
