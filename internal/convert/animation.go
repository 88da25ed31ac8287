package convert

import (
	"fmt"
	"hash/crc32"

	"github.com/embercraft/assetconv/pkg/asset"
	"github.com/embercraft/assetconv/pkg/math"
	"github.com/embercraft/assetconv/pkg/scene"
)

// DefaultFPS is the playback rate assigned to clips whose source does
// not specify a ticks-per-second value.
const DefaultFPS float32 = 25

// ResampleClip converts one animation clip into dense per-frame pose
// buffers covering every bone in the table. The frame count is the
// clip's duration in ticks, truncated; each channel is sampled at every
// integer frame. Bones without a channel keep a zero position and an
// identity rotation. A channel with no position or no rotation keys is
// a MalformedChannelError; a channel naming a bone absent from the
// table is a NameResolutionError. Both are fatal for the clip only.
func ResampleClip(clip *scene.Animation, table *BoneTable, fallbackFPS float32) (*asset.Animation, error) {
	fps := float32(clip.TicksPerSecond)
	if fps == 0 {
		fps = fallbackFPS
	}
	if fps == 0 {
		fps = DefaultFPS
	}

	frameCount := int32(clip.Duration)
	boneCount := int32(table.Len())

	out := &asset.Animation{
		FPS:        fps,
		FrameCount: frameCount,
		BoneCount:  boneCount,
		Positions:  make([]math.Vec3, int(frameCount)*int(boneCount)),
		Rotations:  make([]math.Quat, int(frameCount)*int(boneCount)),
	}
	for i := range out.Rotations {
		out.Rotations[i] = math.QuatIdentity()
	}

	for _, ch := range clip.Channels {
		boneIndex, ok := table.Lookup(ch.NodeName)
		if !ok {
			return nil, fmt.Errorf("clip %s: channel %q: %w", clip.Name, ch.NodeName, ErrUnknownBone)
		}
		if len(ch.PositionKeys) == 0 {
			return nil, fmt.Errorf("clip %s: channel %q: position keys: %w", clip.Name, ch.NodeName, ErrEmptyChannel)
		}
		if len(ch.RotationKeys) == 0 {
			return nil, fmt.Errorf("clip %s: channel %q: rotation keys: %w", clip.Name, ch.NodeName, ErrEmptyChannel)
		}
		for frame := int32(0); frame < frameCount; frame++ {
			i := int(frame)*int(boneCount) + boneIndex
			out.Positions[i] = samplePosition(ch.PositionKeys, float64(frame))
			out.Rotations[i] = sampleRotation(ch.RotationKeys, float64(frame))
		}
	}

	out.Hashes = make([]uint32, 0, table.Len())
	for _, name := range table.Names {
		out.Hashes = append(out.Hashes, crc32.ChecksumIEEE([]byte(name)))
	}

	return out, nil
}

// samplePosition evaluates the position curve at the given frame. The
// scan stops at the first key whose time reaches the frame and blends
// toward the following key, so t is non-positive for frames between key
// times and the blend extrapolates backward from the stop key. When the
// stop key is the last one its value is returned as-is. This is the
// runtime's key lookup, reproduced exactly.
func samplePosition(keys []scene.PositionKey, frame float64) math.Vec3 {
	i := 0
	for i < len(keys) && frame > keys[i].Time {
		i++
	}
	if i >= len(keys)-1 {
		return keys[len(keys)-1].Value
	}
	k0, k1 := keys[i], keys[i+1]
	t := float32((frame - k0.Time) / (k1.Time - k0.Time))
	return k0.Value.Lerp(k1.Value, t)
}

// sampleRotation is the rotation counterpart of samplePosition, using
// shortest-arc spherical interpolation for the blend.
func sampleRotation(keys []scene.RotationKey, frame float64) math.Quat {
	i := 0
	for i < len(keys) && frame > keys[i].Time {
		i++
	}
	if i >= len(keys)-1 {
		return keys[len(keys)-1].Value
	}
	k0, k1 := keys[i], keys[i+1]
	t := float32((frame - k0.Time) / (k1.Time - k0.Time))
	return k0.Value.Slerp(k1.Value, t)
}
