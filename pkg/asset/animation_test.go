package asset

import (
	"bytes"
	"errors"
	"testing"

	"github.com/embercraft/assetconv/pkg/math"
)

func TestAnimationRoundTrip(t *testing.T) {
	want := &Animation{
		FPS:        30,
		FrameCount: 2,
		BoneCount:  2,
		Positions: []math.Vec3{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0},
			{X: 0, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 0},
		},
		Rotations: []math.Quat{
			math.QuatIdentity(), math.QuatIdentity(),
			{X: 0, Y: 0.7071068, Z: 0, W: 0.7071068}, math.QuatIdentity(),
		},
		Hashes: []uint32{0xDEADBEEF, 0x12345678},
	}

	var buf bytes.Buffer
	if err := want.Marshal(&buf); err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := ParseAnimation(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseAnimation: %v", err)
	}

	if got.FPS != 30 || got.FrameCount != 2 || got.BoneCount != 2 {
		t.Errorf("header = fps %g frames %d bones %d", got.FPS, got.FrameCount, got.BoneCount)
	}
	if len(got.Positions) != 4 || got.Positions[3] != (math.Vec3{X: 1, Y: 1, Z: 0}) {
		t.Errorf("positions = %+v", got.Positions)
	}
	if got.Rotations[2] != (math.Quat{X: 0, Y: 0.7071068, Z: 0, W: 0.7071068}) {
		t.Errorf("rotations[2] = %+v", got.Rotations[2])
	}
	if got.Hashes[0] != 0xDEADBEEF || got.Hashes[1] != 0x12345678 {
		t.Errorf("hashes = %v", got.Hashes)
	}
}

func TestParseAnimation_Errors(t *testing.T) {
	var valid bytes.Buffer
	clip := &Animation{
		FPS:        25,
		FrameCount: 1,
		BoneCount:  1,
		Positions:  []math.Vec3{{}},
		Rotations:  []math.Quat{math.QuatIdentity()},
		Hashes:     []uint32{1},
	}
	if err := clip.Marshal(&valid); err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncated},
		{"bad magic", []byte{0, 0, 0, 0, 1, 0, 0, 0}, ErrBadMagic},
		{"truncated frames", valid.Bytes()[:24], ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAnimation(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseAnimation = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
