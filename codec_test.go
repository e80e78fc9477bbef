package wrach

import (
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestVec2Codec_RoundTrip(t *testing.T) {
	in := []mgl32.Vec2{{1.5, -2.25}, {0, 0}, {1e6, -1e6}}
	got := bytesToVec2Slice(vec2SliceToBytes(in))
	if !reflect.DeepEqual(got, in) {
		t.Errorf("round trip = %v, want %v", got, in)
	}
}

func TestVec2Codec_Empty(t *testing.T) {
	got := bytesToVec2Slice(vec2SliceToBytes(nil))
	if len(got) != 0 {
		t.Errorf("len(got) = %d, want 0", len(got))
	}
}
