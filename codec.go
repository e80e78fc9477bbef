package wrach

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// vec2SliceToBytes packs a Vec2 slice as tightly-packed little-endian
// float32 pairs, matching WGSL's vec2<f32> storage layout.
func vec2SliceToBytes(vs []mgl32.Vec2) []byte {
	buf := make([]byte, len(vs)*8)
	for i, v := range vs {
		binary.LittleEndian.PutUint32(buf[i*8:], math.Float32bits(v.X()))
		binary.LittleEndian.PutUint32(buf[i*8+4:], math.Float32bits(v.Y()))
	}
	return buf
}

// bytesToVec2Slice is the inverse of vec2SliceToBytes.
func bytesToVec2Slice(b []byte) []mgl32.Vec2 {
	out := make([]mgl32.Vec2, len(b)/8)
	for i := range out {
		x := math.Float32frombits(binary.LittleEndian.Uint32(b[i*8:]))
		y := math.Float32frombits(binary.LittleEndian.Uint32(b[i*8+4:]))
		out[i] = mgl32.Vec2{x, y}
	}
	return out
}
