package wrach

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// WorldSettings is the small uniform block bound by every compute pass. Its
// byte layout mirrors WGSL's std140 rules: two vec2<f32>, one vec2<u32>,
// then four scalar u32s (the last a padding word), for 40 bytes total —
// the struct's alignment is 8 (the widest member, the two vec2s), and 40 is
// a multiple of that.
type WorldSettings struct {
	ViewDimensions         mgl32.Vec2
	ViewAnchor             mgl32.Vec2
	GridDimensions         [2]uint32
	CellSize               uint32
	ParticlesInFrameCount  uint32
	// BoundariesAsDimensions mirrors Config.BoundariesAsDimensions: when
	// non-zero, the Integration pass's viewport reflect/clamp step runs;
	// when zero, particles integrate unbounded and the CPU-side viewport
	// is purely a binning/rendering window, not a physical wall.
	BoundariesAsDimensions uint32
}

// WorldSettingsByteSize is the fixed size, in bytes, of the packed uniform,
// including one trailing padding word after BoundariesAsDimensions.
const WorldSettingsByteSize = 40

// ToBytes packs the settings into the exact layout the WGSL shaders expect.
func (w WorldSettings) ToBytes() []byte {
	buf := make([]byte, WorldSettingsByteSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(w.ViewDimensions.X()))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(w.ViewDimensions.Y()))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(w.ViewAnchor.X()))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(w.ViewAnchor.Y()))
	binary.LittleEndian.PutUint32(buf[16:], w.GridDimensions[0])
	binary.LittleEndian.PutUint32(buf[20:], w.GridDimensions[1])
	binary.LittleEndian.PutUint32(buf[24:], w.CellSize)
	binary.LittleEndian.PutUint32(buf[28:], w.ParticlesInFrameCount)
	binary.LittleEndian.PutUint32(buf[32:], w.BoundariesAsDimensions)
	// buf[36:40] is the trailing padding word, left zero.
	return buf
}

// WorldSettingsFromGrid derives the uniform block for the given grid, the
// number of particles staged for the current frame, and whether the
// viewport rectangle confines particles (Config.BoundariesAsDimensions).
func WorldSettingsFromGrid(grid *Grid, particlesInFrameCount uint32, boundariesAsDimensions bool) WorldSettings {
	var bounded uint32
	if boundariesAsDimensions {
		bounded = 1
	}
	return WorldSettings{
		ViewDimensions:         grid.Dimensions(),
		ViewAnchor:             grid.Anchor(),
		GridDimensions:         [2]uint32{uint32(grid.Width()), uint32(grid.Height())},
		CellSize:               uint32(grid.CellSize()),
		ParticlesInFrameCount:  particlesInFrameCount,
		BoundariesAsDimensions: bounded,
	}
}
