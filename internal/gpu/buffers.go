package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Buffer names. These are stable keys into BufferSet, matching the roles the
// orchestrator's table of buffers names them by.
const (
	WorldSettingsUniform = "world_settings"
	IndicesMain          = "indices_main"
	IndicesAux           = "indices_aux"
	IndicesBlockSums     = "indices_block_sums"
	PositionsIn          = "positions_in"
	PositionsOut         = "positions_out"
	VelocitiesIn         = "velocities_in"
	VelocitiesOut        = "velocities_out"
	PositionsAux         = "positions_aux"
	VelocitiesAux        = "velocities_aux"

	// ClaimsMain and ClaimsAux are scratch atomic bump-allocators the
	// Re-Pack pass uses to claim a slot within a cell's prefix-sum range
	// without mutating indices_main/indices_aux, which Integration still
	// needs intact later the same tick. They have no counterpart in the
	// original buffer table.
	ClaimsMain = "claims_main"
	ClaimsAux  = "claims_aux"

	// MainBlockSums and AuxBlockSums hold per-workgroup block totals for
	// the two independent prefix-sum scans (main grid, aux grid).
	MainBlockSums = "indices_block_sums_main"
	AuxBlockSums  = "indices_block_sums_aux"

	// ScanParamsMain and ScanParamsAux are the tiny uniform buffers
	// carrying each scan's element count to prefix_sum.wgsl.
	ScanParamsMain = "scan_params_main"
	ScanParamsAux  = "scan_params_aux"
)

// SafeBufferSizeLimit is a soft ceiling past which BufferSet logs a warning
// instead of silently allocating an unreasonably large buffer.
const SafeBufferSizeLimit = 1024 * 1024 * 1024 // 1GB

// BufferSet owns every named GPU buffer the pipeline touches, growing them
// geometrically as the configured particle/cell counts demand more room.
type BufferSet struct {
	device  *wgpu.Device
	log     Logger
	buffers map[string]*wgpu.Buffer
}

func NewBufferSet(device *wgpu.Device, log Logger) *BufferSet {
	if log == nil {
		log = noopLogger{}
	}
	return &BufferSet{device: device, log: log, buffers: make(map[string]*wgpu.Buffer)}
}

// Get returns the current buffer for name, or nil if it has never been
// ensured.
func (s *BufferSet) Get(name string) *wgpu.Buffer { return s.buffers[name] }

// Ensure grows (or creates) the named buffer so it can hold at least
// len(data)+headroom bytes, rounded up to a 4-byte alignment, then writes
// data into it (unless data is nil, in which case an existing buffer's
// content is preserved across a resize via a device-side copy). Growth is
// geometric (1.5x) once a buffer exists, to amortize repeated resizes across
// a session of varying particle counts. Returns true if the buffer was
// (re)allocated this call.
func (s *BufferSet) Ensure(name string, data []byte, usage wgpu.BufferUsage, headroom int) (bool, error) {
	needed := uint64(len(data) + headroom)
	if needed%4 != 0 {
		needed += 4 - (needed % 4)
	}

	usage |= wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
	current := s.buffers[name]

	if current != nil && current.GetSize() >= needed {
		if len(data) > 0 {
			s.device.GetQueue().WriteBuffer(current, 0, data)
		}
		return false, nil
	}

	newSize := needed
	if current != nil {
		grown := uint64(float64(current.GetSize()) * 1.5)
		if grown > newSize {
			newSize = grown
		}
	}
	if newSize > SafeBufferSizeLimit {
		s.log.Warnf("buffer %s allocation size %d exceeds safety limit %d", name, newSize, SafeBufferSizeLimit)
	}

	newBuf, err := s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            name,
		Size:             newSize,
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return false, fmt.Errorf("wrach/gpu: create buffer %s: %w", name, err)
	}

	if current != nil && data == nil {
		encoder, err := s.device.CreateCommandEncoder(nil)
		if err != nil {
			return false, fmt.Errorf("wrach/gpu: resize-copy buffer %s: %w", name, err)
		}
		encoder.CopyBufferToBuffer(current, 0, newBuf, 0, current.GetSize())
		cmdBuf, err := encoder.Finish(nil)
		if err != nil {
			return false, fmt.Errorf("wrach/gpu: finish resize-copy %s: %w", name, err)
		}
		s.device.GetQueue().Submit(cmdBuf)
	}

	if current != nil {
		current.Release()
	}
	s.buffers[name] = newBuf

	if len(data) > 0 {
		s.device.GetQueue().WriteBuffer(newBuf, 0, data)
	}
	return true, nil
}

// Release frees every buffer in the set.
func (s *BufferSet) Release() {
	for _, b := range s.buffers {
		if b != nil {
			b.Release()
		}
	}
	s.buffers = make(map[string]*wgpu.Buffer)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}
