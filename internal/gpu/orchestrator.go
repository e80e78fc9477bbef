package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// TickInput is everything the orchestrator needs to run one tick's four
// passes: the freshly-uploaded particle data and the grid metadata that
// sizes every buffer and dispatch.
type TickInput struct {
	WorldSettings   []byte // 40-byte WorldSettings.ToBytes()
	Positions       []byte // packed vec2<f32> for every uploaded particle
	Velocities      []byte
	ParticleCount   int64
	MainCells       int64
	AuxCells        int64
	MainSlots       int64 // CellCounts.IndicesSlots for the main grid
	AuxSlots        int64 // CellCounts.IndicesSlots for the aux grid
	SkipIntegration bool
	FreshBuffers    bool // true on the first tick or after a resize: force a zero-fill of the bin counters
}

// TickOutput is the host-visible result of a tick: the main indices buffer
// (so the CPU can rebuild its own bucket layout) and the physically
// authoritative positions/velocities.
type TickOutput struct {
	Indices    []uint32
	Positions  []byte
	Velocities []byte
}

// Orchestrator owns the device, the named buffer set and the compute
// pipelines, and drives one tick's Count -> Prefix Sum -> Re-Pack ->
// Integration sequence.
type Orchestrator struct {
	device    *Device
	buffers   *BufferSet
	pipelines *Pipelines
	log       Logger
}

func NewOrchestrator(device *Device, log Logger) (*Orchestrator, error) {
	if log == nil {
		log = noopLogger{}
	}
	pipelines, err := NewPipelines(device.Device)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		device:    device,
		buffers:   NewBufferSet(device.Device, log),
		pipelines: pipelines,
		log:       log,
	}, nil
}

func (o *Orchestrator) Release() {
	if o == nil {
		return
	}
	o.pipelines.Release()
	o.buffers.Release()
}

func scanParamsBytes(length int64) []byte {
	buf := make([]byte, 16) // padded: WGSL uniform bindings round up to 16-byte alignment
	binary.LittleEndian.PutUint32(buf[0:4], uint32(length))
	return buf
}

// RunTick uploads in.Positions/Velocities/WorldSettings, runs the four
// passes, and reads back the authoritative positions/velocities plus the
// main indices buffer.
func (o *Orchestrator) RunTick(in TickInput) (*TickOutput, error) {
	auxCapacity := in.ParticleCount * 4

	if _, err := o.buffers.Ensure(WorldSettingsUniform, in.WorldSettings, wgpu.BufferUsageUniform, 0); err != nil {
		return nil, err
	}
	if _, err := o.buffers.Ensure(PositionsOut, in.Positions, wgpu.BufferUsageStorage, 0); err != nil {
		return nil, err
	}
	if _, err := o.buffers.Ensure(VelocitiesOut, in.Velocities, wgpu.BufferUsageStorage, 0); err != nil {
		return nil, err
	}
	if _, err := o.buffers.Ensure(PositionsIn, nil, wgpu.BufferUsageStorage, int(in.ParticleCount*8)); err != nil {
		return nil, err
	}
	if _, err := o.buffers.Ensure(VelocitiesIn, nil, wgpu.BufferUsageStorage, int(in.ParticleCount*8)); err != nil {
		return nil, err
	}
	if _, err := o.buffers.Ensure(PositionsAux, nil, wgpu.BufferUsageStorage, int(auxCapacity*8)); err != nil {
		return nil, err
	}
	if _, err := o.buffers.Ensure(VelocitiesAux, nil, wgpu.BufferUsageStorage, int(auxCapacity*8)); err != nil {
		return nil, err
	}

	mainBytes := int(in.MainSlots * 4)
	auxBytes := int(in.AuxSlots * 4)
	var mainData, auxData []byte
	if in.FreshBuffers {
		mainData = make([]byte, mainBytes)
		auxData = make([]byte, auxBytes)
	}
	if _, err := o.buffers.Ensure(IndicesMain, mainData, wgpu.BufferUsageStorage, mainBytes); err != nil {
		return nil, err
	}
	if _, err := o.buffers.Ensure(IndicesAux, auxData, wgpu.BufferUsageStorage, auxBytes); err != nil {
		return nil, err
	}

	// Claims scratch buffers are reset to zero every tick: they are pure
	// bump-allocator counters local to this tick's Re-Pack pass.
	claimsMainZero := make([]byte, in.MainCells*4)
	claimsAuxZero := make([]byte, in.AuxCells*4)
	if _, err := o.buffers.Ensure(ClaimsMain, claimsMainZero, wgpu.BufferUsageStorage, 0); err != nil {
		return nil, err
	}
	if _, err := o.buffers.Ensure(ClaimsAux, claimsAuxZero, wgpu.BufferUsageStorage, 0); err != nil {
		return nil, err
	}

	mainBlocks := PrefixSumWorkgroups(in.MainSlots)
	auxBlocks := PrefixSumWorkgroups(in.AuxSlots)
	if _, err := o.buffers.Ensure(MainBlockSums, nil, wgpu.BufferUsageStorage, int(mainBlocks*4)); err != nil {
		return nil, err
	}
	if _, err := o.buffers.Ensure(AuxBlockSums, nil, wgpu.BufferUsageStorage, int(auxBlocks*4)); err != nil {
		return nil, err
	}
	if _, err := o.buffers.Ensure(ScanParamsMain, scanParamsBytes(in.MainSlots), wgpu.BufferUsageUniform, 0); err != nil {
		return nil, err
	}
	if _, err := o.buffers.Ensure(ScanParamsAux, scanParamsBytes(in.AuxSlots), wgpu.BufferUsageUniform, 0); err != nil {
		return nil, err
	}

	encoder, err := o.device.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("wrach/gpu: create tick encoder: %w", err)
	}

	o.dispatchCount(encoder, in.ParticleCount)
	if err := o.dispatchPrefixSum(encoder, IndicesMain, MainBlockSums, ScanParamsMain, in.MainSlots); err != nil {
		return nil, err
	}
	if err := o.dispatchPrefixSum(encoder, IndicesAux, AuxBlockSums, ScanParamsAux, in.AuxSlots); err != nil {
		return nil, err
	}
	o.dispatchRepack(encoder, in.ParticleCount)
	if !in.SkipIntegration {
		o.dispatchIntegration(encoder, in.MainCells)
	}

	cmdBuf, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("wrach/gpu: finish tick commands: %w", err)
	}
	o.device.Queue.Submit(cmdBuf)

	out, err := o.readback(in, mainBytes)
	if err != nil {
		return nil, err
	}

	if in.SkipIntegration {
		// Integration normally self-resets the counters it owns. With it
		// excluded, the CPU must clear them before the next Count pass. The
		// clear comes after the readback so the returned indices are this
		// tick's prefix sum, not zeros.
		if _, err := o.buffers.Ensure(IndicesMain, make([]byte, mainBytes), wgpu.BufferUsageStorage, mainBytes); err != nil {
			return nil, err
		}
		if _, err := o.buffers.Ensure(IndicesAux, make([]byte, auxBytes), wgpu.BufferUsageStorage, auxBytes); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (o *Orchestrator) dispatchCount(encoder *wgpu.CommandEncoder, particleCount int64) {
	layout := o.pipelines.Count.GetBindGroupLayout(0)
	bg, _ := o.device.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "count",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: o.buffers.Get(WorldSettingsUniform), Size: wgpu.WholeSize},
			{Binding: 1, Buffer: o.buffers.Get(PositionsOut), Size: wgpu.WholeSize},
			{Binding: 2, Buffer: o.buffers.Get(IndicesMain), Size: wgpu.WholeSize},
			{Binding: 3, Buffer: o.buffers.Get(IndicesAux), Size: wgpu.WholeSize},
		},
	})
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(o.pipelines.Count)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups(uint32(CountWorkgroups(particleCount)), 1, 1)
	pass.End()
}

// dispatchPrefixSum runs the two-stage scan described in prefix_sum.wgsl
// over dataName (length elements), using blockSumsName/scanParamsName as
// its own per-block bookkeeping. When there is more than one block it
// recurses one level into scratch buffers to scan the block sums
// themselves before folding them back in.
func (o *Orchestrator) dispatchPrefixSum(encoder *wgpu.CommandEncoder, dataName, blockSumsName, scanParamsName string, length int64) error {
	numBlocks := PrefixSumWorkgroups(length)

	o.dispatchReduceDownsweep(encoder, dataName, blockSumsName, scanParamsName, numBlocks)

	if numBlocks <= 1 {
		return nil
	}

	scratchBlockSums := "scratch_bs_" + dataName
	scratchScanParams := "scratch_sp_" + dataName
	if _, err := o.buffers.Ensure(scratchBlockSums, nil, wgpu.BufferUsageStorage, int(numBlocks*4)+4); err != nil {
		return err
	}
	if _, err := o.buffers.Ensure(scratchScanParams, scanParamsBytes(numBlocks), wgpu.BufferUsageUniform, 0); err != nil {
		return err
	}
	// numBlocks = PrefixSumWorkgroups(length) is bounded by
	// MaxCellsForPrefixSumPipeline / PrefixSumItemsPerWorkgroup, which is
	// exactly PrefixSumItemsPerWorkgroup itself, because NewCellCounts
	// rejects any indices buffer (length here) longer than
	// MaxCellsForPrefixSumPipeline. This second-level scan therefore always
	// fits in a single reduce_downsweep workgroup, so no third level is
	// ever required.
	o.dispatchReduceDownsweep(encoder, blockSumsName, scratchBlockSums, scratchScanParams, 1)
	o.dispatchAddBlockSums(encoder, dataName, blockSumsName, scanParamsName, numBlocks)
	return nil
}

func (o *Orchestrator) dispatchReduceDownsweep(encoder *wgpu.CommandEncoder, dataName, blockSumsName, scanParamsName string, workgroups int64) {
	layout := o.pipelines.ReduceDownsweep.GetBindGroupLayout(0)
	bg, _ := o.device.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "reduce_downsweep:" + dataName,
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: o.buffers.Get(dataName), Size: wgpu.WholeSize},
			{Binding: 1, Buffer: o.buffers.Get(blockSumsName), Size: wgpu.WholeSize},
			{Binding: 2, Buffer: o.buffers.Get(scanParamsName), Size: wgpu.WholeSize},
		},
	})
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(o.pipelines.ReduceDownsweep)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups(uint32(workgroups), 1, 1)
	pass.End()
}

func (o *Orchestrator) dispatchAddBlockSums(encoder *wgpu.CommandEncoder, dataName, blockSumsName, scanParamsName string, workgroups int64) {
	layout := o.pipelines.AddBlockSums.GetBindGroupLayout(0)
	bg, _ := o.device.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "add_block_sums:" + dataName,
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: o.buffers.Get(dataName), Size: wgpu.WholeSize},
			{Binding: 1, Buffer: o.buffers.Get(blockSumsName), Size: wgpu.WholeSize},
			{Binding: 2, Buffer: o.buffers.Get(scanParamsName), Size: wgpu.WholeSize},
		},
	})
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(o.pipelines.AddBlockSums)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups(uint32(workgroups), 1, 1)
	pass.End()
}

func (o *Orchestrator) dispatchRepack(encoder *wgpu.CommandEncoder, particleCount int64) {
	layout := o.pipelines.Repack.GetBindGroupLayout(0)
	bg, _ := o.device.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "repack",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: o.buffers.Get(WorldSettingsUniform), Size: wgpu.WholeSize},
			{Binding: 1, Buffer: o.buffers.Get(IndicesMain), Size: wgpu.WholeSize},
			{Binding: 2, Buffer: o.buffers.Get(PositionsOut), Size: wgpu.WholeSize},
			{Binding: 3, Buffer: o.buffers.Get(VelocitiesOut), Size: wgpu.WholeSize},
			{Binding: 4, Buffer: o.buffers.Get(PositionsIn), Size: wgpu.WholeSize},
			{Binding: 5, Buffer: o.buffers.Get(VelocitiesIn), Size: wgpu.WholeSize},
			{Binding: 6, Buffer: o.buffers.Get(IndicesAux), Size: wgpu.WholeSize},
			{Binding: 7, Buffer: o.buffers.Get(PositionsAux), Size: wgpu.WholeSize},
			{Binding: 8, Buffer: o.buffers.Get(VelocitiesAux), Size: wgpu.WholeSize},
			{Binding: 9, Buffer: o.buffers.Get(ClaimsMain), Size: wgpu.WholeSize},
			{Binding: 10, Buffer: o.buffers.Get(ClaimsAux), Size: wgpu.WholeSize},
		},
	})
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(o.pipelines.Repack)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups(uint32(CountWorkgroups(particleCount)), 1, 1)
	pass.End()
}

func (o *Orchestrator) dispatchIntegration(encoder *wgpu.CommandEncoder, mainCells int64) {
	layout := o.pipelines.Integration.GetBindGroupLayout(0)
	bg, _ := o.device.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "integration",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: o.buffers.Get(WorldSettingsUniform), Size: wgpu.WholeSize},
			{Binding: 1, Buffer: o.buffers.Get(IndicesMain), Size: wgpu.WholeSize},
			{Binding: 2, Buffer: o.buffers.Get(PositionsIn), Size: wgpu.WholeSize},
			{Binding: 3, Buffer: o.buffers.Get(PositionsOut), Size: wgpu.WholeSize},
			{Binding: 4, Buffer: o.buffers.Get(VelocitiesIn), Size: wgpu.WholeSize},
			{Binding: 5, Buffer: o.buffers.Get(VelocitiesOut), Size: wgpu.WholeSize},
			{Binding: 6, Buffer: o.buffers.Get(IndicesAux), Size: wgpu.WholeSize},
			{Binding: 7, Buffer: o.buffers.Get(PositionsAux), Size: wgpu.WholeSize},
			{Binding: 8, Buffer: o.buffers.Get(VelocitiesAux), Size: wgpu.WholeSize},
		},
	})
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(o.pipelines.Integration)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups(uint32(mainCells), 1, 1)
	pass.End()
}

// readback maps indices_main, positions_out and velocities_out back to the
// CPU via a staging copy, following the map/poll/get-range/unmap pattern
// the teacher uses for its Hi-Z readback.
func (o *Orchestrator) readback(in TickInput, mainBytes int) (*TickOutput, error) {
	posBytes := int(in.ParticleCount * 8)

	indicesStaging, err := o.stagingCopy(IndicesMain, mainBytes)
	if err != nil {
		return nil, err
	}
	defer indicesStaging.Release()
	posStaging, err := o.stagingCopy(PositionsOut, posBytes)
	if err != nil {
		return nil, err
	}
	defer posStaging.Release()
	velStaging, err := o.stagingCopy(VelocitiesOut, posBytes)
	if err != nil {
		return nil, err
	}
	defer velStaging.Release()

	indicesRaw, err := o.mapAndCopy(indicesStaging, uint64(mainBytes))
	if err != nil {
		return nil, err
	}
	posRaw, err := o.mapAndCopy(posStaging, uint64(posBytes))
	if err != nil {
		return nil, err
	}
	velRaw, err := o.mapAndCopy(velStaging, uint64(posBytes))
	if err != nil {
		return nil, err
	}

	indices := make([]uint32, mainBytes/4)
	for i := range indices {
		indices[i] = binary.LittleEndian.Uint32(indicesRaw[i*4 : i*4+4])
	}

	return &TickOutput{Indices: indices, Positions: posRaw, Velocities: velRaw}, nil
}

func (o *Orchestrator) stagingCopy(srcName string, size int) (*wgpu.Buffer, error) {
	staging, err := o.device.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: srcName + ":staging",
		Size:  uint64(size),
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("wrach/gpu: create staging buffer for %s: %w", srcName, err)
	}
	encoder, err := o.device.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("wrach/gpu: create readback encoder for %s: %w", srcName, err)
	}
	encoder.CopyBufferToBuffer(o.buffers.Get(srcName), 0, staging, 0, uint64(size))
	cmdBuf, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("wrach/gpu: finish readback copy for %s: %w", srcName, err)
	}
	o.device.Queue.Submit(cmdBuf)
	return staging, nil
}

func (o *Orchestrator) mapAndCopy(buf *wgpu.Buffer, size uint64) ([]byte, error) {
	var mapErr error
	mapped := false
	buf.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("%w: map status %d", ErrDeviceLost, status)
			return
		}
		mapped = true
	})
	for !mapped && mapErr == nil {
		o.device.Device.Poll(true, nil)
	}
	if mapErr != nil {
		return nil, mapErr
	}
	view := buf.GetMappedRange(0, uint(size))
	out := make([]byte, size)
	copy(out, view)
	buf.Unmap()
	return out, nil
}
