package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/tombh/wrach-go/internal/shaders"
)

// Pipelines holds the five compute pipelines the tick loop dispatches:
// Count, the prefix sum's two entry points, Re-Pack and Integration. Bind
// group layouts are auto-derived from each shader module, mirroring the
// teacher's HiZ pipeline, which never supplies an explicit Layout either.
type Pipelines struct {
	Count             *wgpu.ComputePipeline
	ReduceDownsweep   *wgpu.ComputePipeline
	AddBlockSums      *wgpu.ComputePipeline
	Repack            *wgpu.ComputePipeline
	Integration       *wgpu.ComputePipeline
	countModule       *wgpu.ShaderModule
	prefixSumModule   *wgpu.ShaderModule
	repackModule      *wgpu.ShaderModule
	integrationModule *wgpu.ShaderModule
}

// NewPipelines compiles the four embedded WGSL modules and builds the five
// compute pipelines from them.
func NewPipelines(device *wgpu.Device) (*Pipelines, error) {
	p := &Pipelines{}

	var err error
	p.countModule, err = device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "count",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.CountWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("wrach/gpu: compile count.wgsl: %w", err)
	}
	p.Count, err = device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "count",
		Compute: wgpu.ProgrammableStageDescriptor{Module: p.countModule, EntryPoint: "main"},
	})
	if err != nil {
		return nil, fmt.Errorf("wrach/gpu: create count pipeline: %w", err)
	}

	p.prefixSumModule, err = device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "prefix_sum",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.PrefixSumWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("wrach/gpu: compile prefix_sum.wgsl: %w", err)
	}
	p.ReduceDownsweep, err = device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "reduce_downsweep",
		Compute: wgpu.ProgrammableStageDescriptor{Module: p.prefixSumModule, EntryPoint: "reduce_downsweep"},
	})
	if err != nil {
		return nil, fmt.Errorf("wrach/gpu: create reduce_downsweep pipeline: %w", err)
	}
	p.AddBlockSums, err = device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "add_block_sums",
		Compute: wgpu.ProgrammableStageDescriptor{Module: p.prefixSumModule, EntryPoint: "add_block_sums"},
	})
	if err != nil {
		return nil, fmt.Errorf("wrach/gpu: create add_block_sums pipeline: %w", err)
	}

	p.repackModule, err = device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "repack",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.RepackWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("wrach/gpu: compile repack.wgsl: %w", err)
	}
	p.Repack, err = device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "repack",
		Compute: wgpu.ProgrammableStageDescriptor{Module: p.repackModule, EntryPoint: "main"},
	})
	if err != nil {
		return nil, fmt.Errorf("wrach/gpu: create repack pipeline: %w", err)
	}

	p.integrationModule, err = device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "integration",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.IntegrationWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("wrach/gpu: compile integration.wgsl: %w", err)
	}
	p.Integration, err = device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "integration",
		Compute: wgpu.ProgrammableStageDescriptor{Module: p.integrationModule, EntryPoint: "main"},
	})
	if err != nil {
		return nil, fmt.Errorf("wrach/gpu: create integration pipeline: %w", err)
	}

	return p, nil
}

// Release frees the pipelines' backing shader modules. The pipelines
// themselves are owned by the wgpu device and released with it.
func (p *Pipelines) Release() {
	if p == nil {
		return
	}
	if p.countModule != nil {
		p.countModule.Release()
	}
	if p.prefixSumModule != nil {
		p.prefixSumModule.Release()
	}
	if p.repackModule != nil {
		p.repackModule.Release()
	}
	if p.integrationModule != nil {
		p.integrationModule.Release()
	}
}
