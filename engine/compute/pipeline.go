package compute

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// compiledPipelines holds one GPU compute pipeline per declared entry point,
// all compiled from the same kernel source against the same pipeline layout.
// The whole set is replaced in place by a successful hot reload and never
// partially: all entry points compile or none do.
type compiledPipelines struct {
	byEntry map[string]*wgpu.ComputePipeline
	module  *wgpu.ShaderModule
}

// buildPipelines compiles the kernel against the layout set and creates one
// compute pipeline per declared entry point. Pure function of (kernel, config,
// layouts) beyond GPU object allocation: on any failure every object created so
// far is released and a single named error is returned.
//
// Parameters:
//   - device: the GPU device
//   - label: the debug label prefix
//   - k: the pre-processed kernel
//   - entryPoints: the entry point names to compile, in declared order
//   - layouts: the layout set every pipeline is bound to
//
// Returns:
//   - *compiledPipelines: the compiled pipeline set
//   - error: an error if validation or any pipeline creation fails
func buildPipelines(device *wgpu.Device, label string, k *Kernel, entryPoints []string, layouts *layoutSet) (*compiledPipelines, error) {
	if err := validateEntryPoints(entryPoints, k); err != nil {
		return nil, err
	}

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label + " Kernel",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: k.Source(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create kernel shader module: %w", err)
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label + " Pipeline Layout",
		BindGroupLayouts: layouts.gpu,
	})
	if err != nil {
		module.Release()
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}

	cp := &compiledPipelines{
		byEntry: make(map[string]*wgpu.ComputePipeline, len(entryPoints)),
		module:  module,
	}
	for _, ep := range entryPoints {
		created, pipeErr := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label:  fmt.Sprintf("%s %s Compute Pipeline", label, ep),
			Layout: pipelineLayout,
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     module,
				EntryPoint: ep,
			},
		})
		if pipeErr != nil {
			pipelineLayout.Release()
			cp.release()
			return nil, fmt.Errorf("create compute pipeline for entry point %q: %w", ep, pipeErr)
		}
		cp.byEntry[ep] = created
	}

	// The pipelines hold their own layout reference once created.
	pipelineLayout.Release()

	return cp, nil
}

// pipeline returns the compiled pipeline for the named entry point, or nil.
func (cp *compiledPipelines) pipeline(name string) *wgpu.ComputePipeline {
	return cp.byEntry[name]
}

func (cp *compiledPipelines) release() {
	for ep, p := range cp.byEntry {
		if p != nil {
			p.Release()
		}
		delete(cp.byEntry, ep)
	}
	if cp.module != nil {
		cp.module.Release()
		cp.module = nil
	}
}
