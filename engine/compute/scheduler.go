package compute

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// FlipMode controls when the global parity bit advances.
type FlipMode int

const (
	// FlipModeAuto flips parity once after each complete pass list, so every
	// frame reads the previous frame's textures.
	FlipModeAuto FlipMode = iota

	// FlipModeManual leaves parity under caller control. Used by pipelines
	// whose passes do not map one-to-one onto "one buffer written per frame",
	// such as splatting pipelines that accumulate over many frames before
	// flipping.
	FlipModeManual
)

func (m FlipMode) String() string {
	switch m {
	case FlipModeAuto:
		return "auto-flip"
	case FlipModeManual:
		return "manual-flip"
	default:
		return fmt.Sprintf("FlipMode(%d)", int(m))
	}
}

// Pass describes one dispatch of one compiled entry point within a frame.
type Pass struct {
	// Name is the entry point to dispatch. When it matches a declared buffer
	// name the pass writes that buffer's current write texture; otherwise it
	// writes the final output texture.
	Name string

	// Inputs lists the buffer names the pass reads, in slot order. At most
	// maxPassInputs entries.
	Inputs []string

	// WorkgroupCount overrides the surface-derived dispatch size when non-zero.
	WorkgroupCount [3]uint32
}

// validatePasses checks a pass list against the compiled entry points and the
// declared buffer names. Called once at build; dispatch assumes every name was
// validated here.
//
// Parameters:
//   - passes: the declared pass list, in dispatch order
//   - entryPoints: the compiled entry point names
//   - bufferNames: the declared ping-pong buffer names
//
// Returns:
//   - error: an error naming the first invalid pass
func validatePasses(passes []Pass, entryPoints, bufferNames []string) error {
	if len(passes) == 0 {
		return fmt.Errorf("at least one pass is required")
	}
	eps := make(map[string]bool, len(entryPoints))
	for _, ep := range entryPoints {
		eps[ep] = true
	}
	bufs := make(map[string]bool, len(bufferNames))
	for _, name := range bufferNames {
		bufs[name] = true
	}
	for i, p := range passes {
		if p.Name == "" {
			return fmt.Errorf("pass %d: empty name", i)
		}
		if !eps[p.Name] {
			return fmt.Errorf("pass %d (%q): no compiled entry point with that name", i, p.Name)
		}
		if len(p.Inputs) > maxPassInputs {
			return fmt.Errorf("pass %d (%q): %d inputs declared, at most %d supported", i, p.Name, len(p.Inputs), maxPassInputs)
		}
		for _, dep := range p.Inputs {
			if !bufs[dep] {
				return fmt.Errorf("pass %d (%q): input %q does not name a declared buffer", i, p.Name, dep)
			}
		}
	}
	return nil
}

// workgroupCount returns the number of workgroups needed to cover pixels with
// groups of groupSize invocations.
func workgroupCount(pixels, groupSize uint32) uint32 {
	if groupSize == 0 {
		return pixels
	}
	return (pixels + groupSize - 1) / groupSize
}

// surfaceWorkgroups returns the [x, y, z] workgroup counts covering a
// width x height surface at the given workgroup size.
func surfaceWorkgroups(width, height int, workgroupSize [3]uint32) [3]uint32 {
	return [3]uint32{
		workgroupCount(uint32(width), workgroupSize[0]),
		workgroupCount(uint32(height), workgroupSize[1]),
		1,
	}
}

// scheduler records a frame's pass list into a command encoder. It borrows
// bind groups from the buffer manager and uniform resources for one dispatch
// and never retains them, so a flip or resize is observed on the very next
// frame.
type scheduler struct {
	layouts       *layoutSet
	workgroupSize [3]uint32
}

func newScheduler(layouts *layoutSet, workgroupSize [3]uint32) *scheduler {
	return &scheduler{layouts: layouts, workgroupSize: workgroupSize}
}

// recordPasses encodes every pass in order into one compute pass on the given
// encoder. Parity is not advanced here; the caller flips after the frame when
// running in FlipModeAuto.
//
// Parameters:
//   - encoder: the frame's command encoder
//   - passes: the pass list, in dispatch order
//   - pipelines: the current compiled pipeline set
//   - manager: the ping-pong buffer manager
//   - uniforms: the host-written resources
//   - atomicGroup: the atomic buffer bind group, or nil when not enabled
//
// Returns:
//   - error: an error if any pass references a missing pipeline or bind group
func (s *scheduler) recordPasses(
	encoder *wgpu.CommandEncoder,
	passes []Pass,
	pipelines *compiledPipelines,
	manager BufferManager,
	uniforms *uniformResources,
	atomicGroup *wgpu.BindGroup,
) error {
	cpass := encoder.BeginComputePass(nil)
	defer cpass.Release()

	for _, p := range passes {
		pipe := pipelines.pipeline(p.Name)
		if pipe == nil {
			cpass.End()
			return fmt.Errorf("pass %q has no compiled pipeline", p.Name)
		}
		cpass.SetPipeline(pipe)

		for _, g := range s.layouts.groups {
			var bg *wgpu.BindGroup
			var err error
			switch g.Kind {
			case ResourcePassInput:
				bg, err = manager.PassInputGroup(p.Inputs)
				if err != nil {
					cpass.End()
					return fmt.Errorf("pass %q: %w", p.Name, err)
				}
			case ResourceWriteTarget:
				bg = manager.WriteTargetGroup(p.Name)
			case ResourceAtomic:
				bg = atomicGroup
			default:
				bg = uniforms.group(g.Kind)
			}
			if bg == nil {
				cpass.End()
				return fmt.Errorf("pass %q: no bind group for group %d (%s)", p.Name, g.Group, g.Kind)
			}
			cpass.SetBindGroup(uint32(g.Group), bg, nil)
		}

		wc := p.WorkgroupCount
		if wc == ([3]uint32{}) {
			wc = surfaceWorkgroups(manager.Width(), manager.Height(), s.workgroupSize)
		}
		cpass.DispatchWorkgroups(wc[0], wc[1], wc[2])
	}

	cpass.End()
	return nil
}
