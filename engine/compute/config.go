// Package compute implements the GPU compute-orchestration core: declarative
// multi-pass kernel pipelines, automatic bind-group-layout derivation, double
// buffered ("ping-pong") intermediate textures, atomic accumulation buffers for
// splatting kernels, and live kernel hot-reload that preserves buffer state.
package compute

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// StorageBufferSpec declares one extra named storage buffer made visible to every
// kernel entry point in the storage bind group.
type StorageBufferSpec struct {
	// Label is the debug label and lookup name for this buffer.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage is ORed into the base storage usage (Storage | CopyDst). Add CopySrc
	// for buffers that need to be read back to the host.
	Usage wgpu.BufferUsage
}

// Config declares every resource a kernel program needs before it is built.
// It is consumed once by NewProgram; rebuilding with different resources requires
// a new Config and a new Program.
type Config struct {
	// Label is a free-text debug label prefixed onto GPU object labels.
	Label string

	// EntryPoints lists the @compute function names to compile, in declared order.
	// When no explicit pass list is provided the list order is the dispatch order.
	EntryPoints []string

	// WorkgroupSize is the [x, y, z] workgroup size the kernels are written
	// against. Used for surface-sized dispatch math. Defaults to [16, 16, 1].
	WorkgroupSize [3]uint32

	// OutputFormat is the texture format of every ping-pong texture and the
	// final output texture. Defaults to RGBA16Float.
	OutputFormat wgpu.TextureFormat

	// AddressMode and FilterMode configure the shared linear sampler bound to
	// every pass-input slot. Defaults: ClampToEdge, Linear.
	AddressMode wgpu.AddressMode
	FilterMode  wgpu.FilterMode

	// CustomUniformSize enables the custom parameter uniform group when > 0.
	// The value is the uniform struct size in bytes as laid out in WGSL.
	CustomUniformSize uint64

	// StorageBuffers declares extra named storage buffers, bound in declared
	// order within one storage bind group.
	StorageBuffers []StorageBufferSpec

	// AtomicBufferMultiples enables the atomic accumulation buffer when > 0.
	// The buffer holds width*height*AtomicBufferMultiples atomic u32 cells.
	AtomicBufferMultiples uint32

	// ChannelTextures is the number of external media input slots (each a
	// texture + sampler pair supplied by the host via UpdateChannelTexture).
	// 0 disables the channel group; at most maxChannelTextures slots.
	ChannelTextures uint32

	// MouseUniform enables the mouse uniform in the extras group.
	MouseUniform bool

	// AudioSamples enables the audio sample storage buffer in the extras group
	// when > 0. The value is the number of float32 samples the host supplies.
	AudioSamples uint32

	// FontAtlas enables the font atlas texture + sampler in the extras group.
	// The atlas itself is supplied by the host via SetFontAtlas.
	FontAtlas bool
}

// withDefaults returns a copy of the config with zero-valued tunables replaced
// by their documented defaults.
func (c Config) withDefaults() Config {
	if c.WorkgroupSize == ([3]uint32{}) {
		c.WorkgroupSize = [3]uint32{16, 16, 1}
	}
	for i := range c.WorkgroupSize {
		if c.WorkgroupSize[i] == 0 {
			c.WorkgroupSize[i] = 1
		}
	}
	if c.OutputFormat == wgpu.TextureFormatUndefined {
		c.OutputFormat = wgpu.TextureFormatRGBA16Float
	}
	if c.AddressMode == wgpu.AddressMode(0) {
		c.AddressMode = wgpu.AddressModeClampToEdge
	}
	if c.FilterMode == wgpu.FilterMode(0) {
		c.FilterMode = wgpu.FilterModeLinear
	}
	return c
}

// validate reports configuration errors that make the program unbuildable.
func (c Config) validate() error {
	if len(c.EntryPoints) == 0 {
		return fmt.Errorf("config %q: at least one entry point is required", c.Label)
	}
	seen := make(map[string]bool, len(c.EntryPoints))
	for _, ep := range c.EntryPoints {
		if ep == "" {
			return fmt.Errorf("config %q: empty entry point name", c.Label)
		}
		if seen[ep] {
			return fmt.Errorf("config %q: duplicate entry point %q", c.Label, ep)
		}
		seen[ep] = true
	}
	for i, sb := range c.StorageBuffers {
		if sb.Size == 0 {
			return fmt.Errorf("config %q: storage buffer %d (%q) has zero size", c.Label, i, sb.Label)
		}
	}
	if c.ChannelTextures > maxChannelTextures {
		return fmt.Errorf("config %q: %d channel textures requested, at most %d are supported", c.Label, c.ChannelTextures, maxChannelTextures)
	}
	return nil
}
