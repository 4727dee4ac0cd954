package compute

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// maxPassInputs is the number of input texture slots in the fixed pass-input
// bind group. Every pass consumes the same layout; unused slots are filled with
// a valid default texture rather than left unbound. This bound is a contract
// for kernel authors: a pass can read at most three buffers per frame.
const maxPassInputs = 3

// maxChannelTextures is the number of external media slots the channel bind
// group can carry. Each slot is one sampled texture plus one sampler, so the
// bound keeps the group within conservative per-group binding limits.
const maxChannelTextures = 4

// ResourceKind identifies one logical bind group in a kernel program's layout.
// Group indices are assigned in ResourceKind order, skipping kinds the Config
// does not enable, so the kind -> group mapping is a pure function of the Config.
type ResourceKind int

const (
	// ResourceGlobals is the always-present time/frame uniform (group 0).
	ResourceGlobals ResourceKind = iota

	// ResourcePassInput is the fixed multi-input group: maxPassInputs sampled
	// textures at bindings 0..2 and their samplers at bindings 3..5.
	ResourcePassInput

	// ResourceWriteTarget is the write-only storage texture the pass writes.
	ResourceWriteTarget

	// ResourceCustomUniform is the host-supplied parameter uniform.
	ResourceCustomUniform

	// ResourceStorage is the group of extra named storage buffers.
	ResourceStorage

	// ResourceAtomic is the atomic accumulation buffer.
	ResourceAtomic

	// ResourceChannel carries the external media slots: texture at binding 2i
	// and sampler at binding 2i+1 for each declared slot i.
	ResourceChannel

	// ResourceExtras carries the mouse uniform, audio sample buffer, and font
	// atlas when any of those flags are enabled.
	ResourceExtras
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceGlobals:
		return "globals"
	case ResourcePassInput:
		return "pass-input"
	case ResourceWriteTarget:
		return "write-target"
	case ResourceCustomUniform:
		return "custom-uniform"
	case ResourceStorage:
		return "storage"
	case ResourceAtomic:
		return "atomic"
	case ResourceChannel:
		return "channel"
	case ResourceExtras:
		return "extras"
	default:
		return fmt.Sprintf("ResourceKind(%d)", int(k))
	}
}

// Extras group binding indices. Bindings are fixed regardless of which extras
// are enabled so kernel declarations stay stable across configs.
const (
	extrasBindingMouse       = 0
	extrasBindingAudio       = 1
	extrasBindingFontTexture = 2
	extrasBindingFontSampler = 3
)

// GroupLayout pairs a resource kind with its assigned group index and the
// CPU-side layout descriptor the GPU layout is created from.
type GroupLayout struct {
	Kind       ResourceKind
	Group      int
	Descriptor wgpu.BindGroupLayoutDescriptor
}

// DeriveGroupLayouts produces the deterministic bind-group layout set for the
// given config: one GroupLayout per enabled resource kind, group indices
// assigned sequentially in kind order starting at 0. The result is a pure
// function of the config, so the pipeline builder and the per-frame bind logic
// always agree on the mapping.
//
// Parameters:
//   - cfg: the program config (defaults already applied)
//
// Returns:
//   - []GroupLayout: the enabled groups in ascending group order
func DeriveGroupLayouts(cfg Config) []GroupLayout {
	cfg = cfg.withDefaults()
	var groups []GroupLayout
	add := func(kind ResourceKind, entries []wgpu.BindGroupLayoutEntry) {
		groups = append(groups, GroupLayout{
			Kind:  kind,
			Group: len(groups),
			Descriptor: wgpu.BindGroupLayoutDescriptor{
				Label:   fmt.Sprintf("%s %s Layout", cfg.Label, kind),
				Entries: entries,
			},
		})
	}

	add(ResourceGlobals, []wgpu.BindGroupLayoutEntry{
		uniformEntry(0, globalsUniformSize),
	})

	passInput := make([]wgpu.BindGroupLayoutEntry, 0, maxPassInputs*2)
	for i := 0; i < maxPassInputs; i++ {
		passInput = append(passInput, sampledTextureEntry(uint32(i)))
	}
	for i := 0; i < maxPassInputs; i++ {
		passInput = append(passInput, samplerEntry(uint32(maxPassInputs+i)))
	}
	add(ResourcePassInput, passInput)

	add(ResourceWriteTarget, []wgpu.BindGroupLayoutEntry{
		storageTextureEntry(0, cfg.OutputFormat),
	})

	if cfg.CustomUniformSize > 0 {
		add(ResourceCustomUniform, []wgpu.BindGroupLayoutEntry{
			uniformEntry(0, cfg.CustomUniformSize),
		})
	}

	if len(cfg.StorageBuffers) > 0 {
		entries := make([]wgpu.BindGroupLayoutEntry, len(cfg.StorageBuffers))
		for i, sb := range cfg.StorageBuffers {
			entries[i] = storageBufferEntry(uint32(i), sb.Size)
		}
		add(ResourceStorage, entries)
	}

	if cfg.AtomicBufferMultiples > 0 {
		add(ResourceAtomic, []wgpu.BindGroupLayoutEntry{
			storageBufferEntry(0, 4), // array<atomic<u32>>, runtime sized
		})
	}

	if cfg.ChannelTextures > 0 {
		entries := make([]wgpu.BindGroupLayoutEntry, 0, cfg.ChannelTextures*2)
		for i := uint32(0); i < cfg.ChannelTextures; i++ {
			entries = append(entries, sampledTextureEntry(2*i), samplerEntry(2*i+1))
		}
		add(ResourceChannel, entries)
	}

	if cfg.MouseUniform || cfg.AudioSamples > 0 || cfg.FontAtlas {
		var entries []wgpu.BindGroupLayoutEntry
		if cfg.MouseUniform {
			entries = append(entries, uniformEntry(extrasBindingMouse, mouseUniformSize))
		}
		if cfg.AudioSamples > 0 {
			entries = append(entries, storageBufferEntry(extrasBindingAudio, uint64(cfg.AudioSamples)*4))
		}
		if cfg.FontAtlas {
			entries = append(entries,
				sampledTextureEntry(extrasBindingFontTexture),
				samplerEntry(extrasBindingFontSampler))
		}
		add(ResourceExtras, entries)
	}

	return groups
}

func uniformEntry(binding uint32, size uint64) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		Buffer: wgpu.BufferBindingLayout{
			Type:           wgpu.BufferBindingTypeUniform,
			MinBindingSize: size,
		},
	}
}

func storageBufferEntry(binding uint32, minSize uint64) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		Buffer: wgpu.BufferBindingLayout{
			Type:           wgpu.BufferBindingTypeStorage,
			MinBindingSize: minSize,
		},
	}
}

func sampledTextureEntry(binding uint32) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		Texture: wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeFloat,
			ViewDimension: wgpu.TextureViewDimension2D,
		},
	}
}

func samplerEntry(binding uint32) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		Sampler: wgpu.SamplerBindingLayout{
			Type: wgpu.SamplerBindingTypeFiltering,
		},
	}
}

func storageTextureEntry(binding uint32, format wgpu.TextureFormat) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		StorageTexture: wgpu.StorageTextureBindingLayout{
			Access:        wgpu.StorageTextureAccessWriteOnly,
			Format:        format,
			ViewDimension: wgpu.TextureViewDimension2D,
		},
	}
}

// layoutSet owns the GPU bind group layouts and the pipeline layout derived
// from a config. Created once at program build; layouts are stable across hot
// reloads so recompiled pipelines stay compatible with live bind groups.
type layoutSet struct {
	groups []GroupLayout
	index  map[ResourceKind]int
	gpu    []*wgpu.BindGroupLayout
}

// newLayoutSet creates the GPU layout objects for every derived group.
func newLayoutSet(device *wgpu.Device, cfg Config) (*layoutSet, error) {
	ls := &layoutSet{
		groups: DeriveGroupLayouts(cfg),
		index:  make(map[ResourceKind]int),
	}
	ls.gpu = make([]*wgpu.BindGroupLayout, len(ls.groups))
	for i, g := range ls.groups {
		layout, err := device.CreateBindGroupLayout(&g.Descriptor)
		if err != nil {
			ls.release()
			return nil, fmt.Errorf("create bind group layout for group %d (%s): %w", g.Group, g.Kind, err)
		}
		ls.gpu[i] = layout
		ls.index[g.Kind] = i
	}
	return ls, nil
}

// groupIndex returns the group index assigned to kind, or false when the
// config did not enable it.
func (ls *layoutSet) groupIndex(kind ResourceKind) (int, bool) {
	i, ok := ls.index[kind]
	return i, ok
}

// layout returns the GPU layout for kind, or nil when not enabled.
func (ls *layoutSet) layout(kind ResourceKind) *wgpu.BindGroupLayout {
	i, ok := ls.index[kind]
	if !ok {
		return nil
	}
	return ls.gpu[i]
}

func (ls *layoutSet) release() {
	for i, l := range ls.gpu {
		if l != nil {
			l.Release()
			ls.gpu[i] = nil
		}
	}
}
