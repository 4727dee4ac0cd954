package compute

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Globals is the always-present group 0 uniform. Field order and padding must
// match the WGSL Globals struct injected by the pre-processor byte for byte.
type Globals struct {
	// Time is seconds since the program started.
	Time float32

	// Delta is seconds since the previous frame.
	Delta float32

	// Frame is the running frame counter.
	Frame uint32

	Pad0 uint32
}

// Mouse is the pointer-state uniform bound in the extras group when enabled.
// Field order and padding must match the WGSL Mouse struct byte for byte.
type Mouse struct {
	// Pos is the cursor position in normalized [0, 1] surface coordinates,
	// origin top-left. Hosts divide pixel coordinates by the surface size so
	// kernels can compare against UVs directly.
	Pos [2]float32

	// Buttons is a bitmask of pressed buttons (bit 0 left, bit 1 right, bit 2 middle).
	Buttons uint32

	Pad0 uint32
}

// WGSL-side uniform struct sizes in bytes.
const (
	globalsUniformSize = 16
	mouseUniformSize   = 16
)

// uniformResources owns every host-written bind group of a program: the globals
// uniform, the optional custom parameter uniform, the named storage buffers,
// the indexed channel texture slots, and the extras group (mouse, audio, font
// atlas). The ping-pong textures and the atomic buffer are owned elsewhere;
// this type only covers resources whose contents the host writes directly.
type uniformResources struct {
	device  *wgpu.Device
	queue   *wgpu.Queue
	cfg     Config
	layouts *layoutSet

	globalsBuffer *wgpu.Buffer
	globalsGroup  *wgpu.BindGroup

	customBuffer *wgpu.Buffer
	customGroup  *wgpu.BindGroup

	storageBuffers []*wgpu.Buffer
	storageGroup   *wgpu.BindGroup

	mouseBuffer *wgpu.Buffer
	audioBuffer *wgpu.Buffer
	fontTexture *wgpu.Texture
	fontView    *wgpu.TextureView
	fontSampler *wgpu.Sampler
	extrasGroup *wgpu.BindGroup

	channelTextures []*wgpu.Texture
	channelViews    []*wgpu.TextureView
	channelSamplers []*wgpu.Sampler
	channelGroup    *wgpu.BindGroup
}

// newUniformResources allocates every enabled host-written resource and its
// bind group. Texture-backed slots (channel, font atlas) start as 1x1
// placeholders so every derived group is bindable before the host supplies
// real content.
func newUniformResources(device *wgpu.Device, queue *wgpu.Queue, cfg Config, layouts *layoutSet) (*uniformResources, error) {
	ur := &uniformResources{
		device:  device,
		queue:   queue,
		cfg:     cfg,
		layouts: layouts,
	}
	if err := ur.init(); err != nil {
		ur.release()
		return nil, err
	}
	return ur, nil
}

func (ur *uniformResources) init() error {
	var err error

	ur.globalsBuffer, err = ur.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: ur.cfg.Label + " Globals Uniform",
		Size:  globalsUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create globals uniform buffer: %w", err)
	}
	ur.globalsGroup, err = ur.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  ur.cfg.Label + " Globals Bind Group",
		Layout: ur.layouts.layout(ResourceGlobals),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: ur.globalsBuffer, Size: globalsUniformSize},
		},
	})
	if err != nil {
		return fmt.Errorf("create globals bind group: %w", err)
	}

	if ur.cfg.CustomUniformSize > 0 {
		ur.customBuffer, err = ur.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: ur.cfg.Label + " Params Uniform",
			Size:  ur.cfg.CustomUniformSize,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create params uniform buffer: %w", err)
		}
		ur.customGroup, err = ur.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  ur.cfg.Label + " Params Bind Group",
			Layout: ur.layouts.layout(ResourceCustomUniform),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: ur.customBuffer, Size: ur.cfg.CustomUniformSize},
			},
		})
		if err != nil {
			return fmt.Errorf("create params bind group: %w", err)
		}
	}

	if len(ur.cfg.StorageBuffers) > 0 {
		entries := make([]wgpu.BindGroupEntry, len(ur.cfg.StorageBuffers))
		for i, spec := range ur.cfg.StorageBuffers {
			buf, bufErr := ur.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: fmt.Sprintf("%s Storage %s", ur.cfg.Label, spec.Label),
				Size:  spec.Size,
				Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | spec.Usage,
			})
			if bufErr != nil {
				return fmt.Errorf("create storage buffer %q: %w", spec.Label, bufErr)
			}
			ur.storageBuffers = append(ur.storageBuffers, buf)
			entries[i] = wgpu.BindGroupEntry{Binding: uint32(i), Buffer: buf, Size: spec.Size}
		}
		ur.storageGroup, err = ur.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   ur.cfg.Label + " Storage Bind Group",
			Layout:  ur.layouts.layout(ResourceStorage),
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("create storage bind group: %w", err)
		}
	}

	if ur.cfg.ChannelTextures > 0 {
		for i := uint32(0); i < ur.cfg.ChannelTextures; i++ {
			tex, view, texErr := ur.createPlaceholderTexture(fmt.Sprintf("%s Channel %d", ur.cfg.Label, i))
			if texErr != nil {
				return texErr
			}
			ur.channelTextures = append(ur.channelTextures, tex)
			ur.channelViews = append(ur.channelViews, view)

			samp, sampErr := ur.createMediaSampler(fmt.Sprintf("%s Channel %d Sampler", ur.cfg.Label, i))
			if sampErr != nil {
				return sampErr
			}
			ur.channelSamplers = append(ur.channelSamplers, samp)
		}
		if err = ur.rebuildChannelGroup(); err != nil {
			return err
		}
	}

	if ur.extrasEnabled() {
		if ur.cfg.MouseUniform {
			ur.mouseBuffer, err = ur.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: ur.cfg.Label + " Mouse Uniform",
				Size:  mouseUniformSize,
				Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				return fmt.Errorf("create mouse uniform buffer: %w", err)
			}
		}
		if ur.cfg.AudioSamples > 0 {
			ur.audioBuffer, err = ur.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: ur.cfg.Label + " Audio Samples",
				Size:  uint64(ur.cfg.AudioSamples) * 4,
				Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				return fmt.Errorf("create audio sample buffer: %w", err)
			}
		}
		if ur.cfg.FontAtlas {
			ur.fontTexture, ur.fontView, err = ur.createPlaceholderTexture(ur.cfg.Label + " Font Atlas")
			if err != nil {
				return err
			}
			ur.fontSampler, err = ur.createMediaSampler(ur.cfg.Label + " Font Sampler")
			if err != nil {
				return err
			}
		}
		if err = ur.rebuildExtrasGroup(); err != nil {
			return err
		}
	}

	return nil
}

func (ur *uniformResources) extrasEnabled() bool {
	return ur.cfg.MouseUniform || ur.cfg.AudioSamples > 0 || ur.cfg.FontAtlas
}

// createPlaceholderTexture allocates a 1x1 opaque black RGBA8 texture so
// texture-backed bind groups are valid before the host supplies content.
func (ur *uniformResources) createPlaceholderTexture(label string) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, view, err := ur.createMediaTexture(label, 1, 1)
	if err != nil {
		return nil, nil, err
	}
	ur.writeMediaTexture(tex, 1, 1, []byte{0, 0, 0, 255})
	return tex, view, nil
}

func (ur *uniformResources) createMediaTexture(label string, width, height int) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := ur.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create texture %q: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("create texture view %q: %w", label, err)
	}
	return tex, view, nil
}

func (ur *uniformResources) writeMediaTexture(tex *wgpu.Texture, width, height int, rgba []byte) {
	ur.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		rgba,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(4 * width),
			RowsPerImage: uint32(height),
		},
		&wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
	)
}

func (ur *uniformResources) createMediaSampler(label string) (*wgpu.Sampler, error) {
	samp, err := ur.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler %q: %w", label, err)
	}
	return samp, nil
}

func (ur *uniformResources) rebuildChannelGroup() error {
	if ur.channelGroup != nil {
		ur.channelGroup.Release()
		ur.channelGroup = nil
	}
	entries := make([]wgpu.BindGroupEntry, 0, len(ur.channelViews)*2)
	for i := range ur.channelViews {
		entries = append(entries,
			wgpu.BindGroupEntry{Binding: uint32(2 * i), TextureView: ur.channelViews[i]},
			wgpu.BindGroupEntry{Binding: uint32(2*i + 1), Sampler: ur.channelSamplers[i]},
		)
	}
	group, err := ur.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   ur.cfg.Label + " Channel Bind Group",
		Layout:  ur.layouts.layout(ResourceChannel),
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create channel bind group: %w", err)
	}
	ur.channelGroup = group
	return nil
}

func (ur *uniformResources) rebuildExtrasGroup() error {
	if ur.extrasGroup != nil {
		ur.extrasGroup.Release()
		ur.extrasGroup = nil
	}
	var entries []wgpu.BindGroupEntry
	if ur.cfg.MouseUniform {
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: extrasBindingMouse,
			Buffer:  ur.mouseBuffer,
			Size:    mouseUniformSize,
		})
	}
	if ur.cfg.AudioSamples > 0 {
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: extrasBindingAudio,
			Buffer:  ur.audioBuffer,
			Size:    uint64(ur.cfg.AudioSamples) * 4,
		})
	}
	if ur.cfg.FontAtlas {
		entries = append(entries,
			wgpu.BindGroupEntry{Binding: extrasBindingFontTexture, TextureView: ur.fontView},
			wgpu.BindGroupEntry{Binding: extrasBindingFontSampler, Sampler: ur.fontSampler},
		)
	}
	group, err := ur.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   ur.cfg.Label + " Extras Bind Group",
		Layout:  ur.layouts.layout(ResourceExtras),
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create extras bind group: %w", err)
	}
	ur.extrasGroup = group
	return nil
}

// writeGlobals uploads the globals uniform for the current frame.
func (ur *uniformResources) writeGlobals(g Globals) {
	ur.queue.WriteBuffer(ur.globalsBuffer, 0, wgpu.ToBytes([]Globals{g}))
}

// writeCustom uploads the custom parameter uniform. The payload must be exactly
// the declared uniform size so WGSL and host layouts cannot drift silently.
func (ur *uniformResources) writeCustom(data []byte) error {
	if ur.customBuffer == nil {
		return fmt.Errorf("no custom uniform declared in config %q", ur.cfg.Label)
	}
	if uint64(len(data)) != ur.cfg.CustomUniformSize {
		return fmt.Errorf("custom uniform payload is %d bytes, declared size is %d", len(data), ur.cfg.CustomUniformSize)
	}
	ur.queue.WriteBuffer(ur.customBuffer, 0, data)
	return nil
}

func (ur *uniformResources) writeMouse(m Mouse) error {
	if ur.mouseBuffer == nil {
		return fmt.Errorf("mouse uniform not enabled in config %q", ur.cfg.Label)
	}
	ur.queue.WriteBuffer(ur.mouseBuffer, 0, wgpu.ToBytes([]Mouse{m}))
	return nil
}

func (ur *uniformResources) writeAudio(samples []float32) error {
	if ur.audioBuffer == nil {
		return fmt.Errorf("audio samples not enabled in config %q", ur.cfg.Label)
	}
	if uint32(len(samples)) > ur.cfg.AudioSamples {
		samples = samples[:ur.cfg.AudioSamples]
	}
	ur.queue.WriteBuffer(ur.audioBuffer, 0, wgpu.ToBytes(samples))
	return nil
}

// writeStorage uploads host data into the storage buffer declared at index.
func (ur *uniformResources) writeStorage(index int, offset uint64, data []byte) error {
	if index < 0 || index >= len(ur.storageBuffers) {
		return fmt.Errorf("storage buffer index %d out of range (have %d)", index, len(ur.storageBuffers))
	}
	spec := ur.cfg.StorageBuffers[index]
	if offset+uint64(len(data)) > spec.Size {
		return fmt.Errorf("write of %d bytes at offset %d overflows storage buffer %q (%d bytes)", len(data), offset, spec.Label, spec.Size)
	}
	ur.queue.WriteBuffer(ur.storageBuffers[index], offset, data)
	return nil
}

// storageBuffer returns the GPU buffer for the storage spec with the given
// label, or nil when no spec matches.
func (ur *uniformResources) storageBuffer(label string) *wgpu.Buffer {
	for i, spec := range ur.cfg.StorageBuffers {
		if spec.Label == label {
			return ur.storageBuffers[i]
		}
	}
	return nil
}

// setChannelTexture replaces the channel texture at the given slot index with
// host-supplied RGBA8 pixels and rebuilds the channel bind group.
func (ur *uniformResources) setChannelTexture(index, width, height int, rgba []byte) error {
	if ur.cfg.ChannelTextures == 0 {
		return fmt.Errorf("channel textures not enabled in config %q", ur.cfg.Label)
	}
	if index < 0 || index >= int(ur.cfg.ChannelTextures) {
		return fmt.Errorf("channel index %d out of range (have %d)", index, ur.cfg.ChannelTextures)
	}
	if len(rgba) != width*height*4 {
		return fmt.Errorf("channel texture payload is %d bytes, want %d for %dx%d RGBA8", len(rgba), width*height*4, width, height)
	}
	tex, view, err := ur.createMediaTexture(fmt.Sprintf("%s Channel %d", ur.cfg.Label, index), width, height)
	if err != nil {
		return err
	}
	ur.writeMediaTexture(tex, width, height, rgba)

	oldTex, oldView := ur.channelTextures[index], ur.channelViews[index]
	ur.channelTextures[index], ur.channelViews[index] = tex, view
	if err := ur.rebuildChannelGroup(); err != nil {
		ur.channelTextures[index], ur.channelViews[index] = oldTex, oldView
		view.Release()
		tex.Release()
		return err
	}
	if oldView != nil {
		oldView.Release()
	}
	if oldTex != nil {
		oldTex.Release()
	}
	return nil
}

// setFontAtlas replaces the font atlas texture with host-supplied RGBA8 pixels
// and rebuilds the extras bind group.
func (ur *uniformResources) setFontAtlas(width, height int, rgba []byte) error {
	if !ur.cfg.FontAtlas {
		return fmt.Errorf("font atlas not enabled in config %q", ur.cfg.Label)
	}
	if len(rgba) != width*height*4 {
		return fmt.Errorf("font atlas payload is %d bytes, want %d for %dx%d RGBA8", len(rgba), width*height*4, width, height)
	}
	tex, view, err := ur.createMediaTexture(ur.cfg.Label+" Font Atlas", width, height)
	if err != nil {
		return err
	}
	ur.writeMediaTexture(tex, width, height, rgba)

	oldTex, oldView := ur.fontTexture, ur.fontView
	ur.fontTexture, ur.fontView = tex, view
	if err := ur.rebuildExtrasGroup(); err != nil {
		ur.fontTexture, ur.fontView = oldTex, oldView
		view.Release()
		tex.Release()
		return err
	}
	if oldView != nil {
		oldView.Release()
	}
	if oldTex != nil {
		oldTex.Release()
	}
	return nil
}

// group returns the live bind group for a host-written resource kind, or nil
// for kinds owned elsewhere or not enabled.
func (ur *uniformResources) group(kind ResourceKind) *wgpu.BindGroup {
	switch kind {
	case ResourceGlobals:
		return ur.globalsGroup
	case ResourceCustomUniform:
		return ur.customGroup
	case ResourceStorage:
		return ur.storageGroup
	case ResourceChannel:
		return ur.channelGroup
	case ResourceExtras:
		return ur.extrasGroup
	default:
		return nil
	}
}

func (ur *uniformResources) release() {
	for _, g := range []*wgpu.BindGroup{ur.globalsGroup, ur.customGroup, ur.storageGroup, ur.extrasGroup, ur.channelGroup} {
		if g != nil {
			g.Release()
		}
	}
	ur.globalsGroup, ur.customGroup, ur.storageGroup, ur.extrasGroup, ur.channelGroup = nil, nil, nil, nil, nil

	for _, b := range []*wgpu.Buffer{ur.globalsBuffer, ur.customBuffer, ur.mouseBuffer, ur.audioBuffer} {
		if b != nil {
			b.Release()
		}
	}
	ur.globalsBuffer, ur.customBuffer, ur.mouseBuffer, ur.audioBuffer = nil, nil, nil, nil

	for _, b := range ur.storageBuffers {
		if b != nil {
			b.Release()
		}
	}
	ur.storageBuffers = nil

	for _, v := range ur.channelViews {
		if v != nil {
			v.Release()
		}
	}
	ur.channelViews = nil
	for _, t := range ur.channelTextures {
		if t != nil {
			t.Release()
		}
	}
	ur.channelTextures = nil
	for _, s := range ur.channelSamplers {
		if s != nil {
			s.Release()
		}
	}
	ur.channelSamplers = nil
	if ur.fontView != nil {
		ur.fontView.Release()
		ur.fontView = nil
	}
	if ur.fontTexture != nil {
		ur.fontTexture.Release()
		ur.fontTexture = nil
	}
	if ur.fontSampler != nil {
		ur.fontSampler.Release()
		ur.fontSampler = nil
	}
}
