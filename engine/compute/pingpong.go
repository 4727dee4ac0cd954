package compute

import (
	"fmt"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// writeIndex returns which half of a ping-pong pair is the write target for the
// given parity. readIndex is always the opposite half, so a pass can never
// sample the texture it is writing this frame.
func writeIndex(parity bool) int {
	if parity {
		return 1
	}
	return 0
}

// readIndex returns which half of a ping-pong pair is the read source for the
// given parity.
func readIndex(parity bool) int {
	return 1 - writeIndex(parity)
}

// resolveInputSlots maps a pass's declared dependency names onto the fixed
// pass-input slots. Every slot is filled: unused slots default to the first
// dependency, or to the first available buffer for passes with no declared
// inputs, so no slot is ever left unbound.
//
// Parameters:
//   - deps: the buffer names the pass declares as inputs, in slot order
//   - available: all named buffers owned by the manager, in declared order
//   - max: the number of input slots (maxPassInputs)
//
// Returns:
//   - []string: exactly max buffer names, one per slot
//   - error: an error if a dependency is unknown or the pass declares too many
func resolveInputSlots(deps, available []string, max int) ([]string, error) {
	if len(deps) > max {
		return nil, fmt.Errorf("pass declares %d inputs; at most %d are supported", len(deps), max)
	}
	known := make(map[string]bool, len(available))
	for _, name := range available {
		known[name] = true
	}
	for _, dep := range deps {
		if !known[dep] {
			return nil, fmt.Errorf("pass input %q does not name a declared buffer", dep)
		}
	}

	filler := ""
	if len(deps) > 0 {
		filler = deps[0]
	} else if len(available) > 0 {
		filler = available[0]
	}

	slots := make([]string, max)
	for i := range slots {
		if i < len(deps) {
			slots[i] = deps[i]
		} else {
			slots[i] = filler
		}
	}
	return slots, nil
}

// pingPongBuffer is one logical double-buffered resource: two same-sized
// storage textures and a write bind group wrapping each. Which half is written
// this frame is selected by the manager's global parity bit.
type pingPongBuffer struct {
	textures    [2]*wgpu.Texture
	views       [2]*wgpu.TextureView
	writeGroups [2]*wgpu.BindGroup
}

func (b *pingPongBuffer) release() {
	for i := range b.textures {
		if b.writeGroups[i] != nil {
			b.writeGroups[i].Release()
			b.writeGroups[i] = nil
		}
		if b.views[i] != nil {
			b.views[i].Release()
			b.views[i] = nil
		}
		if b.textures[i] != nil {
			b.textures[i].Release()
			b.textures[i] = nil
		}
	}
}

// bufferManager is the implementation of the BufferManager interface.
// It is the sole owner and sole mutator of the ping-pong textures, the final
// output texture, and every bind group wrapping them; the scheduler borrows
// references for a single dispatch and never retains them across frames.
type bufferManager struct {
	device *wgpu.Device
	cfg    Config

	layouts *layoutSet

	names   []string
	buffers map[string]*pingPongBuffer

	// output is the single non-paired texture holding the externally visible
	// result of each frame.
	outputTexture    *wgpu.Texture
	outputView       *wgpu.TextureView
	outputWriteGroup *wgpu.BindGroup

	// fallback fills pass-input slots when the manager owns no named buffers.
	fallbackTexture *wgpu.Texture
	fallbackView    *wgpu.TextureView

	sampler *wgpu.Sampler

	// parity is the single global flip bit shared by all named buffers.
	parity bool

	// inputGroupCache caches pass-input bind groups keyed by resolved slot
	// names; index 0/1 selects the group for each parity. Invalidated wholesale
	// by ClearAll/Resize.
	inputGroupCache map[string]*[2]*wgpu.BindGroup

	width, height int
}

// BufferManager owns, for each named intermediate buffer, a pair of storage
// textures and their write bind groups, plus the single final output texture.
// One global parity bit selects, for every buffer at once, which half is the
// write target and which is the read source for the current frame.
type BufferManager interface {
	// Create allocates the texture pair and write bind groups for every name,
	// plus the final output texture, at the given dimensions. Replaces any
	// previously created resources and resets parity.
	//
	// Parameters:
	//   - names: the logical buffer names, in declared order
	//   - width: surface width in pixels
	//   - height: surface height in pixels
	//
	// Returns:
	//   - error: an error if any GPU allocation fails
	Create(names []string, width, height int) error

	// WriteTargetGroup returns the write bind group for the pass with the given
	// name: the current-parity half of the matching named buffer, or the final
	// output texture's group when no buffer matches.
	//
	// Parameters:
	//   - passName: the dispatching pass's name
	//
	// Returns:
	//   - *wgpu.BindGroup: the write-target bind group for this frame
	WriteTargetGroup(passName string) *wgpu.BindGroup

	// ReadView returns the opposite-parity texture view for the named buffer.
	// Used only to build input bind groups; never bound as a write target in
	// the same frame.
	//
	// Parameters:
	//   - name: the buffer name
	//
	// Returns:
	//   - *wgpu.TextureView: the read-source view, or nil for unknown names
	ReadView(name string) *wgpu.TextureView

	// PassInputGroup composes the read-source views for the given dependency
	// names into one bind group matching the fixed pass-input layout. Unfilled
	// slots are bound to a valid default texture.
	//
	// Parameters:
	//   - deps: the buffer names the pass reads, in slot order
	//
	// Returns:
	//   - *wgpu.BindGroup: the input bind group for the current parity
	//   - error: an error if a dependency is unknown or exceeds the slot count
	PassInputGroup(deps []string) (*wgpu.BindGroup, error)

	// Flip toggles the global parity bit. Called exactly once per logically
	// complete frame, or manually by pipelines with custom dispatch ordering.
	Flip()

	// Parity returns the current global parity bit.
	//
	// Returns:
	//   - bool: the parity bit
	Parity() bool

	// ClearAll recreates every texture and bind group from scratch at the given
	// dimensions and resets parity to its initial value. Used for both resize
	// and an explicit "reset accumulation" action.
	//
	// Parameters:
	//   - width: surface width in pixels
	//   - height: surface height in pixels
	//
	// Returns:
	//   - error: an error if any GPU allocation fails
	ClearAll(width, height int) error

	// OutputView returns the final output texture view.
	//
	// Returns:
	//   - *wgpu.TextureView: the output texture view
	OutputView() *wgpu.TextureView

	// Names returns the declared buffer names in order.
	//
	// Returns:
	//   - []string: the buffer names
	Names() []string

	// Width returns the current texture width in pixels.
	Width() int

	// Height returns the current texture height in pixels.
	Height() int

	// Release frees every GPU resource owned by the manager.
	Release()
}

var _ BufferManager = &bufferManager{}

// newBufferManager creates a BufferManager bound to the program's device,
// config, and layout set. Create must be called before the first frame.
func newBufferManager(device *wgpu.Device, cfg Config, layouts *layoutSet) *bufferManager {
	return &bufferManager{
		device:          device,
		cfg:             cfg,
		layouts:         layouts,
		buffers:         make(map[string]*pingPongBuffer),
		inputGroupCache: make(map[string]*[2]*wgpu.BindGroup),
	}
}

func (m *bufferManager) Create(names []string, width, height int) error {
	m.releaseTextures()
	m.names = append([]string(nil), names...)
	m.width, m.height = width, height
	m.parity = false

	if m.sampler == nil {
		samp, err := m.device.CreateSampler(&wgpu.SamplerDescriptor{
			Label:         m.cfg.Label + " Pass Input Sampler",
			AddressModeU:  m.cfg.AddressMode,
			AddressModeV:  m.cfg.AddressMode,
			AddressModeW:  m.cfg.AddressMode,
			MagFilter:     m.cfg.FilterMode,
			MinFilter:     m.cfg.FilterMode,
			MipmapFilter:  wgpu.MipmapFilterModeNearest,
			LodMaxClamp:   32.0,
			MaxAnisotropy: 1,
		})
		if err != nil {
			return fmt.Errorf("create pass input sampler: %w", err)
		}
		m.sampler = samp
	}

	for _, name := range names {
		buf := &pingPongBuffer{}
		for half := 0; half < 2; half++ {
			tex, view, err := m.createStorageTexture(fmt.Sprintf("%s Buffer %s [%d]", m.cfg.Label, name, half), width, height, false)
			if err != nil {
				buf.release()
				return err
			}
			group, err := m.createWriteGroup(fmt.Sprintf("%s Buffer %s [%d] Write", m.cfg.Label, name, half), view)
			if err != nil {
				view.Release()
				tex.Release()
				buf.release()
				return err
			}
			buf.textures[half] = tex
			buf.views[half] = view
			buf.writeGroups[half] = group
		}
		m.buffers[name] = buf
	}

	tex, view, err := m.createStorageTexture(m.cfg.Label+" Output", width, height, true)
	if err != nil {
		return err
	}
	group, err := m.createWriteGroup(m.cfg.Label+" Output Write", view)
	if err != nil {
		view.Release()
		tex.Release()
		return err
	}
	m.outputTexture = tex
	m.outputView = view
	m.outputWriteGroup = group

	if len(names) == 0 {
		ftex, fview, ferr := m.createStorageTexture(m.cfg.Label+" Input Fallback", 1, 1, false)
		if ferr != nil {
			return ferr
		}
		m.fallbackTexture = ftex
		m.fallbackView = fview
	}

	return nil
}

// createStorageTexture allocates one texture usable as both a compute write
// target and a sampled pass input. The output texture additionally allows
// CopySrc for read-back and export.
func (m *bufferManager) createStorageTexture(label string, width, height int, copySrc bool) (*wgpu.Texture, *wgpu.TextureView, error) {
	usage := wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding
	if copySrc {
		usage |= wgpu.TextureUsageCopySrc
	}
	tex, err := m.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        m.cfg.OutputFormat,
		Usage:         usage,
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

func (m *bufferManager) createWriteGroup(label string, view *wgpu.TextureView) (*wgpu.BindGroup, error) {
	group, err := m.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  label,
		Layout: m.layouts.layout(ResourceWriteTarget),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create write bind group %q: %w", label, err)
	}
	return group, nil
}

func (m *bufferManager) WriteTargetGroup(passName string) *wgpu.BindGroup {
	if buf, ok := m.buffers[passName]; ok {
		return buf.writeGroups[writeIndex(m.parity)]
	}
	return m.outputWriteGroup
}

func (m *bufferManager) ReadView(name string) *wgpu.TextureView {
	buf, ok := m.buffers[name]
	if !ok {
		return nil
	}
	return buf.views[readIndex(m.parity)]
}

func (m *bufferManager) PassInputGroup(deps []string) (*wgpu.BindGroup, error) {
	slots, err := resolveInputSlots(deps, m.names, maxPassInputs)
	if err != nil {
		return nil, err
	}

	key := strings.Join(slots, "\x00")
	pidx := writeIndex(m.parity) // 0 or 1; cache one group per parity
	if cached, ok := m.inputGroupCache[key]; ok && cached[pidx] != nil {
		return cached[pidx], nil
	}

	entries := make([]wgpu.BindGroupEntry, 0, maxPassInputs*2)
	for i, name := range slots {
		view := m.fallbackView
		if name != "" {
			view = m.ReadView(name)
		}
		if view == nil {
			return nil, fmt.Errorf("no read source available for input slot %d", i)
		}
		entries = append(entries, wgpu.BindGroupEntry{
			Binding:     uint32(i),
			TextureView: view,
		})
	}
	for i := 0; i < maxPassInputs; i++ {
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: uint32(maxPassInputs + i),
			Sampler: m.sampler,
		})
	}

	group, err := m.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   m.cfg.Label + " Pass Input Bind Group",
		Layout:  m.layouts.layout(ResourcePassInput),
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create pass input bind group: %w", err)
	}

	cached, ok := m.inputGroupCache[key]
	if !ok {
		cached = &[2]*wgpu.BindGroup{}
		m.inputGroupCache[key] = cached
	}
	cached[pidx] = group
	return group, nil
}

func (m *bufferManager) Flip() {
	m.parity = !m.parity
}

func (m *bufferManager) Parity() bool {
	return m.parity
}

func (m *bufferManager) ClearAll(width, height int) error {
	return m.Create(m.names, width, height)
}

func (m *bufferManager) OutputView() *wgpu.TextureView {
	return m.outputView
}

func (m *bufferManager) Names() []string {
	return m.names
}

func (m *bufferManager) Width() int {
	return m.width
}

func (m *bufferManager) Height() int {
	return m.height
}

// releaseTextures frees every texture-backed resource but keeps the sampler,
// which is size-independent and survives resize.
func (m *bufferManager) releaseTextures() {
	for key, cached := range m.inputGroupCache {
		for i, g := range cached {
			if g != nil {
				g.Release()
				cached[i] = nil
			}
		}
		delete(m.inputGroupCache, key)
	}
	for name, buf := range m.buffers {
		buf.release()
		delete(m.buffers, name)
	}
	if m.outputWriteGroup != nil {
		m.outputWriteGroup.Release()
		m.outputWriteGroup = nil
	}
	if m.outputView != nil {
		m.outputView.Release()
		m.outputView = nil
	}
	if m.outputTexture != nil {
		m.outputTexture.Release()
		m.outputTexture = nil
	}
	if m.fallbackView != nil {
		m.fallbackView.Release()
		m.fallbackView = nil
	}
	if m.fallbackTexture != nil {
		m.fallbackTexture.Release()
		m.fallbackTexture = nil
	}
}

func (m *bufferManager) Release() {
	m.releaseTextures()
	if m.sampler != nil {
		m.sampler.Release()
		m.sampler = nil
	}
}
