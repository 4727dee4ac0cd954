package compute

import (
	"fmt"
	"log"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// program is the implementation of the Program interface.
type program struct {
	mu *sync.Mutex

	key    string
	device *wgpu.Device
	queue  *wgpu.Queue
	cfg    Config

	layouts   *layoutSet
	kernel    *Kernel
	pipelines *compiledPipelines
	uniforms  *uniformResources
	manager   *bufferManager
	atomic    *atomicBuffer
	sched     *scheduler
	reloader  *hotReloader

	bufferNames []string
	passes      []Pass
	flipMode    FlipMode

	// pending build inputs, consumed by NewProgram
	kernelSource string
	kernelPath   string
	hotReload    bool
	width        int
	height       int

	time  float32
	delta float32
	frame uint32
}

// Program is one configured kernel pipeline: the compiled entry points, the
// derived bind-group layouts, the ping-pong buffers, and the per-frame dispatch
// logic, behind a single handle the host drives once per frame.
type Program interface {
	// Key returns the unique identifier for this program.
	//
	// Returns:
	//   - string: the program key
	Key() string

	// SetTime updates the time values written to the globals uniform at the
	// next dispatch.
	//
	// Parameters:
	//   - time: seconds since the program started
	//   - delta: seconds since the previous frame
	SetTime(time, delta float32)

	// SetParams uploads the custom parameter uniform. The payload must be
	// exactly the size declared in the config.
	//
	// Parameters:
	//   - data: the uniform payload, laid out to match the WGSL struct
	//
	// Returns:
	//   - error: an error if no custom uniform was declared or the size differs
	SetParams(data []byte) error

	// SetMouse uploads the mouse uniform.
	//
	// Parameters:
	//   - m: the pointer state
	//
	// Returns:
	//   - error: an error if the mouse uniform was not enabled
	SetMouse(m Mouse) error

	// SetAudioSamples uploads host audio samples into the audio storage buffer,
	// truncating to the declared sample count.
	//
	// Parameters:
	//   - samples: the float32 samples
	//
	// Returns:
	//   - error: an error if the audio buffer was not enabled
	SetAudioSamples(samples []float32) error

	// WriteStorage uploads host data into a declared storage buffer.
	//
	// Parameters:
	//   - index: the storage buffer's declared index
	//   - offset: the destination byte offset
	//   - data: the payload
	//
	// Returns:
	//   - error: an error if the index is out of range or the write overflows
	WriteStorage(index int, offset uint64, data []byte) error

	// UpdateInputTexture replaces the primary external media texture (channel
	// slot 0) with RGBA8 pixels. Shorthand for UpdateChannelTexture(0, ...).
	//
	// Parameters:
	//   - width: image width in pixels
	//   - height: image height in pixels
	//   - rgba: width*height*4 bytes of RGBA8 pixels
	//
	// Returns:
	//   - error: an error if no channel slots were enabled or sizes mismatch
	UpdateInputTexture(width, height int, rgba []byte) error

	// UpdateChannelTexture replaces the external media texture at the given
	// channel slot with RGBA8 pixels.
	//
	// Parameters:
	//   - index: the channel slot, 0 to ChannelTextures-1
	//   - width: image width in pixels
	//   - height: image height in pixels
	//   - rgba: width*height*4 bytes of RGBA8 pixels
	//
	// Returns:
	//   - error: an error if the index is out of range, no channel slots were
	//     enabled, or sizes mismatch
	UpdateChannelTexture(index, width, height int, rgba []byte) error

	// SetFontAtlas replaces the font atlas texture with RGBA8 pixels.
	//
	// Parameters:
	//   - width: atlas width in pixels
	//   - height: atlas height in pixels
	//   - rgba: width*height*4 bytes of RGBA8 pixels
	//
	// Returns:
	//   - error: an error if font support was not enabled or sizes mismatch
	SetFontAtlas(width, height int, rgba []byte) error

	// Resize reallocates every ping-pong texture, bind group, and the atomic
	// buffer at the new dimensions. No partial state is observable: the next
	// dispatch sees only new-size resources. Panics if the underlying GPU
	// allocation fails; there is no smaller-buffer fallback.
	//
	// Parameters:
	//   - width: new surface width in pixels
	//   - height: new surface height in pixels
	Resize(width, height int)

	// ClearBuffers recreates every ping-pong texture at the current size,
	// zeroing accumulated state, and resets the atomic buffer if present.
	// Panics if the underlying GPU allocation fails.
	ClearBuffers()

	// CheckHotReload polls the kernel source watcher and, when the file
	// changed, recompiles and swaps the pipeline set. A failed compile leaves
	// every pipeline, buffer, and bind group untouched. No-op without hot
	// reload enabled.
	//
	// Returns:
	//   - ReloadStatus: the outcome of this poll
	CheckHotReload() ReloadStatus

	// Reload recompiles the given kernel source and swaps the pipeline set.
	// All entry points compile or none do; on error the previous pipelines
	// stay live.
	//
	// Parameters:
	//   - source: the new WGSL kernel source
	//
	// Returns:
	//   - error: an error if pre-processing or any pipeline compile fails
	Reload(source string) error

	// SetFlipMode switches between automatic per-frame parity flips and manual
	// caller-driven flips.
	//
	// Parameters:
	//   - mode: the flip mode
	SetFlipMode(mode FlipMode)

	// Flip advances the global parity bit. Only needed in FlipModeManual.
	Flip()

	// Dispatch runs the configured pass list once: uploads the globals uniform,
	// clears the atomic buffer if one is due, records every pass in order, and
	// submits the frame. In FlipModeAuto parity advances after submission.
	//
	// Returns:
	//   - error: an error if recording or submission fails
	Dispatch() error

	// DispatchWith runs an ad-hoc pass list instead of the configured one,
	// validating it first. Flip behavior follows the current flip mode.
	//
	// Parameters:
	//   - passes: the pass list to run, in order
	//
	// Returns:
	//   - error: an error if validation, recording, or submission fails
	DispatchWith(passes []Pass) error

	// OutputView returns the final output texture view for presentation.
	//
	// Returns:
	//   - *wgpu.TextureView: the output view
	OutputView() *wgpu.TextureView

	// ReadBack synchronously copies the final output texture to host memory.
	//
	// Returns:
	//   - []byte: tightly packed pixel rows in the output format
	//   - error: an error if the copy fails
	ReadBack() ([]byte, error)

	// ReadStorage synchronously copies a declared storage buffer to host
	// memory. The buffer must have been declared with CopySrc usage.
	//
	// Parameters:
	//   - label: the storage buffer's declared label
	//
	// Returns:
	//   - []byte: the buffer contents
	//   - error: an error if no buffer matches or the copy fails
	ReadStorage(label string) ([]byte, error)

	// ReadAtomic synchronously copies the atomic accumulation buffer to host
	// memory.
	//
	// Returns:
	//   - []byte: the raw cell contents, 4 bytes per atomic u32
	//   - error: an error if no atomic buffer was enabled or the copy fails
	ReadAtomic() ([]byte, error)

	// AtomicBuffer returns the atomic accumulation buffer handle, or nil when
	// not enabled.
	//
	// Returns:
	//   - AtomicBuffer: the buffer handle
	AtomicBuffer() AtomicBuffer

	// EntryPoints returns the compiled entry point names in declared order.
	//
	// Returns:
	//   - []string: the entry point names
	EntryPoints() []string

	// Width returns the current surface width in pixels.
	Width() int

	// Height returns the current surface height in pixels.
	Height() int

	// OutputFormat returns the output texture format.
	OutputFormat() wgpu.TextureFormat

	// Release stops the kernel watcher and frees every GPU resource the
	// program owns.
	Release()
}

var _ Program = &program{}

// NewProgram builds a complete kernel program: pre-processes and compiles the
// kernel, derives and creates the bind-group layouts, allocates the ping-pong
// buffers and every declared resource, and validates the pass list. Any
// failure releases everything created so far and returns an error; there is no
// partially built program.
//
// Parameters:
//   - key: the unique identifier for this program
//   - device: the GPU device
//   - queue: the device queue
//   - cfg: the resource and entry point declaration
//   - options: optional builder settings
//
// Returns:
//   - Program: the built program
//   - error: an error if configuration, compilation, or allocation fails
func NewProgram(key string, device *wgpu.Device, queue *wgpu.Queue, cfg Config, options ...ProgramOption) (Program, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &program{
		mu:     &sync.Mutex{},
		key:    key,
		device: device,
		queue:  queue,
		cfg:    cfg,
		width:  800,
		height: 600,
	}
	for _, opt := range options {
		opt(p)
	}

	if err := p.build(); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

func (p *program) build() error {
	var err error

	switch {
	case p.kernelSource != "":
		p.kernel, err = NewKernel(p.kernelSource)
	case p.kernelPath != "":
		p.kernel, err = LoadKernel(p.kernelPath)
	default:
		return fmt.Errorf("program %q: no kernel source or file provided", p.key)
	}
	if err != nil {
		return err
	}

	// Config wins for dispatch math, but a disagreement with the source's own
	// declaration almost always means one side is stale.
	if ws := p.kernel.WorkgroupSize(); ws != ([3]uint32{1, 1, 1}) && ws != p.cfg.WorkgroupSize {
		log.Printf("program %q: config workgroup size %v differs from kernel @workgroup_size %v", p.key, p.cfg.WorkgroupSize, ws)
	}

	p.layouts, err = newLayoutSet(p.device, p.cfg)
	if err != nil {
		return err
	}

	p.pipelines, err = buildPipelines(p.device, p.cfg.Label, p.kernel, p.cfg.EntryPoints, p.layouts)
	if err != nil {
		return err
	}

	if len(p.passes) == 0 {
		p.passes = make([]Pass, len(p.cfg.EntryPoints))
		for i, ep := range p.cfg.EntryPoints {
			p.passes[i] = Pass{Name: ep}
		}
	}
	if err = validatePasses(p.passes, p.cfg.EntryPoints, p.bufferNames); err != nil {
		return fmt.Errorf("program %q: %w", p.key, err)
	}

	p.uniforms, err = newUniformResources(p.device, p.queue, p.cfg, p.layouts)
	if err != nil {
		return err
	}

	p.manager = newBufferManager(p.device, p.cfg, p.layouts)
	if err = p.manager.Create(p.bufferNames, p.width, p.height); err != nil {
		return err
	}

	if p.cfg.AtomicBufferMultiples > 0 {
		p.atomic, err = newAtomicBuffer(p.device, p.layouts, p.cfg.Label, p.cfg.AtomicBufferMultiples, p.width, p.height)
		if err != nil {
			return err
		}
	}

	p.sched = newScheduler(p.layouts, p.cfg.WorkgroupSize)

	if p.hotReload {
		if p.kernelPath == "" {
			return fmt.Errorf("program %q: hot reload requires a kernel file", p.key)
		}
		p.reloader, err = newHotReloader(p.kernelPath, p.swapKernelSource)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *program) Key() string {
	return p.key
}

func (p *program) SetTime(time, delta float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.time, p.delta = time, delta
}

func (p *program) SetParams(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uniforms.writeCustom(data)
}

func (p *program) SetMouse(m Mouse) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uniforms.writeMouse(m)
}

func (p *program) SetAudioSamples(samples []float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uniforms.writeAudio(samples)
}

func (p *program) WriteStorage(index int, offset uint64, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uniforms.writeStorage(index, offset, data)
}

func (p *program) UpdateInputTexture(width, height int, rgba []byte) error {
	return p.UpdateChannelTexture(0, width, height, rgba)
}

func (p *program) UpdateChannelTexture(index, width, height int, rgba []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uniforms.setChannelTexture(index, width, height, rgba)
}

func (p *program) SetFontAtlas(width, height int, rgba []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uniforms.setFontAtlas(width, height, rgba)
}

func (p *program) Resize(width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if width == p.width && height == p.height {
		return
	}
	p.width, p.height = width, height
	p.recreateLocked()
}

func (p *program) ClearBuffers() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recreateLocked()
}

// recreateLocked rebuilds every sized resource at the current dimensions.
// Allocation failure here is fatal: the old resources are already gone and
// there is no smaller-buffer fallback.
func (p *program) recreateLocked() {
	if err := p.manager.ClearAll(p.width, p.height); err != nil {
		panic(fmt.Sprintf("program %q: recreate buffers at %dx%d: %v", p.key, p.width, p.height, err))
	}
	if p.atomic != nil {
		if err := p.atomic.resize(p.width, p.height); err != nil {
			panic(fmt.Sprintf("program %q: recreate atomic buffer at %dx%d: %v", p.key, p.width, p.height, err))
		}
	}
}

func (p *program) CheckHotReload() ReloadStatus {
	if p.reloader == nil {
		return ReloadUnchanged
	}
	return p.reloader.poll()
}

func (p *program) Reload(source string) error {
	return p.swapKernelSource(source)
}

// swapKernelSource compiles a full replacement pipeline set and swaps it in
// only when every entry point compiled. Buffers, bind groups, and layouts are
// never touched, so accumulated state survives the swap.
func (p *program) swapKernelSource(source string) error {
	kernel, err := NewKernel(source)
	if err != nil {
		return err
	}
	pipelines, err := buildPipelines(p.device, p.cfg.Label, kernel, p.cfg.EntryPoints, p.layouts)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.pipelines
	p.pipelines = pipelines
	p.kernel = kernel
	if old != nil {
		old.release()
	}
	return nil
}

func (p *program) SetFlipMode(mode FlipMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flipMode = mode
}

func (p *program) Flip() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.manager.Flip()
}

func (p *program) Dispatch() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dispatchLocked(p.passes)
}

func (p *program) DispatchWith(passes []Pass) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := validatePasses(passes, p.cfg.EntryPoints, p.bufferNames); err != nil {
		return fmt.Errorf("program %q: %w", p.key, err)
	}
	return p.dispatchLocked(passes)
}

func (p *program) dispatchLocked(passes []Pass) error {
	encoder, err := p.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("program %q: create frame encoder: %w", p.key, err)
	}
	defer encoder.Release()

	p.uniforms.writeGlobals(Globals{Time: p.time, Delta: p.delta, Frame: p.frame})

	var atomicGroup *wgpu.BindGroup
	if p.atomic != nil {
		p.atomic.recordClear(encoder)
		atomicGroup = p.atomic.group()
	}

	if err := p.sched.recordPasses(encoder, passes, p.pipelines, p.manager, p.uniforms, atomicGroup); err != nil {
		return fmt.Errorf("program %q: %w", p.key, err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("program %q: finish frame encoder: %w", p.key, err)
	}
	defer cmd.Release()
	p.queue.Submit(cmd)

	p.frame++
	if p.flipMode == FlipModeAuto {
		p.manager.Flip()
	}
	return nil
}

func (p *program) OutputView() *wgpu.TextureView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.manager.OutputView()
}

func (p *program) ReadBack() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return readbackTexture(p.device, p.queue, p.manager.outputTexture, p.width, p.height, p.cfg.OutputFormat)
}

func (p *program) ReadStorage(label string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	buf := p.uniforms.storageBuffer(label)
	if buf == nil {
		return nil, fmt.Errorf("program %q: no storage buffer labeled %q", p.key, label)
	}
	for _, spec := range p.cfg.StorageBuffers {
		if spec.Label == label {
			return readbackBuffer(p.device, p.queue, buf, spec.Size)
		}
	}
	return nil, fmt.Errorf("program %q: no storage buffer labeled %q", p.key, label)
}

func (p *program) ReadAtomic() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.atomic == nil {
		return nil, fmt.Errorf("program %q: atomic buffer not enabled", p.key)
	}
	return readbackBuffer(p.device, p.queue, p.atomic.buffer, p.atomic.size)
}

func (p *program) AtomicBuffer() AtomicBuffer {
	if p.atomic == nil {
		return nil
	}
	return p.atomic
}

func (p *program) EntryPoints() []string {
	return append([]string(nil), p.cfg.EntryPoints...)
}

func (p *program) Width() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width
}

func (p *program) Height() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.height
}

func (p *program) OutputFormat() wgpu.TextureFormat {
	return p.cfg.OutputFormat
}

func (p *program) Release() {
	if p.reloader != nil {
		p.reloader.close()
		p.reloader = nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.atomic != nil {
		p.atomic.release()
		p.atomic = nil
	}
	if p.manager != nil {
		p.manager.Release()
		p.manager = nil
	}
	if p.uniforms != nil {
		p.uniforms.release()
		p.uniforms = nil
	}
	if p.pipelines != nil {
		p.pipelines.release()
		p.pipelines = nil
	}
	if p.layouts != nil {
		p.layouts.release()
		p.layouts = nil
	}
}
