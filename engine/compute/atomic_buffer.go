package compute

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// atomicCellBytes is the size of one atomic<u32> cell.
const atomicCellBytes = 4

// atomicBufferSize returns the byte size of an accumulation buffer holding
// width*height*multiples atomic u32 cells.
func atomicBufferSize(width, height int, multiples uint32) uint64 {
	return uint64(width) * uint64(height) * uint64(multiples) * atomicCellBytes
}

// AtomicBuffer is the host-side handle to a program's atomic accumulation
// buffer: a flat array of atomic u32 cells, one cell group per output pixel,
// used by splatting kernels for scatter writes and tone-mapped gather reads.
type AtomicBuffer interface {
	// SetPersistent controls per-frame clearing. When persistent, the buffer is
	// not zeroed between frames so counts accumulate across frames until Reset
	// is called (long-exposure rendering).
	//
	// Parameters:
	//   - persistent: true to suppress the per-frame clear
	SetPersistent(persistent bool)

	// Persistent reports whether per-frame clearing is suppressed.
	//
	// Returns:
	//   - bool: true when the buffer accumulates across frames
	Persistent() bool

	// Reset requests a zero-fill at the start of the next frame regardless of
	// the persistent setting.
	Reset()

	// Size returns the buffer size in bytes.
	//
	// Returns:
	//   - uint64: the byte size
	Size() uint64

	// Multiples returns the number of atomic cells per output pixel.
	//
	// Returns:
	//   - uint32: the declared cell multiple
	Multiples() uint32
}

// atomicBuffer is the implementation of the AtomicBuffer interface.
type atomicBuffer struct {
	device  *wgpu.Device
	layouts *layoutSet
	label   string

	multiples uint32
	size      uint64

	buffer    *wgpu.Buffer
	bindGroup *wgpu.BindGroup

	persistent     bool
	resetRequested bool
}

var _ AtomicBuffer = &atomicBuffer{}

// newAtomicBuffer allocates the accumulation buffer and its bind group at the
// given surface dimensions.
func newAtomicBuffer(device *wgpu.Device, layouts *layoutSet, label string, multiples uint32, width, height int) (*atomicBuffer, error) {
	ab := &atomicBuffer{
		device:    device,
		layouts:   layouts,
		label:     label,
		multiples: multiples,
	}
	if err := ab.allocate(width, height); err != nil {
		return nil, err
	}
	return ab, nil
}

func (ab *atomicBuffer) allocate(width, height int) error {
	size := atomicBufferSize(width, height, ab.multiples)
	buf, err := ab.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: ab.label + " Atomic Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create atomic buffer (%d bytes): %w", size, err)
	}
	group, err := ab.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  ab.label + " Atomic Bind Group",
		Layout: ab.layouts.layout(ResourceAtomic),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buf, Size: size},
		},
	})
	if err != nil {
		buf.Release()
		return fmt.Errorf("create atomic bind group: %w", err)
	}

	ab.release()
	ab.buffer = buf
	ab.bindGroup = group
	ab.size = size
	return nil
}

// resize drops the buffer and reallocates it at the new dimensions. Counts do
// not survive a resize; a fresh buffer starts zeroed.
func (ab *atomicBuffer) resize(width, height int) error {
	return ab.allocate(width, height)
}

// shouldClear reports whether the next frame must start from a zeroed buffer,
// and consumes any pending reset request.
func (ab *atomicBuffer) shouldClear() bool {
	if ab.resetRequested {
		ab.resetRequested = false
		return true
	}
	return !ab.persistent
}

// recordClear encodes the per-frame zero-fill into the frame encoder when one
// is due. Encoded before the frame's passes so scatter writes always land on a
// defined state.
func (ab *atomicBuffer) recordClear(encoder *wgpu.CommandEncoder) {
	if ab.shouldClear() {
		encoder.ClearBuffer(ab.buffer, 0, ab.size)
	}
}

// group returns the current bind group. Re-fetched every frame so a resize is
// observed on the next dispatch.
func (ab *atomicBuffer) group() *wgpu.BindGroup {
	return ab.bindGroup
}

func (ab *atomicBuffer) SetPersistent(persistent bool) {
	ab.persistent = persistent
}

func (ab *atomicBuffer) Persistent() bool {
	return ab.persistent
}

func (ab *atomicBuffer) Reset() {
	ab.resetRequested = true
}

func (ab *atomicBuffer) Size() uint64 {
	return ab.size
}

func (ab *atomicBuffer) Multiples() uint32 {
	return ab.multiples
}

func (ab *atomicBuffer) release() {
	if ab.bindGroup != nil {
		ab.bindGroup.Release()
		ab.bindGroup = nil
	}
	if ab.buffer != nil {
		ab.buffer.Release()
		ab.buffer = nil
	}
}
