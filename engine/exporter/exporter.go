package exporter

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/rsyai-oos/cuneus-sub001/engine/compute"
)

// exporter is the implementation of the Exporter interface.
// It reads program output synchronously on the caller's thread and offloads
// PNG encoding and disk writes to a worker pool.
type exporter struct {
	mu *sync.Mutex

	program   compute.Program
	outputDir string
	prefix    string

	encodeWorkers int
	pool          worker.DynamicWorkerPool
	wg            sync.WaitGroup

	frameIndex int
	nextTaskID int
}

// Exporter captures frames from a compute program and writes them to disk as
// numbered PNG files. Readback is synchronous; encoding runs on background workers.
type Exporter interface {
	// Program returns the compute program this exporter captures from.
	//
	// Returns:
	//   - compute.Program: the captured program
	Program() compute.Program

	// ExportFrame reads back the program's current output texture and queues a PNG
	// write for it. Frames are numbered sequentially from zero in capture order.
	//
	// Returns:
	//   - error: an error if readback or pixel conversion fails
	ExportFrame() error

	// ExportSequence dispatches and captures a fixed number of frames. The advance
	// callback runs before each dispatch and receives the zero-based frame number,
	// giving the caller a hook to set time and parameters for deterministic output.
	//
	// Parameters:
	//   - frames: the number of frames to capture
	//   - advance: per-frame setup callback, may be nil
	//
	// Returns:
	//   - error: the first dispatch or capture error encountered
	ExportSequence(frames int, advance func(frame int)) error

	// Close waits for all queued PNG writes to finish.
	// The exporter must not be used after Close returns.
	Close()
}

var _ Exporter = &exporter{}

// NewExporter creates an Exporter capturing from the given program, with all specified options applied.
// The output directory is created if it does not exist.
//
// Parameters:
//   - program: the compute program to capture from
//   - outputDir: the directory PNG frames are written to
//   - options: a variadic list of ExporterOption functions to configure the exporter
//
// Returns:
//   - Exporter: a new Exporter instance
//   - error: an error if the output directory could not be created
func NewExporter(program compute.Program, outputDir string, options ...ExporterOption) (Exporter, error) {
	if program == nil {
		return nil, fmt.Errorf("exporter requires a program")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %q: %w", outputDir, err)
	}

	e := &exporter{
		mu:            &sync.Mutex{},
		program:       program,
		outputDir:     outputDir,
		prefix:        "frame",
		encodeWorkers: max(runtime.NumCPU()-1, 1),
	}
	for _, opt := range options {
		opt(e)
	}

	e.pool = worker.NewDynamicWorkerPool(e.encodeWorkers, 256, 1*time.Second)

	return e, nil
}

func (e *exporter) Program() compute.Program {
	return e.program
}

func (e *exporter) ExportFrame() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.program.ReadBack()
	if err != nil {
		return fmt.Errorf("frame readback failed: %w", err)
	}

	width := e.program.Width()
	height := e.program.Height()
	rgba, err := convertToRGBA(data, width, height, e.program.OutputFormat())
	if err != nil {
		return err
	}

	path := filepath.Join(e.outputDir, fmt.Sprintf("%s_%05d.png", e.prefix, e.frameIndex))
	e.frameIndex++

	id := e.nextTaskID
	e.nextTaskID++

	e.wg.Add(1)
	e.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			defer e.wg.Done()
			return nil, writePNG(path, rgba)
		},
	})

	return nil
}

func (e *exporter) ExportSequence(frames int, advance func(frame int)) error {
	for i := 0; i < frames; i++ {
		if advance != nil {
			advance(i)
		}
		if err := e.program.Dispatch(); err != nil {
			return fmt.Errorf("dispatch for frame %d failed: %w", i, err)
		}
		if err := e.ExportFrame(); err != nil {
			return fmt.Errorf("capture of frame %d failed: %w", i, err)
		}
	}
	return nil
}

func (e *exporter) Close() {
	e.wg.Wait()
}

// writePNG encodes the image and writes it to path. Runs on pool workers.
func writePNG(path string, img *image.RGBA) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

// convertToRGBA converts tightly packed texture data into an 8-bit RGBA image.
// Float formats are clamped to [0, 1] before quantization. BGRA formats have
// their red and blue channels swapped.
func convertToRGBA(data []byte, width, height int, format wgpu.TextureFormat) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	pixels := width * height

	switch format {
	case wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8UnormSrgb:
		if len(data) < pixels*4 {
			return nil, fmt.Errorf("readback data too short: got %d bytes, need %d", len(data), pixels*4)
		}
		copy(img.Pix, data[:pixels*4])
	case wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb:
		if len(data) < pixels*4 {
			return nil, fmt.Errorf("readback data too short: got %d bytes, need %d", len(data), pixels*4)
		}
		for i := 0; i < pixels; i++ {
			img.Pix[i*4+0] = data[i*4+2]
			img.Pix[i*4+1] = data[i*4+1]
			img.Pix[i*4+2] = data[i*4+0]
			img.Pix[i*4+3] = data[i*4+3]
		}
	case wgpu.TextureFormatRGBA16Float:
		if len(data) < pixels*8 {
			return nil, fmt.Errorf("readback data too short: got %d bytes, need %d", len(data), pixels*8)
		}
		for i := 0; i < pixels*4; i++ {
			h := uint16(data[i*2]) | uint16(data[i*2+1])<<8
			img.Pix[i] = quantize(halfToFloat(h))
		}
	case wgpu.TextureFormatRGBA32Float:
		if len(data) < pixels*16 {
			return nil, fmt.Errorf("readback data too short: got %d bytes, need %d", len(data), pixels*16)
		}
		for i := 0; i < pixels*4; i++ {
			bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
			img.Pix[i] = quantize(math.Float32frombits(bits))
		}
	default:
		return nil, fmt.Errorf("unsupported export format %v", format)
	}

	return img, nil
}

// quantize clamps a float channel to [0, 1] and maps it to an 8-bit value.
func quantize(v float32) uint8 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// halfToFloat converts an IEEE 754 half-precision value to float32.
func halfToFloat(h uint16) float32 {
	sign := uint32(h>>15) & 1
	exp := uint32(h>>10) & 0x1F
	frac := uint32(h) & 0x3FF

	var bits uint32
	switch exp {
	case 0:
		if frac == 0 {
			bits = sign << 31
		} else {
			// subnormal half, normalize into float32 range
			e := uint32(127 - 15 + 1)
			for frac&0x400 == 0 {
				frac <<= 1
				e--
			}
			frac &= 0x3FF
			bits = sign<<31 | e<<23 | frac<<13
		}
	case 0x1F:
		bits = sign<<31 | 0xFF<<23 | frac<<13
	default:
		bits = sign<<31 | (exp+127-15)<<23 | frac<<13
	}
	return math.Float32frombits(bits)
}
