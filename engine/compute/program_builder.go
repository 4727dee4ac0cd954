package compute

// ProgramOption configures optional Program settings during construction.
type ProgramOption func(*program)

// WithKernelSource supplies the WGSL kernel source directly. Mutually exclusive
// with WithKernelFile; hot reload is unavailable for in-memory sources.
//
// Parameters:
//   - source: the raw WGSL kernel source
//
// Returns:
//   - ProgramOption: the option to apply
func WithKernelSource(source string) ProgramOption {
	return func(p *program) {
		p.kernelSource = source
	}
}

// WithKernelFile loads the WGSL kernel source from disk.
//
// Parameters:
//   - path: the kernel source file path
//
// Returns:
//   - ProgramOption: the option to apply
func WithKernelFile(path string) ProgramOption {
	return func(p *program) {
		p.kernelPath = path
	}
}

// WithHotReload watches the kernel file for modification and swaps the
// compiled pipelines between frames when it changes. Requires WithKernelFile.
//
// Returns:
//   - ProgramOption: the option to apply
func WithHotReload() ProgramOption {
	return func(p *program) {
		p.hotReload = true
	}
}

// WithBuffers declares the named ping-pong buffers, in order. A pass whose name
// matches a buffer writes that buffer; all other passes write the final output.
//
// Parameters:
//   - names: the buffer names
//
// Returns:
//   - ProgramOption: the option to apply
func WithBuffers(names ...string) ProgramOption {
	return func(p *program) {
		p.bufferNames = names
	}
}

// WithPasses declares the dispatch order explicitly. Without this option the
// program runs one pass per entry point, in declared entry point order, with no
// buffer inputs.
//
// Parameters:
//   - passes: the pass list, in dispatch order
//
// Returns:
//   - ProgramOption: the option to apply
func WithPasses(passes ...Pass) ProgramOption {
	return func(p *program) {
		p.passes = passes
	}
}

// WithFlipMode sets the initial parity flip mode.
//
// Parameters:
//   - mode: the flip mode
//
// Returns:
//   - ProgramOption: the option to apply
func WithFlipMode(mode FlipMode) ProgramOption {
	return func(p *program) {
		p.flipMode = mode
	}
}

// WithSize sets the initial surface dimensions. Defaults to 800x600.
//
// Parameters:
//   - width: surface width in pixels
//   - height: surface height in pixels
//
// Returns:
//   - ProgramOption: the option to apply
func WithSize(width, height int) ProgramOption {
	return func(p *program) {
		if width > 0 && height > 0 {
			p.width, p.height = width, height
		}
	}
}
