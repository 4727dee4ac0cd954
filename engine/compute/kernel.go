package compute

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rsyai-oos/cuneus-sub001/engine/renderer/shader"
)

// Kernel holds one pre-processed WGSL kernel source together with the metadata
// parsed from it. A single kernel source may declare several @compute entry
// points; the program compiles one pipeline per declared entry point.
type Kernel struct {
	source        string
	entryPoints   []string
	workgroupSize [3]uint32
}

// NewKernel pre-processes the given WGSL source (expanding //@kernel: include
// annotations) and parses its @compute entry points and @workgroup_size.
//
// Parameters:
//   - source: the raw WGSL kernel source
//
// Returns:
//   - *Kernel: the processed kernel
//   - error: an error if an annotation is malformed or references an unknown snippet
func NewKernel(source string) (*Kernel, error) {
	processed, err := NewPreProcessor().Process(source)
	if err != nil {
		return nil, err
	}
	return &Kernel{
		source:        processed,
		entryPoints:   shader.ParseComputeEntryPoints(processed),
		workgroupSize: shader.ParseWorkgroupSize(processed),
	}, nil
}

// LoadKernel reads a kernel source file from disk and processes it via NewKernel.
//
// Parameters:
//   - path: the kernel source file path
//
// Returns:
//   - *Kernel: the processed kernel
//   - error: an error if the file cannot be read or processing fails
func LoadKernel(path string) (*Kernel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read kernel source %q: %w", path, err)
	}
	k, err := NewKernel(string(data))
	if err != nil {
		return nil, fmt.Errorf("kernel %q: %w", path, err)
	}
	return k, nil
}

// Source returns the pre-processed WGSL source.
func (k *Kernel) Source() string {
	return k.source
}

// EntryPoints returns the @compute function names found in the source, in
// source order.
func (k *Kernel) EntryPoints() []string {
	return k.entryPoints
}

// HasEntryPoint reports whether the source declares the named @compute function.
func (k *Kernel) HasEntryPoint(name string) bool {
	for _, ep := range k.entryPoints {
		if ep == name {
			return true
		}
	}
	return false
}

// WorkgroupSize returns the parsed @workgroup_size, defaulting omitted
// dimensions to 1.
func (k *Kernel) WorkgroupSize() [3]uint32 {
	return k.workgroupSize
}

// validateEntryPoints checks that every declared entry point exists in the
// kernel source. All declared entry points must resolve or the whole build is
// rejected; there is no partial success.
//
// Parameters:
//   - declared: the entry point names from the config
//   - k: the kernel to validate against
//
// Returns:
//   - error: a single error naming all missing entry points and the ones found
func validateEntryPoints(declared []string, k *Kernel) error {
	var missing []string
	for _, ep := range declared {
		if !k.HasEntryPoint(ep) {
			missing = append(missing, ep)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("kernel source is missing entry points [%s]; found [%s]",
		strings.Join(missing, ", "), strings.Join(k.entryPoints, ", "))
}
