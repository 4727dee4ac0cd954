// pre_processor.go implements the kernel WGSL pre-processor. It scans kernel
// source code for //@kernel:include annotations and replaces them with
// registered WGSL snippet sources so kernels stay structurally in sync with the
// Go-side bind group layouts (the Globals struct, accumulation helpers, and
// tone-mapping helpers are defined once, here, not copied into every kernel).
package compute

import (
	"fmt"
	"regexp"
	"strings"
)

// kernelIncludeRegex matches a pre-processor annotation line of the form
// //@kernel:include <name>
var kernelIncludeRegex = regexp.MustCompile(`^\s*//@kernel:include\s+(\S+)\s*$`)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// snippetRegistry maps include names to embedded WGSL snippet sources.
	snippetRegistry map[string]string
}

// PreProcessor processes raw WGSL kernel source containing //@kernel:
// annotations, replacing them with the corresponding registered WGSL snippets.
type PreProcessor interface {
	// Process takes raw WGSL kernel source and replaces every
	// //@kernel:include annotation with the registered snippet source.
	// Non-annotation lines pass through unchanged.
	//
	// Parameters:
	//   - source: the raw WGSL kernel source
	//
	// Returns:
	//   - string: the processed source with annotations expanded
	//   - error: an error if an annotation references an unknown snippet
	Process(source string) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the built-in snippet registry
// pre-populated.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		snippetRegistry: map[string]string{
			"globals":      wgslGlobalsSource,
			"mouse":        wgslMouseSource,
			"accumulation": wgslAccumulationSource,
			"tonemap":      wgslTonemapSource,
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		m := kernelIncludeRegex.FindStringSubmatch(line)
		if m == nil {
			out = append(out, line)
			continue
		}
		snippet, ok := p.snippetRegistry[m[1]]
		if !ok {
			return "", fmt.Errorf("line %d: unknown //@kernel:include argument %q", i+1, m[1])
		}
		out = append(out, snippet)
	}
	return strings.Join(out, "\n"), nil
}
