package compute

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKernelSource = `//@kernel:include globals

@group(2) @binding(0) var output: texture_storage_2d<rgba16float, write>;

@compute @workgroup_size(8, 4)
fn first(@builtin(global_invocation_id) gid: vec3<u32>) {
    textureStore(output, vec2<i32>(gid.xy), vec4<f32>(globals.time));
}

@compute @workgroup_size(8, 4)
fn second(@builtin(global_invocation_id) gid: vec3<u32>) {
    textureStore(output, vec2<i32>(gid.xy), vec4<f32>(0.0));
}
`

func TestNewKernelExpandsIncludes(t *testing.T) {
	k, err := NewKernel(testKernelSource)
	require.NoError(t, err)

	assert.Contains(t, k.Source(), "struct Globals")
	assert.Contains(t, k.Source(), "var<uniform> globals: Globals")
	assert.NotContains(t, k.Source(), "//@kernel:include")
}

func TestNewKernelParsesEntryPoints(t *testing.T) {
	k, err := NewKernel(testKernelSource)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, k.EntryPoints())
	assert.True(t, k.HasEntryPoint("first"))
	assert.True(t, k.HasEntryPoint("second"))
	assert.False(t, k.HasEntryPoint("third"))
	assert.Equal(t, [3]uint32{8, 4, 1}, k.WorkgroupSize())
}

func TestNewKernelUnknownInclude(t *testing.T) {
	_, err := NewKernel("//@kernel:include nope\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)
}

func TestLoadKernel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kernel.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(testKernelSource), 0o644))

	k, err := LoadKernel(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, k.EntryPoints())
}

func TestLoadKernelMissingFile(t *testing.T) {
	_, err := LoadKernel(filepath.Join(t.TempDir(), "nope.wgsl"))
	require.Error(t, err)
}

func TestValidateEntryPoints(t *testing.T) {
	k, err := NewKernel(testKernelSource)
	require.NoError(t, err)

	assert.NoError(t, validateEntryPoints([]string{"first", "second"}, k))
	assert.NoError(t, validateEntryPoints([]string{"second"}, k))

	err = validateEntryPoints([]string{"first", "missing", "also_missing"}, k)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "also_missing, missing")
	assert.Contains(t, err.Error(), "first, second")
}

func TestPreProcessorPassThrough(t *testing.T) {
	src := "fn helper() -> f32 {\n    return 1.0;\n}\n"
	out, err := NewPreProcessor().Process(src)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestPreProcessorAllSnippets(t *testing.T) {
	src := "//@kernel:include globals\n//@kernel:include mouse\n//@kernel:include accumulation\n//@kernel:include tonemap\n"
	out, err := NewPreProcessor().Process(src)
	require.NoError(t, err)

	assert.Contains(t, out, "struct Globals")
	assert.Contains(t, out, "struct Mouse")
	assert.Contains(t, out, "fn cell_index")
	assert.Contains(t, out, "fn tonemap_log")
}

func TestPreProcessorIndentedAnnotation(t *testing.T) {
	out, err := NewPreProcessor().Process("    //@kernel:include tonemap")
	require.NoError(t, err)
	assert.Contains(t, out, "fn tonemap_log")
}
