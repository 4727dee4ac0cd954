package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBindGroupProviderDefaults(t *testing.T) {
	p := NewBindGroupProvider("overlay badge")

	assert.Equal(t, "overlay badge", p.Label())
	assert.Nil(t, p.BindGroup())
	assert.Nil(t, p.BindGroupLayout())

	require.NotNil(t, p.Buffers())
	require.NotNil(t, p.TextureViews())
	require.NotNil(t, p.Samplers())
	assert.Empty(t, p.Buffers())
	assert.Empty(t, p.TextureViews())
	assert.Empty(t, p.Samplers())
}

func TestBindGroupProviderStoresResourcesByBinding(t *testing.T) {
	p := NewBindGroupProvider("overlay")

	buf := &wgpu.Buffer{}
	tv := &wgpu.TextureView{}
	samp := &wgpu.Sampler{}

	p.SetBuffer(0, buf)
	p.SetTextureView(1, tv)
	p.SetSampler(2, samp)

	assert.Same(t, buf, p.Buffer(0))
	assert.Same(t, tv, p.TextureView(1))
	assert.Same(t, samp, p.Sampler(2))

	// unset bindings resolve to nil, not a panic
	assert.Nil(t, p.Buffer(7))
	assert.Nil(t, p.TextureView(7))
	assert.Nil(t, p.Sampler(7))
}

func TestBindGroupProviderBulkSetters(t *testing.T) {
	p := NewBindGroupProvider("overlay")

	buffers := map[int]*wgpu.Buffer{0: {}, 3: {}}
	views := map[int]*wgpu.TextureView{1: {}}
	samplers := map[int]*wgpu.Sampler{2: {}}

	p.SetBuffers(buffers)
	p.SetTextureViews(views)
	p.SetSamplers(samplers)

	assert.Equal(t, buffers, p.Buffers())
	assert.Equal(t, views, p.TextureViews())
	assert.Equal(t, samplers, p.Samplers())
	assert.Same(t, buffers[3], p.Buffer(3))
}

func TestBindGroupProviderOptions(t *testing.T) {
	buf := &wgpu.Buffer{}
	tv := &wgpu.TextureView{}
	samp := &wgpu.Sampler{}

	p := NewBindGroupProvider("seeded",
		WithBuffer(0, buf),
		WithTextureView(1, tv),
		WithSampler(2, samp),
	)

	assert.Same(t, buf, p.Buffer(0))
	assert.Same(t, tv, p.TextureView(1))
	assert.Same(t, samp, p.Sampler(2))
}

func TestBindGroupProviderWithBuffersOptionReplacesMap(t *testing.T) {
	buffers := map[int]*wgpu.Buffer{0: {}, 1: {}}
	p := NewBindGroupProvider("seeded", WithBuffers(buffers))

	assert.Equal(t, buffers, p.Buffers())
}

func TestBindGroupProviderReleaseEmptyIsIdempotent(t *testing.T) {
	p := NewBindGroupProvider("empty")

	p.Release()
	p.Release()

	assert.Empty(t, p.Buffers())
	assert.Empty(t, p.TextureViews())
	assert.Empty(t, p.Samplers())
	assert.Nil(t, p.BindGroup())
	assert.Nil(t, p.BindGroupLayout())
}

func TestBufferWriteTargetsProviderBinding(t *testing.T) {
	buf := &wgpu.Buffer{}
	p := NewBindGroupProvider("overlay", WithBuffer(0, buf))

	w := BufferWrite{Provider: p, Binding: 0, Offset: 16, Data: []byte{1, 2, 3, 4}}

	assert.Same(t, buf, w.Provider.Buffer(w.Binding))
	assert.Nil(t, w.Provider.Buffer(5))
}
