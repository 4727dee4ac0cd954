package compute

import (
	"testing"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveGroupLayoutsMinimal(t *testing.T) {
	groups := DeriveGroupLayouts(Config{
		Label:       "minimal",
		EntryPoints: []string{"main"},
	})

	require.Len(t, groups, 3)
	assert.Equal(t, ResourceGlobals, groups[0].Kind)
	assert.Equal(t, ResourcePassInput, groups[1].Kind)
	assert.Equal(t, ResourceWriteTarget, groups[2].Kind)

	for i, g := range groups {
		assert.Equal(t, i, g.Group)
	}

	// fixed multi-input group: three textures then three samplers
	passInput := groups[1].Descriptor.Entries
	require.Len(t, passInput, maxPassInputs*2)
	for i := 0; i < maxPassInputs; i++ {
		assert.Equal(t, uint32(i), passInput[i].Binding)
		assert.Equal(t, wgpu.TextureSampleTypeFloat, passInput[i].Texture.SampleType)
	}
	for i := 0; i < maxPassInputs; i++ {
		entry := passInput[maxPassInputs+i]
		assert.Equal(t, uint32(maxPassInputs+i), entry.Binding)
		assert.Equal(t, wgpu.SamplerBindingTypeFiltering, entry.Sampler.Type)
	}
}

func TestDeriveGroupLayoutsFull(t *testing.T) {
	groups := DeriveGroupLayouts(Config{
		Label:             "full",
		EntryPoints:       []string{"main"},
		CustomUniformSize: 32,
		StorageBuffers: []StorageBufferSpec{
			{Label: "particles", Size: 1024},
			{Label: "counters", Size: 64},
		},
		AtomicBufferMultiples: 2,
		ChannelTextures:       1,
		MouseUniform:          true,
		AudioSamples:          512,
		FontAtlas:             true,
	})

	kinds := make([]ResourceKind, len(groups))
	for i, g := range groups {
		kinds[i] = g.Kind
		assert.Equal(t, i, g.Group)
	}
	assert.Equal(t, []ResourceKind{
		ResourceGlobals,
		ResourcePassInput,
		ResourceWriteTarget,
		ResourceCustomUniform,
		ResourceStorage,
		ResourceAtomic,
		ResourceChannel,
		ResourceExtras,
	}, kinds)

	// storage buffers bound in declared order
	storage := groups[4].Descriptor.Entries
	require.Len(t, storage, 2)
	assert.Equal(t, uint64(1024), storage[0].Buffer.MinBindingSize)
	assert.Equal(t, uint64(64), storage[1].Buffer.MinBindingSize)

	// extras bindings are fixed regardless of which flags are enabled
	extras := groups[7].Descriptor.Entries
	require.Len(t, extras, 4)
	assert.Equal(t, uint32(extrasBindingMouse), extras[0].Binding)
	assert.Equal(t, uint32(extrasBindingAudio), extras[1].Binding)
	assert.Equal(t, uint64(512*4), extras[1].Buffer.MinBindingSize)
	assert.Equal(t, uint32(extrasBindingFontTexture), extras[2].Binding)
	assert.Equal(t, uint32(extrasBindingFontSampler), extras[3].Binding)
}

func TestDeriveGroupLayoutsChannelSlots(t *testing.T) {
	groups := DeriveGroupLayouts(Config{
		Label:           "media",
		EntryPoints:     []string{"main"},
		ChannelTextures: 2,
	})

	channel := groups[len(groups)-1]
	assert.Equal(t, ResourceChannel, channel.Kind)

	// each slot is texture at 2i, sampler at 2i+1
	entries := channel.Descriptor.Entries
	require.Len(t, entries, 4)
	for i := 0; i < 2; i++ {
		tex := entries[2*i]
		assert.Equal(t, uint32(2*i), tex.Binding)
		assert.Equal(t, wgpu.TextureSampleTypeFloat, tex.Texture.SampleType)
		samp := entries[2*i+1]
		assert.Equal(t, uint32(2*i+1), samp.Binding)
		assert.Equal(t, wgpu.SamplerBindingTypeFiltering, samp.Sampler.Type)
	}
}

func TestDeriveGroupLayoutsSkipsDisabledKinds(t *testing.T) {
	groups := DeriveGroupLayouts(Config{
		Label:                 "atomic-only",
		EntryPoints:           []string{"main"},
		AtomicBufferMultiples: 1,
	})

	require.Len(t, groups, 4)
	assert.Equal(t, ResourceAtomic, groups[3].Kind)
	assert.Equal(t, 3, groups[3].Group)
}

func TestDeriveGroupLayoutsExtrasAudioOnly(t *testing.T) {
	groups := DeriveGroupLayouts(Config{
		Label:        "audio",
		EntryPoints:  []string{"main"},
		AudioSamples: 256,
	})

	extras := groups[len(groups)-1]
	assert.Equal(t, ResourceExtras, extras.Kind)
	require.Len(t, extras.Descriptor.Entries, 1)
	assert.Equal(t, uint32(extrasBindingAudio), extras.Descriptor.Entries[0].Binding)
}

func TestDeriveGroupLayoutsWriteTargetFormat(t *testing.T) {
	groups := DeriveGroupLayouts(Config{
		Label:        "fmt",
		EntryPoints:  []string{"main"},
		OutputFormat: wgpu.TextureFormatRGBA32Float,
	})

	target := groups[2].Descriptor.Entries[0]
	assert.Equal(t, wgpu.TextureFormatRGBA32Float, target.StorageTexture.Format)
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, target.StorageTexture.Access)
}

func TestResourceKindString(t *testing.T) {
	assert.Equal(t, "globals", ResourceGlobals.String())
	assert.Equal(t, "pass-input", ResourcePassInput.String())
	assert.Equal(t, "write-target", ResourceWriteTarget.String())
	assert.Equal(t, "atomic", ResourceAtomic.String())
	assert.Equal(t, "ResourceKind(99)", ResourceKind(99).String())
}

func TestUniformStructSizes(t *testing.T) {
	assert.Equal(t, uintptr(globalsUniformSize), unsafe.Sizeof(Globals{}))
	assert.Equal(t, uintptr(mouseUniformSize), unsafe.Sizeof(Mouse{}))
}
