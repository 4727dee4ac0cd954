package compute

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBytesPerPixel(t *testing.T) {
	tests := []struct {
		format wgpu.TextureFormat
		want   uint32
	}{
		{wgpu.TextureFormatRGBA8Unorm, 4},
		{wgpu.TextureFormatRGBA8UnormSrgb, 4},
		{wgpu.TextureFormatBGRA8Unorm, 4},
		{wgpu.TextureFormatBGRA8UnormSrgb, 4},
		{wgpu.TextureFormatRGBA16Float, 8},
		{wgpu.TextureFormatRGBA32Float, 16},
	}
	for _, test := range tests {
		got, err := formatBytesPerPixel(test.format)
		require.NoError(t, err)
		assert.Equal(t, test.want, got)
	}

	_, err := formatBytesPerPixel(wgpu.TextureFormatR8Unorm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestPaddedBytesPerRow(t *testing.T) {
	assert.Equal(t, uint32(0), paddedBytesPerRow(0))
	assert.Equal(t, uint32(256), paddedBytesPerRow(1))
	assert.Equal(t, uint32(256), paddedBytesPerRow(256))
	assert.Equal(t, uint32(512), paddedBytesPerRow(257))
	assert.Equal(t, uint32(5120), paddedBytesPerRow(1280*4))
}
