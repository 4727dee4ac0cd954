package compute

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{EntryPoints: []string{"main"}}.withDefaults()

	assert.Equal(t, [3]uint32{16, 16, 1}, cfg.WorkgroupSize)
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, cfg.OutputFormat)
	assert.Equal(t, wgpu.AddressModeClampToEdge, cfg.AddressMode)
	assert.Equal(t, wgpu.FilterModeLinear, cfg.FilterMode)
}

func TestConfigWithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		EntryPoints:   []string{"main"},
		WorkgroupSize: [3]uint32{8, 8, 1},
		OutputFormat:  wgpu.TextureFormatRGBA32Float,
		AddressMode:   wgpu.AddressModeMirrorRepeat,
	}.withDefaults()

	assert.Equal(t, [3]uint32{8, 8, 1}, cfg.WorkgroupSize)
	assert.Equal(t, wgpu.TextureFormatRGBA32Float, cfg.OutputFormat)
	assert.Equal(t, wgpu.AddressModeMirrorRepeat, cfg.AddressMode)
}

func TestConfigWithDefaultsFillsZeroDimensions(t *testing.T) {
	cfg := Config{
		EntryPoints:   []string{"main"},
		WorkgroupSize: [3]uint32{64, 0, 0},
	}.withDefaults()

	assert.Equal(t, [3]uint32{64, 1, 1}, cfg.WorkgroupSize)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "no entry points",
			cfg:     Config{Label: "x"},
			wantErr: "at least one entry point",
		},
		{
			name:    "empty entry point name",
			cfg:     Config{EntryPoints: []string{"main", ""}},
			wantErr: "empty entry point",
		},
		{
			name:    "duplicate entry point",
			cfg:     Config{EntryPoints: []string{"main", "main"}},
			wantErr: "duplicate entry point",
		},
		{
			name: "zero-size storage buffer",
			cfg: Config{
				EntryPoints:    []string{"main"},
				StorageBuffers: []StorageBufferSpec{{Label: "buf"}},
			},
			wantErr: "zero size",
		},
		{
			name: "too many channel textures",
			cfg: Config{
				EntryPoints:     []string{"main"},
				ChannelTextures: maxChannelTextures + 1,
			},
			wantErr: "channel textures",
		},
		{
			name: "valid",
			cfg: Config{
				EntryPoints:     []string{"a", "b"},
				StorageBuffers:  []StorageBufferSpec{{Label: "buf", Size: 16}},
				ChannelTextures: maxChannelTextures,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.cfg.validate()
			if test.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.wantErr)
		})
	}
}
