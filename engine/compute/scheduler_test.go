package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlipModeString(t *testing.T) {
	assert.Equal(t, "auto-flip", FlipModeAuto.String())
	assert.Equal(t, "manual-flip", FlipModeManual.String())
	assert.Equal(t, "FlipMode(7)", FlipMode(7).String())
}

func TestValidatePasses(t *testing.T) {
	entryPoints := []string{"advect", "present"}
	buffers := []string{"velocity", "density"}

	tests := []struct {
		name    string
		passes  []Pass
		wantErr string
	}{
		{
			name:    "empty pass list",
			passes:  nil,
			wantErr: "at least one pass",
		},
		{
			name:    "empty pass name",
			passes:  []Pass{{Name: ""}},
			wantErr: "empty name",
		},
		{
			name:    "unknown entry point",
			passes:  []Pass{{Name: "diffuse"}},
			wantErr: "no compiled entry point",
		},
		{
			name: "too many inputs",
			passes: []Pass{{
				Name:   "advect",
				Inputs: []string{"velocity", "density", "velocity", "density"},
			}},
			wantErr: "at most",
		},
		{
			name:    "unknown input buffer",
			passes:  []Pass{{Name: "advect", Inputs: []string{"pressure"}}},
			wantErr: `input "pressure"`,
		},
		{
			name: "valid",
			passes: []Pass{
				{Name: "advect", Inputs: []string{"velocity", "density"}},
				{Name: "present", Inputs: []string{"density"}},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := validatePasses(test.passes, entryPoints, buffers)
			if test.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.wantErr)
		})
	}
}

func TestWorkgroupCount(t *testing.T) {
	assert.Equal(t, uint32(80), workgroupCount(1280, 16))
	assert.Equal(t, uint32(81), workgroupCount(1281, 16))
	assert.Equal(t, uint32(1), workgroupCount(1, 16))
	assert.Equal(t, uint32(0), workgroupCount(0, 16))
	assert.Equal(t, uint32(100), workgroupCount(100, 0))
}

func TestSurfaceWorkgroups(t *testing.T) {
	assert.Equal(t, [3]uint32{80, 45, 1}, surfaceWorkgroups(1280, 720, [3]uint32{16, 16, 1}))
	assert.Equal(t, [3]uint32{160, 90, 1}, surfaceWorkgroups(1280, 720, [3]uint32{8, 8, 1}))
	assert.Equal(t, [3]uint32{81, 46, 1}, surfaceWorkgroups(1281, 721, [3]uint32{16, 16, 1}))
}
