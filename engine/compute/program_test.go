package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProgramRejectsInvalidConfig(t *testing.T) {
	_, err := NewProgram("bad", nil, nil, Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one entry point")
}

func TestNewProgramRejectsTooManyChannelSlots(t *testing.T) {
	_, err := NewProgram("media", nil, nil, Config{
		EntryPoints:     []string{"main"},
		ChannelTextures: maxChannelTextures + 1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel textures")
}

func TestNewProgramRequiresKernelSource(t *testing.T) {
	_, err := NewProgram("nosource", nil, nil, Config{EntryPoints: []string{"main"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no kernel source or file provided")
}

func TestNewProgramRejectsBadInclude(t *testing.T) {
	_, err := NewProgram("badinclude", nil, nil,
		Config{EntryPoints: []string{"main"}},
		WithKernelSource("//@kernel:include nothere\n"),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nothere"`)
}
