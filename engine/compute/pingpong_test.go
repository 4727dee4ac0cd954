package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadIndexOpposite(t *testing.T) {
	assert.Equal(t, 0, writeIndex(false))
	assert.Equal(t, 1, readIndex(false))
	assert.Equal(t, 1, writeIndex(true))
	assert.Equal(t, 0, readIndex(true))

	// the write half is never the read half for either parity
	for _, parity := range []bool{false, true} {
		assert.NotEqual(t, writeIndex(parity), readIndex(parity))
	}
}

func TestResolveInputSlotsFull(t *testing.T) {
	slots, err := resolveInputSlots([]string{"a", "b", "c"}, []string{"a", "b", "c"}, maxPassInputs)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, slots)
}

func TestResolveInputSlotsFillsWithFirstDependency(t *testing.T) {
	slots, err := resolveInputSlots([]string{"trail"}, []string{"trail", "other"}, maxPassInputs)
	require.NoError(t, err)
	assert.Equal(t, []string{"trail", "trail", "trail"}, slots)
}

func TestResolveInputSlotsNoDepsUsesFirstAvailable(t *testing.T) {
	slots, err := resolveInputSlots(nil, []string{"velocity", "density"}, maxPassInputs)
	require.NoError(t, err)
	assert.Equal(t, []string{"velocity", "velocity", "velocity"}, slots)
}

func TestResolveInputSlotsNoBuffersAtAll(t *testing.T) {
	slots, err := resolveInputSlots(nil, nil, maxPassInputs)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "", ""}, slots)
}

func TestResolveInputSlotsUnknownDependency(t *testing.T) {
	_, err := resolveInputSlots([]string{"missing"}, []string{"trail"}, maxPassInputs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestResolveInputSlotsTooManyDependencies(t *testing.T) {
	_, err := resolveInputSlots([]string{"a", "b", "c", "d"}, []string{"a", "b", "c", "d"}, maxPassInputs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most")
}
