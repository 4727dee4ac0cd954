package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtomicBufferSize(t *testing.T) {
	assert.Equal(t, uint64(1280*720*4), atomicBufferSize(1280, 720, 1))
	assert.Equal(t, uint64(1280*720*3*4), atomicBufferSize(1280, 720, 3))
	assert.Equal(t, uint64(0), atomicBufferSize(0, 720, 1))
}

func TestAtomicBufferShouldClear(t *testing.T) {
	ab := &atomicBuffer{}

	// default: cleared every frame
	assert.True(t, ab.shouldClear())
	assert.True(t, ab.shouldClear())

	ab.SetPersistent(true)
	assert.True(t, ab.Persistent())
	assert.False(t, ab.shouldClear())
	assert.False(t, ab.shouldClear())

	// a reset fires exactly once, then persistence resumes
	ab.Reset()
	assert.True(t, ab.shouldClear())
	assert.False(t, ab.shouldClear())

	ab.SetPersistent(false)
	assert.True(t, ab.shouldClear())
}
