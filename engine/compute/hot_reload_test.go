package compute

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKernelFile(t *testing.T, path, source string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
}

func TestHotReloaderAppliesFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kernel.wgsl")
	writeKernelFile(t, path, "fn a() {}")

	var compiled []string
	h, err := newHotReloader(path, func(source string) error {
		compiled = append(compiled, source)
		return nil
	})
	require.NoError(t, err)
	defer h.close()

	// nothing changed yet
	assert.Equal(t, ReloadUnchanged, h.poll())
	assert.Empty(t, compiled)

	writeKernelFile(t, path, "fn b() {}")
	require.Eventually(t, func() bool {
		return h.poll() == ReloadApplied
	}, 5*time.Second, 10*time.Millisecond)
	require.NotEmpty(t, compiled)
	assert.Equal(t, "fn b() {}", compiled[len(compiled)-1])
}

func TestHotReloaderKeepsPipelinesOnCompileError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kernel.wgsl")
	writeKernelFile(t, path, "fn a() {}")

	h, err := newHotReloader(path, func(source string) error {
		return assert.AnError
	})
	require.NoError(t, err)
	defer h.close()

	h.dirty.Store(true)
	assert.Equal(t, ReloadFailed, h.poll())

	// a failed compile does not retry until the file changes again
	assert.Equal(t, ReloadUnchanged, h.poll())
}

func TestHotReloaderRearmsOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.wgsl")
	writeKernelFile(t, path, "fn a() {}")

	h, err := newHotReloader(path, func(source string) error { return nil })
	require.NoError(t, err)
	defer h.close()

	require.NoError(t, os.Remove(path))
	h.dirty.Store(true)

	assert.Equal(t, ReloadUnchanged, h.poll())
	assert.True(t, h.dirty.Load())
}

func TestHotReloaderCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kernel.wgsl")
	writeKernelFile(t, path, "fn a() {}")

	h, err := newHotReloader(path, func(source string) error { return nil })
	require.NoError(t, err)

	h.close()
	h.close()
}

func TestReloadStatusString(t *testing.T) {
	assert.Equal(t, "unchanged", ReloadUnchanged.String())
	assert.Equal(t, "applied", ReloadApplied.String())
	assert.Equal(t, "failed", ReloadFailed.String())
	assert.Equal(t, "ReloadStatus(9)", ReloadStatus(9).String())
}
