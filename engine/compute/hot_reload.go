package compute

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// ReloadStatus is the outcome of one hot-reload poll.
type ReloadStatus int

const (
	// ReloadUnchanged means the kernel source has not changed since the last poll.
	ReloadUnchanged ReloadStatus = iota

	// ReloadApplied means the kernel recompiled and the pipeline set was swapped.
	ReloadApplied

	// ReloadFailed means recompilation failed; the previous pipelines, buffers,
	// and bind groups remain untouched and functioning.
	ReloadFailed
)

func (s ReloadStatus) String() string {
	switch s {
	case ReloadUnchanged:
		return "unchanged"
	case ReloadApplied:
		return "applied"
	case ReloadFailed:
		return "failed"
	default:
		return fmt.Sprintf("ReloadStatus(%d)", int(s))
	}
}

// hotReloader watches one kernel source file for modification. File events only
// set a dirty flag; the actual read-compile-swap runs on the frame thread via
// poll, so a swap is ordered between frames and never interrupts an in-flight
// one. The compile callback owns the swap and must be all-or-nothing: on error
// the caller's previous pipeline set stays live.
type hotReloader struct {
	path    string
	watcher *fsnotify.Watcher
	compile func(source string) error

	dirty atomic.Bool

	done      chan struct{}
	closeOnce sync.Once
}

// newHotReloader starts watching the kernel source file's directory. Watching
// the directory rather than the file itself survives editors that replace the
// file on save.
func newHotReloader(path string, compile func(source string) error) (*hotReloader, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve kernel path %q: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create kernel watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch kernel directory %q: %w", filepath.Dir(abs), err)
	}

	h := &hotReloader{
		path:    abs,
		watcher: watcher,
		compile: compile,
		done:    make(chan struct{}),
	}
	go h.watch()
	return h, nil
}

func (h *hotReloader) watch() {
	for {
		select {
		case <-h.done:
			return
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != h.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				h.dirty.Store(true)
			}
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("kernel watcher error for %s: %v", h.path, err)
		}
	}
}

// poll checks the dirty flag and, when set, reloads the kernel source. Called
// once per frame from the frame thread.
//
// Returns:
//   - ReloadStatus: the reload outcome for this poll
func (h *hotReloader) poll() ReloadStatus {
	if !h.dirty.Swap(false) {
		return ReloadUnchanged
	}
	return h.reload()
}

// reload reads the kernel source and runs the compile callback. A read failure
// or empty read re-arms the dirty flag: editors that truncate-then-write can
// briefly expose an incomplete file, and the next poll retries.
func (h *hotReloader) reload() ReloadStatus {
	data, err := os.ReadFile(h.path)
	if err != nil || len(data) == 0 {
		h.dirty.Store(true)
		return ReloadUnchanged
	}
	if err := h.compile(string(data)); err != nil {
		log.Printf("kernel reload failed for %s, keeping previous pipelines: %v", h.path, err)
		return ReloadFailed
	}
	log.Printf("kernel reloaded: %s", h.path)
	return ReloadApplied
}

func (h *hotReloader) close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.watcher.Close()
	})
}
