package engine

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/rsyai-oos/cuneus-sub001/engine/compute"
	"github.com/rsyai-oos/cuneus-sub001/engine/profiler"
	"github.com/rsyai-oos/cuneus-sub001/engine/renderer"
	"github.com/rsyai-oos/cuneus-sub001/engine/window"
)

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	renderer renderer.Renderer

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	programs map[int]compute.Program

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the framework.
// It orchestrates the compute dispatch loop, presentation, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the presentation renderer shared by all programs.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance, or nil if not configured
	Renderer() renderer.Renderer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// The tick callback will be called at this rate for logic updates.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for input processing and parameter animation.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called each render frame between BeginFrame
	// and EndFrame, after all program outputs have been blitted. Use this for overlay draws
	// and per-frame GPU buffer updates.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddProgram registers a compute program at the given z-index key.
	// Program outputs are blitted in ascending key order during the render loop,
	// so later keys draw over earlier ones.
	//
	// Parameters:
	//   - key: the z-index determining blit order (lower blits first)
	//   - p: the Program to register
	AddProgram(key int, p compute.Program)

	// RemoveProgram removes the program at the given z-index key.
	// The caller retains ownership of the program and is responsible for releasing it.
	//
	// Parameters:
	//   - key: the z-index of the program to remove
	RemoveProgram(key int)

	// Program retrieves the program registered at the given z-index key.
	// Returns nil if no program exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the program to retrieve
	//
	// Returns:
	//   - compute.Program: the program at the key, or nil if not found
	Program(key int) compute.Program

	// Programs returns a copy of all registered programs keyed by z-index.
	//
	// Returns:
	//   - map[int]compute.Program: a copy of the programs map
	Programs() map[int]compute.Program

	// Run starts the main engine loop (blocks until window closes).
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		programs:         make(map[int]compute.Program),
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if e.renderer != nil {
				e.renderer.Resize(width, height)
			}
			for _, p := range e.programs {
				p.Resize(width, height)
			}
			// Program output textures were recreated above; drop any blit
			// bind groups still referencing the old views.
			if e.renderer != nil {
				e.renderer.FlushBlitCache()
			}
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() {
	e.handle()
	e.window.ProcessMessages()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.running = true
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Each frame it polls hot reload, advances program time, dispatches every registered
// program, then blits program outputs to the surface in ascending z-index order.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	// Recover from panics inside the render goroutine to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	start := time.Now()
	lastRender := start

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			elapsed := float32(now.Sub(start).Seconds())
			lastRender = now

			// Dispatch all programs in ascending z-index order, then blit their
			// outputs within a single render pass so later keys layer over earlier ones.
			keys := make([]int, 0, len(e.programs))
			for k := range e.programs {
				keys = append(keys, k)
			}
			sort.Ints(keys)

			for _, k := range keys {
				p := e.programs[k]
				p.CheckHotReload()
				p.SetTime(elapsed, dt)
				if err := p.Dispatch(); err != nil {
					log.Printf("program %s dispatch failed: %v", p.Key(), err)
				}
			}

			if e.renderer != nil && len(keys) > 0 {
				if err := e.renderer.BeginFrame(); err == nil {
					for _, k := range keys {
						if blitErr := e.renderer.Blit(e.programs[k].OutputView()); blitErr != nil {
							log.Printf("program %s blit failed: %v", e.programs[k].Key(), blitErr)
						}
					}
					if e.renderCallback != nil {
						e.renderCallback(dt)
					}
					e.renderer.EndFrame()
					e.renderer.Present()
				}
			} else if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsedFrame := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsedFrame; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Send to channel for immediate update in running engine loop
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			// Channel has a pending update, drain and send new value
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		// Engine not running, just update the field
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

func (e *engine) AddProgram(key int, p compute.Program) {
	e.programs[key] = p
}

func (e *engine) RemoveProgram(key int) {
	delete(e.programs, key)
}

func (e *engine) Program(key int) compute.Program {
	return e.programs[key]
}

func (e *engine) Programs() map[int]compute.Program {
	cp := make(map[int]compute.Program, len(e.programs))
	for k, v := range e.programs {
		cp[k] = v
	}
	return cp
}
