package engine

import (
	"errors"
	"sync/atomic"

	vk "github.com/goki/vulkan"

	"github.com/Kobazaaa/Ashen/engine/assets"
	"github.com/Kobazaaa/Ashen/engine/core"
	"github.com/Kobazaaa/Ashen/engine/platform"
	"github.com/Kobazaaa/Ashen/engine/renderer"
	"github.com/Kobazaaa/Ashen/engine/renderer/components"
	"github.com/Kobazaaa/Ashen/engine/renderer/metadata"
	"github.com/Kobazaaa/Ashen/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Every resource has been released
	EngineStageShutdown
)

type Engine struct {
	currentStage Stage
	config       *core.Config
	isRunning    atomic.Bool

	input    *core.InputState
	window   *platform.Window
	device   *vulkan.VulkanDevice
	context  *vulkan.GraphicsContext
	frontend *renderer.Frontend
	watcher  *assets.ShaderWatcher

	clock   *core.Clock
	metrics *core.Metrics
}

func New(config *core.Config) (*Engine, error) {
	if config == nil {
		return nil, errors.New("engine needs a configuration")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       config,
		input:        core.NewInputState(),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}, nil
}

func (e *Engine) Stage() Stage { return e.currentStage }

// Initialize brings up the window and everything Vulkan needs to draw into it.
// On failure everything created so far is released again.
func (e *Engine) Initialize() (err error) {
	e.currentStage = EngineStageInitializing
	defer func() {
		if err != nil {
			e.Shutdown()
		}
	}()

	if err := core.SetLogLevel(e.config.Log.Level); err != nil {
		core.LogWarn("ignoring log level: %s", err)
	}

	e.window, err = platform.NewWindow(e.config.Window, e.input)
	if err != nil {
		return err
	}

	e.device, err = vulkan.NewVulkanDevice(e.window, e.config.Window.Title, e.config.Renderer.Validation)
	if err != nil {
		return err
	}

	width, height := e.window.FramebufferSize()
	e.context, err = vulkan.NewGraphicsContext(e.device, vk.Extent2D{Width: uint32(width), Height: uint32(height)})
	if err != nil {
		return err
	}

	scattering := metadata.NewScattering(e.config.Scattering, e.config.Renderer.Exposure)
	backend, err := vulkan.NewRenderer(e.context, e.window, e.config.Renderer, scattering.OuterRadius())
	if err != nil {
		return err
	}
	camera := components.NewCamera(e.config.Camera, e.window.AspectRatio())
	e.frontend = renderer.NewFrontend(backend, scattering, camera)

	if e.config.Renderer.HotReload {
		e.watcher, err = assets.NewShaderWatcher(e.config.Renderer.ShaderDir)
		if err != nil {
			core.LogWarn("shader hot reload disabled: %s", err)
			e.watcher = nil
		}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized")
	return nil
}

// Run drives frames until the window closes, Stop is called or a frame fails.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine is not initialized")
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	defer e.Shutdown()

	e.clock.Start()
	e.clock.Update()

	var dirty <-chan struct{}
	if e.watcher != nil {
		dirty = e.watcher.Dirty()
	}

	for e.isRunning.Load() && !e.window.ShouldClose() {
		e.window.PollEvents()
		e.clock.Update()
		delta := e.clock.Delta()

		if err := processCommands(e.input, dirty, e.frontend, e.window); err != nil {
			return err
		}
		if e.window.ShouldClose() {
			break
		}

		if err := e.frontend.DrawFrame(e.input, delta); err != nil {
			core.LogError("frame %d failed: %s", e.frontend.FrameCount(), err)
			return err
		}

		if e.metrics.Update(delta) {
			core.LogDebug("FPS: %.0f frame time: %.3fms", e.metrics.FPS(), e.metrics.FrameTime())
		}

		// NOTE: Input state copying should always happen after every consumer
		// has read this frame's input.
		e.input.Update()
	}
	return nil
}

// Stop asks the frame loop to exit after the current frame. Safe to call from
// any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

// Shutdown releases everything in reverse creation order. Calling it more than
// once is a no-op.
func (e *Engine) Shutdown() {
	if e.currentStage == EngineStageShutdown {
		return
	}
	e.currentStage = EngineStageShuttingDown
	e.clock.Stop()

	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			core.LogWarn(err.Error())
		}
		e.watcher = nil
	}
	if e.frontend != nil {
		e.frontend.Shutdown()
		e.frontend = nil
	}
	if e.context != nil {
		e.context.Destroy()
		e.context = nil
	}
	if e.device != nil {
		e.device.Destroy()
		e.device = nil
	}
	if e.window != nil {
		e.window.Destroy()
		e.window = nil
	}

	e.currentStage = EngineStageShutdown
	core.LogInfo("engine shut down")
}

type commandTarget interface {
	ToggleHDR() error
	ReloadShaders() error
}

type closer interface {
	Close()
}

// processCommands handles the keys and events that act on the engine itself
// rather than the camera. Escape wins over every other command.
func processCommands(input *core.InputState, dirty <-chan struct{}, target commandTarget, window closer) error {
	if input.IsKeyPressed(core.KEY_ESCAPE) {
		window.Close()
		return nil
	}
	if input.IsKeyPressed(core.KEY_H) {
		if err := target.ToggleHDR(); err != nil {
			return err
		}
	}
	select {
	case <-dirty:
		return target.ReloadShaders()
	default:
	}
	return nil
}
