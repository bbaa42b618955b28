package engine

import (
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spaghettifunk/vkframe/engine/assets"
	"github.com/spaghettifunk/vkframe/engine/core"
	"github.com/spaghettifunk/vkframe/engine/platform"
	"github.com/spaghettifunk/vkframe/engine/renderer"
	"github.com/spaghettifunk/vkframe/engine/renderer/components"
	"github.com/spaghettifunk/vkframe/engine/renderer/present"
)

type Stage uint8

const (
	EngineStageUninitialized Stage = iota
	EngineStageInitialized
	EngineStageRunning
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	config       *core.Config
	session      uuid.UUID
	isRunning    atomic.Bool

	platform *platform.Platform
	renderer *renderer.Renderer
	camera   *components.FlyController
	watcher  *assets.ShaderWatcher
	clock    *core.Clock
	metrics  *core.Metrics
	lastTime float64
}

func New(cfg *core.Config) (*Engine, error) {
	p, err := platform.New()
	if err != nil {
		return nil, err
	}
	if err := core.SetLogLevel(cfg.Application.LogLevel); err != nil {
		return nil, err
	}

	session := uuid.New()
	core.WithPrefix(session.String()[:8])

	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		session:      session,
		platform:     p,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}, nil
}

func (e *Engine) Initialize() error {
	app := e.config.Application
	if err := e.platform.Startup(app.Name, app.StartX, app.StartY, app.Width, app.Height); err != nil {
		return err
	}

	r, err := renderer.New(e.platform, e.config)
	if err != nil {
		e.platform.Shutdown()
		return err
	}
	e.renderer = r
	e.camera = components.NewFlyController(r.Camera())

	if e.config.Assets.HotReload {
		w, err := assets.NewShaderWatcher(e.config.Assets.ShaderDir, ".spv")
		if err != nil {
			// Rendering works without it.
			core.LogWarn("shader hot reload disabled: %s", err)
		} else {
			e.watcher = w
		}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("session %s initialized", e.session)
	return nil
}

// Stop asks the loop to exit after the current frame. Safe from any
// goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

// Run drives frames until the window closes or Stop is called. Only fatal
// device errors are returned.
func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() && !e.platform.ShouldClose() {
		e.platform.PumpMessages()

		if e.watcher != nil && e.watcher.Changed() {
			if err := e.renderer.ReloadShaders(); err != nil {
				return err
			}
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		e.camera.Update(e.platform.Input(), delta)
		e.platform.Input().Update()

		status, err := e.renderer.DrawFrame(delta)
		if err != nil {
			if errors.Is(err, present.ErrWindowClosing) {
				core.LogInfo("window closed while minimized")
				break
			}
			return err
		}
		if status != present.FramePresented {
			core.LogDebug("frame %s", status)
		}

		if e.metrics.Update(delta) {
			fps, ms := e.metrics.Frame()
			frames, recreations := e.renderer.Stats()
			core.LogDebug("%.0f fps, %.2f ms avg, %d frames, %d swapchain rebuilds", fps, ms, frames, recreations)
		}
		e.lastTime = currentTime
	}
	return nil
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.clock.Stop()

	var err error
	if e.watcher != nil {
		if werr := e.watcher.Close(); werr != nil {
			core.LogWarn("shader watcher: %s", werr)
		}
	}
	if e.renderer != nil {
		err = e.renderer.Shutdown()
	}
	if perr := e.platform.Shutdown(); perr != nil && err == nil {
		err = perr
	}
	core.LogInfo("session %s shut down", e.session)
	return err
}
