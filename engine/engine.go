// Package engine assembles one fractal instance: the parameter store, its
// settings binding, the render pipeline and the gesture machine. Hosts feed it
// surface callbacks and pointer events.
package engine

import (
	"sync"

	"github.com/stewi1014/juliawall/gesture"
	"github.com/stewi1014/juliawall/internal/logging"
	"github.com/stewi1014/juliawall/params"
	"github.com/stewi1014/juliawall/programs"
	"github.com/stewi1014/juliawall/render"
)

type Config struct {
	Program programs.Program
	Gesture gesture.Config
	// Clock drives gesture timers. Nil uses gesture.SystemClock.
	Clock gesture.Clock
}

func DefaultConfig() Config {
	return Config{
		Program: programs.Julia,
		Gesture: gesture.DefaultConfig(),
	}
}

type Engine struct {
	store    *params.Store
	pipeline *render.Pipeline
	sync     *params.Sync
	gestures *gesture.Machine

	closeOnce sync.Once
	closeErr  error
}

// New builds an engine drawing on dev and asking surface for frames.
// Parameters start from defaults overlaid with whatever settings holds.
func New(cfg Config, settings params.Settings, dev render.Device, surface render.Surface) *Engine {
	if cfg.Program.FragmentShader == "" {
		cfg.Program = programs.Julia
	}
	if cfg.Gesture == (gesture.Config{}) {
		cfg.Gesture = gesture.DefaultConfig()
	}

	e := &Engine{
		store: params.NewStore(params.Defaults()),
	}
	e.pipeline = render.New(dev, cfg.Program, e.store, surface)
	e.sync = params.Attach(settings, e.store, e.pipeline)
	e.gestures = gesture.New(cfg.Gesture, e.sync, cfg.Clock)

	logging.Logger().Info("engine created", "params", e.sync)
	return e
}

func (e *Engine) Store() *params.Store {
	return e.store
}

func (e *Engine) Pipeline() *render.Pipeline {
	return e.pipeline
}

func (e *Engine) Gestures() *gesture.Machine {
	return e.gestures
}

func (e *Engine) SurfaceCreated() error {
	return e.pipeline.SurfaceCreated()
}

// SurfaceLost releases GPU objects when the host drops its graphics context.
func (e *Engine) SurfaceLost() {
	e.pipeline.SurfaceLost()
}

func (e *Engine) SurfaceChanged(width, height int) {
	e.gestures.Resize(width, height)
	e.pipeline.SurfaceChanged(width, height)
}

func (e *Engine) DrawFrame() error {
	return e.pipeline.DrawFrame()
}

// SetVisible pauses rendering while the surface is hidden.
func (e *Engine) SetVisible(visible bool) {
	if visible {
		e.Resume()
	} else {
		e.Pause()
	}
}

func (e *Engine) Pause() {
	e.pipeline.Pause()
}

// Resume reloads the persisted constant and restarts rendering.
func (e *Engine) Resume() {
	e.sync.Resume()
	e.pipeline.Resume()
}

func (e *Engine) Touch(ev gesture.Event) {
	e.gestures.Handle(ev)
}

func (e *Engine) Scale(factor float32) {
	e.gestures.Scale(factor)
}

// Close stops gestures, persists the constant and zoom, and releases the
// pipeline. Only the first call has any effect.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.gestures.Close()
		e.closeErr = e.sync.Detach()
		e.pipeline.Destroy()
		logging.Logger().Info("engine closed")
	})
	return e.closeErr
}
