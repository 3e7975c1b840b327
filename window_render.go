package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gotk3/gotk3/gdk"
	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"
	"github.com/stewi1014/juliawall/engine"
	"github.com/stewi1014/juliawall/gesture"
	"github.com/stewi1014/juliawall/internal/logging"
	"github.com/stewi1014/juliawall/params"
	"github.com/stewi1014/juliawall/render"
)

// scrollFactor is the pinch factor one scroll step stands in for.
const scrollFactor = 1.05

func NewRenderWindow(
	ctx context.Context,
	app *gtk.Application,
	settings params.Settings,
	debug bool,
) (*RenderWindow, error) {
	var err error
	w := &RenderWindow{
		ctx: ctx,
	}

	w.ApplicationWindow, err = gtk.ApplicationWindowNew(app)
	if err != nil {
		return nil, fmt.Errorf("gtk.ApplicationWindowNew: %w", err)
	}

	w.SetDefaultSize(getWindowSize())

	w.gla, err = gtk.GLAreaNew()
	if err != nil {
		return nil, fmt.Errorf("gtk.GLAreaNew: %w", err)
	}

	cfg := engine.DefaultConfig()
	cfg.Gesture.DoubleTapTimeout = doubleClickTime(cfg.Gesture.DoubleTapTimeout)
	w.engine = engine.New(cfg, settings, &render.GLDevice{Debug: debug}, w)

	w.gla.SetRequiredVersion(4, 6)
	w.gla.SetAutoRender(false)
	w.gla.Connect("realize", w.glaRealize)
	w.gla.Connect("render", w.glaRender)
	w.gla.Connect("resize", w.resize)

	w.gla.SetEvents(
		int(gdk.BUTTON_PRESS_MASK) |
			int(gdk.BUTTON_RELEASE_MASK) |
			int(gdk.BUTTON_MOTION_MASK) |
			int(gdk.SCROLL_MASK),
	)
	w.gla.Connect("scroll-event", w.scroll)
	w.gla.Connect("button-press-event", w.button)
	w.gla.Connect("button-release-event", w.button)
	w.gla.Connect("motion-notify-event", w.motion)

	w.gla.Connect("unrealize", w.glaUnrealize)
	w.Connect("window-state-event", w.windowState)
	w.Connect("destroy", w.destroyed)

	w.Add(w.gla)
	w.ShowAll()

	return w, nil
}

func getWindowSize() (width, height int) {
	width = 1200
	height = 800

	display, err := gdk.DisplayGetDefault()
	if err != nil {
		return
	}

	monitor, err := display.GetPrimaryMonitor()
	if err != nil {
		return
	}

	width = int(float32(monitor.GetGeometry().GetWidth()) * .6)
	height = int(float32(monitor.GetGeometry().GetHeight()) * .6)
	return
}

// doubleClickTime reads the desktop's double click threshold.
func doubleClickTime(fallback time.Duration) time.Duration {
	s, err := gtk.SettingsGetDefault()
	if err != nil {
		return fallback
	}
	v, err := s.GetProperty("gtk-double-click-time")
	if err != nil {
		return fallback
	}
	ms, ok := v.(int)
	if !ok || ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

type RenderWindow struct {
	*gtk.ApplicationWindow
	gla    *gtk.GLArea
	engine *engine.Engine

	// pressed counts held mouse buttons, each standing in for a finger.
	pressed int

	ctx context.Context
}

// Engine exposes the parameters being drawn.
func (w *RenderWindow) Engine() *engine.Engine {
	return w.engine
}

// RequestRender may be called from any goroutine.
func (w *RenderWindow) RequestRender() {
	glib.IdleAdd(func() {
		w.gla.QueueRender()
	})
}

func (w *RenderWindow) glaRealize(gla *gtk.GLArea) {
	gla.MakeCurrent()

	if err := w.engine.SurfaceCreated(); err != nil {
		logging.Logger().Error("surface setup failed", "err", err)
		showError(w.ApplicationWindow, err)
		return
	}

	alloc := gla.GetAllocation()
	if alloc.GetWidth() > 0 && alloc.GetHeight() > 0 {
		w.engine.SurfaceChanged(alloc.GetWidth(), alloc.GetHeight())
	}
}

// glaUnrealize drops GPU objects with the context. A later realize rebuilds
// them from the same parameters.
func (w *RenderWindow) glaUnrealize(gla *gtk.GLArea) {
	gla.MakeCurrent()
	w.engine.SurfaceLost()
}

func (w *RenderWindow) destroyed() {
	w.gla.MakeCurrent()
	if err := w.engine.Close(); err != nil {
		logging.Logger().Warn("failed to persist view", "err", err)
	}
}

func (w *RenderWindow) glaRender(gla *gtk.GLArea) bool {
	w.gla.AttachBuffers()
	if err := w.engine.DrawFrame(); err != nil {
		logging.Logger().Debug("frame skipped", "err", err)
	}
	return true
}

func (w *RenderWindow) resize(gla *gtk.GLArea, width, height int) {
	w.engine.SurfaceChanged(width, height)
}

func (w *RenderWindow) windowState(win *gtk.ApplicationWindow, event *gdk.Event) bool {
	state := gdk.EventWindowStateNewFromEvent(event)
	if state.ChangedMask()&gdk.WINDOW_STATE_ICONIFIED != 0 {
		w.engine.SetVisible(state.NewWindowState()&gdk.WINDOW_STATE_ICONIFIED == 0)
	}
	return false
}

func (w *RenderWindow) button(gla *gtk.GLArea, event *gdk.Event) bool {
	button := gdk.EventButtonNewFromEvent(event)
	ev := gesture.Event{
		X:    float32(button.X()),
		Y:    float32(button.Y()),
		Time: time.Now(),
	}

	switch button.Type() {
	case gdk.EVENT_BUTTON_PRESS:
		w.pressed++
		ev.Action = gesture.PointerDown
		if w.pressed == 1 {
			ev.Action = gesture.Down
		}
	case gdk.EVENT_BUTTON_RELEASE:
		if w.pressed == 0 {
			return false
		}
		ev.Action = gesture.PointerUp
		if w.pressed == 1 {
			ev.Action = gesture.Up
		}
		w.pressed--
	default:
		// Double clicks arrive as a second press as well.
		return false
	}

	ev.Pointers = max(w.pressed, 1)
	w.engine.Touch(ev)
	return true
}

func (w *RenderWindow) motion(gla *gtk.GLArea, event *gdk.Event) bool {
	if w.pressed == 0 {
		return false
	}

	motion := gdk.EventMotionNewFromEvent(event)
	x, y := motion.MotionVal()
	w.engine.Touch(gesture.Event{
		Action:   gesture.Move,
		X:        float32(x),
		Y:        float32(y),
		Time:     time.Now(),
		Pointers: w.pressed,
	})
	return true
}

// scroll acts as a short pinch: scrolling up spreads the fingers.
func (w *RenderWindow) scroll(gla *gtk.GLArea, event *gdk.Event) bool {
	scroll := gdk.EventScrollNewFromEvent(event)

	var factor float32
	switch scroll.Direction() {
	case gdk.SCROLL_UP:
		factor = scrollFactor
	case gdk.SCROLL_DOWN:
		factor = 1 / scrollFactor
	default:
		return false
	}

	pointer := gesture.Event{X: float32(scroll.X()), Y: float32(scroll.Y()), Time: time.Now(), Pointers: w.pressed + 2}
	pointer.Action = gesture.PointerDown
	w.engine.Touch(pointer)
	w.engine.Scale(factor)
	pointer.Action = gesture.PointerUp
	pointer.Pointers = w.pressed + 1
	w.engine.Touch(pointer)
	return true
}
