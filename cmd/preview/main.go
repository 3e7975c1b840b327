// Command preview draws the fractal in a bare GLFW window, following the same
// settings file as the desktop application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stewi1014/juliawall/engine"
	"github.com/stewi1014/juliawall/gesture"
	"github.com/stewi1014/juliawall/internal/logging"
	"github.com/stewi1014/juliawall/render"
	"github.com/stewi1014/juliawall/settings"
)

func init() {
	// GLFW and the GL context belong to the main thread.
	runtime.LockOSThread()
}

func main() {
	settingsPath := flag.String("settings", "", "settings file, in memory if empty")
	listen := flag.String("listen", "", "serve remote settings over websocket on this address")
	width := flag.Int("width", 1080, "window width")
	height := flag.Int("height", 1920, "window height")
	debug := flag.Bool("debug", false, "debug logging and OpenGL debug output")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logging.SetLogger(logger)

	if err := run(*settingsPath, *listen, *width, *height, *debug); err != nil {
		logger.Error("preview failed", "err", err)
		os.Exit(1)
	}
}

func run(settingsPath, listen string, width, height int, debug bool) error {
	store := settings.NewMemory()
	if settingsPath != "" {
		var err error
		store, err = settings.Open(settingsPath)
		if err != nil {
			return err
		}
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if listen != "" {
		l := settings.NewWSListener(ctx, listen)
		server := &http.Server{Addr: listen, Handler: l.Handler(nil)}
		context.AfterFunc(ctx, func() { server.Close() })
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Logger().Error("remote settings server", "err", err)
			}
		}()
		go settings.Serve(ctx, l, store)
	}

	window, err := NewPreviewWindow(width, height)
	if err != nil {
		return err
	}
	defer glfw.Terminate()
	defer window.Destroy()

	eng := engine.New(engine.DefaultConfig(), store, &render.GLDevice{Debug: debug}, window)
	defer func() {
		if err := eng.Close(); err != nil {
			logging.Logger().Warn("failed to persist view", "err", err)
		}
	}()
	window.Attach(eng)

	if err := eng.SurfaceCreated(); err != nil {
		return err
	}
	eng.SurfaceChanged(window.GetFramebufferSize())

	window.Loop()
	return nil
}

func NewPreviewWindow(width, height int) (*PreviewWindow, error) {
	if err := glfw.Init(); err != nil {
		return nil, err
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	window, err := glfw.CreateWindow(
		width,
		height,
		"Julia Preview",
		nil,
		nil,
	)
	if err != nil {
		glfw.Terminate()
		return nil, err
	}

	w := &PreviewWindow{
		Window: window,
	}
	w.MakeContextCurrent()
	return w, nil
}

// PreviewWindow renders only when the engine asks it to.
type PreviewWindow struct {
	*glfw.Window
	engine  *engine.Engine
	dirty   atomic.Bool
	pressed int
}

func (w *PreviewWindow) RequestRender() {
	w.dirty.Store(true)
	glfw.PostEmptyEvent()
}

func (w *PreviewWindow) Attach(eng *engine.Engine) {
	w.engine = eng

	w.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		eng.SurfaceChanged(width, height)
	})
	w.SetIconifyCallback(func(_ *glfw.Window, iconified bool) {
		eng.SetVisible(!iconified)
	})
	w.SetMouseButtonCallback(w.mouseButton)
	w.SetCursorPosCallback(w.cursorPos)
	w.SetScrollCallback(w.scroll)
}

// framebufferPos converts window coordinates to framebuffer pixels.
func (w *PreviewWindow) framebufferPos(x, y float64) (float32, float32) {
	ww, wh := w.GetSize()
	fw, fh := w.GetFramebufferSize()
	if ww == 0 || wh == 0 {
		return float32(x), float32(y)
	}
	return float32(x * float64(fw) / float64(ww)), float32(y * float64(fh) / float64(wh))
}

func (w *PreviewWindow) mouseButton(_ *glfw.Window, _ glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	x, y := w.framebufferPos(w.GetCursorPos())
	ev := gesture.Event{X: x, Y: y, Time: time.Now()}

	switch action {
	case glfw.Press:
		w.pressed++
		ev.Action = gesture.PointerDown
		if w.pressed == 1 {
			ev.Action = gesture.Down
		}
	case glfw.Release:
		if w.pressed == 0 {
			return
		}
		ev.Action = gesture.PointerUp
		if w.pressed == 1 {
			ev.Action = gesture.Up
		}
		w.pressed--
	default:
		return
	}

	ev.Pointers = max(w.pressed, 1)
	w.engine.Touch(ev)
}

func (w *PreviewWindow) cursorPos(_ *glfw.Window, xpos, ypos float64) {
	if w.pressed == 0 {
		return
	}
	x, y := w.framebufferPos(xpos, ypos)
	w.engine.Touch(gesture.Event{
		Action:   gesture.Move,
		X:        x,
		Y:        y,
		Time:     time.Now(),
		Pointers: w.pressed,
	})
}

func (w *PreviewWindow) scroll(_ *glfw.Window, _, yoff float64) {
	if yoff == 0 {
		return
	}
	factor := float32(1.05)
	if yoff < 0 {
		factor = 1 / factor
	}

	x, y := w.framebufferPos(w.GetCursorPos())
	ev := gesture.Event{Action: gesture.PointerDown, X: x, Y: y, Time: time.Now(), Pointers: w.pressed + 2}
	w.engine.Touch(ev)
	w.engine.Scale(factor)
	ev.Action = gesture.PointerUp
	ev.Pointers = w.pressed + 1
	w.engine.Touch(ev)
}

// Loop handles events until the window is closed.
func (w *PreviewWindow) Loop() {
	for !w.ShouldClose() {
		glfw.WaitEvents()
		if !w.dirty.Swap(false) {
			continue
		}
		if err := w.engine.DrawFrame(); err != nil {
			logging.Logger().Debug("frame skipped", "err", err)
			continue
		}
		w.SwapBuffers()
	}
}
