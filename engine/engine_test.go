package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stewi1014/juliawall/gesture"
	"github.com/stewi1014/juliawall/params"
	"github.com/stewi1014/juliawall/programs"
	"github.com/stewi1014/juliawall/render"
	"github.com/stewi1014/juliawall/settings"
)

type nopDevice struct {
	uploads []programs.Uniforms
}

func (d *nopDevice) Init() error                        { return nil }
func (d *nopDevice) LoadProgram(programs.Program) error { return nil }
func (d *nopDevice) Viewport(int, int)                  {}
func (d *nopDevice) Upload(u programs.Uniforms)         { d.uploads = append(d.uploads, u) }
func (d *nopDevice) Clear()                             {}
func (d *nopDevice) DrawQuad()                          {}
func (d *nopDevice) Release()                           {}

type countingSurface struct {
	requests atomic.Int32
}

func (s *countingSurface) RequestRender() { s.requests.Add(1) }

type manualTimer struct {
	f       func()
	at      time.Duration
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := t.stopped
	t.stopped = true
	return !was
}

type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) gesture.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{f: f, at: c.now + d}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && t.at <= c.now {
			t.stopped = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

type harness struct {
	*Engine
	settings *settings.Store
	dev      *nopDevice
	surface  *countingSurface
	clock    *manualClock
	start    time.Time
}

func newHarness(t *testing.T, w, height int, preset map[string]any) *harness {
	t.Helper()

	s := settings.NewMemory()
	for k, v := range preset {
		if err := s.Set(k, v); err != nil {
			t.Fatal(err)
		}
	}

	cfg := DefaultConfig()
	clock := &manualClock{}
	cfg.Clock = clock

	h := &harness{
		settings: s,
		dev:      &nopDevice{},
		surface:  &countingSurface{},
		clock:    clock,
		start:    time.Unix(1000, 0),
	}
	h.Engine = New(cfg, s, h.dev, h.surface)
	t.Cleanup(func() { h.Close() })

	if err := h.SurfaceCreated(); err != nil {
		t.Fatal(err)
	}
	h.SurfaceChanged(w, height)
	return h
}

func (h *harness) at(ms int) time.Time {
	return h.start.Add(time.Duration(ms) * time.Millisecond)
}

func approx(a, b mgl32.Vec2) bool {
	return mgl32.Abs(a[0]-b[0]) < 1e-5 && mgl32.Abs(a[1]-b[1]) < 1e-5
}

func TestTapSetsConstant(t *testing.T) {
	h := newHarness(t, 1080, 1920, nil)

	h.Touch(gesture.Event{Action: gesture.Down, X: 540, Y: 960, Time: h.at(0), Pointers: 1})

	c := h.Store().Snapshot().Constant
	if !approx(c, mgl32.Vec2{0, 0}) {
		t.Errorf("constant = %v, want (0, 0)", c)
	}

	v, ok := h.settings.Get(params.Constant.String())
	if !ok {
		t.Fatal("constant not persisted")
	}
	if got, err := params.ParseConstant(v.(string)); err != nil || !approx(got, c) {
		t.Errorf("persisted constant = %q (%v)", v, err)
	}

	if err := h.DrawFrame(); err != nil {
		t.Fatal(err)
	}
	if got := h.dev.uploads[len(h.dev.uploads)-1].Constant; got != c {
		t.Errorf("uploaded constant = %v, want %v", got, c)
	}
}

func TestMoveModeNeedsDoubleTap(t *testing.T) {
	h := newHarness(t, 1080, 1920, map[string]any{params.MoveMode.String(): true})
	initial := h.Store().Snapshot().Constant

	h.Touch(gesture.Event{Action: gesture.Down, X: 0, Y: 0, Time: h.at(0), Pointers: 1})
	h.Touch(gesture.Event{Action: gesture.Move, X: 10, Y: 10, Time: h.at(20), Pointers: 1})
	h.Touch(gesture.Event{Action: gesture.Up, X: 10, Y: 10, Time: h.at(40), Pointers: 1})
	if got := h.Store().Snapshot().Constant; got != initial {
		t.Fatalf("single tap moved constant to %v", got)
	}

	h.Touch(gesture.Event{Action: gesture.Down, X: 540, Y: 960, Time: h.at(150), Pointers: 1})
	if h.Gestures().State() != gesture.MoveModeActive {
		t.Fatalf("state = %v, want %v", h.Gestures().State(), gesture.MoveModeActive)
	}
	if got := h.Store().Snapshot().Constant; !approx(got, mgl32.Vec2{0, 0}) {
		t.Errorf("constant = %v, want (0, 0)", got)
	}

	h.Touch(gesture.Event{Action: gesture.Up, X: 540, Y: 960, Time: h.at(200), Pointers: 1})
	h.clock.Advance(350 * time.Millisecond)
	if h.Gestures().State() != gesture.Idle {
		t.Errorf("state after exit delay = %v, want %v", h.Gestures().State(), gesture.Idle)
	}
}

func TestPinchZoom(t *testing.T) {
	h := newHarness(t, 1080, 1920, nil)

	h.Touch(gesture.Event{Action: gesture.Down, X: 500, Y: 900, Time: h.at(0), Pointers: 1})
	h.Touch(gesture.Event{Action: gesture.PointerDown, X: 600, Y: 1000, Time: h.at(10), Pointers: 2})
	h.Scale(0.9)
	h.Scale(0.9)

	if got := h.Store().Snapshot().Zoom; mgl32.Abs(got-1.04) > 1e-5 {
		t.Errorf("zoom = %v, want 1.04", got)
	}
	if v, _ := h.settings.Get(params.Zoom.String()); v == nil || mgl32.Abs(v.(float32)-1.04) > 1e-5 {
		t.Errorf("persisted zoom = %v, want 1.04", v)
	}

	// Pointer motion in zoom mode leaves the constant alone.
	before := h.Store().Snapshot().Constant
	h.Touch(gesture.Event{Action: gesture.Move, X: 100, Y: 100, Time: h.at(20), Pointers: 2})
	if got := h.Store().Snapshot().Constant; got != before {
		t.Errorf("constant changed in zoom mode: %v", got)
	}

	if err := h.DrawFrame(); err != nil {
		t.Fatal(err)
	}
	if got := h.dev.uploads[len(h.dev.uploads)-1].Scale(); mgl32.Abs(got-1.04) > 1e-5 {
		t.Errorf("uploaded zoom scale = %v, want 1.04", got)
	}
}

func TestColourCycleFrames(t *testing.T) {
	h := newHarness(t, 800, 600, map[string]any{params.ColourCycle.String(): true})
	start := h.Store().Snapshot().BaseColour

	want := start
	for i := 0; i < 4; i++ {
		if err := h.DrawFrame(); err != nil {
			t.Fatal(err)
		}
		for c := 0; c < 3; c++ {
			want[c] += render.CycleStep
		}
	}

	if got := h.Store().Snapshot().BaseColour; got != want {
		t.Errorf("BaseColour = %v, want %v", got, want)
	}
}

func TestSettingsChangeRedraws(t *testing.T) {
	h := newHarness(t, 800, 600, nil)
	if err := h.DrawFrame(); err != nil {
		t.Fatal(err)
	}
	before := h.surface.requests.Load()

	if err := h.settings.Set(params.Iterations.String(), 42); err != nil {
		t.Fatal(err)
	}
	if got := h.Store().Snapshot().Iterations; got != 42 {
		t.Errorf("iterations = %d, want 42", got)
	}
	if n := h.surface.requests.Load(); n != before+1 {
		t.Errorf("%d render requests after a settings change, want 1", n-before)
	}
}

func TestResumeReloadsConstant(t *testing.T) {
	h := newHarness(t, 800, 600, nil)

	h.SetVisible(false)
	if h.Pipeline().State() != render.Paused {
		t.Fatalf("state = %v, want %v", h.Pipeline().State(), render.Paused)
	}

	if err := h.settings.Set(params.Constant.String(), "0.25 -0.5i"); err != nil {
		t.Fatal(err)
	}
	h.Store().Update(func(p *params.Parameters) { p.Constant = mgl32.Vec2{3, 3} })

	before := h.surface.requests.Load()
	h.SetVisible(true)
	if got := h.Store().Snapshot().Constant; got != (mgl32.Vec2{0.25, -0.5}) {
		t.Errorf("constant after resume = %v", got)
	}
	if h.Pipeline().State() != render.Rendering {
		t.Errorf("state = %v, want %v", h.Pipeline().State(), render.Rendering)
	}
	if n := h.surface.requests.Load(); n <= before {
		t.Error("resume did not request a frame")
	}
}

func TestClose(t *testing.T) {
	h := newHarness(t, 800, 600, nil)
	h.Store().Update(func(p *params.Parameters) {
		p.Constant = mgl32.Vec2{0.5, 0.5}
		p.Zoom = 2
	})

	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}

	if v, _ := h.settings.Get(params.Constant.String()); v != "0.5 +0.5i" {
		t.Errorf("persisted constant = %v", v)
	}
	if v, _ := h.settings.Get(params.Zoom.String()); v != float32(2) {
		t.Errorf("persisted zoom = %v", v)
	}
	if h.Pipeline().State() != render.Destroyed {
		t.Errorf("state = %v", h.Pipeline().State())
	}

	// Settings changes after close no longer reach the store.
	if err := h.settings.Set(params.Iterations.String(), 7); err != nil {
		t.Fatal(err)
	}
	if got := h.Store().Snapshot().Iterations; got == 7 {
		t.Error("closed engine still follows settings")
	}
}

func TestSurfaceLostKeepsEngine(t *testing.T) {
	h := newHarness(t, 800, 600, nil)
	h.Touch(gesture.Event{Action: gesture.Down, X: 400, Y: 300, Time: h.at(0), Pointers: 1})
	c := h.Store().Snapshot().Constant

	h.SurfaceLost()
	if err := h.SurfaceCreated(); err != nil {
		t.Fatalf("SurfaceCreated() after loss = %v", err)
	}
	h.SurfaceChanged(800, 600)

	if err := h.DrawFrame(); err != nil {
		t.Fatal(err)
	}
	if got := h.dev.uploads[len(h.dev.uploads)-1].Constant; got != c {
		t.Errorf("constant after recreation = %v, want %v", got, c)
	}
}
