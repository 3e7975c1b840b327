// Package gesture turns raw pointer events into fractal constant and zoom
// changes.
//
// One finger sets the constant to the point under it. With move mode
// enabled a double tap is needed first, and a drag without it is ignored.
// Two fingers enter zoom mode, where pinching adjusts the zoom scale. Zoom and
// move mode never overlap, and both linger for ExitDelay after the fingers
// lift so a quick re-press does not flicker between interpretations.
package gesture

import (
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stewi1014/juliawall/internal/logging"
	"github.com/stewi1014/juliawall/mapping"
)

type State int

const (
	Idle State = iota
	ArmedDoubleTap
	MoveModeActive
	ZoomModeActive
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ArmedDoubleTap:
		return "armed"
	case MoveModeActive:
		return "move"
	case ZoomModeActive:
		return "zoom"
	}
	return "unknown"
}

type Action int

const (
	// Down is the first pointer touching the surface.
	Down Action = iota
	Move
	// Up is the last pointer leaving the surface.
	Up
	// PointerDown is an additional pointer touching the surface.
	PointerDown
	// PointerUp is a non-last pointer leaving the surface.
	PointerUp
)

type Event struct {
	Action   Action
	X, Y     float32
	Time     time.Time
	Pointers int
}

// Target receives the result of interpreted gestures.
type Target interface {
	Zoom() float32
	MoveMode() bool
	SetConstant(c mgl32.Vec2)
	AdjustZoom(delta float32) float32
}

type Timer interface {
	Stop() bool
}

type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock schedules with time.AfterFunc.
var SystemClock Clock = systemClock{}

type Config struct {
	// DoubleTapTimeout is the longest gap between two downs forming a double tap.
	DoubleTapTimeout time.Duration
	// ExitDelay is how long a mode survives its fingers lifting.
	ExitDelay time.Duration
	// ZoomStep is added to or removed from the zoom scale per pinch callback.
	ZoomStep float32
}

func DefaultConfig() Config {
	return Config{
		DoubleTapTimeout: 200 * time.Millisecond,
		ExitDelay:        300 * time.Millisecond,
		ZoomStep:         0.02,
	}
}

// Machine is safe for concurrent use. Timers are owned by the Machine, so
// separate engines never share debounce state.
type Machine struct {
	cfg    Config
	target Target
	clock  Clock

	mu          sync.Mutex
	state       State
	width       int
	height      int
	lastDown    time.Time
	hasLastDown bool
	timer       Timer
	// generation invalidates callbacks of timers that were replaced or stopped
	// too late to prevent them firing.
	generation uint64
	closed     bool
}

func New(cfg Config, target Target, clock Clock) *Machine {
	if clock == nil {
		clock = SystemClock
	}
	return &Machine{
		cfg:    cfg,
		target: target,
		clock:  clock,
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Resize records the surface size used to map pointer positions.
func (m *Machine) Resize(width, height int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.width, m.height = width, height
}

// Close stops any pending timer. Later events are ignored.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelTimer()
	m.closed = true
}

func (m *Machine) Handle(ev Event) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}

	moveMode := m.target.MoveMode()
	from := m.state
	update := false

	switch ev.Action {
	case PointerDown:
		if m.state != MoveModeActive {
			m.cancelTimer()
			m.state = ZoomModeActive
		}

	case PointerUp:
		if m.state == ZoomModeActive {
			m.schedule(m.cfg.ExitDelay, ZoomModeActive)
		}

	case Down:
		gap := ev.Time.Sub(m.lastDown)
		doubleTap := m.hasLastDown && gap >= 0 && gap <= m.cfg.DoubleTapTimeout
		switch {
		case moveMode && doubleTap && m.state != ZoomModeActive:
			m.cancelTimer()
			m.state = MoveModeActive
		case moveMode && (m.state == Idle || m.state == ArmedDoubleTap):
			m.state = ArmedDoubleTap
			m.schedule(m.cfg.DoubleTapTimeout, ArmedDoubleTap)
		}
		m.lastDown = ev.Time
		m.hasLastDown = true
		update = m.accepts(moveMode)

	case Move:
		update = m.accepts(moveMode)

	case Up:
		if m.state == MoveModeActive {
			m.schedule(m.cfg.ExitDelay, MoveModeActive)
		}
	}

	to := m.state
	width, height := m.width, m.height
	m.mu.Unlock()

	if from != to {
		logging.Logger().Debug("gesture state", "from", from, "to", to)
	}

	if !update {
		return
	}

	c, ok := mapping.Pointer(ev.X, ev.Y, width, height, m.target.Zoom())
	if !ok {
		return
	}
	m.target.SetConstant(c)
}

// Scale handles one pinch callback. factor is the ratio between the current
// and previous finger span; a shrinking span zooms out of the fractal by
// raising the zoom scale.
func (m *Machine) Scale(factor float32) {
	m.mu.Lock()
	zooming := m.state == ZoomModeActive && !m.closed
	m.mu.Unlock()

	if !zooming || factor == 1 || math.IsNaN(float64(factor)) {
		return
	}

	delta := m.cfg.ZoomStep
	if factor > 1 {
		delta = -delta
	}
	z := m.target.AdjustZoom(delta)
	logging.Logger().Debug("pinch", "factor", factor, "zoom", z)
}

// accepts reports whether pointer motion should set the constant.
// The caller holds mu.
func (m *Machine) accepts(moveMode bool) bool {
	if m.state == ZoomModeActive {
		return false
	}
	return !moveMode || m.state == MoveModeActive
}

// schedule replaces the pending timer with one returning to Idle after d,
// provided the machine is still in state want. The caller holds mu.
func (m *Machine) schedule(d time.Duration, want State) {
	m.cancelTimer()
	generation := m.generation
	m.timer = m.clock.AfterFunc(d, func() {
		m.expire(generation, want)
	})
}

// cancelTimer stops the pending timer. The caller holds mu.
func (m *Machine) cancelTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.generation++
}

func (m *Machine) expire(generation uint64, want State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || generation != m.generation || m.state != want {
		return
	}
	m.state = Idle
	m.timer = nil
	logging.Logger().Debug("gesture state", "from", want, "to", Idle)
}
