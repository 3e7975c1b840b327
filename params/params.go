// Package params holds the live fractal parameters and keeps them in step
// with persisted settings.
//
// Parameters is an immutable value. The event side replaces it wholesale
// through Store.Update, the render side takes one Snapshot per frame, so a
// frame never observes a half applied change.
package params

import (
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stewi1014/juliawall/colour"
)

const (
	MinZoom     float32 = 0.3
	MaxZoom     float32 = 2.5
	DefaultZoom float32 = 1
	ZoomStep    float32 = 0.02

	MinIterations     = 1
	MaxIterations     = 10000
	DefaultIterations = 500

	DefaultEscapeColour  uint32 = 0xff2060c0
	DefaultBoundedColour uint32 = 0xff000000
	DefaultBoundedAlpha         = 100
)

// DefaultConstant is used until a constant has been persisted.
var DefaultConstant = mgl32.Vec2{-0.7, 0.27015}

type Parameters struct {
	Constant mgl32.Vec2

	// BaseColour is the asin remapped escape colour.
	BaseColour    mgl32.Vec4
	BoundedColour mgl32.Vec4

	ColourCycle  bool
	LogColouring bool
	Iterations   uint32
	Zoom         float32

	// MoveMode enables double-tap-to-move.
	MoveMode bool
}

func Defaults() Parameters {
	return Parameters{
		Constant:      DefaultConstant,
		BaseColour:    colour.Escape(DefaultEscapeColour),
		BoundedColour: colour.Bounded(DefaultBoundedColour, DefaultBoundedAlpha),
		Iterations:    DefaultIterations,
		Zoom:          DefaultZoom,
	}
}

// ClampZoom forces z into [MinZoom, MaxZoom]. Non-finite values become DefaultZoom.
func ClampZoom(z float32) float32 {
	switch {
	case math.IsNaN(float64(z)) || math.IsInf(float64(z), 0):
		return DefaultZoom
	case z < MinZoom:
		return MinZoom
	case z > MaxZoom:
		return MaxZoom
	}
	return z
}

func ClampIterations(n int) uint32 {
	switch {
	case n < MinIterations:
		return MinIterations
	case n > MaxIterations:
		return MaxIterations
	}
	return uint32(n)
}

func finite(v mgl32.Vec2) bool {
	for _, c := range v {
		if math.IsNaN(float64(c)) || math.IsInf(float64(c), 0) {
			return false
		}
	}
	return true
}

// Store publishes the current Parameters to any goroutine.
type Store struct {
	p atomic.Pointer[Parameters]
}

func NewStore(p Parameters) *Store {
	s := &Store{}
	s.Replace(p)
	return s
}

// Snapshot returns a copy of the current parameters.
func (s *Store) Snapshot() Parameters {
	return *s.p.Load()
}

func (s *Store) Replace(p Parameters) {
	s.p.Store(&p)
}

// Update applies fn to a copy of the current parameters and publishes the
// result. fn may run more than once if another writer races it.
func (s *Store) Update(fn func(p *Parameters)) Parameters {
	for {
		old := s.p.Load()
		next := *old
		fn(&next)
		if s.p.CompareAndSwap(old, &next) {
			return next
		}
	}
}
