package params

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stewi1014/juliawall/colour"
	"github.com/stewi1014/juliawall/internal/logging"
)

// Settings is the persisted key/value collaborator.
type Settings interface {
	Get(key string) (any, bool)
	Set(key string, value any) error
	// OnChange registers fn for every changed key and returns a function
	// removing it.
	OnChange(fn func(key string)) (cancel func())
}

type Redrawer interface {
	RequestRedraw()
}

// Sync keeps a Store consistent with Settings in both directions.
type Sync struct {
	settings Settings
	store    *Store
	redraw   Redrawer
	cancel   func()

	mu sync.Mutex
	// written holds the last value persisted per key, until someone else
	// changes that key.
	written map[Key]any
}

// Attach loads every recognised key from settings into store and subscribes
// to further changes. Absent keys keep the values already in store.
func Attach(settings Settings, store *Store, redraw Redrawer) *Sync {
	s := &Sync{
		settings: settings,
		store:    store,
		redraw:   redraw,
		written:  make(map[Key]any),
	}

	for _, k := range Keys() {
		s.load(k)
	}
	s.cancel = settings.OnChange(s.changed)
	return s
}

func (s *Sync) Store() *Store {
	return s.store
}

func (s *Sync) changed(name string) {
	k, ok := ParseKey(name)
	if !ok || s.echo(k) {
		return
	}
	s.Apply(k)
}

// echo reports whether the current value of k is the one this Sync last
// persisted. Otherwise k now belongs to another writer.
func (s *Sync) echo(k Key) bool {
	v, ok := s.settings.Get(k.String())

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, wrote := s.written[k]; wrote && ok && reflect.DeepEqual(v, w) {
		return true
	}
	delete(s.written, k)
	return false
}

func (s *Sync) persist(k Key, v any) error {
	s.mu.Lock()
	s.written[k] = v
	s.mu.Unlock()
	return s.settings.Set(k.String(), v)
}

// Apply reloads k from settings and requests a redraw.
func (s *Sync) Apply(k Key) {
	s.load(k)
	s.redraw.RequestRedraw()
}

func (s *Sync) load(k Key) {
	v, ok := s.settings.Get(k.String())
	if !ok {
		return
	}

	log := logging.Logger().With("key", k.String())

	switch k {
	case MoveMode, ColourCycle:
		b, ok := toBool(v)
		if !ok {
			log.Warn("ignoring setting", "value", v)
			return
		}
		s.store.Update(func(p *Parameters) {
			if k == MoveMode {
				p.MoveMode = b
			} else {
				p.ColourCycle = b
			}
		})

	case ColouringMethod:
		logColouring, ok := toColouringMethod(v)
		if !ok {
			log.Warn("ignoring setting", "value", v)
			return
		}
		s.store.Update(func(p *Parameters) { p.LogColouring = logColouring })

	case OutputColour:
		argb, ok := toInt(v)
		if !ok {
			log.Warn("ignoring setting", "value", v)
			return
		}
		base := colour.Escape(uint32(argb))
		s.store.Update(func(p *Parameters) { p.BaseColour = base })

	case BoundedColour, BoundedAlpha:
		s.loadBounded()

	case Iterations:
		n, ok := toInt(v)
		if !ok {
			log.Warn("ignoring setting", "value", v)
			return
		}
		iterations := ClampIterations(n)
		s.store.Update(func(p *Parameters) { p.Iterations = iterations })

	case Zoom:
		z, ok := toFloat(v)
		if !ok {
			log.Warn("ignoring setting", "value", v)
			return
		}
		zoom := ClampZoom(z)
		s.store.Update(func(p *Parameters) { p.Zoom = zoom })

	case Constant:
		str, _ := v.(string)
		c, err := ParseConstant(str)
		if err != nil {
			log.Warn("keeping current constant", "err", err)
			return
		}
		s.store.Update(func(p *Parameters) { p.Constant = c })
	}
}

func (s *Sync) loadBounded() {
	alpha := DefaultBoundedAlpha
	if v, ok := s.settings.Get(BoundedAlpha.String()); ok {
		if a, ok := toInt(v); ok {
			alpha = a
		}
	}

	v, ok := s.settings.Get(BoundedColour.String())
	if !ok {
		v = int(DefaultBoundedColour)
	}

	var bounded mgl32.Vec4
	switch c := v.(type) {
	case []int:
		if len(c) < 3 {
			logging.Logger().Warn("ignoring setting", "key", BoundedColour.String(), "value", v)
			return
		}
		if len(c) > 3 {
			alpha = c[3]
		}
		bounded = colour.BoundedChannels(c[0], c[1], c[2], alpha)
	default:
		argb, ok := toInt(v)
		if !ok {
			logging.Logger().Warn("ignoring setting", "key", BoundedColour.String(), "value", v)
			return
		}
		bounded = colour.Bounded(uint32(argb), alpha)
	}

	s.store.Update(func(p *Parameters) { p.BoundedColour = bounded })
}

// SetConstant publishes c, persists it and requests a redraw.
func (s *Sync) SetConstant(c mgl32.Vec2) {
	if !finite(c) {
		return
	}

	s.store.Update(func(p *Parameters) { p.Constant = c })
	if err := s.persist(Constant, FormatConstant(c)); err != nil {
		logging.Logger().Warn("failed to persist constant", "err", err)
	}
	s.redraw.RequestRedraw()
}

// AdjustZoom adds delta to the zoom scale, clamped, persists the result and
// requests a redraw.
func (s *Sync) AdjustZoom(delta float32) float32 {
	next := s.store.Update(func(p *Parameters) { p.Zoom = ClampZoom(p.Zoom + delta) })
	if err := s.persist(Zoom, next.Zoom); err != nil {
		logging.Logger().Warn("failed to persist zoom", "err", err)
	}
	s.redraw.RequestRedraw()
	return next.Zoom
}

func (s *Sync) Zoom() float32 {
	return s.store.Snapshot().Zoom
}

func (s *Sync) MoveMode() bool {
	return s.store.Snapshot().MoveMode
}

// Resume restores the persisted constant, if there is a valid one, ahead of
// the next frame.
func (s *Sync) Resume() {
	s.load(Constant)
	s.redraw.RequestRedraw()
}

// Detach unsubscribes from settings and persists the gesture driven values
// one final time.
func (s *Sync) Detach() error {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	p := s.store.Snapshot()
	return errors.Join(
		s.persist(Constant, FormatConstant(p.Constant)),
		s.persist(Zoom, p.Zoom),
	)
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	}
	if n, ok := toInt(v); ok {
		return n != 0, true
	}
	return false, false
}

func toColouringMethod(v any) (logarithmic bool, ok bool) {
	if s, isString := v.(string); isString {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "log", "logarithmic":
			return true, true
		case "linear":
			return false, true
		}
	}
	return toBool(v)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 0, 64)
		return int(i), err == nil
	}
	return 0, false
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

func toFloat(v any) (float32, bool) {
	switch f := v.(type) {
	case float32:
		return f, true
	case float64:
		return float32(f), true
	case int:
		return float32(f), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		return float32(parsed), err == nil
	}
	return 0, false
}

func (s *Sync) String() string {
	p := s.store.Snapshot()
	return fmt.Sprintf("c=%s zoom=%v iterations=%v", FormatConstant(p.Constant), p.Zoom, p.Iterations)
}
