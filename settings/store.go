// Package settings is a small persisted key/value store with change
// notification, plus a gob protocol for updating it over a net.Conn.
package settings

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/stewi1014/juliawall/internal/logging"
)

// DefaultWriteDelay is how long a file backed store waits after a change
// before writing, so a burst of changes costs one write.
const DefaultWriteDelay = 500 * time.Millisecond

var (
	ErrClosed          = errors.New("settings store closed")
	ErrUnsupportedType = errors.New("unsupported settings value type")
)

type Store struct {
	mu        sync.Mutex
	path      string
	values    map[string]any
	listeners map[int]func(key string)
	nextID    int
	closed    bool

	writeDelay time.Duration
	dirty      bool
	timer      *time.Timer
}

// NewMemory returns a store that is never written to disk.
func NewMemory() *Store {
	return &Store{
		values:    make(map[string]any),
		listeners: make(map[int]func(string)),
	}
}

// Open loads the store persisted at path. A missing file yields an empty store
// that will be created on the first Set.
func Open(path string) (*Store, error) {
	s := NewMemory()
	s.path = path
	s.writeDelay = DefaultWriteDelay

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(&s.values); err != nil {
		return nil, fmt.Errorf("decode settings %v: %w", path, err)
	}
	return s, nil
}

func supported(v any) bool {
	switch v.(type) {
	case bool, int, int64, uint32, float32, float64, string, []int:
		return true
	}
	return false
}

func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and notifies listeners. A file backed store
// writes the change after its write delay, or on Flush or Close.
// Setting a key to its current value does nothing.
func (s *Store) Set(key string, value any) error {
	if !supported(value) {
		return fmt.Errorf("%w: %T", ErrUnsupportedType, value)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if old, ok := s.values[key]; ok && reflect.DeepEqual(old, value) {
		s.mu.Unlock()
		return nil
	}
	s.values[key] = value
	s.scheduleSave()
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(key)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, ok := s.values[key]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.values, key)
	s.scheduleSave()
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(key)
	}
	return nil
}

func (s *Store) OnChange(fn func(key string)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Flush writes pending changes to disk now.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

// Close writes pending changes and rejects further writes. Values already
// stored stay readable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.flush()
}

// scheduleSave marks the store dirty and starts the write timer if none is
// running. The caller holds mu.
func (s *Store) scheduleSave() {
	if s.path == "" {
		return
	}
	s.dirty = true
	if s.timer != nil {
		return
	}
	s.timer = time.AfterFunc(s.writeDelay, func() {
		if err := s.Flush(); err != nil {
			logging.Logger().Warn("settings not saved", "path", s.path, "err", err)
		}
	})
}

// flush is Flush with mu held. A failed write stays pending.
func (s *Store) flush() error {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.dirty {
		return nil
	}
	if err := s.save(); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func (s *Store) snapshotListeners() []func(string) {
	fns := make([]func(string), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return fns
}

// save writes the store next to its destination and renames it into place.
// The caller holds mu.
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*")
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(s.values); err != nil {
		tmp.Close()
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
