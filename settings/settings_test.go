package settings

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMemoryGetSet(t *testing.T) {
	s := NewMemory()
	if _, ok := s.Get("zoom"); ok {
		t.Fatal("empty store reported a value")
	}

	var changed []string
	s.OnChange(func(key string) { changed = append(changed, key) })

	if err := s.Set("zoom", float32(1.25)); err != nil {
		t.Fatal(err)
	}
	if v, ok := s.Get("zoom"); !ok || v != float32(1.25) {
		t.Errorf("Get(zoom) = %v, %v", v, ok)
	}

	// unchanged values do not notify
	if err := s.Set("zoom", float32(1.25)); err != nil {
		t.Fatal(err)
	}
	if len(changed) != 1 || changed[0] != "zoom" {
		t.Errorf("notifications = %v, want [zoom]", changed)
	}
}

func TestUnsupportedType(t *testing.T) {
	s := NewMemory()
	if err := s.Set("x", struct{}{}); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Set(struct) = %v, want ErrUnsupportedType", err)
	}
}

func TestCancelOnChange(t *testing.T) {
	s := NewMemory()
	calls := 0
	cancel := s.OnChange(func(string) { calls++ })
	s.Set("a", 1)
	cancel()
	s.Set("a", 2)
	if calls != 1 {
		t.Errorf("listener called %d times, want 1", calls)
	}
}

func TestListenerMayReadStore(t *testing.T) {
	s := NewMemory()
	var got any
	s.OnChange(func(key string) { got, _ = s.Get(key) })
	s.Set("iterations", "750")
	if got != "750" {
		t.Errorf("listener read %v", got)
	}
}

func TestDelete(t *testing.T) {
	s := NewMemory()
	s.Set("move_mode", true)
	notified := false
	s.OnChange(func(string) { notified = true })
	if err := s.Delete("move_mode"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get("move_mode"); ok || !notified {
		t.Errorf("after Delete: present=%v notified=%v", ok, notified)
	}
}

func TestClosed(t *testing.T) {
	s := NewMemory()
	s.Set("a", 1)
	s.Close()
	if err := s.Set("a", 2); !errors.Is(err, ErrClosed) {
		t.Errorf("Set after Close = %v, want ErrClosed", err)
	}
	if v, _ := s.Get("a"); v != 1 {
		t.Errorf("Get after Close = %v", v)
	}
}

func TestOpenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.gob")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	values := map[string]any{
		"last_constant":  "-0.7 +0.27015i",
		"zoom":           float32(1.04),
		"iterations":     750,
		"move_mode":      true,
		"output_colour":  int64(0xff2060c0),
		"bounded_colour": []int{10, 20, 30, 40},
	}
	for k, v := range values {
		if err := s.Set(k, v); err != nil {
			t.Fatalf("Set(%v): %v", k, err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for k, want := range values {
		got, ok := reopened.Get(k)
		if !ok {
			t.Errorf("%v missing after reopen", k)
			continue
		}
		if ints, isInts := want.([]int); isInts {
			gotInts, _ := got.([]int)
			if len(gotInts) != len(ints) || gotInts[3] != ints[3] {
				t.Errorf("%v = %v, want %v", k, got, want)
			}
			continue
		}
		if got != want {
			t.Errorf("%v = %v (%T), want %v (%T)", k, got, got, want, want)
		}
	}
}

func TestWritesCoalesce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.gob")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s.writeDelay = time.Hour

	for i := range 100 {
		if err := s.Set("last_constant", fmt.Sprintf("0.%d +0i", i)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("file written before the delay: %v", err)
	}

	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := reopened.Get("last_constant"); v != "0.99 +0i" {
		t.Errorf("after Flush last_constant = %v", v)
	}

	s.Set("zoom", float32(2))
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	reopened, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := reopened.Get("zoom"); v != float32(2) {
		t.Errorf("after Close zoom = %v", v)
	}
}

func TestDelayedWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.gob")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s.writeDelay = 10 * time.Millisecond
	s.Set("iterations", 750)

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(path); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("settings never written")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestOpenCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.gob")
	if err := os.WriteFile(path, []byte("not gob"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("Open on corrupt file succeeded")
	}
}

func waitKey(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Errorf("changed key = %v, want %v", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %v", want)
	}
}

func TestServePipe(t *testing.T) {
	store := NewMemory()
	changed := make(chan string, 4)
	store.OnChange(func(key string) { changed <- key })

	conn, l := NewPipeListener()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, l, store) }()

	client := NewClient(conn)
	if err := client.Set("zoom", float32(1.5)); err != nil {
		t.Fatal(err)
	}
	waitKey(t, changed, "zoom")
	if v, _ := store.Get("zoom"); v != float32(1.5) {
		t.Errorf("zoom = %v", v)
	}

	if err := client.Set("bad", struct{}{}); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("client Set(struct) = %v", err)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Serve = %v", err)
	}
}

func TestServeWebsocket(t *testing.T) {
	store := NewMemory()
	changed := make(chan string, 4)
	store.OnChange(func(key string) { changed <- key })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewWSListener(ctx, "test")
	srv := httptest.NewServer(l.Handler(nil))
	defer srv.Close()

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, l, store) }()

	client, err := Dial(ctx, srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if err := client.Set("colour_cycle", true); err != nil {
		t.Fatal(err)
	}
	waitKey(t, changed, "colour_cycle")
	if v, _ := store.Get("colour_cycle"); v != true {
		t.Errorf("colour_cycle = %v", v)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Serve = %v", err)
	}
}
