package fswatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcher_StartWithoutPaths(t *testing.T) {
	w := New(DefaultConfig())
	if err := w.OnStart(context.Background()); !errors.Is(err, ErrNoPaths) {
		t.Fatalf("OnStart() error = %v, want ErrNoPaths", err)
	}
}

func TestWatcher_DeliversDebouncedChange(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var got []string
	w := New(Config{
		Paths:    []string{dir},
		Debounce: 20 * time.Millisecond,
		Handler: func(path string) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, path)
		},
	})

	if err := w.OnStart(context.Background()); err != nil {
		t.Fatalf("OnStart() error = %v", err)
	}
	defer w.OnStop(context.Background())

	target := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(target, []byte("a = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("handler never fired")
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if got[0] != target {
		t.Errorf("handler path = %s, want %s", got[0], target)
	}
}

func TestWatcher_StopTerminatesLoop(t *testing.T) {
	dir := t.TempDir()
	w := New(Config{Paths: []string{dir}})

	if err := w.OnStart(context.Background()); err != nil {
		t.Fatalf("OnStart() error = %v", err)
	}
	if err := w.OnStop(context.Background()); err != nil {
		t.Fatalf("OnStop() error = %v", err)
	}
	// A second stop has nothing to do.
	if err := w.OnStop(context.Background()); err != nil {
		t.Fatalf("repeated OnStop() error = %v", err)
	}
}

func TestWatcher_DestroyAfterMissedStop(t *testing.T) {
	dir := t.TempDir()
	w := New(Config{Paths: []string{dir}})

	if err := w.OnStart(context.Background()); err != nil {
		t.Fatalf("OnStart() error = %v", err)
	}
	if err := w.OnDestroy(context.Background()); err != nil {
		t.Fatalf("OnDestroy() error = %v", err)
	}
}
