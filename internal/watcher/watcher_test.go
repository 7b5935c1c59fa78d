package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_firesOnWrite(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w := New([]string{dir}, func() { calls.Add(1) }, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 1 }) {
		t.Fatal("onChange never fired")
	}
}

func TestWatcher_collapsesBurst(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w := New([]string{dir}, func() { calls.Add(1) }, WithDebounce(150*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "f"+string(rune('0'+i))+".txt")
		if err := os.WriteFile(name, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 1 }) {
		t.Fatal("onChange never fired")
	}
	// The burst landed inside one debounce window.
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("onChange fired %d times, want 1", n)
	}
}

func TestWatcher_ignoresUnmatchedPatterns(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w := New([]string{dir}, func() { calls.Add(1) },
		WithDebounce(50*time.Millisecond),
		WithPatterns([]string{"*.txt"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "image.png"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("onChange fired %d times for unmatched file", n)
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 1 }) {
		t.Error("onChange never fired for matching file")
	}
}

func TestWatcher_watchesNewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w := New([]string{dir}, func() { calls.Add(1) }, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 1 }) {
		t.Fatal("onChange never fired for new directory")
	}

	before := calls.Load()
	if err := os.WriteFile(filepath.Join(sub, "nested.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 2*time.Second, func() bool { return calls.Load() > before }) {
		t.Error("onChange never fired for file in new subdirectory")
	}
}

func TestWatcher_stopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := New([]string{dir}, func() {})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Stop()
	w.Stop()
}

func TestWatcher_startMissingRoot(t *testing.T) {
	w := New([]string{"/nonexistent/root"}, func() {})
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Error("expected error for missing root")
	}
}
