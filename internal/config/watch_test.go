package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Lunar-Chipter/prism/internal/core"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached before timeout")
}

func TestStartWatchAppliesOnModification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watched.yaml")
	if err := os.WriteFile(path, []byte("root: info\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var applies atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	w, err := StartWatch(ctx, path, 20*time.Millisecond, func(string) error {
		applies.Add(1)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("StartWatch: %v", err)
	}
	t.Cleanup(cancel)

	// Unchanged mtime must not trigger any apply.
	time.Sleep(100 * time.Millisecond)
	if n := applies.Load(); n != 0 {
		t.Fatalf("applies = %d before any modification; expected 0", n)
	}

	if err := os.WriteFile(path, []byte("root: debug\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	// Force a visible timestamp move even on coarse-mtime filesystems.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool { return applies.Load() >= 1 })

	cancel()
	select {
	case <-w.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop after cancellation")
	}
}

func TestStartWatchStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watched.yaml")
	ctx, cancel := context.WithCancel(context.Background())
	w, err := StartWatch(ctx, path, time.Hour, func(string) error { return nil }, nil)
	if err != nil {
		t.Fatalf("StartWatch: %v", err)
	}
	cancel()
	select {
	case <-w.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop after cancellation")
	}
}

func TestStartWatchReportsStatFailures(t *testing.T) {
	// The path never exists, so every poll's stat fails and must flow
	// through the report callback rather than anywhere else.
	path := filepath.Join(t.TempDir(), "never-created.yaml")

	var reports atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	w, err := StartWatch(ctx, path, 20*time.Millisecond,
		func(string) error { return nil },
		func(error) { reports.Add(1) })
	if err != nil {
		t.Fatalf("StartWatch: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		<-w.Done()
	})

	waitFor(t, 3*time.Second, func() bool { return reports.Load() >= 1 })
}

func TestWatchPropertiesReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.yaml")
	if err := os.WriteFile(path, []byte("root: info\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	h := core.NewHierarchy()
	ctx, cancel := context.WithCancel(context.Background())
	w, err := WatchProperties(ctx, h, 0, path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("WatchProperties: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		<-w.Done()
	})

	if err := os.WriteFile(path, []byte("root: error\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool {
		return h.Root().Level(0) == core.ERROR
	})
}
