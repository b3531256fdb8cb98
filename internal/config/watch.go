package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Lunar-Chipter/prism/internal/core"
	"github.com/Lunar-Chipter/prism/internal/metrics"
)

// Watcher is a background reload loop for one configuration file. It reacts
// to fsnotify events and additionally polls the file's modification
// timestamp, so a change is picked up even on filesystems without event
// support. Both triggers funnel into a single mtime comparison; the apply
// function runs only when the timestamp actually moved.
//
// The loop stops when the context passed to StartWatch is cancelled; Done
// closes once the goroutine has exited and released the notify watcher.
type Watcher struct {
	path   string
	done   chan struct{}
	report func(error)
}

// StartWatch spawns the reload loop for path. apply re-enters the property
// configurator (or any caller-supplied equivalent); its errors are the apply
// function's to report and never stop the loop. Watch-level failures (stat,
// notify) go through report; a nil report falls back to stderr. A
// non-positive interval falls back to DefaultPollInterval.
func StartWatch(ctx context.Context, path string, interval time.Duration, apply func(path string) error, report func(err error)) (*Watcher, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if report == nil {
		report = func(err error) { fmt.Fprintf(os.Stderr, "prism: %v\n", err) }
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// The file may not exist yet; polling covers it until it appears.
	_ = fw.Add(path)

	w := &Watcher{path: path, done: make(chan struct{}), report: report}
	// Record the baseline timestamp before returning so a modification made
	// right after StartWatch cannot be absorbed into the goroutine's first
	// stat and silently skipped.
	var last time.Time
	if fi, err := os.Stat(path); err == nil {
		last = fi.ModTime()
	}
	go w.loop(ctx, fw, interval, last, apply)
	return w, nil
}

// Done returns a channel closed when the loop has stopped.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, interval time.Duration, last time.Time, apply func(string) error) {
	defer close(w.done)
	defer fw.Close()

	check := func() {
		fi, err := os.Stat(w.path)
		if err != nil {
			w.report(fmt.Errorf("watch stat %s: %v", w.path, err))
			return
		}
		if fi.ModTime().Equal(last) {
			return
		}
		last = fi.ModTime()
		// Failures are reported by the apply function; the loop continues
		// on its next trigger either way.
		_ = apply(w.path)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	events := fw.Events
	errs := fw.Errors
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				// Editors replace files on save; re-arm the watch on the path.
				_ = fw.Add(w.path)
			}
			check()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.report(fmt.Errorf("watch %s: %v", w.path, err))
		}
	}
}

// WatchProperties starts a reload loop bound to the property configurator.
// Reload failures are counted and reported through the diagnostic self
// logger, as are watch-level stat and notify failures; successful reloads
// are counted and logged at INFO.
func WatchProperties(ctx context.Context, h *core.Hierarchy, hctx core.Context, path string, interval time.Duration) (*Watcher, error) {
	self := h.GetOrCreate(SelfLoggerName)
	apply := func(p string) error {
		if err := ApplyProperties(h, hctx, p); err != nil {
			metrics.Default.Inc(metrics.WatchErrors)
			self.Errorf(hctx, "reload of %s failed: %v", p, err)
			return err
		}
		metrics.Default.Inc(metrics.WatchReloads)
		self.Infof(hctx, "reloaded configuration from %s", p)
		return nil
	}
	report := func(err error) {
		self.Errorf(hctx, "%v", err)
	}
	return StartWatch(ctx, path, interval, apply, report)
}
