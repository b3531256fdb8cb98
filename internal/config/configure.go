package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Lunar-Chipter/prism/internal/core"
	"github.com/Lunar-Chipter/prism/internal/layout"
	"github.com/Lunar-Chipter/prism/internal/metrics"
	"github.com/Lunar-Chipter/prism/internal/outputs"
	"github.com/Lunar-Chipter/prism/internal/render"
)

// selfRecord is the remembered shape of the diagnostic logger's appender
// setup. A later narrow reconfiguration of the self logger (say, only a
// level change) folds this record back in so the established sinks survive.
type selfRecord struct {
	useSane    bool
	dailyPath  string
	hasDaily   bool
	pattern    string
	hasPattern bool
	twoline    bool
}

var (
	selfMu      sync.Mutex
	selfConfigs = make(map[*core.Hierarchy]*selfRecord)
)

// mergeSelf folds a remembered record into a pending set that supplied
// neither SANE nor DAILY. Pure overlay: the new call's own pattern wins.
func mergeSelf(rem selfRecord, p *pendingSet) {
	if rem.useSane {
		p.sane = true
	}
	if rem.hasDaily {
		p.dailyPath, p.hasDaily = rem.dailyPath, true
	}
	if !p.hasPattern {
		if rem.hasPattern {
			p.pattern, p.hasPattern = rem.pattern, true
		}
		if rem.twoline {
			p.twoline = true
		}
	}
}

func recordFrom(p *pendingSet) *selfRecord {
	return &selfRecord{
		useSane:    p.sane,
		dailyPath:  p.dailyPath,
		hasDaily:   p.hasDaily,
		pattern:    p.pattern,
		hasPattern: p.hasPattern,
		twoline:    p.twoline,
	}
}

// forgetSelf drops the remembered self configuration for a hierarchy.
func forgetSelf(h *core.Hierarchy) {
	selfMu.Lock()
	delete(selfConfigs, h)
	selfMu.Unlock()
}

// Configure interprets one configuration call against a hierarchy context.
//
// The first element may name the target: an already-constructed *core.Logger,
// or a []string of name segments resolved through the hierarchy. Without an
// explicit target the call addresses the root logger, or the diagnostic
// self logger when the SELF flag appears in the list; an explicit target
// combined with SELF fails with ErrConflictingTarget.
//
// Remaining elements are directive tokens: a level (core.Level value, level
// name or unambiguous prefix), the flags SANE, CLEAR, ALL, OWN,
// IMMEDIATE_FLUSH, TWOLINE, CONSOLE, WATCH, SELF, or one of DAILY <path>,
// PROPERTIES <path>, PATTERN <string>.
//
// A call with no directives mutates nothing and returns the rendered tree
// diagram of the target instead. Every other call either fully applies or,
// on a failure, leaves the hierarchy untouched.
func Configure(h *core.Hierarchy, hctx core.Context, directives ...any) (string, error) {
	metrics.Default.Inc(metrics.ConfigureCalls)
	out, err := configure(h, hctx, directives)
	if err != nil {
		metrics.Default.Inc(metrics.ConfigureErrors)
	}
	return out, err
}

func configure(h *core.Hierarchy, hctx core.Context, directives []any) (string, error) {
	var target *core.Logger
	if len(directives) > 0 {
		switch t := directives[0].(type) {
		case *core.Logger:
			target = t
			directives = directives[1:]
		case []string:
			target = h.GetOrCreate(strings.Join(t, "."))
			directives = directives[1:]
		}
	}

	// The no-directive call is a read-only request for the tree diagram.
	if len(directives) == 0 {
		if target == nil {
			target = h.Root()
		}
		return render.Tree(h, hctx, target), nil
	}

	p, err := parseDirectives(directives)
	if err != nil {
		return "", err
	}
	if p.self && target != nil {
		return "", fmt.Errorf("%w: %q", ErrConflictingTarget, target.Name())
	}
	if target == nil {
		if p.self {
			target = h.GetOrCreate(SelfLoggerName)
		} else {
			target = h.Root()
		}
	}
	if err := p.validate(); err != nil {
		return "", err
	}

	// Self-logger merge: a call carrying neither SANE nor DAILY starts from
	// the remembered record. PROPERTIES calls skip the merge, since folding
	// a remembered DAILY in would recreate a combination validate rejects.
	// The record itself is replaced only after the call has fully applied,
	// so a failed call never poisons it.
	rememberSelf := false
	if target.Name() == SelfLoggerName {
		selfMu.Lock()
		if p.sane || p.hasDaily {
			rememberSelf = true
		} else if rem := selfConfigs[h]; rem != nil && !p.hasProps {
			mergeSelf(*rem, p)
		}
		selfMu.Unlock()
	}

	// Everything that can fail happens here, before any logger is touched:
	// the property file is loaded and its sinks built, then this call's own
	// sinks are built.
	var entries []propertyEntry
	if p.hasProps {
		entries, err = loadProperties(p.propsPath)
		if err != nil {
			return "", err
		}
		for i := range entries {
			entries[i].target = h.GetOrCreate(entries[i].name)
		}
	}
	sinks, err := buildSinks(p)
	if err != nil {
		closeEntrySinks(entries)
		return "", err
	}

	mu := h.ConfigLock(hctx)
	mu.Lock()
	removed := h.Update(hctx, func(tx *core.Tx) {
		applyBuilt(tx, target, p, sinks)
		for _, e := range entries {
			applyBuilt(tx, e.target, e.pending, e.sinks)
		}
	})
	mu.Unlock()
	core.CloseAppenders(removed)

	if rememberSelf {
		selfMu.Lock()
		selfConfigs[h] = recordFrom(p)
		selfMu.Unlock()
	}

	if p.hasProps && p.watch {
		if err := startRegisteredWatch(h, hctx, p.propsPath); err != nil {
			return "", err
		}
	}
	return "", nil
}

// buildSinks constructs the appenders a pending set will install. All
// fallible work (pattern compilation, file opening) happens here, before any
// logger is touched; a partial failure closes whatever was already built.
func buildSinks(p *pendingSet) ([]core.Appender, error) {
	if !p.hasDaily && !p.sane {
		return nil, nil
	}
	pattern := layout.DefaultPattern
	if p.twoline {
		pattern = layout.TwoLinePattern
	}
	if p.hasPattern {
		pattern = p.pattern
	}
	// Each appender owns its layout exclusively, so compile one per sink.
	var added []core.Appender
	if p.hasDaily {
		lay, err := layout.Compile(pattern)
		if err != nil {
			return nil, err
		}
		daily, err := outputs.NewDailyFile(p.dailyPath, lay, p.immediateFlush)
		if err != nil {
			return nil, err
		}
		added = append(added, daily)
	}
	if p.console || (p.sane && !p.hasDaily) {
		lay, err := layout.Compile(pattern)
		if err != nil {
			core.CloseAppenders(added)
			return nil, err
		}
		added = append(added, outputs.NewConsole(lay, p.immediateFlush))
	}
	return added, nil
}

// applyBuilt applies the validated steps 1-4 of a pending set to one target
// inside an open transaction. Nothing in it can fail; the caller holds the
// context's configuration lock and supplies the prebuilt sinks.
func applyBuilt(tx *core.Tx, target *core.Logger, p *pendingSet, added []core.Appender) {
	// Step 1: level.
	if p.hasLevel || p.sane {
		lv := core.DefaultLevel
		if p.hasLevel {
			lv = p.level
		}
		tx.SetLevel(target, lv)
	}

	// Step 2: CLEAR resets every strict descendant. Appenders are stripped
	// from descendants that were additive, or from all of them under ALL; a
	// non-additive descendant keeps its appenders under plain CLEAR.
	if p.clear {
		tx.VisitDescendants(target, func(d *core.Logger) {
			wasAdditive := tx.Additive(d)
			tx.SetLevel(d, core.UNSET)
			tx.SetAdditive(d, true)
			if wasAdditive || p.all {
				tx.RemoveAppenders(d, nil)
			}
		})
	}

	// Step 3: OWN.
	if p.own {
		tx.SetAdditive(target, false)
	}

	// Step 4: appender replacement.
	if p.hasDaily || p.sane {
		if p.sane {
			tx.RemoveAppenders(target, nil)
		} else {
			tx.RemoveAppenders(target, func(a core.Appender) bool {
				if a.Kind() == "daily-file" {
					return false
				}
				if p.console && a.Kind() == "console" {
					return false
				}
				return true
			})
		}
		for _, a := range added {
			tx.AddAppender(target, a)
		}
		tx.SetAdditive(target, !p.own)
	}
}

// Watchers started through the WATCH directive, keyed by file path. Each
// holds the cancel function of its background loop.
var (
	watchRegistryMu sync.Mutex
	watchRegistry   = make(map[string]context.CancelFunc)
)

func startRegisteredWatch(h *core.Hierarchy, hctx core.Context, path string) error {
	watchRegistryMu.Lock()
	defer watchRegistryMu.Unlock()
	if _, ok := watchRegistry[path]; ok {
		return nil // already watched
	}
	ctx, cancel := context.WithCancel(context.Background())
	if _, err := WatchProperties(ctx, h, hctx, path, DefaultPollInterval); err != nil {
		cancel()
		return err
	}
	watchRegistry[path] = cancel
	return nil
}

// StopWatches cancels every watcher started through the WATCH directive.
func StopWatches() {
	watchRegistryMu.Lock()
	defer watchRegistryMu.Unlock()
	for path, cancel := range watchRegistry {
		cancel()
		delete(watchRegistry, path)
	}
}

// DefaultPollInterval is the fallback poll period of the reload loop.
const DefaultPollInterval = 5 * time.Second
