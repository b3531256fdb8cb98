// Package prism is the configuration and introspection engine of a
// hierarchical logging framework: a shared tree of named loggers whose
// per-context state (level, additivity, appenders) is changed through a
// declarative directive interpreter, inspected as an ASCII tree diagram, and
// optionally driven by a watched configuration file.
package prism

import (
	"context"
	"sync"
	"time"

	"github.com/Lunar-Chipter/prism/internal/config"
	"github.com/Lunar-Chipter/prism/internal/core"
	"github.com/Lunar-Chipter/prism/internal/render"
)

// Re-exported core types.
type (
	Level     = core.Level
	Context   = core.Context
	Logger    = core.Logger
	Hierarchy = core.Hierarchy
	Appender  = core.Appender
	Event     = core.Event
)

// Severity levels, ordered ALL < DEBUG < INFO < WARN < ERROR < FATAL < OFF.
// UNSET is excluded from the ordering and means "inherit from ancestor".
const (
	ALL   = core.ALL
	DEBUG = core.DEBUG
	INFO  = core.INFO
	WARN  = core.WARN
	ERROR = core.ERROR
	FATAL = core.FATAL
	OFF   = core.OFF
	UNSET = core.UNSET
)

// SelfLoggerName is the framework's internal diagnostic logger.
const SelfLoggerName = config.SelfLoggerName

// DefaultContext is the hierarchy context used by the package-level API.
// Further contexts exist for configuration isolation (tests, embedders).
const DefaultContext Context = 0

var (
	defaultHierarchy = core.NewHierarchy()
	initOnce         sync.Once
)

// DefaultHierarchy returns the process-wide logger tree.
func DefaultHierarchy() *Hierarchy {
	return defaultHierarchy
}

// GetLogger resolves a dotted logger name in the default hierarchy, creating
// the node and any missing ancestors. The empty name is the root logger.
func GetLogger(name string) *Logger {
	return defaultHierarchy.GetOrCreate(name)
}

// ResolveLevel parses a level token, accepting unambiguous prefixes
// ("d" for DEBUG).
func ResolveLevel(token string) (Level, error) {
	return core.Resolve(token)
}

// AsLogger validates that a runtime-supplied value is a logger reference.
func AsLogger(v any) (*Logger, error) {
	return core.AsLogger(v)
}

// Init applies the process-wide startup default exactly once: all
// configuration in the default context is reset and the root logger gets an
// INFO level, a console sink and immediate flush. No background reload task
// is spawned. Later calls are no-ops.
func Init() {
	initOnce.Do(func() {
		defaultHierarchy.ResetSubtree(defaultHierarchy.Root(), DefaultContext, true)
		// SANE alone: INFO level, all appenders replaced by one console sink.
		if _, err := config.Configure(defaultHierarchy, DefaultContext, "sane", "immediate_flush"); err != nil {
			panic("prism: startup configuration failed: " + err.Error())
		}
	})
}

// Configure interprets one configuration directive list against the default
// hierarchy and context. See the directive grammar on the interpreter: the
// first element may be a *Logger or []string target, the rest are level and
// flag tokens. With no directives it mutates nothing and returns the
// rendered tree of the target.
func Configure(directives ...any) (string, error) {
	return config.Configure(defaultHierarchy, DefaultContext, directives...)
}

// RenderTree returns the pruned ASCII diagram of the subtree under root in
// the default context. A nil root renders the whole hierarchy.
func RenderTree(root *Logger) string {
	if root == nil {
		root = defaultHierarchy.Root()
	}
	return render.Tree(defaultHierarchy, DefaultContext, root)
}

// StartWatch spawns a background loop reapplying the property file at path
// whenever its modification timestamp changes, until ctx is cancelled.
func StartWatch(ctx context.Context, path string, interval time.Duration) (*config.Watcher, error) {
	return config.WatchProperties(ctx, defaultHierarchy, DefaultContext, path, interval)
}

// StopWatches cancels every watcher started through the WATCH directive.
func StopWatches() {
	config.StopWatches()
}
