package core

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Context identifies an isolated configuration namespace. Several contexts
// may coexist on the same shared name tree; each logger keeps one mutable
// state record per context. Context 0 is the process default.
type Context int

// ErrNotALogger is returned by AsLogger when a runtime-computed value is not
// a logger reference.
var ErrNotALogger = fmt.Errorf("not a logger")

// state is the mutable per-logger, per-context configuration record.
type state struct {
	level     Level
	additive  bool
	appenders []Appender
}

func newState() *state {
	return &state{level: UNSET, additive: true}
}

// Logger is a node of the shared name tree. Node identity is process-wide
// and independent of configuration context: the same dotted name always
// resolves to the same instance within one Hierarchy.
type Logger struct {
	h        *Hierarchy
	name     string // full dotted name, "" for the root
	segment  string // last name segment, "" for the root
	parent   *Logger
	children map[string]*Logger

	// states is indexed by Context and grown lazily to the highest context
	// seen. Guarded by h.mu.
	states []*state
}

// Hierarchy owns the shared logger tree and all per-context state. The tree
// shape is append-only: nodes are inserted on demand and never removed.
type Hierarchy struct {
	mu     sync.RWMutex // guards tree shape and every state record
	root   *Logger
	byName map[string]*Logger

	cfgMu   map[Context]*sync.Mutex // per-context configuration serialization
	cfgMuMu sync.Mutex
}

// NewHierarchy creates an empty hierarchy containing only the root logger.
func NewHierarchy() *Hierarchy {
	h := &Hierarchy{
		byName: make(map[string]*Logger),
		cfgMu:  make(map[Context]*sync.Mutex),
	}
	h.root = &Logger{h: h, children: make(map[string]*Logger)}
	h.byName[""] = h.root
	return h
}

// Root returns the root logger.
func (h *Hierarchy) Root() *Logger {
	return h.root
}

// GetOrCreate resolves a dotted logger name, creating the node and any
// missing ancestors. It is idempotent and safe for concurrent use; the same
// name always returns the same instance. The empty name is the root.
func (h *Hierarchy) GetOrCreate(name string) *Logger {
	h.mu.RLock()
	if l, ok := h.byName[name]; ok {
		h.mu.RUnlock()
		return l
	}
	h.mu.RUnlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := h.byName[name]; ok {
		return l
	}

	node := h.root
	full := ""
	for _, seg := range strings.Split(name, ".") {
		if seg == "" {
			continue
		}
		if full == "" {
			full = seg
		} else {
			full = full + "." + seg
		}
		child, ok := node.children[seg]
		if !ok {
			child = &Logger{
				h:        h,
				name:     full,
				segment:  seg,
				parent:   node,
				children: make(map[string]*Logger),
			}
			node.children[seg] = child
			h.byName[full] = child
		}
		node = child
	}
	return node
}

// ConfigLock returns the mutex serializing directive application for one
// context. Two concurrent configuration calls against the same context are
// mutually exclusive; calls against different contexts are not.
func (h *Hierarchy) ConfigLock(ctx Context) *sync.Mutex {
	h.cfgMuMu.Lock()
	defer h.cfgMuMu.Unlock()
	mu, ok := h.cfgMu[ctx]
	if !ok {
		mu = &sync.Mutex{}
		h.cfgMu[ctx] = mu
	}
	return mu
}

// AsLogger validates that a runtime-supplied value is a logger reference.
func AsLogger(v any) (*Logger, error) {
	l, ok := v.(*Logger)
	if !ok || l == nil {
		return nil, fmt.Errorf("%w: %T", ErrNotALogger, v)
	}
	return l, nil
}

// stateLocked returns the state record for ctx, creating it when create is
// set. Callers hold h.mu (write lock when create is set). A nil return means
// the logger carries only defaults in that context.
func (l *Logger) stateLocked(ctx Context, create bool) *state {
	if int(ctx) < len(l.states) && l.states[ctx] != nil {
		return l.states[ctx]
	}
	if !create {
		return nil
	}
	for len(l.states) <= int(ctx) {
		l.states = append(l.states, nil)
	}
	l.states[ctx] = newState()
	return l.states[ctx]
}

// Name returns the full dotted name, "" for the root logger.
func (l *Logger) Name() string { return l.name }

// Segment returns the last name segment, "" for the root logger.
func (l *Logger) Segment() string { return l.segment }

// Parent returns the parent logger, nil for the root.
func (l *Logger) Parent() *Logger { return l.parent }

// childrenLocked returns the direct children sorted by segment. Callers hold
// h.mu.
func (l *Logger) childrenLocked() []*Logger {
	out := make([]*Logger, 0, len(l.children))
	for _, c := range l.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].segment < out[j].segment })
	return out
}

// Children returns the direct children sorted by segment.
func (l *Logger) Children() []*Logger {
	l.h.mu.RLock()
	defer l.h.mu.RUnlock()
	return l.childrenLocked()
}

// Level returns the logger's own level in ctx, UNSET when inherited.
func (l *Logger) Level(ctx Context) Level {
	l.h.mu.RLock()
	defer l.h.mu.RUnlock()
	if s := l.stateLocked(ctx, false); s != nil {
		return s.level
	}
	return UNSET
}

// Additive reports whether events propagate past this logger to its
// ancestors' appenders in ctx. Defaults to true.
func (l *Logger) Additive(ctx Context) bool {
	l.h.mu.RLock()
	defer l.h.mu.RUnlock()
	if s := l.stateLocked(ctx, false); s != nil {
		return s.additive
	}
	return true
}

// Appenders returns a copy of the logger's appender list in ctx.
func (l *Logger) Appenders(ctx Context) []Appender {
	l.h.mu.RLock()
	defer l.h.mu.RUnlock()
	s := l.stateLocked(ctx, false)
	if s == nil || len(s.appenders) == 0 {
		return nil
	}
	out := make([]Appender, len(s.appenders))
	copy(out, s.appenders)
	return out
}

// EffectiveLevel walks the parent chain to the nearest logger with a
// concrete level; when every logger up to the root is UNSET it returns
// DefaultLevel.
func (l *Logger) EffectiveLevel(ctx Context) Level {
	l.h.mu.RLock()
	defer l.h.mu.RUnlock()
	return l.effectiveLevelLocked(ctx)
}

func (l *Logger) effectiveLevelLocked(ctx Context) Level {
	for n := l; n != nil; n = n.parent {
		if s := n.stateLocked(ctx, false); s != nil && s.level != UNSET {
			return s.level
		}
	}
	return DefaultLevel
}

// VisitDescendants invokes fn on every strict descendant of l in pre-order,
// children sorted by segment for deterministic traversal.
func (h *Hierarchy) VisitDescendants(l *Logger, fn func(*Logger)) {
	for _, c := range l.Children() {
		fn(c)
		h.VisitDescendants(c, fn)
	}
}

// View is a handle for reading logger state inside Hierarchy.View. All View
// methods require the hierarchy read lock held by View; a View must not
// escape its call.
type View struct {
	ctx Context
}

// View runs fn while holding the hierarchy read lock, so fn observes one
// consistent snapshot: a concurrent Update is seen either entirely or not at
// all.
func (h *Hierarchy) View(ctx Context, fn func(v *View)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn(&View{ctx: ctx})
}

// Level returns l's own level, UNSET when inherited.
func (v *View) Level(l *Logger) Level {
	if s := l.stateLocked(v.ctx, false); s != nil {
		return s.level
	}
	return UNSET
}

// Additive reports l's additivity flag.
func (v *View) Additive(l *Logger) bool {
	if s := l.stateLocked(v.ctx, false); s != nil {
		return s.additive
	}
	return true
}

// Appenders returns l's appender list. The slice is shared with the state
// record and valid only inside the View call.
func (v *View) Appenders(l *Logger) []Appender {
	if s := l.stateLocked(v.ctx, false); s != nil {
		return s.appenders
	}
	return nil
}

// Children returns l's direct children sorted by segment.
func (v *View) Children(l *Logger) []*Logger {
	return l.childrenLocked()
}

// Tx is a handle for mutating logger state inside Hierarchy.Update. All Tx
// methods require the hierarchy write lock held by Update; a Tx must not
// escape its Update call.
type Tx struct {
	h       *Hierarchy
	ctx     Context
	removed []Appender
}

// Update runs fn while holding the hierarchy write lock, so that every
// mutation fn performs becomes visible to readers at once. It returns the
// appenders detached during the transaction; the caller closes them outside
// the lock, since Close may block on I/O.
func (h *Hierarchy) Update(ctx Context, fn func(tx *Tx)) []Appender {
	h.mu.Lock()
	tx := &Tx{h: h, ctx: ctx}
	fn(tx)
	h.mu.Unlock()
	return tx.removed
}

// Level returns l's own level, UNSET when inherited.
func (tx *Tx) Level(l *Logger) Level {
	if s := l.stateLocked(tx.ctx, false); s != nil {
		return s.level
	}
	return UNSET
}

// Additive reports l's additivity flag.
func (tx *Tx) Additive(l *Logger) bool {
	if s := l.stateLocked(tx.ctx, false); s != nil {
		return s.additive
	}
	return true
}

// SetLevel sets l's own level.
func (tx *Tx) SetLevel(l *Logger, level Level) {
	l.stateLocked(tx.ctx, true).level = level
}

// SetAdditive sets l's additivity flag.
func (tx *Tx) SetAdditive(l *Logger, additive bool) {
	l.stateLocked(tx.ctx, true).additive = additive
}

// AddAppender appends a sink to l's appender list. The sink becomes owned by
// that list.
func (tx *Tx) AddAppender(l *Logger, a Appender) {
	s := l.stateLocked(tx.ctx, true)
	s.appenders = append(s.appenders, a)
}

// RemoveAppenders detaches every appender of l for which keep returns false.
// Detached appenders are collected on the transaction for closing after the
// lock is released. A nil keep removes everything.
func (tx *Tx) RemoveAppenders(l *Logger, keep func(Appender) bool) {
	s := l.stateLocked(tx.ctx, false)
	if s == nil || len(s.appenders) == 0 {
		return
	}
	kept := s.appenders[:0]
	for _, a := range s.appenders {
		if keep != nil && keep(a) {
			kept = append(kept, a)
		} else {
			tx.removed = append(tx.removed, a)
		}
	}
	s.appenders = kept
}

// VisitDescendants invokes fn on every strict descendant of l in pre-order
// inside the transaction, children sorted by segment.
func (tx *Tx) VisitDescendants(l *Logger, fn func(*Logger)) {
	for _, c := range l.childrenLocked() {
		fn(c)
		tx.VisitDescendants(c, fn)
	}
}

// Reset clears l to defaults: level UNSET, additive, no appenders. With
// descendants set the whole subtree below l is cleared in the same
// transaction.
func (tx *Tx) Reset(l *Logger, descendants bool) {
	tx.resetOne(l)
	if !descendants {
		return
	}
	var walk func(n *Logger)
	walk = func(n *Logger) {
		for _, c := range n.children {
			tx.resetOne(c)
			walk(c)
		}
	}
	walk(l)
}

func (tx *Tx) resetOne(l *Logger) {
	s := l.stateLocked(tx.ctx, false)
	if s == nil {
		return
	}
	s.level = UNSET
	s.additive = true
	tx.removed = append(tx.removed, s.appenders...)
	s.appenders = nil
}

// ResetSubtree clears l (and optionally all descendants) to defaults as a
// single all-or-nothing traversal, then closes the detached appenders.
func (h *Hierarchy) ResetSubtree(l *Logger, ctx Context, descendants bool) {
	removed := h.Update(ctx, func(tx *Tx) {
		tx.Reset(l, descendants)
	})
	CloseAppenders(removed)
}

// CloseAppenders closes detached sinks, reporting failures to stderr rather
// than propagating them: configuration changes do not fail because an old
// sink's close failed.
func CloseAppenders(appenders []Appender) {
	for _, a := range appenders {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "prism: failed to close %s appender: %v\n", a.Kind(), err)
		}
	}
}

// Log emits one event at the given level. When the event passes the
// effective level, it is handed to the appenders of the logger and of each
// ancestor up to and including the first non-additive logger.
func (l *Logger) Log(ctx Context, level Level, msg string) {
	h := l.h
	h.mu.RLock()
	if !level.Enabled(l.effectiveLevelLocked(ctx)) {
		h.mu.RUnlock()
		return
	}
	// Snapshot the appenders under the read lock; the writes below happen
	// outside so appender I/O never blocks configuration.
	var sinks []Appender
	for n := l; n != nil; n = n.parent {
		s := n.stateLocked(ctx, false)
		if s == nil {
			continue
		}
		sinks = append(sinks, s.appenders...)
		if !s.additive {
			break
		}
	}
	h.mu.RUnlock()

	if len(sinks) == 0 {
		return
	}
	ev := &Event{Time: time.Now(), Level: level, Logger: l.name, Message: msg}
	for _, a := range sinks {
		if err := a.Append(ev); err != nil {
			fmt.Fprintf(os.Stderr, "prism: append to %s failed: %v\n", a.Kind(), err)
		}
	}
}

// Logf emits a formatted event at the given level.
func (l *Logger) Logf(ctx Context, level Level, format string, args ...any) {
	l.Log(ctx, level, fmt.Sprintf(format, args...))
}

// Debugf emits a formatted DEBUG event.
func (l *Logger) Debugf(ctx Context, format string, args ...any) {
	l.Logf(ctx, DEBUG, format, args...)
}

// Infof emits a formatted INFO event.
func (l *Logger) Infof(ctx Context, format string, args ...any) {
	l.Logf(ctx, INFO, format, args...)
}

// Warnf emits a formatted WARN event.
func (l *Logger) Warnf(ctx Context, format string, args ...any) {
	l.Logf(ctx, WARN, format, args...)
}

// Errorf emits a formatted ERROR event.
func (l *Logger) Errorf(ctx Context, format string, args ...any) {
	l.Logf(ctx, ERROR, format, args...)
}
