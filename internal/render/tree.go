// Package render produces the pruned ASCII diagram of a logger hierarchy.
package render

import (
	"strings"

	"github.com/Lunar-Chipter/prism/internal/core"
)

// A node is interesting when it is the render root, has a concrete level,
// has non-default additivity, has appenders, or has an interesting
// descendant. Uninteresting nodes are pruned from the diagram entirely.

type renderer struct {
	buf strings.Builder
	v   *core.View

	// interesting caches the predicate for one render pass, so each node is
	// evaluated at most once even when consulted as both "descendant of"
	// and "visited node".
	interesting map[*core.Logger]bool

	// pending[d] counts interesting children of the open node at depth d
	// that have not been printed yet; it drives the continuation bars.
	pending []int
}

// Tree renders the subtree under root in ctx. The whole diagram is built
// inside one read transaction, so a concurrent configuration change is seen
// either entirely or not at all.
func Tree(h *core.Hierarchy, ctx core.Context, root *core.Logger) string {
	r := &renderer{interesting: make(map[*core.Logger]bool)}
	h.View(ctx, func(v *core.View) {
		r.v = v
		r.mark(root)
		// The render root always appears, interesting or not.
		r.interesting[root] = true
		r.print(root, 0)
	})
	return r.buf.String()
}

// mark computes interestingness bottom-up, caching every node exactly once.
func (r *renderer) mark(l *core.Logger) bool {
	in := r.v.Level(l) != core.UNSET ||
		!r.v.Additive(l) ||
		len(r.v.Appenders(l)) > 0
	for _, c := range r.v.Children(l) {
		if r.mark(c) {
			in = true
		}
	}
	r.interesting[l] = in
	return in
}

// print emits one node line, its appender lines, then its interesting
// children depth-first, decrementing the parent's pending counter as each
// child is emitted.
func (r *renderer) print(l *core.Logger, depth int) {
	r.writePrefix(depth, "+-- ")

	name := l.Segment()
	if depth == 0 {
		name = l.Name()
		if name == "" {
			name = "root"
		}
	}
	r.buf.WriteString(name)
	if !r.v.Additive(l) {
		r.buf.WriteString(" (non-additive)")
	}
	if lv := r.v.Level(l); lv != core.UNSET {
		r.buf.WriteString(" [")
		r.buf.WriteString(lv.String())
		r.buf.WriteString("]")
	}
	r.buf.WriteByte('\n')

	children := r.interestingChildren(l)

	// Appender lines: indented under the node, no branch corner of their
	// own. A bar still runs at the node's depth while children follow.
	for _, a := range r.v.Appenders(l) {
		r.writePrefix(depth, "    ")
		if len(children) > 0 {
			r.buf.WriteString("|     ")
		} else {
			r.buf.WriteString("      ")
		}
		r.buf.WriteString("- ")
		r.buf.WriteString(a.Kind())
		r.buf.WriteString(":")
		for _, p := range a.Properties() {
			r.buf.WriteString(" ")
			r.buf.WriteString(p[0])
			r.buf.WriteString("=")
			r.buf.WriteString(p[1])
		}
		r.buf.WriteByte('\n')
	}

	if len(r.pending) <= depth {
		r.pending = append(r.pending, 0)
	}
	r.pending[depth] = len(children)
	for _, c := range children {
		r.pending[depth]--
		r.print(c, depth+1)
	}
}

// writePrefix draws the ancestor columns for a line at depth: a vertical
// continuation bar at every ancestor depth that still has pending siblings,
// a blank otherwise, then corner at the line's own column. The render root
// has no columns.
func (r *renderer) writePrefix(depth int, corner string) {
	if depth == 0 {
		return
	}
	for i := 0; i < depth-1; i++ {
		if r.pending[i] > 0 {
			r.buf.WriteString("|   ")
		} else {
			r.buf.WriteString("    ")
		}
	}
	r.buf.WriteString(corner)
}

func (r *renderer) interestingChildren(l *core.Logger) []*core.Logger {
	var out []*core.Logger
	for _, c := range r.v.Children(l) {
		if r.interesting[c] {
			out = append(out, c)
		}
	}
	return out
}
