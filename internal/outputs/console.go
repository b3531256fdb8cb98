// Package outputs provides the output sinks of the prism logger.
package outputs

import (
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/Lunar-Chipter/prism/internal/core"
	"github.com/Lunar-Chipter/prism/internal/layout"
)

// Console is a console sink writing formatted events to a single writer.
type Console struct {
	mu     sync.Mutex
	writer io.Writer
	layout *layout.Layout
	flush  bool
}

// NewConsole creates a console sink writing to stdout.
func NewConsole(l *layout.Layout, immediateFlush bool) *Console {
	return NewConsoleWithWriter(os.Stdout, l, immediateFlush)
}

// NewConsoleWithWriter creates a console sink with a custom writer.
func NewConsoleWithWriter(w io.Writer, l *layout.Layout, immediateFlush bool) *Console {
	return &Console{writer: w, layout: l, flush: immediateFlush}
}

// Append formats and writes one event.
func (c *Console) Append(ev *core.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.writer.Write(c.layout.Format(ev)); err != nil {
		return err
	}
	if c.flush {
		if f, ok := c.writer.(*os.File); ok {
			return f.Sync()
		}
	}
	return nil
}

// ImmediateFlush reports whether the sink flushes after every event.
func (c *Console) ImmediateFlush() bool {
	return c.flush
}

// Kind identifies the sink variant.
func (c *Console) Kind() string {
	return "console"
}

// Properties returns the sink configuration for diagnostic rendering.
func (c *Console) Properties() [][2]string {
	return [][2]string{
		{"pattern", c.layout.Pattern()},
		{"immediate-flush", strconv.FormatBool(c.flush)},
	}
}

// Close closes the underlying writer when it is closeable. Stdout is never
// closed.
func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writer == os.Stdout || c.writer == os.Stderr {
		return nil
	}
	if closer, ok := c.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
