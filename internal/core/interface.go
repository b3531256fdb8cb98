package core

// Appender is a configured output sink for log events. An appender instance
// is owned exclusively by the logger state that holds it and is never shared
// between loggers.
//
// Append may block on I/O; the hierarchy never calls it while holding a
// configuration or tree lock.
type Appender interface {
	// Append formats and writes one event to the sink.
	Append(ev *Event) error

	// ImmediateFlush reports whether the sink flushes after every event.
	ImmediateFlush() bool

	// Kind identifies the sink variant, e.g. "console" or "daily-file".
	Kind() string

	// Properties returns the sink's configuration as ordered name/value
	// pairs for diagnostic rendering.
	Properties() [][2]string

	// Close releases the sink's resources. An appender removed from a
	// logger is closed exactly once.
	Close() error
}
