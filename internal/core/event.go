package core

import "time"

// Event is a single log record handed to appenders. It carries only the
// fields layouts render; emission-time enrichment (fields, tracing, caller
// capture) lives outside the configuration core.
type Event struct {
	Time    time.Time
	Level   Level
	Logger  string // full dotted logger name, "" for the root logger
	Message string
}
