// Package metrics collects configuration-plane counters for the prism
// logger: directive applications, reloads and file rollovers.
package metrics

import "sync"

// Counter names used across the configuration plane.
const (
	ConfigureCalls  = "configure.calls"
	ConfigureErrors = "configure.errors"
	WatchReloads    = "watch.reloads"
	WatchErrors     = "watch.errors"
	DailyRollovers  = "daily.rollovers"
)

// Collector is a simple in-memory metrics collector.
type Collector struct {
	mu       sync.RWMutex
	counters map[string]int64
	gauges   map[string]float64
}

// Default is the process-wide collector.
var Default = NewCollector()

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
	}
}

// Inc increments a counter by one.
func (c *Collector) Inc(name string) {
	c.Add(name, 1)
}

// Add increments a counter by delta.
func (c *Collector) Add(name string, delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] += delta
}

// SetGauge records a gauge value.
func (c *Collector) SetGauge(name string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[name] = value
}

// Counter returns the value of a counter.
func (c *Collector) Counter(name string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[name]
}

// Gauge returns the value of a gauge.
func (c *Collector) Gauge(name string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gauges[name]
}

// Counters returns a copy of all counters.
func (c *Collector) Counters() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Create a copy to avoid race conditions
	result := make(map[string]int64, len(c.counters))
	for k, v := range c.counters {
		result[k] = v
	}
	return result
}

// Gauges returns a copy of all gauges.
func (c *Collector) Gauges() map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Create a copy to avoid race conditions
	result := make(map[string]float64, len(c.gauges))
	for k, v := range c.gauges {
		result[k] = v
	}
	return result
}
