package metrics

import (
	"sync"
	"testing"
)

func TestCounters(t *testing.T) {
	c := NewCollector()
	c.Inc(ConfigureCalls)
	c.Inc(ConfigureCalls)
	c.Add(WatchReloads, 3)

	if got := c.Counter(ConfigureCalls); got != 2 {
		t.Errorf("Counter(%s) = %d; expected 2", ConfigureCalls, got)
	}
	if got := c.Counter(WatchReloads); got != 3 {
		t.Errorf("Counter(%s) = %d; expected 3", WatchReloads, got)
	}
	if got := c.Counter(DailyRollovers); got != 0 {
		t.Errorf("Counter(%s) = %d; expected 0", DailyRollovers, got)
	}
}

func TestGauges(t *testing.T) {
	c := NewCollector()
	c.SetGauge("queue.depth", 12.5)
	c.SetGauge("queue.depth", 4)

	if got := c.Gauge("queue.depth"); got != 4 {
		t.Errorf("Gauge = %v; expected 4", got)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	c := NewCollector()
	c.Inc(ConfigureErrors)

	snap := c.Counters()
	snap[ConfigureErrors] = 99

	if got := c.Counter(ConfigureErrors); got != 1 {
		t.Errorf("Counter = %d after mutating a snapshot; expected 1", got)
	}
}

func TestConcurrentIncrement(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc(WatchErrors)
			}
		}()
	}
	wg.Wait()

	if got := c.Counter(WatchErrors); got != 1000 {
		t.Errorf("Counter = %d; expected 1000", got)
	}
}
