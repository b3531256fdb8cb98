package outputs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/Lunar-Chipter/prism/internal/core"
	"github.com/Lunar-Chipter/prism/internal/layout"
	"github.com/Lunar-Chipter/prism/internal/metrics"
)

// backupDateFormat parameterizes the backup-name template with the date of
// the period just closed.
const backupDateFormat = "20060102"

// DailyFile is a rotating file sink. The active file lives at a fixed path;
// at the first write past a local-midnight boundary the active file is
// renamed to its backup name for the day just closed and a fresh active
// file is opened.
//
// Rollover is crash-consistent: constructing the sink over an existing
// active file reopens it in append mode rather than rotating, so a restart
// mid-day continues the same file.
type DailyFile struct {
	mu     sync.Mutex
	path   string
	layout *layout.Layout
	flush  bool

	file        *os.File
	periodStart time.Time // local midnight opening the current period

	// now is the clock source, replaceable in tests to cross boundaries.
	now func() time.Time
}

// NewDailyFile opens (or creates) the active file at path in append mode.
func NewDailyFile(path string, l *layout.Layout, immediateFlush bool) (*DailyFile, error) {
	d := &DailyFile{
		path:   path,
		layout: l,
		flush:  immediateFlush,
		now:    time.Now,
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	d.file = file
	d.periodStart = midnight(d.now())
	return d, nil
}

// midnight truncates t to the start of its local day.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// BackupPath returns the backup name for the period starting at day:
// the active path with the date inserted before the extension.
func (d *DailyFile) BackupPath(day time.Time) string {
	dir := filepath.Dir(d.path)
	base := filepath.Base(d.path)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", name, day.Format(backupDateFormat), ext))
}

// Append formats and writes one event, rolling the file over first when the
// event falls past the current period's midnight boundary. The triggering
// event always lands in the new file.
func (d *DailyFile) Append(ev *core.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if !now.Before(d.periodStart.AddDate(0, 0, 1)) {
		if err := d.rollover(now); err != nil {
			return err
		}
	}

	if _, err := d.file.Write(d.layout.Format(ev)); err != nil {
		return err
	}
	if d.flush {
		return d.file.Sync()
	}
	return nil
}

// rollover closes and renames the active file for the period just closed,
// then opens a fresh active file. Caller holds d.mu.
func (d *DailyFile) rollover(now time.Time) error {
	if err := d.file.Close(); err != nil {
		return err
	}
	backup := d.BackupPath(d.periodStart)
	if err := os.Rename(d.path, backup); err != nil {
		// The active file may have been removed externally; keep logging
		// rather than wedging the sink.
		fmt.Fprintf(os.Stderr, "prism: rollover rename to %s failed: %v\n", backup, err)
	}
	file, err := os.OpenFile(d.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to reopen log file %s: %w", d.path, err)
	}
	d.file = file
	d.periodStart = midnight(now)
	metrics.Default.Inc(metrics.DailyRollovers)
	return nil
}

// ImmediateFlush reports whether the sink flushes after every event.
func (d *DailyFile) ImmediateFlush() bool {
	return d.flush
}

// Kind identifies the sink variant.
func (d *DailyFile) Kind() string {
	return "daily-file"
}

// Properties returns the sink configuration for diagnostic rendering.
func (d *DailyFile) Properties() [][2]string {
	return [][2]string{
		{"path", d.path},
		{"backup-date-format", backupDateFormat},
		{"pattern", d.layout.Pattern()},
		{"immediate-flush", strconv.FormatBool(d.flush)},
	}
}

// Path returns the active file path.
func (d *DailyFile) Path() string {
	return d.path
}

// Close closes the active file.
func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file != nil {
		err := d.file.Close()
		d.file = nil
		return err
	}
	return nil
}
