// Package persist coalesces state changes into delayed durable writes.
package persist

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultDelay is the write coalescing window.
const DefaultDelay = 300 * time.Millisecond

// Debouncer runs save once per quiet window after the last Schedule call.
// Changes made in the final window are lost if the process dies before
// the timer fires or Flush runs.
type Debouncer struct {
	name   string
	delay  time.Duration
	save   func() error
	logger *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
	dirty bool

	saveMu sync.Mutex // serializes save between timer and Flush
}

// NewDebouncer creates a debouncer; a non-positive delay uses DefaultDelay.
func NewDebouncer(name string, delay time.Duration, save func() error, logger *slog.Logger) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Debouncer{name: name, delay: delay, save: save, logger: logger}
}

// Schedule marks state dirty and (re)starts the quiet window.
func (d *Debouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dirty = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if !d.dirty {
		d.mu.Unlock()
		return
	}
	d.dirty = false
	d.timer = nil
	d.mu.Unlock()

	_ = d.run()
}

func (d *Debouncer) run() error {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	if err := d.save(); err != nil {
		d.logger.Error("persist: save failed", slog.String("target", d.name), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Flush cancels a pending window and saves immediately if anything is dirty.
func (d *Debouncer) Flush() error {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	dirty := d.dirty
	d.dirty = false
	d.mu.Unlock()

	if !dirty {
		return nil
	}
	return d.run()
}

// Pending reports whether a save is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty
}
