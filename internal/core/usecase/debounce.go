package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces bursts of Trigger calls into one write that runs after
// a quiet period. The write function snapshots state when it runs, so the
// latest state always wins. Flush forces any pending write immediately.
type Debouncer struct {
	delay time.Duration
	write func(context.Context) error

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	closed  bool

	writeMu sync.Mutex
}

func NewDebouncer(delay time.Duration, write func(context.Context) error) *Debouncer {
	if delay < 0 {
		delay = 0
	}
	return &Debouncer{delay: delay, write: write}
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = true
	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		if err := d.Flush(context.Background()); err != nil {
			slog.Error("debounced_write_failed", "error", err)
		}
	})
}

// Pending reports whether a write is scheduled but has not run yet.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Debouncer) Flush(ctx context.Context) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if !d.pending {
		d.mu.Unlock()
		return nil
	}
	d.pending = false
	d.mu.Unlock()

	if err := d.write(ctx); err != nil {
		d.mu.Lock()
		d.pending = true
		d.mu.Unlock()
		return err
	}
	return nil
}

// Close stops scheduling new timers and flushes whatever is pending.
func (d *Debouncer) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return d.Flush(ctx)
}
