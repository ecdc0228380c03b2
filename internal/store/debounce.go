package store

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a typed query commits.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer runs a callback after a quiet period. Each Trigger cancels the
// previously scheduled callback and reschedules, so a superseded callback
// never fires. At most one timer is pending at a time.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	after func(time.Duration, func()) *time.Timer
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, after: time.AfterFunc}
}

// Trigger schedules fn after the quiet period, cancelling any prior pending
// callback.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.after(d.delay, fn)
}

// Cancel drops any pending callback.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
