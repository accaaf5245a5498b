package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of native events. Paths added within the
// window are emitted once, as a batch, in first-seen order. Because the
// native backend re-stats every flushed path, a create followed by several
// writes collapses into a single notification.
type Debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	order   []string
	pending map[string]struct{}
	output  chan []string
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a new debouncer with the given window duration.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]struct{}),
		output:  make(chan []string, 10),
	}
}

// Add queues path for the next flush and restarts the window.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if _, ok := d.pending[path]; !ok {
		d.pending[path] = struct{}{}
		d.order = append(d.order, path)
	}
	d.scheduleFlush()
}

// scheduleFlush must be called with the lock held.
func (d *Debouncer) scheduleFlush() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush emits all pending paths. If the consumer is behind, the batch stays
// pending and another flush is scheduled rather than dropping paths.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.order) == 0 {
		return
	}

	batch := d.order
	select {
	case d.output <- batch:
		d.order = nil
		d.pending = make(map[string]struct{})
	default:
		d.scheduleFlush()
	}
}

// Pending returns the number of paths waiting for a flush.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

// Output returns the channel of debounced batches.
func (d *Debouncer) Output() <-chan []string {
	return d.output
}

// Stop stops the debouncer and closes the output channel.
// Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
