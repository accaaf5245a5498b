package ui

import (
	"sync"
	"time"
)

// recentEvents is how many events the tracker keeps for display.
const recentEvents = 50

// Tracker accumulates event counts and a per-interval rate history.
// It is safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	start     time.Time
	newCount  int
	changed   int
	recent    []Event
	bucket    int
	peak      int
	sparkline *Sparkline
}

// TrackerStats is a snapshot of a Tracker.
type TrackerStats struct {
	New     int
	Changed int
	// Recent holds the latest events, newest first.
	Recent  []Event
	Elapsed time.Duration
	// Peak is the largest number of events seen in one sample interval.
	Peak int
}

// Total returns New plus Changed.
func (s TrackerStats) Total() int {
	return s.New + s.Changed
}

// NewTracker creates a tracker whose clock starts now.
func NewTracker() *Tracker {
	return &Tracker{
		start:     time.Now(),
		sparkline: NewSparkline(60),
	}
}

// Record counts an event.
func (t *Tracker) Record(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e.Kind {
	case EventNew:
		t.newCount++
	default:
		t.changed++
	}
	t.bucket++

	t.recent = append(t.recent, e)
	if len(t.recent) > recentEvents {
		t.recent = t.recent[len(t.recent)-recentEvents:]
	}
}

// Sample closes the current interval and adds its event count to the
// rate history.
func (t *Tracker) Sample() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sparkline.Add(float64(t.bucket))
	t.peak = max(t.peak, t.bucket)
	t.bucket = 0
}

// RenderSparkline returns the rate history at the given width.
func (t *Tracker) RenderSparkline(width int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sparkline.Render(width)
}

// Stats returns a snapshot.
func (t *Tracker) Stats() TrackerStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	recent := make([]Event, len(t.recent))
	for i, e := range t.recent {
		recent[len(t.recent)-1-i] = e
	}
	return TrackerStats{
		New:     t.newCount,
		Changed: t.changed,
		Recent:  recent,
		Elapsed: time.Since(t.start),
		Peak:    t.peak,
	}
}
