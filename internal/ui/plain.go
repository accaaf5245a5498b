package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// PlainRenderer prints one line per event (for pipes, CI and --plain).
type PlainRenderer struct {
	mu      sync.Mutex
	out     io.Writer
	styles  Styles
	summary Summary
	tracker *Tracker
}

// NewPlainRenderer creates a line renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{
		out:     cfg.Output,
		styles:  GetStyles(cfg.NoColor),
		summary: cfg.Summary,
		tracker: NewTracker(),
	}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.summary.Targets) == 0 {
		return nil
	}
	_, _ = fmt.Fprintf(r.out, "%s %s\n",
		r.styles.Header.Render("Watching"),
		describe(r.summary))
	for _, target := range r.summary.Targets {
		_, _ = fmt.Fprintf(r.out, "  %s\n", r.styles.Label.Render(target))
	}
	return nil
}

// Event implements Renderer.
func (r *PlainRenderer) Event(e Event) {
	r.tracker.Record(e)

	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintln(r.out, r.formatEvent(e))
}

// formatEvent returns "15:04:05 NEW    /abs/path".
func (r *PlainRenderer) formatEvent(e Event) string {
	return fmt.Sprintf("%s %s %s",
		r.styles.Time.Render(e.Time.Format("15:04:05")),
		r.styles.KindStyle(e.Kind).Render(e.Kind.Label()),
		r.styles.Path.Render(e.Path))
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	stats := r.tracker.Stats()

	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintln(r.out, r.styles.Dim.Render(totals(stats)))
	return nil
}

// describe returns "3 targets with native backend, every 3s".
func describe(s Summary) string {
	var parts []string
	noun := "targets"
	if len(s.Targets) == 1 {
		noun = "target"
	}
	parts = append(parts, fmt.Sprintf("%d %s", len(s.Targets), noun))
	if s.Backend != "" {
		parts = append(parts, fmt.Sprintf("with %s backend", s.Backend))
	}
	desc := strings.Join(parts, " ")
	if s.Sleep > 0 {
		desc += fmt.Sprintf(", every %s", s.Sleep)
	}
	return desc
}

// totals returns "2 new, 5 changed in 1m30s".
func totals(s TrackerStats) string {
	return fmt.Sprintf("%d new, %d changed in %s", s.New, s.Changed, formatDuration(s.Elapsed))
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

var _ Renderer = (*PlainRenderer)(nil)
