package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer_Start_PrintsTargets(t *testing.T) {
	// Given: a plain renderer with a session summary
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf, WithNoColor(true), WithSummary(Summary{
		Backend: "polling",
		Targets: []string{"/srv/conf", "/srv/app.yaml"},
		Sleep:   3 * time.Second,
	})))

	// When: starting
	require.NoError(t, r.Start(context.Background()))

	// Then: it lists the targets
	out := buf.String()
	assert.Contains(t, out, "Watching 2 targets with polling backend, every 3s")
	assert.Contains(t, out, "  /srv/conf\n")
	assert.Contains(t, out, "  /srv/app.yaml\n")
}

func TestPlainRenderer_Event_OneLinePerEvent(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf, WithNoColor(true)))
	at := time.Date(2026, 1, 2, 15, 4, 5, 0, time.Local)

	r.Event(Event{Time: at, Kind: EventNew, Path: "/w/a.txt"})
	r.Event(Event{Time: at, Kind: EventChange, Path: "/w/a.txt"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "15:04:05 NEW    /w/a.txt", lines[0])
	assert.Equal(t, "15:04:05 CHANGE /w/a.txt", lines[1])
}

func TestPlainRenderer_Stop_PrintsTotals(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf, WithNoColor(true)))
	r.Event(Event{Kind: EventNew, Path: "/w/a"})
	r.Event(Event{Kind: EventChange, Path: "/w/a"})
	r.Event(Event{Kind: EventChange, Path: "/w/b"})
	buf.Reset()

	require.NoError(t, r.Stop())

	assert.Contains(t, buf.String(), "1 new, 2 changed in ")
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "1 target", describe(Summary{Targets: []string{"/a"}}))
	assert.Equal(t, "2 targets with native backend, every 1s",
		describe(Summary{Targets: []string{"/a", "/b"}, Backend: "native", Sleep: time.Second}))
}
