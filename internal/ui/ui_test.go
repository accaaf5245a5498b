package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTTY_BufferIsNotTerminal(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, IsTTY(nil))
}

func TestDetectNoColor(t *testing.T) {
	// Given: NO_COLOR set
	t.Setenv("NO_COLOR", "1")

	// Then: detected, and NewConfig honours it
	assert.True(t, DetectNoColor())
	assert.True(t, NewConfig(&bytes.Buffer{}).NoColor)
}

func TestDetectCI(t *testing.T) {
	t.Setenv("GITHUB_ACTIONS", "true")
	assert.True(t, DetectCI())
}

func TestNewRenderer_SelectsByEnvironment(t *testing.T) {
	buf := &bytes.Buffer{}

	// JSON wins regardless of terminal
	_, ok := NewRenderer(NewConfig(buf, WithJSON(true))).(*JSONRenderer)
	assert.True(t, ok)

	// A buffer is not a terminal, so lines are used
	_, ok = NewRenderer(NewConfig(buf)).(*PlainRenderer)
	assert.True(t, ok)

	_, ok = NewRenderer(NewConfig(buf, WithForcePlain(true))).(*PlainRenderer)
	assert.True(t, ok)
}

func TestNewTUIRenderer_RejectsNonTTY(t *testing.T) {
	r, err := NewTUIRenderer(NewConfig(&bytes.Buffer{}))

	assert.Error(t, err)
	assert.Nil(t, r)
}

func TestListener_ForwardsEvents(t *testing.T) {
	// Given: a JSON renderer wrapped as a watcher listener
	buf := &bytes.Buffer{}
	l := Listener(NewJSONRenderer(NewConfig(buf)))

	// When: the watcher reports both kinds
	l.OnNew("/w/a.txt")
	l.OnChange("/w/b.txt")

	// Then: both are rendered in order
	out := buf.String()
	require.Contains(t, out, `"event":"new","path":"/w/a.txt"`)
	require.Contains(t, out, `"event":"change","path":"/w/b.txt"`)
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("a.txt")), bytes.Index(buf.Bytes(), []byte("b.txt")))
}

func TestEventKind_Label(t *testing.T) {
	assert.Equal(t, len(EventNew.Label()), len(EventChange.Label()), "labels align in columns")
	assert.Equal(t, "NEW   ", EventNew.Label())
	assert.Equal(t, "CHANGE", EventChange.Label())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5s", formatDuration(5*time.Second))
	assert.Equal(t, "2m", formatDuration(2*time.Minute))
	assert.Equal(t, "1m30s", formatDuration(90*time.Second))
	assert.Equal(t, "2h5m", formatDuration(2*time.Hour+5*time.Minute))
}
