package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	// When: the same path is added repeatedly along with another
	d.Add("/w/a.txt")
	d.Add("/w/b.txt")
	d.Add("/w/a.txt")
	d.Add("/w/a.txt")

	// Then: one batch arrives, deduplicated, in first-seen order
	select {
	case batch := <-d.Output():
		assert.Equal(t, []string{"/w/a.txt", "/w/b.txt"}, batch)
	case <-time.After(time.Second):
		t.Fatal("no batch flushed")
	}
	assert.Equal(t, 0, d.Pending())
}

func TestDebouncer_WindowRestartsOnAdd(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Add("/w/a.txt")
	time.Sleep(20 * time.Millisecond)
	d.Add("/w/b.txt")

	assert.Equal(t, 2, d.Pending())

	select {
	case batch := <-d.Output():
		assert.Len(t, batch, 2)
	case <-time.After(time.Second):
		t.Fatal("no batch flushed")
	}
}

func TestDebouncer_KeepsPathsWhenConsumerIsBehind(t *testing.T) {
	// Given: a debouncer whose output buffer is full
	d := NewDebouncer(5 * time.Millisecond)
	defer d.Stop()
	for i := 0; i < cap(d.output); i++ {
		d.output <- []string{"filler"}
	}

	// When: a path is added and the window elapses
	d.Add("/w/late.txt")
	time.Sleep(30 * time.Millisecond)

	// Then: the path is still pending, not dropped
	assert.Equal(t, 1, d.Pending())

	// When: the consumer drains
	for i := 0; i < cap(d.output); i++ {
		<-d.Output()
	}

	// Then: the pending path is eventually delivered
	select {
	case batch := <-d.Output():
		assert.Equal(t, []string{"/w/late.txt"}, batch)
	case <-time.After(time.Second):
		t.Fatal("pending path was dropped")
	}
}

func TestDebouncer_StopIsIdempotent(t *testing.T) {
	d := NewDebouncer(time.Hour)
	d.Add("/w/a.txt")

	d.Stop()
	require.NotPanics(t, d.Stop)

	_, ok := <-d.Output()
	assert.False(t, ok, "output is closed after stop")

	d.Add("/w/b.txt")
	assert.Equal(t, 1, d.Pending(), "adds after stop are ignored")
}
