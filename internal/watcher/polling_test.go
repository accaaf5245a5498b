package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolling_Name(t *testing.T) {
	p := newPollingBackend(newBase(Options{Logger: discardLogger()}.WithDefaults()))
	assert.Equal(t, "polling", p.Name())
}

func TestPolling_RunReturnsContextError(t *testing.T) {
	p := newPollingBackend(newBase(Options{Logger: discardLogger(), SleepTime: time.Hour}.WithDefaults()))
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(eventTimeout):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestPolling_RunReturnsNilWhenStopped(t *testing.T) {
	p := newPollingBackend(newBase(Options{Logger: discardLogger(), SleepTime: time.Hour}.WithDefaults()))

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(context.Background()) }()
	p.state.stop()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(eventTimeout):
		t.Fatal("Run did not return after stop")
	}
}

func TestPolling_OneEventPerFilePerCycle(t *testing.T) {
	// Given: a registered directory scanned by hand
	dir := t.TempDir()
	p := newPollingBackend(newBase(Options{Logger: discardLogger()}.WithDefaults()))
	var events []recorded
	p.listeners.add(ListenerFuncs{
		New:    func(path string) { events = append(events, recorded{"new", path}) },
		Change: func(path string) { events = append(events, recorded{"change", path}) },
	})
	require.NoError(t, p.AddWatchDirectory(dir, NewExtensionSet("txt")))

	// When: a file is created and then rewritten before the next scan
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("one two"), 0o644))
	p.scanAll()

	// Then: only OnNew is delivered for that cycle
	assert.Equal(t, []recorded{{"new", path}}, events)

	// When: it changes again
	require.NoError(t, os.WriteFile(path, []byte("one two three"), 0o644))
	p.scanAll()
	p.scanAll()

	// Then: one OnChange follows
	assert.Equal(t, []recorded{{"new", path}, {"change", path}}, events)
}

func TestPolling_SkipsSymlinkedDirectories(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "x.txt"), []byte("x"), 0o644))
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	p := newPollingBackend(newBase(Options{Logger: discardLogger(), Recursive: true}.WithDefaults()))
	var events []string
	p.listeners.add(ListenerFuncs{New: func(path string) { events = append(events, path) }})
	require.NoError(t, p.AddWatchDirectory(root, NewExtensionSet()))

	require.NoError(t, os.WriteFile(filepath.Join(outside, "y.txt"), []byte("y"), 0o644))
	p.scanAll()

	assert.Empty(t, events)
}
