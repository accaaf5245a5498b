package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nativeBackendOf(t *testing.T, w *DirectoryWatcher) *NativeBackend {
	t.Helper()
	nb, ok := w.backend.(*NativeBackend)
	require.True(t, ok, "expected native backend, got %T", w.backend)
	return nb
}

func TestNative_Name(t *testing.T) {
	w := newTestWatcher(t, BackendNative)
	assert.Equal(t, "native", w.BackendName())
}

func TestNative_BurstOfWritesCollapses(t *testing.T) {
	// Given: a native watcher with a generous debounce window
	dir := t.TempDir()
	w := newTestWatcher(t, BackendNative, func(o *Options) {
		o.DebounceWindow = 100 * time.Millisecond
		o.SleepTime = time.Hour
	})
	rec := newRecorder()
	w.AddListener(rec)
	require.NoError(t, w.AddWatchDirectory(dir, "log"))
	require.NoError(t, w.Start(context.Background()))

	// When: a file is created and appended to several times in quick succession
	path := filepath.Join(dir, "app.log")
	f, err := os.Create(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := f.WriteString("line\n")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	// Then: a single OnNew is reported
	assert.Equal(t, recorded{"new", path}, rec.next(t))
	rec.quiet(t)
}

func TestNative_FallsBackToPollingAfterRepeatedErrors(t *testing.T) {
	// Given: a native watcher that tolerates two consecutive errors
	dir := t.TempDir()
	w := newTestWatcher(t, BackendNative, func(o *Options) { o.MaxBackendErrors = 2 })
	rec := newRecorder()
	w.AddListener(rec)
	require.NoError(t, w.AddWatchDirectory(dir, "txt"))
	require.NoError(t, w.Start(context.Background()))
	nb := nativeBackendOf(t, w)

	// When: the notification stream reports errors
	nb.fsw.Errors <- errors.New("queue overflow")
	nb.fsw.Errors <- errors.New("queue overflow")

	// Then: the backend degrades to polling and keeps detecting changes
	require.Eventually(t, func() bool { return w.BackendName() == "polling" },
		eventTimeout, 10*time.Millisecond)
	assert.True(t, w.IsActive())

	path := filepath.Join(dir, "after.txt")
	writeFile(t, path, "still watching")
	assert.Equal(t, recorded{"new", path}, rec.next(t))
}

func TestNative_SingleErrorDoesNotFallBack(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, BackendNative, func(o *Options) { o.MaxBackendErrors = 3 })
	rec := newRecorder()
	w.AddListener(rec)
	require.NoError(t, w.AddWatchDirectory(dir, "txt"))
	require.NoError(t, w.Start(context.Background()))
	nb := nativeBackendOf(t, w)

	nb.fsw.Errors <- errors.New("transient")

	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, "a")
	assert.Equal(t, recorded{"new", path}, rec.next(t))
	assert.Equal(t, "native", w.BackendName())
}

func TestNative_DeferredDirectoryIsWatchedOnceCreated(t *testing.T) {
	// Given: a watched directory that does not exist yet
	parent := t.TempDir()
	dir := filepath.Join(parent, "later")
	w := newTestWatcher(t, BackendNative)
	rec := newRecorder()
	w.AddListener(rec)
	require.NoError(t, w.AddWatchDirectory(dir, "txt"))

	nb := nativeBackendOf(t, w)
	nb.mu.Lock()
	_, deferred := nb.unwatched[dir]
	nb.mu.Unlock()
	require.True(t, deferred)

	require.NoError(t, w.Start(context.Background()))

	// When: the directory and a file inside it appear
	require.NoError(t, os.Mkdir(dir, 0o755))
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, "a")

	// Then: the file is reported once the watch is retried
	assert.Equal(t, recorded{"new", path}, rec.next(t))
}

func TestNative_CloseBeforeRun(t *testing.T) {
	w := newTestWatcher(t, BackendNative)
	nb := nativeBackendOf(t, w)

	require.NoError(t, nb.Close())

	_, ok := <-nb.debouncer.Output()
	assert.False(t, ok)
}

func TestNative_UnwatchableDirectoryIsPolled(t *testing.T) {
	// Given: a native watcher whose watch limit is exhausted, with a breaker
	// that will not trip during the test
	dir := t.TempDir()
	w := newTestWatcher(t, BackendNative, func(o *Options) { o.MaxBackendErrors = 1000 })
	nb := nativeBackendOf(t, w)
	nb.add = func(string) error { return syscall.ENOSPC }

	rec := newRecorder()
	w.AddListener(rec)
	require.NoError(t, w.AddWatchDirectory(dir, "txt"))
	require.NoError(t, w.Start(context.Background()))

	// When: a file appears in the directory fsnotify refused
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, "a")

	// Then: it is still reported by the scan on each wait timeout
	assert.Equal(t, recorded{"new", path}, rec.next(t))
	assert.Equal(t, "native", w.BackendName())
}

func TestNative_FallsBackWhenWatchesKeepFailing(t *testing.T) {
	// Given: a native watcher that gives up after two failed watches
	dir := t.TempDir()
	w := newTestWatcher(t, BackendNative, func(o *Options) { o.MaxBackendErrors = 2 })
	nb := nativeBackendOf(t, w)
	nb.add = func(string) error { return syscall.ENOSPC }

	rec := newRecorder()
	w.AddListener(rec)
	require.NoError(t, w.AddWatchDirectory(dir, "txt"))
	require.NoError(t, w.Start(context.Background()))

	// Then: the retries trip the breaker and the backend degrades to polling
	require.Eventually(t, func() bool { return w.BackendName() == "polling" },
		eventTimeout, 10*time.Millisecond)

	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, "a")
	assert.Equal(t, recorded{"new", path}, rec.next(t))
}

func TestNative_StartAfterDeactivationReleasesBackend(t *testing.T) {
	w := newTestWatcher(t, BackendNative)
	nb := nativeBackendOf(t, w)
	w.SetActive(false)

	require.Error(t, w.Start(context.Background()))

	_, ok := <-nb.debouncer.Output()
	assert.False(t, ok)
	assertClosed(t, w.Done())
}
