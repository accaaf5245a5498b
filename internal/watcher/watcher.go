package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	werrors "github.com/Aman-CERP/dirwatch/internal/errors"
)

// DirectoryWatcher is the entry point for hosts. It owns one Backend and
// runs its detection loop on a dedicated goroutine.
//
// A DirectoryWatcher is started once and stopped once; create a new one to
// watch again.
type DirectoryWatcher struct {
	base    *base
	backend Backend
	logger  *slog.Logger
	started atomic.Bool
	done    chan struct{}
}

// New creates a watcher with the backend selected by opts.Backend. With
// BackendAuto, a failure to initialise fsnotify silently selects polling.
func New(opts Options) (*DirectoryWatcher, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Backend, _ = ParseBackendKind(string(opts.Backend))

	b := newBase(opts)
	backend, err := newBackend(b)
	if err != nil {
		return nil, err
	}

	return &DirectoryWatcher{
		base:    b,
		backend: backend,
		logger:  opts.Logger,
		done:    make(chan struct{}),
	}, nil
}

func newBackend(b *base) (Backend, error) {
	ctx := context.Background()

	switch b.opts.Backend {
	case BackendPolling:
		return newPollingBackend(b), nil
	case BackendNative:
		return newNativeBackend(ctx, b)
	default:
		nb, err := newNativeBackend(ctx, b)
		if err != nil {
			b.logger.LogAttrs(ctx, slog.LevelWarn, "native watching unavailable, using polling",
				werrors.LogAttrs(err)...)
			return newPollingBackend(b), nil
		}
		return nb, nil
	}
}

// BackendName reports the detection strategy in use.
func (w *DirectoryWatcher) BackendName() string {
	return w.backend.Name()
}

// SetActive(false) requests the loop to stop. The flag never goes back to
// true; SetActive(true) on a stopped watcher is ignored.
func (w *DirectoryWatcher) SetActive(active bool) {
	if active {
		if !w.base.state.isActive() {
			w.logger.Warn("ignoring reactivation of a stopped watcher")
		}
		return
	}
	if w.base.state.stop() {
		w.logger.Debug("watcher deactivated")
	}
}

// IsActive reports whether the watcher has not been stopped.
func (w *DirectoryWatcher) IsActive() bool {
	return w.base.state.isActive()
}

// SetSleepTime changes the polling interval. It takes effect from the next
// wait. Non-positive durations are rejected.
func (w *DirectoryWatcher) SetSleepTime(d time.Duration) error {
	if d <= 0 {
		return werrors.ValidationError(werrors.ErrCodeInvalidInterval,
			fmt.Sprintf("sleep time must be positive, got %s", d))
	}
	w.base.state.setSleep(d)
	return nil
}

// SleepTime returns the current polling interval.
func (w *DirectoryWatcher) SleepTime() time.Duration {
	return w.base.state.sleep()
}

// AddListener appends l to the listeners. Listeners are called in the order
// they were added; the same listener may be added more than once.
func (w *DirectoryWatcher) AddListener(l FileChangeListener) {
	w.base.listeners.add(l)
}

// ListenerFailures returns how many listener callbacks have panicked.
func (w *DirectoryWatcher) ListenerFailures() uint64 {
	return w.base.listeners.failures.Load()
}

// AddWatchFile watches a single file for modifications.
func (w *DirectoryWatcher) AddWatchFile(path string) error {
	if path == "" {
		return werrors.ValidationError(werrors.ErrCodeInvalidPath, "path must not be empty")
	}
	return w.backend.AddWatchFile(path)
}

// AddWatchDirectory watches dir for new and modified files with one of the
// given extensions. Extensions are given without a leading dot; "*" or no
// extensions at all accepts every file.
func (w *DirectoryWatcher) AddWatchDirectory(dir string, extensions ...string) error {
	if dir == "" {
		return werrors.ValidationError(werrors.ErrCodeInvalidPath, "directory must not be empty")
	}
	if err := ValidateExtensions(extensions); err != nil {
		return err
	}
	return w.backend.AddWatchDirectory(dir, NewExtensionSet(extensions...))
}

// ValidateExtensions rejects extensions that are empty, start with a dot or
// contain a path separator.
func ValidateExtensions(extensions []string) error {
	for _, ext := range extensions {
		switch {
		case ext == "":
			return werrors.ValidationError(werrors.ErrCodeInvalidExtension, "extension must not be empty")
		case strings.HasPrefix(ext, "."):
			return werrors.ValidationError(werrors.ErrCodeInvalidExtension,
				fmt.Sprintf("extension %q must not start with %q", ext, ".")).
				WithDetail("extension", ext).
				WithSuggestion(fmt.Sprintf("use %q", strings.TrimLeft(ext, ".")))
		case strings.ContainsAny(ext, `/\`):
			return werrors.ValidationError(werrors.ErrCodeInvalidExtension,
				fmt.Sprintf("extension %q must not contain a path separator", ext)).
				WithDetail("extension", ext)
		}
	}
	return nil
}

// Start launches the detection loop on its own goroutine and returns
// immediately. Cancelling ctx has the same effect as SetActive(false).
func (w *DirectoryWatcher) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return werrors.New(werrors.ErrCodeWatcherState, "watcher already started", nil)
	}
	if !w.base.state.isActive() {
		w.closeBackend()
		close(w.done)
		return werrors.New(werrors.ErrCodeWatcherState, "watcher was stopped before start", nil).
			WithSuggestion("create a new watcher")
	}

	w.logger.Info("watcher started",
		slog.String("backend", w.backend.Name()),
		slog.Duration("sleep_time", w.SleepTime()))

	go func() {
		select {
		case <-ctx.Done():
			w.SetActive(false)
		case <-w.done:
		}
	}()

	go w.run(ctx)
	return nil
}

func (w *DirectoryWatcher) run(ctx context.Context) {
	defer close(w.done)
	defer func() {
		if v := recover(); v != nil {
			w.base.state.stop()
			w.logger.Error("watch loop crashed", slog.Any("panic", v))
		}
	}()

	err := w.backend.Run(ctx)
	w.base.state.stop()

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		w.logger.LogAttrs(ctx, slog.LevelError, "watch loop failed", werrors.LogAttrs(err)...)
		return
	}
	w.logger.Info("watcher stopped", slog.String("backend", w.backend.Name()))
}

// Stop deactivates the watcher and waits for the loop to exit. Listeners
// must use SetActive(false) instead, since they run on the loop goroutine.
// Stopping a watcher that was never started releases its resources.
func (w *DirectoryWatcher) Stop() {
	w.SetActive(false)
	if w.started.CompareAndSwap(false, true) {
		w.closeBackend()
		close(w.done)
		return
	}
	<-w.done
}

// closeBackend releases a backend whose loop never ran.
func (w *DirectoryWatcher) closeBackend() {
	if c, ok := w.backend.(io.Closer); ok {
		_ = c.Close()
	}
}

// Done is closed when the detection loop has exited.
func (w *DirectoryWatcher) Done() <-chan struct{} {
	return w.done
}
