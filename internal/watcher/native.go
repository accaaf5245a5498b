package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	werrors "github.com/Aman-CERP/dirwatch/internal/errors"
)

// NativeBackend waits for fsnotify events instead of sleeping. Every event
// is confirmed by a stat against the shared snapshot tracker, so attribute
// changes and duplicate writes do not produce notifications.
//
// If fsnotify reports MaxBackendErrors consecutive errors, fails to add that
// many watches in a row, or its event stream closes unexpectedly, the
// backend logs a warning and continues as a polling loop over the same
// targets. While an existing directory cannot be watched, every wait
// timeout runs a full scan so its files are still polled.
type NativeBackend struct {
	*base
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	breaker   *werrors.CircuitBreaker

	// add is fsw.Add, replaced in tests to simulate watch limits.
	add func(string) error

	mu        sync.Mutex
	watched   map[string]struct{}
	unwatched map[string]struct{}
	addErr    error

	fellBack atomic.Bool
}

var _ Backend = (*NativeBackend)(nil)

func newNativeBackend(ctx context.Context, b *base) (*NativeBackend, error) {
	fsw, err := werrors.RetryWithResult(ctx, werrors.DefaultRetryConfig(), fsnotify.NewWatcher)
	if err != nil {
		return nil, werrors.BackendError("create fsnotify watcher", err).
			WithSuggestion("use the polling backend or raise the inotify instance limit")
	}

	return &NativeBackend{
		base:      b,
		fsw:       fsw,
		debouncer: NewDebouncer(b.opts.DebounceWindow),
		breaker: werrors.NewCircuitBreaker("fsnotify",
			werrors.WithMaxFailures(b.opts.MaxBackendErrors)),
		add:       fsw.Add,
		watched:   make(map[string]struct{}),
		unwatched: make(map[string]struct{}),
	}, nil
}

// Name implements Backend. It reports "polling" once the backend has degraded.
func (n *NativeBackend) Name() string {
	if n.fellBack.Load() {
		return string(BackendPolling)
	}
	return string(BackendNative)
}

// AddWatchFile implements Backend. The parent directory is watched, since
// editors commonly replace files rather than write them in place.
func (n *NativeBackend) AddWatchFile(path string) error {
	abs, err := absPath(path)
	if err != nil {
		return err
	}
	n.watchDir(filepath.Dir(abs))
	_, err = n.registerFile(abs)
	return err
}

// AddWatchDirectory implements Backend. The watch is placed before the
// baseline is taken so no write in between goes unnoticed.
func (n *NativeBackend) AddWatchDirectory(path string, exts ExtensionSet) error {
	abs, err := absPath(path)
	if err != nil {
		return err
	}
	n.watchTree(abs)
	_, err = n.registerDirectory(abs, exts)
	return err
}

// watchTree watches dir and, when recursive, its valid subdirectories.
func (n *NativeBackend) watchTree(dir string) {
	n.watchDir(dir)
	if !n.opts.Recursive {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil || !IsValidDirectoryToMonitor(full, info) {
			continue
		}
		n.watchTree(full)
	}
}

// watchDir adds dir to fsnotify. Failures are remembered and retried on
// every wait timeout, which covers directories that do not exist yet.
// Failing to watch a directory that exists counts against the breaker.
func (n *NativeBackend) watchDir(dir string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.watched[dir]; ok {
		return
	}
	if _, err := os.Stat(dir); err != nil {
		n.unwatched[dir] = struct{}{}
		n.logger.Debug("deferring native watch",
			slog.String("path", dir),
			slog.String("error", err.Error()))
		return
	}
	if err := n.breaker.Execute(func() error { return n.add(dir) }); err != nil {
		n.unwatched[dir] = struct{}{}
		if !errors.Is(err, werrors.ErrCircuitOpen) {
			n.addErr = err
		}
		n.logger.Warn("native watch failed, polling directory",
			slog.String("path", dir),
			slog.String("error", err.Error()),
			slog.Int("consecutive", n.breaker.Failures()))
		return
	}
	delete(n.unwatched, dir)
	n.watched[dir] = struct{}{}
}

// retryUnwatched re-adds deferred directories. It reports whether any of
// them became watchable and whether an existing directory is still not
// watched.
func (n *NativeBackend) retryUnwatched() (added, failing bool) {
	n.mu.Lock()
	pending := make([]string, 0, len(n.unwatched))
	for dir := range n.unwatched {
		pending = append(pending, dir)
	}
	n.mu.Unlock()

	for _, dir := range pending {
		n.watchDir(dir)
		n.mu.Lock()
		_, ok := n.watched[dir]
		n.mu.Unlock()
		if ok {
			added = true
			continue
		}
		if _, err := os.Stat(dir); err == nil {
			failing = true
		}
	}
	return added, failing
}

// watchesExhausted reports whether adding watches has failed often enough
// that native notifications should be abandoned.
func (n *NativeBackend) watchesExhausted() (bool, error) {
	if n.breaker.Allow() {
		return false, nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.addErr == nil {
		return false, nil
	}
	return true, n.addErr
}

// Run blocks on fsnotify until the watcher is stopped. Each wait is bounded
// by the sleep time so deferred watches get retried.
func (n *NativeBackend) Run(ctx context.Context) error {
	defer n.debouncer.Stop()

	if exhausted, err := n.watchesExhausted(); exhausted {
		return n.fallback(ctx, err)
	}

	timer := time.NewTimer(n.state.sleep())
	defer timer.Stop()

	for n.state.isActive() {
		select {
		case <-ctx.Done():
			_ = n.fsw.Close()
			return ctx.Err()

		case <-n.state.stopped():
			_ = n.fsw.Close()
			return nil

		case event, ok := <-n.fsw.Events:
			if !ok {
				return n.fallback(ctx, fmt.Errorf("event stream closed"))
			}
			n.breaker.RecordSuccess()
			n.handleEvent(event)

		case err, ok := <-n.fsw.Errors:
			if !ok {
				return n.fallback(ctx, fmt.Errorf("error stream closed"))
			}
			if n.breaker.RecordFailure() {
				return n.fallback(ctx, err)
			}
			n.logger.Warn("native watcher error",
				slog.String("error", err.Error()),
				slog.Int("consecutive", n.breaker.Failures()))

		case paths, ok := <-n.debouncer.Output():
			if !ok {
				continue
			}
			for _, p := range paths {
				n.checkPath(p)
			}

		case <-timer.C:
			added, failing := n.retryUnwatched()
			if exhausted, err := n.watchesExhausted(); exhausted {
				return n.fallback(ctx, err)
			}
			if added || failing {
				n.scanAll()
			}
		}

		timer.Reset(n.state.sleep())
	}

	_ = n.fsw.Close()
	return nil
}

// handleEvent filters raw fsnotify events before debouncing.
func (n *NativeBackend) handleEvent(event fsnotify.Event) {
	switch {
	case event.Op&fsnotify.Create != 0:
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			n.handleNewDir(event.Name, info)
			return
		}
	case event.Op&fsnotify.Write != 0:
	default:
		// Remove, Rename and Chmod carry no new content.
		return
	}
	n.debouncer.Add(event.Name)
}

// handleNewDir starts watching a directory created under a recursive root
// and reports files that were written before the watch was in place.
func (n *NativeBackend) handleNewDir(dir string, info fs.FileInfo) {
	if !n.opts.Recursive || !IsValidDirectoryToMonitor(dir, info) {
		return
	}
	_, dirs := n.targets.snapshot()
	for _, d := range dirs {
		if !n.covers(d.path, dir) {
			continue
		}
		n.watchTree(dir)
		n.walkDir(dir, d.exts, func(file string, _ fs.FileInfo) {
			n.debouncer.Add(file)
		})
		return
	}
}

// Close releases the fsnotify handle. Run closes it on exit, so Close is
// only needed for a backend that never ran.
func (n *NativeBackend) Close() error {
	n.debouncer.Stop()
	return n.fsw.Close()
}

// fallback closes fsnotify and continues with a polling loop.
func (n *NativeBackend) fallback(ctx context.Context, cause error) error {
	_ = n.fsw.Close()
	if !n.state.isActive() {
		return nil
	}

	n.fellBack.Store(true)
	err := werrors.BackendError("native notifications failed, falling back to polling", cause)
	n.logger.LogAttrs(ctx, slog.LevelWarn, "watch backend degraded", werrors.LogAttrs(err)...)

	return pollLoop(ctx, n.base)
}
