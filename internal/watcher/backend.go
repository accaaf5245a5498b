package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	werrors "github.com/Aman-CERP/dirwatch/internal/errors"
)

// Backend is a detection strategy. Registration methods may be called from
// any goroutine, including while Run is executing.
type Backend interface {
	// Name identifies the strategy currently in use.
	Name() string

	// AddWatchFile registers a single file. Only OnChange is ever reported
	// for it.
	AddWatchFile(path string) error

	// AddWatchDirectory registers a directory whose matching children are
	// reported with OnNew and OnChange.
	AddWatchDirectory(path string, exts ExtensionSet) error

	// Run executes the detection loop until the watcher is deactivated or
	// ctx is cancelled.
	Run(ctx context.Context) error
}

// loopState is the only state shared between callers and the loop goroutine.
type loopState struct {
	active    atomic.Bool
	sleepTime atomic.Int64
	stopOnce  sync.Once
	stopCh    chan struct{}
}

func newLoopState(sleep time.Duration) *loopState {
	s := &loopState{stopCh: make(chan struct{})}
	s.active.Store(true)
	s.sleepTime.Store(int64(sleep))
	return s
}

func (s *loopState) isActive() bool {
	return s.active.Load()
}

// stop flips active to false and wakes any waiter. Only the first call has
// an effect; it reports whether this call performed the transition.
func (s *loopState) stop() bool {
	stopped := false
	s.stopOnce.Do(func() {
		s.active.Store(false)
		close(s.stopCh)
		stopped = true
	})
	return stopped
}

func (s *loopState) stopped() <-chan struct{} {
	return s.stopCh
}

func (s *loopState) sleep() time.Duration {
	return time.Duration(s.sleepTime.Load())
}

func (s *loopState) setSleep(d time.Duration) {
	s.sleepTime.Store(int64(d))
}

// wait sleeps for d. It returns false if the watcher was stopped or ctx
// ended first.
func (s *loopState) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-s.stopCh:
		return false
	case <-timer.C:
		return s.isActive()
	}
}

// dirTarget is a watched directory and its accepted extensions.
type dirTarget struct {
	path string
	exts ExtensionSet
}

// targetSet holds registered targets. It only grows; readers take a
// snapshot so registration never races with a scan in progress.
type targetSet struct {
	mu      sync.RWMutex
	files   []string
	fileSet map[string]struct{}
	dirs    []dirTarget
}

func newTargetSet() *targetSet {
	return &targetSet{fileSet: make(map[string]struct{})}
}

// addFile returns false if path was already registered.
func (t *targetSet) addFile(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.fileSet[path]; ok {
		return false
	}
	t.fileSet[path] = struct{}{}
	t.files = append(t.files, path)
	return true
}

func (t *targetSet) addDir(d dirTarget) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirs = append(t.dirs, d)
}

func (t *targetSet) snapshot() ([]string, []dirTarget) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.files[:len(t.files):len(t.files)], t.dirs[:len(t.dirs):len(t.dirs)]
}

func (t *targetSet) isFile(path string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.fileSet[path]
	return ok
}

// fileSnapshot is the change marker of a file.
type fileSnapshot struct {
	modTime time.Time
	size    int64
}

func snapshotOf(info fs.FileInfo) fileSnapshot {
	return fileSnapshot{modTime: info.ModTime(), size: info.Size()}
}

func (s fileSnapshot) equal(o fileSnapshot) bool {
	return s.modTime.Equal(o.modTime) && s.size == o.size
}

// tracker remembers the last seen snapshot per absolute path. Entries are
// never removed, so a deleted and re-created file reports a change.
type tracker struct {
	mu   sync.Mutex
	seen map[string]fileSnapshot
}

func newTracker() *tracker {
	return &tracker{seen: make(map[string]fileSnapshot)}
}

// baseline records snap without reporting anything. Existing entries win.
func (t *tracker) baseline(path string, snap fileSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seen[path]; !ok {
		t.seen[path] = snap
	}
}

// observe records snap and classifies it against the previous sighting.
func (t *tracker) observe(path string, snap fileSnapshot) (eventKind, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.seen[path]
	t.seen[path] = snap
	switch {
	case !ok:
		return eventNew, true
	case !prev.equal(snap):
		return eventChange, true
	default:
		return eventChange, false
	}
}

// base carries the state and scan logic shared by both backends.
type base struct {
	opts      Options
	logger    *slog.Logger
	state     *loopState
	listeners *listenerRegistry
	targets   *targetSet
	tracker   *tracker
}

func newBase(opts Options) *base {
	return &base{
		opts:      opts,
		logger:    opts.Logger,
		state:     newLoopState(opts.SleepTime),
		listeners: newListenerRegistry(opts.Logger),
		targets:   newTargetSet(),
		tracker:   newTracker(),
	}
}

func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", werrors.New(werrors.ErrCodeInvalidPath,
			fmt.Sprintf("resolve absolute path %q", path), err)
	}
	return abs, nil
}

// registerFile records a file target and its current snapshot. A missing
// file gets a zero baseline so its later appearance reports a change.
// The baseline is recorded before the target becomes visible to the loop.
func (b *base) registerFile(path string) (string, error) {
	abs, err := absPath(path)
	if err != nil {
		return "", err
	}
	if b.targets.isFile(abs) {
		return abs, nil
	}

	snap := fileSnapshot{}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		snap = snapshotOf(info)
	} else {
		b.logger.Debug("watched file not present yet", slog.String("path", abs))
	}
	b.tracker.baseline(abs, snap)
	b.targets.addFile(abs)
	return abs, nil
}

// registerDirectory baselines the current matching children of a directory,
// then publishes it as a target, so a scan running concurrently never
// reports them as new.
func (b *base) registerDirectory(path string, exts ExtensionSet) (string, error) {
	abs, err := absPath(path)
	if err != nil {
		return "", err
	}
	b.walkDir(abs, exts, func(file string, info fs.FileInfo) {
		b.tracker.baseline(file, snapshotOf(info))
	})
	b.targets.addDir(dirTarget{path: abs, exts: exts})
	return abs, nil
}

// walkDir calls fn for every file under dir accepted by exts. It descends
// into valid subdirectories only when Recursive is set. Unreadable entries
// are skipped; they are retried on the next scan.
func (b *base) walkDir(dir string, exts ExtensionSet, fn func(string, fs.FileInfo)) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		b.logger.Debug("skipping unreadable directory",
			slog.String("path", dir),
			slog.String("error", err.Error()))
		return
	}

	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		info, err := os.Stat(full)
		if err != nil {
			// Vanished between listing and stat.
			continue
		}

		if info.IsDir() {
			if b.opts.Recursive && entry.Type()&fs.ModeSymlink == 0 && IsValidDirectoryToMonitor(full, info) {
				b.walkDir(full, exts, fn)
			}
			continue
		}

		if b.targets.isFile(full) {
			continue
		}
		if IsValidFileToMonitor(full, info, exts) {
			fn(full, info)
		}
	}
}

// scanAll runs one detection pass over every registered target.
func (b *base) scanAll() {
	files, dirs := b.targets.snapshot()

	for _, f := range files {
		if !b.state.isActive() {
			return
		}
		b.scanFile(f)
	}

	for _, d := range dirs {
		if !b.state.isActive() {
			return
		}
		b.walkDir(d.path, d.exts, func(file string, info fs.FileInfo) {
			if kind, ok := b.tracker.observe(file, snapshotOf(info)); ok {
				b.emit(kind, file)
			}
		})
	}
}

func (b *base) scanFile(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	if _, ok := b.tracker.observe(path, snapshotOf(info)); ok {
		b.emit(eventChange, path)
	}
}

// checkPath classifies a single path reported by the OS. It is the native
// counterpart of scanAll and applies the same filters.
func (b *base) checkPath(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	if b.targets.isFile(path) {
		if _, ok := b.tracker.observe(path, snapshotOf(info)); ok {
			b.emit(eventChange, path)
		}
		return
	}

	_, dirs := b.targets.snapshot()
	for _, d := range dirs {
		if !b.covers(d.path, filepath.Dir(path)) {
			continue
		}
		if !IsValidFileToMonitor(path, info, d.exts) {
			continue
		}
		if kind, ok := b.tracker.observe(path, snapshotOf(info)); ok {
			b.emit(kind, path)
		}
		return
	}
}

// covers reports whether files in dir belong to the watched root.
func (b *base) covers(root, dir string) bool {
	if dir == root {
		return true
	}
	if !b.opts.Recursive {
		return false
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}

	cur := root
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, seg)
		info, err := os.Stat(cur)
		if err != nil || !IsValidDirectoryToMonitor(cur, info) {
			return false
		}
	}
	return true
}

func (b *base) emit(kind eventKind, path string) {
	if !b.state.isActive() {
		return
	}
	b.logger.Debug("file event", slog.String("event", kind.String()), slog.String("path", path))

	switch kind {
	case eventNew:
		b.listeners.fireOnNew(path, b.state.isActive)
	case eventChange:
		b.listeners.fireOnChange(path, b.state.isActive)
	}
}
