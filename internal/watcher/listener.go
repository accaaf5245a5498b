package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	werrors "github.com/Aman-CERP/dirwatch/internal/errors"
)

// FileChangeListener receives change notifications. Paths are absolute.
// Callbacks run on the watcher goroutine and should return promptly.
type FileChangeListener interface {
	// OnNew is called when a matching file appears in a watched directory.
	OnNew(path string)
	// OnChange is called when a known file's content marker changed.
	OnChange(path string)
}

// ListenerFuncs adapts plain functions to FileChangeListener.
// Nil fields are skipped.
type ListenerFuncs struct {
	New    func(path string)
	Change func(path string)
}

// OnNew implements FileChangeListener.
func (f ListenerFuncs) OnNew(path string) {
	if f.New != nil {
		f.New(path)
	}
}

// OnChange implements FileChangeListener.
func (f ListenerFuncs) OnChange(path string) {
	if f.Change != nil {
		f.Change(path)
	}
}

// eventKind distinguishes the two notifications.
type eventKind int

const (
	eventNew eventKind = iota
	eventChange
)

func (k eventKind) String() string {
	if k == eventNew {
		return "new"
	}
	return "change"
}

// listenerRegistry is an append-only, insertion-ordered listener list.
type listenerRegistry struct {
	mu        sync.RWMutex
	listeners []FileChangeListener
	failures  atomic.Uint64
	logger    *slog.Logger
}

func newListenerRegistry(logger *slog.Logger) *listenerRegistry {
	return &listenerRegistry{logger: logger}
}

func (r *listenerRegistry) add(l FileChangeListener) {
	if l == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

func (r *listenerRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// snapshot returns the current listeners. Appends after the call do not
// affect the returned slice.
func (r *listenerRegistry) snapshot() []FileChangeListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listeners[:len(r.listeners):len(r.listeners)]
}

func (r *listenerRegistry) fireOnNew(path string, active func() bool) {
	r.fire(eventNew, path, active)
}

func (r *listenerRegistry) fireOnChange(path string, active func() bool) {
	r.fire(eventChange, path, active)
}

// fire calls every listener in order. active is consulted before each call
// so nothing is delivered once the watcher has been stopped.
func (r *listenerRegistry) fire(kind eventKind, path string, active func() bool) {
	for i, l := range r.snapshot() {
		if active != nil && !active() {
			return
		}
		r.invoke(i, l, kind, path)
	}
}

func (r *listenerRegistry) invoke(idx int, l FileChangeListener, kind eventKind, path string) {
	defer func() {
		if v := recover(); v != nil {
			r.failures.Add(1)
			err := werrors.New(werrors.ErrCodeListenerFailed, fmt.Sprintf("listener panicked: %v", v), nil).
				WithDetail("path", path).
				WithDetail("event", kind.String())
			attrs := append(werrors.LogAttrs(err), slog.Int("listener", idx))
			r.logger.LogAttrs(context.Background(), slog.LevelWarn, "listener failed", attrs...)
		}
	}()

	switch kind {
	case eventNew:
		l.OnNew(path)
	case eventChange:
		l.OnChange(path)
	}
}
