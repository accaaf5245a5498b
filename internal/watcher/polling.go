package watcher

import (
	"context"
	"log/slog"
)

// PollingBackend detects changes by periodically comparing modification
// times and sizes. It works on any filesystem, including network mounts
// where OS notifications are unreliable.
type PollingBackend struct {
	*base
}

var _ Backend = (*PollingBackend)(nil)

func newPollingBackend(b *base) *PollingBackend {
	return &PollingBackend{base: b}
}

// Name implements Backend.
func (p *PollingBackend) Name() string {
	return string(BackendPolling)
}

// AddWatchFile implements Backend.
func (p *PollingBackend) AddWatchFile(path string) error {
	_, err := p.registerFile(path)
	return err
}

// AddWatchDirectory implements Backend.
func (p *PollingBackend) AddWatchDirectory(path string, exts ExtensionSet) error {
	_, err := p.registerDirectory(path, exts)
	return err
}

// Run scans all targets, then sleeps for the current sleep time, until the
// watcher is stopped.
func (p *PollingBackend) Run(ctx context.Context) error {
	return pollLoop(ctx, p.base)
}

// pollLoop is shared with the native backend's degraded mode.
func pollLoop(ctx context.Context, b *base) error {
	b.logger.Debug("polling loop started", slog.Duration("interval", b.state.sleep()))

	for b.state.isActive() {
		b.scanAll()
		if !b.state.wait(ctx, b.state.sleep()) {
			break
		}
	}

	b.logger.Debug("polling loop stopped")
	return ctx.Err()
}
