package watcher

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	werrors "github.com/Aman-CERP/dirwatch/internal/errors"
)

// BackendKind selects the detection strategy.
type BackendKind string

const (
	// BackendAuto uses fsnotify and falls back to polling when it is unavailable.
	BackendAuto BackendKind = "auto"
	// BackendPolling compares modification times on a fixed interval.
	BackendPolling BackendKind = "polling"
	// BackendNative waits for OS change notifications.
	BackendNative BackendKind = "native"
)

// ParseBackendKind converts a string to a BackendKind.
func ParseBackendKind(s string) (BackendKind, error) {
	switch k := BackendKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return BackendAuto, nil
	case BackendAuto, BackendPolling, BackendNative:
		return k, nil
	default:
		return "", werrors.ValidationError(werrors.ErrCodeInvalidBackend,
			fmt.Sprintf("unknown backend %q", s)).
			WithSuggestion("use auto, polling or native")
	}
}

// Options configures the watcher behavior.
type Options struct {
	// Backend selects the detection strategy.
	// Default: auto
	Backend BackendKind

	// SleepTime is the polling interval, and the upper bound of a single
	// native wait.
	// Default: 3s
	SleepTime time.Duration

	// DebounceWindow coalesces bursts of native events for the same path.
	// Default: 50ms
	DebounceWindow time.Duration

	// Recursive descends into visible subdirectories of watched directories.
	Recursive bool

	// MaxBackendErrors is the number of consecutive native errors after
	// which the native backend degrades to polling.
	// Default: 5
	MaxBackendErrors int

	// Logger receives diagnostics. Default: slog.Default()
	Logger *slog.Logger
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		Backend:          BackendAuto,
		SleepTime:        3 * time.Second,
		DebounceWindow:   50 * time.Millisecond,
		MaxBackendErrors: 5,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.Backend == "" {
		o.Backend = defaults.Backend
	}
	if o.SleepTime == 0 {
		o.SleepTime = defaults.SleepTime
	}
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.MaxBackendErrors == 0 {
		o.MaxBackendErrors = defaults.MaxBackendErrors
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Validate validates the options and returns an error if invalid.
func (o Options) Validate() error {
	if _, err := ParseBackendKind(string(o.Backend)); err != nil {
		return err
	}
	if o.SleepTime < 0 {
		return werrors.ValidationError(werrors.ErrCodeInvalidInterval,
			fmt.Sprintf("sleep time must be positive, got %s", o.SleepTime))
	}
	if o.DebounceWindow < 0 {
		return werrors.ValidationError(werrors.ErrCodeInvalidInterval,
			fmt.Sprintf("debounce window must not be negative, got %s", o.DebounceWindow))
	}
	if o.MaxBackendErrors < 0 {
		return werrors.ConfigError(
			fmt.Sprintf("max backend errors must not be negative, got %d", o.MaxBackendErrors), nil)
	}
	return nil
}
