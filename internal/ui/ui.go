// Package ui renders file events from the watch command: a bubbletea
// dashboard on interactive terminals, colored or plain lines otherwise, and
// JSON lines for scripts.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/dirwatch/internal/watcher"
)

// EventKind is the notification type shown to the user.
type EventKind string

const (
	// EventNew is a file that appeared in a watched directory.
	EventNew EventKind = "new"
	// EventChange is a file whose content changed.
	EventChange EventKind = "change"
)

// Label returns the fixed-width tag used in line output.
func (k EventKind) Label() string {
	if k == EventNew {
		return "NEW   "
	}
	return "CHANGE"
}

// Event is one listener notification.
type Event struct {
	Time time.Time `json:"time"`
	Kind EventKind `json:"event"`
	Path string    `json:"path"`
}

// Summary describes the session shown in headers and the final line.
type Summary struct {
	Backend string
	Targets []string
	Sleep   time.Duration
}

// Renderer displays events.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// Event displays one notification. Safe for concurrent use.
	Event(e Event)

	// Stop stops the renderer and prints the session totals.
	Stop() error
}

// Config configures the renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	JSON       bool
	Summary    Summary
	// OnQuit is called when the user quits an interactive renderer.
	OnQuit func()
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces line output even on a terminal.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithJSON selects JSON lines output.
func WithJSON(json bool) ConfigOption {
	return func(c *Config) {
		c.JSON = json
	}
}

// WithSummary sets the session description.
func WithSummary(s Summary) ConfigOption {
	return func(c *Config) {
		c.Summary = s
	}
}

// WithOnQuit sets the callback for a user quit.
func WithOnQuit(fn func()) ConfigOption {
	return func(c *Config) {
		c.OnQuit = fn
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	if DetectNoColor() {
		cfg.NoColor = true
	}
	return cfg
}

// NewRenderer picks a renderer for cfg and the environment: JSON when
// requested, the dashboard on an interactive terminal, lines otherwise.
func NewRenderer(cfg Config) Renderer {
	if cfg.JSON {
		return NewJSONRenderer(cfg)
	}
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		if !IsTTY(cfg.Output) {
			cfg.NoColor = true
		}
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// Listener adapts a Renderer to watcher callbacks.
func Listener(r Renderer) watcher.FileChangeListener {
	return watcher.ListenerFuncs{
		New: func(path string) {
			r.Event(Event{Time: time.Now(), Kind: EventNew, Path: path})
		},
		Change: func(path string) {
			r.Event(Event{Time: time.Now(), Kind: EventChange, Path: path})
		},
	}
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
