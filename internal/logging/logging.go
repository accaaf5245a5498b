package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler.
type Format string

const (
	// FormatText is key=value output for terminals.
	FormatText Format = "text"
	// FormatJSON is one JSON object per line, readable by the Viewer.
	FormatJSON Format = "json"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format of stderr output. File output is always JSON.
	Format Format
	// FilePath is the path to the log file. Empty means no file logging.
	FilePath string
	// MaxSizeMB is the maximum size in MB before rotation (default: 10).
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep (default: 5).
	MaxFiles int
	// WriteToStderr whether to also write to stderr (default: true).
	WriteToStderr bool
}

// DefaultConfig returns stderr-only logging at info level.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		Format:        FormatText,
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DebugConfig returns configuration for --debug: debug level, with a
// rotated JSON file next to stderr.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.FilePath = DefaultLogPath()
	return cfg
}

// Setup builds a logger from cfg and returns a cleanup function that
// flushes and closes the log file, if any.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	return setup(cfg, os.Stderr)
}

func setup(cfg Config, stderr io.Writer) (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	cleanup := func() {}

	var handlers []slog.Handler
	if cfg.WriteToStderr {
		handlers = append(handlers, newHandler(stderr, cfg.Format, opts))
	}

	if cfg.FilePath != "" {
		writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(writer, opts))
		cleanup = func() {
			_ = writer.Sync()
			_ = writer.Close()
		}
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.NewTextHandler(io.Discard, opts)), cleanup, nil
	case 1:
		return slog.New(handlers[0]), cleanup, nil
	default:
		return slog.New(fanout(handlers)), cleanup, nil
	}
}

func newHandler(w io.Writer, format Format, opts *slog.HandlerOptions) slog.Handler {
	if format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SetupDefault sets up logging and installs it as the default logger.
// Returns cleanup function.
func SetupDefault(cfg Config) (func(), error) {
	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}

// ParseLevel converts string level to slog.Level. Unknown levels map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidateLevel reports an error for level names ParseLevel does not know.
func ValidateLevel(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("unknown log level %q (use debug, info, warn or error)", level)
}
