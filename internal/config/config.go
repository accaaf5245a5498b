package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	werrors "github.com/Aman-CERP/dirwatch/internal/errors"
	"github.com/Aman-CERP/dirwatch/internal/logging"
	"github.com/Aman-CERP/dirwatch/internal/watcher"
)

const (
	// ProjectConfigName is the project-level configuration file.
	ProjectConfigName = ".dirwatch.yaml"

	// ProjectConfigAltName is accepted when ProjectConfigName is absent.
	ProjectConfigAltName = ".dirwatch.yml"

	// CurrentVersion is the schema version written by WriteYAML.
	CurrentVersion = 1
)

// Config represents the complete dirwatch configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Watch   WatchConfig   `yaml:"watch" json:"watch"`
	Targets []Target      `yaml:"targets,omitempty" json:"targets,omitempty"`
	Files   []string      `yaml:"files,omitempty" json:"files,omitempty"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// WatchConfig configures the detection loop.
// Durations are Go duration strings ("3s", "250ms").
type WatchConfig struct {
	// Backend is auto, polling or native.
	Backend string `yaml:"backend" json:"backend"`

	// SleepTime is the polling interval and the bound of one native wait.
	SleepTime string `yaml:"sleep_time" json:"sleep_time"`

	// DebounceWindow coalesces bursts of native events.
	DebounceWindow string `yaml:"debounce_window" json:"debounce_window"`

	// Recursive descends into visible subdirectories.
	Recursive bool `yaml:"recursive" json:"recursive"`

	// MaxBackendErrors is the native error budget before falling back to polling.
	MaxBackendErrors int `yaml:"max_backend_errors" json:"max_backend_errors"`
}

// Target is a watched directory with its extension filter.
// An empty Extensions list watches every file.
type Target struct {
	Path       string   `yaml:"path" json:"path"`
	Extensions []string `yaml:"extensions,omitempty" json:"extensions,omitempty"`
}

// LoggingConfig configures diagnostic logging.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	defaults := watcher.DefaultOptions()
	return &Config{
		Version: CurrentVersion,
		Watch: WatchConfig{
			Backend:          string(defaults.Backend),
			SleepTime:        defaults.SleepTime.String(),
			DebounceWindow:   defaults.DebounceWindow.String(),
			Recursive:        defaults.Recursive,
			MaxBackendErrors: defaults.MaxBackendErrors,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/dirwatch/config.yaml if XDG_CONFIG_HOME is set
//   - ~/.config/dirwatch/config.yaml otherwise
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "dirwatch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "dirwatch", "config.yaml")
	}
	return filepath.Join(home, ".config", "dirwatch", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := &Config{}
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProjectConfigPath returns the project config file inside dir, preferring
// .dirwatch.yaml over .dirwatch.yml. The second result is false when
// neither exists.
func ProjectConfigPath(dir string) (string, bool) {
	for _, name := range []string{ProjectConfigName, ProjectConfigAltName} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path, true
		}
	}
	return filepath.Join(dir, ProjectConfigName), false
}

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/dirwatch/config.yaml)
//  3. Project config (.dirwatch.yaml in dir)
//  4. Environment variables (DIRWATCH_*)
//
// Relative target paths in the project config are resolved against dir.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	userCfg, err := LoadUserConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if path, ok := ProjectConfigPath(dir); ok {
		var project Config
		if err := project.loadYAML(path); err != nil {
			return nil, err
		}
		project.resolvePaths(dir)
		cfg.mergeWith(&project)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadYAML parses path into c. The caller merges the result over defaults.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return werrors.New(werrors.ErrCodeConfigNotFound,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return werrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}
	return nil
}

func (c *Config) resolvePaths(dir string) {
	for i, t := range c.Targets {
		if t.Path != "" && !filepath.IsAbs(t.Path) {
			c.Targets[i].Path = filepath.Join(dir, t.Path)
		}
	}
	for i, f := range c.Files {
		if f != "" && !filepath.IsAbs(f) {
			c.Files[i] = filepath.Join(dir, f)
		}
	}
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Watch.Backend != "" {
		c.Watch.Backend = other.Watch.Backend
	}
	if other.Watch.SleepTime != "" {
		c.Watch.SleepTime = other.Watch.SleepTime
	}
	if other.Watch.DebounceWindow != "" {
		c.Watch.DebounceWindow = other.Watch.DebounceWindow
	}
	// false is indistinguishable from unset; DIRWATCH_RECURSIVE=false turns it off.
	if other.Watch.Recursive {
		c.Watch.Recursive = true
	}
	if other.Watch.MaxBackendErrors != 0 {
		c.Watch.MaxBackendErrors = other.Watch.MaxBackendErrors
	}

	// Targets and files accumulate across layers.
	c.Targets = append(c.Targets, other.Targets...)
	c.Files = append(c.Files, other.Files...)

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies DIRWATCH_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("DIRWATCH_BACKEND"); v != "" {
		c.Watch.Backend = v
	}
	if v := os.Getenv("DIRWATCH_SLEEP_TIME"); v != "" {
		c.Watch.SleepTime = v
	}
	if v := os.Getenv("DIRWATCH_DEBOUNCE_WINDOW"); v != "" {
		c.Watch.DebounceWindow = v
	}
	if v := os.Getenv("DIRWATCH_RECURSIVE"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return werrors.ConfigError(fmt.Sprintf("DIRWATCH_RECURSIVE must be a boolean, got %q", v), err)
		}
		c.Watch.Recursive = b
	}
	if v := os.Getenv("DIRWATCH_MAX_BACKEND_ERRORS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return werrors.ConfigError(fmt.Sprintf("DIRWATCH_MAX_BACKEND_ERRORS must be an integer, got %q", v), err)
		}
		c.Watch.MaxBackendErrors = n
	}
	if v := os.Getenv("DIRWATCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DIRWATCH_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if _, err := c.WatcherOptions(nil); err != nil {
		return err
	}

	for i, t := range c.Targets {
		if strings.TrimSpace(t.Path) == "" {
			return werrors.ValidationError(werrors.ErrCodeInvalidPath,
				fmt.Sprintf("targets[%d].path must not be empty", i))
		}
		if err := watcher.ValidateExtensions(t.Extensions); err != nil {
			return fmt.Errorf("targets[%d]: %w", i, err)
		}
	}
	for i, f := range c.Files {
		if strings.TrimSpace(f) == "" {
			return werrors.ValidationError(werrors.ErrCodeInvalidPath,
				fmt.Sprintf("files[%d] must not be empty", i))
		}
	}

	if err := logging.ValidateLevel(c.Logging.Level); err != nil {
		return werrors.ConfigError("logging.level is invalid", err)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxFiles < 0 {
		return werrors.ConfigError(
			fmt.Sprintf("logging.max_size_mb and logging.max_files must not be negative, got %d and %d",
				c.Logging.MaxSizeMB, c.Logging.MaxFiles), nil)
	}

	return nil
}

// WatcherOptions converts the watch section into watcher.Options.
func (c *Config) WatcherOptions(logger *slog.Logger) (watcher.Options, error) {
	backend, err := watcher.ParseBackendKind(c.Watch.Backend)
	if err != nil {
		return watcher.Options{}, err
	}
	sleep, err := parseDuration("watch.sleep_time", c.Watch.SleepTime)
	if err != nil {
		return watcher.Options{}, err
	}
	debounce, err := parseDuration("watch.debounce_window", c.Watch.DebounceWindow)
	if err != nil {
		return watcher.Options{}, err
	}

	opts := watcher.Options{
		Backend:          backend,
		SleepTime:        sleep,
		DebounceWindow:   debounce,
		Recursive:        c.Watch.Recursive,
		MaxBackendErrors: c.Watch.MaxBackendErrors,
		Logger:           logger,
	}
	if err := opts.Validate(); err != nil {
		return watcher.Options{}, err
	}
	return opts, nil
}

// LogConfig converts the logging section into a logging.Config.
// Diagnostics go to the file only; stderr belongs to the event output.
func (c *Config) LogConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.FilePath = c.Logging.File
	cfg.MaxSizeMB = c.Logging.MaxSizeMB
	cfg.MaxFiles = c.Logging.MaxFiles
	if cfg.FilePath != "" {
		cfg.Format = logging.FormatJSON
		cfg.WriteToStderr = false
	}
	return cfg
}

func parseDuration(field, s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, werrors.New(werrors.ErrCodeInvalidInterval,
			fmt.Sprintf("%s must be a duration like 3s or 250ms, got %q", field, s), err)
	}
	return d, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
