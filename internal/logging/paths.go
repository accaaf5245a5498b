package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.dirwatch/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".dirwatch", "logs")
	}
	return filepath.Join(home, ".dirwatch", "logs")
}

// DefaultLogPath returns the log file written with --debug.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "dirwatch.log")
}

// FindLogFile resolves the log file to view: the explicit path if given,
// otherwise the default path.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	path := DefaultLogPath()
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("no log file found, run dirwatch with --debug first.\nExpected at: %s", path)
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	return os.MkdirAll(DefaultLogDir(), 0o755)
}
