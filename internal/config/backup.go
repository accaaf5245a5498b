package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// MaxBackups is the maximum number of config backups to keep
	MaxBackups = 3

	// BackupSuffix is the file extension for backup files
	BackupSuffix = ".bak"
)

// now is replaced in tests to produce distinct timestamps.
var now = time.Now

// BackupFile creates a timestamped copy of a config file next to it and
// prunes older copies beyond MaxBackups.
// If the file does not exist, returns empty string and nil error.
func BackupFile(configPath string) (string, error) {
	if !fileExists(configPath) {
		return "", nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to read config for backup: %w", err)
	}

	backupPath := fmt.Sprintf("%s%s.%s", configPath, BackupSuffix, now().Format("20060102-150405.000"))
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	// Best effort: the backup itself succeeded.
	_ = cleanupOldBackups(configPath)

	return backupPath, nil
}

// BackupUserConfig backs up the user config file.
func BackupUserConfig() (string, error) {
	return BackupFile(GetUserConfigPath())
}

// ListBackups returns all backup files of configPath, newest first.
func ListBackups(configPath string) ([]string, error) {
	configDir := filepath.Dir(configPath)
	prefix := filepath.Base(configPath) + BackupSuffix + "."

	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list config directory: %w", err)
	}

	var backups []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, filepath.Join(configDir, entry.Name()))
		}
	}

	// Timestamps sort lexically.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

// cleanupOldBackups removes backups beyond MaxBackups, keeping the newest.
func cleanupOldBackups(configPath string) error {
	backups, err := ListBackups(configPath)
	if err != nil {
		return err
	}
	if len(backups) <= MaxBackups {
		return nil
	}

	for _, backup := range backups[MaxBackups:] {
		_ = os.Remove(backup)
	}
	return nil
}

// RestoreBackup copies backupPath over configPath. The current file, if
// any, is backed up first.
func RestoreBackup(configPath, backupPath string) error {
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup file not found: %w", err)
	}

	if fileExists(configPath) {
		if _, err := BackupFile(configPath); err != nil {
			return fmt.Errorf("failed to backup current config before restore: %w", err)
		}
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write restored config: %w", err)
	}

	return nil
}
