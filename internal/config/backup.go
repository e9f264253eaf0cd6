package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// MaxBackups is the number of timestamped config backups retained.
const MaxBackups = 3

// BackupUserConfig creates a timestamped backup of the user configuration
// file before it is rewritten (e.g. by `docsage config migrate`).
// Returns the backup path, or empty string if no config exists to back up.
func BackupUserConfig() (string, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return "", nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to read config for backup: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	backupPath := fmt.Sprintf("%s.%s.bak", configPath, timestamp)

	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write config backup: %w", err)
	}

	if err := cleanupOldBackups(configPath); err != nil {
		// Backup succeeded; stale-backup cleanup failing is not fatal
		return backupPath, nil
	}

	return backupPath, nil
}

// ListUserConfigBackups returns backup file paths, newest first.
func ListUserConfigBackups() ([]string, error) {
	configPath := GetUserConfigPath()

	matches, err := filepath.Glob(configPath + ".*.bak")
	if err != nil {
		return nil, fmt.Errorf("failed to list config backups: %w", err)
	}

	// Timestamps sort lexicographically; reverse for newest first
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return matches, nil
}

// cleanupOldBackups removes backups beyond MaxBackups, oldest first.
func cleanupOldBackups(configPath string) error {
	matches, err := filepath.Glob(configPath + ".*.bak")
	if err != nil {
		return err
	}

	if len(matches) <= MaxBackups {
		return nil
	}

	sort.Strings(matches)
	for _, old := range matches[:len(matches)-MaxBackups] {
		if err := os.Remove(old); err != nil {
			return err
		}
	}

	return nil
}
