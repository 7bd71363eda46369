package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/n0rdy/leadflow/common"
)

const (
	leadflowDir    = "leadflow"
	localQueueFile = "queues.db"
)

// GetOrCreateLocalQueueDBPath returns configuredPath if set, or the per-OS data dir location otherwise,
// creating the parent directory either way.
func GetOrCreateLocalQueueDBPath(configuredPath string) (string, error) {
	path := configuredPath
	if path == "" {
		dataDir, err := userDataDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dataDir, leadflowDir, localQueueFile)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return path, nil
}

func userDataDir() (string, error) {
	switch runtime.GOOS {
	case common.WindowsOS:
		if appData := os.Getenv("APPDATA"); appData != "" {
			return appData, nil
		}
	case common.MacOS:
		if homeDir, _ := os.UserHomeDir(); homeDir != "" {
			return filepath.Join(homeDir, "Library", "Application Support"), nil
		}
	case common.LinuxOS:
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			return xdgData, nil
		}
		if homeDir, _ := os.UserHomeDir(); homeDir != "" {
			return filepath.Join(homeDir, ".local", "share"), nil
		}
	}

	// unknown OS or no home dir, fall back to the working directory
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve a data directory: %w", err)
	}
	return wd, nil
}
