package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	// AppName is the name of the application used in paths
	AppName = "apkfetch"
)

// GetCacheDir returns the platform-specific cache directory for the application
// On Linux: ~/.cache/apkfetch/
// On macOS: ~/Library/Caches/apkfetch/
// On Windows: %LOCALAPPDATA%\apkfetch\
func GetCacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, AppName), nil
}

// GetConfigDir returns the platform-specific configuration directory for the application.
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}

// GetStateDir returns the directory holding persisted credentials.
// On Linux it honors XDG_STATE_HOME with fallback to ~/.local/state.
// Other platforms reuse the config directory.
func GetStateDir() (string, error) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return GetConfigDir()
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", AppName), nil
}
