package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DataDir returns the default data directory for mii-serve.
// Windows: %LOCALAPPDATA%\mii-serve
// Linux/Mac: ~/.local/share/mii-serve
func DataDir() string {
	if dir := os.Getenv("MII_SERVE_DATA_DIR"); dir != "" {
		return dir
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "mii-serve")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "mii-serve")
}

// EnsureDirs creates the data directory if it doesn't exist.
func EnsureDirs(cfg *Config) error {
	return os.MkdirAll(cfg.DataDir, 0755)
}
