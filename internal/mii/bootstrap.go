package mii

import (
	_ "embed"
	"os"
	"path/filepath"
)

// bootstrapScript calls mii.serve with the flags from BuildArgs, then holds
// the deployment until SIGTERM and terminates it.
//
//go:embed bootstrap/serve_mii.py
var bootstrapScript []byte

// BootstrapName is the file name the bootstrap script is written under.
const BootstrapName = "serve_mii.py"

// WriteBootstrap writes the bootstrap script into dir and returns its path.
// An empty dir means os.TempDir().
func WriteBootstrap(dir string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, BootstrapName)
	if err := os.WriteFile(path, bootstrapScript, 0644); err != nil {
		return "", err
	}
	return path, nil
}
