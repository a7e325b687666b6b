//go:build windows

package mii

import (
	"os"
	"os/exec"
)

func setProcessGroup(cmd *exec.Cmd) {}

// terminateGroup sends SIGINT, the closest Windows has to SIGTERM.
func terminateGroup(cmd *exec.Cmd) error {
	return cmd.Process.Signal(os.Interrupt)
}

func killGroup(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
