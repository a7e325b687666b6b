//go:build !windows

package mii

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup puts the child in its own process group so stop signals
// reach everything it forks.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminateGroup(cmd *exec.Cmd) error {
	return signalGroup(cmd, syscall.SIGTERM)
}

func killGroup(cmd *exec.Cmd) error {
	return signalGroup(cmd, syscall.SIGKILL)
}

// signalGroup signals the child's whole process group when it leads one,
// otherwise the child alone. os.ErrProcessDone means nothing was left.
func signalGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd.SysProcAttr == nil || !cmd.SysProcAttr.Setpgid {
		return cmd.Process.Signal(sig)
	}
	if err := syscall.Kill(-cmd.Process.Pid, sig); err != nil {
		if err == syscall.ESRCH {
			return os.ErrProcessDone
		}
		return err
	}
	return nil
}
