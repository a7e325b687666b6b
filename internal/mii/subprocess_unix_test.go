//go:build !windows

package mii

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"
)

// processAlive reports whether pid exists and is not a zombie.
func processAlive(pid int) bool {
	if err := syscall.Kill(pid, 0); err != nil {
		return false
	}
	stat, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return true
	}
	s := string(stat)
	if i := strings.LastIndexByte(s, ')'); i >= 0 && i+2 < len(s) {
		return s[i+2] != 'Z'
	}
	return true
}

func waitForFile(t *testing.T, path string) []byte {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 && data[len(data)-1] == '\n' {
			return data
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s was not written", path)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestGracefulStopKillsWorkers(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "worker.pid")

	sub, err := NewSubprocess(SubprocessConfig{
		Command:        "sh",
		Args:           []string{"-c", `sleep 60 & echo $! > "$1"; wait`, "sh", pidFile},
		Label:          "test",
		Quiet:          true,
		StartupTimeout: 5 * time.Second,
		StopTimeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewSubprocess: %v", err)
	}
	if err := sub.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	worker, err := strconv.Atoi(strings.TrimSpace(string(waitForFile(t, pidFile))))
	if err != nil {
		t.Fatalf("worker pid: %v", err)
	}
	if !processAlive(worker) {
		t.Fatalf("worker %d not running before stop", worker)
	}

	if err := sub.GracefulStop(); err != nil {
		t.Fatalf("GracefulStop: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for processAlive(worker) {
		if time.Now().After(deadline) {
			syscall.Kill(worker, syscall.SIGKILL)
			t.Fatalf("worker %d still alive after GracefulStop", worker)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestGracefulStopKillsWorkersIgnoringSIGTERM(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "worker.pid")

	// The worker ignores SIGTERM and outlives the leader.
	sub, err := NewSubprocess(SubprocessConfig{
		Command:        "sh",
		Args:           []string{"-c", `sh -c 'trap "" TERM; echo $$ > "$1"; while :; do sleep 1; done' sh "$1" & wait`, "sh", pidFile},
		Label:          "test",
		Quiet:          true,
		StartupTimeout: 5 * time.Second,
		StopTimeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewSubprocess: %v", err)
	}
	if err := sub.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	worker, err := strconv.Atoi(strings.TrimSpace(string(waitForFile(t, pidFile))))
	if err != nil {
		t.Fatalf("worker pid: %v", err)
	}

	if err := sub.GracefulStop(); err != nil {
		t.Fatalf("GracefulStop: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for processAlive(worker) {
		if time.Now().After(deadline) {
			syscall.Kill(worker, syscall.SIGKILL)
			t.Fatalf("worker %d still alive after GracefulStop", worker)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
