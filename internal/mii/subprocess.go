package mii

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/premai-io/mii-serve/internal/logging"
)

// Probe reports whether a backend is ready to serve. A nil error means ready.
type Probe func(ctx context.Context) error

// Subprocess manages the lifecycle of a serving backend child process.
// It handles binary resolution, process start/stop, output logging,
// readiness polling, and graceful shutdown.
type Subprocess struct {
	cmd *exec.Cmd
	mu  sync.Mutex

	binPath        string
	args           []string
	env            []string
	label          string // log prefix, e.g. "mii"
	quiet          bool
	probe          Probe
	healthy        bool
	stopped        bool          // true after explicit GracefulStop()
	doneCh         chan struct{} // closed when the process exits
	startupTimeout time.Duration
	stopTimeout    time.Duration
	log            *logrus.Entry
}

// SubprocessConfig holds everything needed to start a backend subprocess.
type SubprocessConfig struct {
	Command        string        // binary name or path, resolved through PATH
	Args           []string      // args to pass after the binary path
	Env            []string      // full environment; nil inherits os.Environ()
	Label          string        // log prefix (default "mii")
	Quiet          bool          // suppress subprocess stdout/stderr
	Probe          Probe         // readiness check; nil means ready once started
	StartupTimeout time.Duration // how long to wait for Probe (default 30m)
	StopTimeout    time.Duration // SIGTERM grace period (default 30s)
}

// resolveBinary returns the full path to command.
func resolveBinary(command string) (string, error) {
	if command == "" {
		return "", fmt.Errorf("no backend command configured")
	}
	binPath, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("%s not found: %w", command, err)
	}
	return binPath, nil
}

// NewSubprocess creates a Subprocess but does not start it. Call Start() next.
func NewSubprocess(cfg SubprocessConfig) (*Subprocess, error) {
	binPath, err := resolveBinary(cfg.Command)
	if err != nil {
		return nil, err
	}

	label := cfg.Label
	if label == "" {
		label = "mii"
	}

	startupTimeout := cfg.StartupTimeout
	if startupTimeout == 0 {
		startupTimeout = 30 * time.Minute
	}
	stopTimeout := cfg.StopTimeout
	if stopTimeout == 0 {
		stopTimeout = 30 * time.Second
	}

	env := cfg.Env
	if env == nil {
		env = os.Environ()
	}

	return &Subprocess{
		binPath:        binPath,
		args:           cfg.Args,
		env:            env,
		label:          label,
		quiet:          cfg.Quiet,
		probe:          cfg.Probe,
		startupTimeout: startupTimeout,
		stopTimeout:    stopTimeout,
		doneCh:         make(chan struct{}),
		log:            logging.GetLogger().WithField("process", label),
	}, nil
}

// Healthy returns whether the subprocess passed its readiness check and has
// not been stopped since.
func (s *Subprocess) Healthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthy
}

// Start launches the subprocess and waits for it to become ready.
// The provided ctx controls only the readiness wait; the subprocess
// itself runs with a background lifetime.
func (s *Subprocess) Start(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = false
	s.healthy = false
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.cmd = exec.Command(s.binPath, s.args...)
	s.cmd.Env = s.env
	s.cmd.WaitDelay = outputWaitDelay
	setProcessGroup(s.cmd)

	var stdout, stderr *lineLogger
	if !s.quiet {
		prefix := fmt.Sprintf("[%s] ", s.label)
		stdout = newLineLogger(s.logger(), prefix)
		stderr = newLineLogger(s.logger(), prefix)
		s.cmd.Stdout = stdout
		s.cmd.Stderr = stderr
	}

	s.logger().Infof("starting: %s", s.binPath)

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", s.label, err)
	}

	// Wait returns only after the output copiers hit EOF, so every line the
	// child printed is logged before doneCh closes.
	doneCh := s.doneCh
	go func() {
		s.cmd.Wait()
		stdout.Flush()
		stderr.Flush()
		close(doneCh)
	}()

	if err := s.waitForHealth(ctx); err != nil {
		s.GracefulStop()
		return fmt.Errorf("%s failed to become ready: %w", s.label, err)
	}

	s.mu.Lock()
	s.healthy = true
	s.mu.Unlock()

	s.logger().WithField("pid", s.PID()).Info("ready")
	return nil
}

// Done returns a channel that is closed when the subprocess exits.
func (s *Subprocess) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doneCh
}

// ExitCode returns the process exit code, or -1 if not yet exited.
func (s *Subprocess) ExitCode() int {
	select {
	case <-s.Done():
	default:
		return -1
	}
	if s.cmd == nil || s.cmd.ProcessState == nil {
		return -1
	}
	return s.cmd.ProcessState.ExitCode()
}

// PID returns the process ID, or 0 before Start.
func (s *Subprocess) PID() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// GracefulStop sends SIGTERM to the child's process group, waits up to the
// stop timeout, then SIGKILL. The group includes the workers the serving
// library forks.
func (s *Subprocess) GracefulStop() error {
	s.mu.Lock()
	s.stopped = true
	s.healthy = false
	s.mu.Unlock()

	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}

	pid := s.cmd.Process.Pid
	log := s.logger().WithField("pid", pid)
	log.Info("sending SIGTERM")

	if sigErr := terminateGroup(s.cmd); sigErr != nil {
		// Process may already be dead.
		log.Debugf("signal failed (process may have exited): %v", sigErr)
		return nil
	}

	stopTimeout := s.stopTimeout
	if stopTimeout == 0 {
		stopTimeout = 30 * time.Second
	}

	select {
	case <-s.doneCh:
		log.Info("process exited cleanly")
		// Workers that outlive the leader are killed.
		killGroup(s.cmd)
		return nil
	case <-time.After(stopTimeout):
		log.Warnf("process did not exit %s after SIGTERM, sending SIGKILL", stopTimeout)
		if err := killGroup(s.cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("failed to kill %s: %w", s.label, err)
		}
		<-s.doneCh
		return nil
	}
}

// WasStopped returns true if GracefulStop was called (i.e., this was an intentional shutdown).
func (s *Subprocess) WasStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// waitForHealth polls the readiness probe until it passes, with progress logging.
func (s *Subprocess) waitForHealth(ctx context.Context) error {
	deadline := time.Now().Add(s.startupTimeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	progressTicker := time.NewTicker(5 * time.Second)
	defer progressTicker.Stop()

	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.doneCh:
			return fmt.Errorf("%s process exited during startup (exit code %d)", s.label, s.ExitCode())
		case <-progressTicker.C:
			s.logger().Infof("still loading model... (%.0fs elapsed)", time.Since(start).Seconds())
		case <-ticker.C:
			if time.Now().After(deadline) {
				return fmt.Errorf("timeout waiting for %s to become ready after %s", s.label, s.startupTimeout)
			}
			if s.healthCheck(ctx) == nil {
				return nil
			}
		}
	}
}

// healthCheck runs the probe with its own timeout so a backend that accepts
// connections but never answers cannot stall the startup loop.
func (s *Subprocess) healthCheck(ctx context.Context) error {
	if s.probe == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return s.probe(ctx)
}

func (s *Subprocess) logger() *logrus.Entry {
	if s.log == nil {
		return logging.GetLogger().WithField("process", s.label)
	}
	return s.log
}
