package launcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/premai-io/mii-serve/internal/config"
	"github.com/premai-io/mii-serve/internal/logging"
	"github.com/premai-io/mii-serve/internal/mii"
	"github.com/premai-io/mii-serve/internal/status"
	"github.com/premai-io/mii-serve/pkg/api"
)

var (
	// ErrMissingModelURI is the usage error for a launch without a model.
	ErrMissingModelURI = errors.New("model URI is required (--uri)")

	// ErrBackendExited means the deployment died after becoming ready.
	ErrBackendExited = errors.New("mii backend exited")
)

// Launcher starts one MII deployment and holds the process until it is
// told to stop.
type Launcher struct {
	cfg      *config.Config
	server   mii.Server
	launchID string
	version  string
	log      *logrus.Entry

	mu        sync.Mutex
	serveCfg  mii.ServeConfig
	handle    mii.Handle
	status    *status.Server
	state     api.Status
	startedAt time.Time
}

// New creates a Launcher. An empty launchID is replaced by a fresh UUID.
func New(cfg *config.Config, server mii.Server, launchID string) *Launcher {
	if launchID == "" {
		launchID = uuid.NewString()
	}
	return &Launcher{
		cfg:      cfg,
		server:   server,
		launchID: launchID,
		version:  "dev",
		state:    api.NotReady,
		log:      logging.GetLogger().WithField("launch_id", launchID),
	}
}

// SetVersion sets the version reported by the status endpoint.
func (l *Launcher) SetVersion(v string) {
	l.version = v
}

// LaunchID returns the identifier of this launch.
func (l *Launcher) LaunchID() string {
	return l.launchID
}

// NewServeConfig builds the serve configuration for modelURI from the
// launcher config.
func NewServeConfig(cfg *config.Config, modelURI string) mii.ServeConfig {
	return mii.ServeConfig{
		ModelURI:         modelURI,
		DeploymentName:   cfg.DeploymentName,
		EnableRESTfulAPI: cfg.EnableRESTfulAPI,
		RESTfulAPIPort:   cfg.RESTfulAPIPort,
		RESTfulAPIHost:   cfg.RESTfulAPIHost,
	}
}

// Run serves modelURI and blocks until ctx is cancelled, returning nil.
// A startup failure is returned immediately; a backend that dies after
// startup returns ErrBackendExited. The backend is never restarted.
func (l *Launcher) Run(ctx context.Context, modelURI string) error {
	if modelURI == "" {
		return ErrMissingModelURI
	}

	sc := NewServeConfig(l.cfg, modelURI)
	l.mu.Lock()
	l.serveCfg = sc
	l.startedAt = time.Now()
	l.mu.Unlock()

	// The status endpoint is shut down before Run returns.
	var statusWG sync.WaitGroup
	defer statusWG.Wait()
	statusCtx, stopStatus := context.WithCancel(context.Background())
	defer stopStatus()

	statusErr := make(chan error, 1)
	if l.cfg.StatusAddr != "" {
		st := status.New(l.cfg.StatusAddr, l, l.version)
		if err := st.Listen(); err != nil {
			return fmt.Errorf("status endpoint: %w", err)
		}
		l.mu.Lock()
		l.status = st
		l.mu.Unlock()
		statusWG.Add(1)
		go func() {
			defer statusWG.Done()
			statusErr <- st.Serve(statusCtx)
		}()
	}

	log := l.log.WithFields(logrus.Fields{
		"model":      sc.ModelURI,
		"deployment": sc.DeploymentName,
	})
	log.Infof("serving on %s:%d", sc.RESTfulAPIHost, sc.RESTfulAPIPort)

	handle, err := l.server.Serve(ctx, sc)
	if err != nil {
		if ctx.Err() != nil {
			log.Info("stopped during startup")
			return nil
		}
		l.setState(api.Failed)
		return fmt.Errorf("startup failure: %w", err)
	}

	l.mu.Lock()
	l.handle = handle
	l.mu.Unlock()
	l.setState(api.Ready)
	log.Info("deployment ready")

	select {
	case <-ctx.Done():
		log.Info("shutting down deployment...")
		l.setState(api.NotReady)
		if err := handle.Close(); err != nil {
			log.Warnf("shutdown error: %v", err)
		}
		return nil
	case <-handle.Done():
		l.setState(api.Failed)
		// Reap workers the backend left behind.
		if err := handle.Close(); err != nil {
			log.Warnf("cleanup error: %v", err)
		}
		return fmt.Errorf("%w (exit code %d)", ErrBackendExited, handle.ExitCode())
	case err := <-statusErr:
		l.setState(api.NotReady)
		if cerr := handle.Close(); cerr != nil {
			log.Warnf("shutdown error: %v", cerr)
		}
		return fmt.Errorf("status endpoint: %w", err)
	}
}

// StatusAddr returns the bound status endpoint address, or "" when it is
// disabled or not yet listening.
func (l *Launcher) StatusAddr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == nil {
		return ""
	}
	return l.status.Addr()
}

func (l *Launcher) setState(s api.Status) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Health reports whether the deployment accepts requests.
func (l *Launcher) Health(ctx context.Context) error {
	l.mu.Lock()
	h, state := l.handle, l.state
	l.mu.Unlock()

	if h == nil || state != api.Ready {
		return fmt.Errorf("deployment is %s", state)
	}
	return h.Health(ctx)
}

// Info returns a snapshot of the launch record.
func (l *Launcher) Info() api.LaunchInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	info := api.LaunchInfo{
		LaunchID:         l.launchID,
		Status:           l.state,
		ModelURI:         l.serveCfg.ModelURI,
		DeploymentName:   l.serveCfg.DeploymentName,
		EnableRESTfulAPI: l.serveCfg.EnableRESTfulAPI,
		RESTfulAPIHost:   l.serveCfg.RESTfulAPIHost,
		RESTfulAPIPort:   l.serveCfg.RESTfulAPIPort,
		StartedAt:        l.startedAt,
	}
	if l.handle != nil {
		info.BaseURL = l.handle.BaseURL()
		info.PID = l.handle.PID()
		if code := l.handle.ExitCode(); code != -1 {
			info.ExitCode = &code
		}
	}
	return info
}
