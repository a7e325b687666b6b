package status

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/premai-io/mii-serve/internal/logging"
	"github.com/premai-io/mii-serve/pkg/api"
)

// Reporter supplies the launch state shown by the status endpoint.
type Reporter interface {
	Info() api.LaunchInfo
	Health(ctx context.Context) error
}

// Server is the launcher's status endpoint.
type Server struct {
	addr     string
	reporter Reporter
	version  string
	router   *gin.Engine
	http     *http.Server
	ln       net.Listener
}

// New creates a status Server bound to addr once Listen is called.
func New(addr string, reporter Reporter, version string) *Server {
	if !logging.GetLogger().IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		addr:     addr,
		reporter: reporter,
		version:  version,
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery(), withLogging())
	s.registerRoutes(s.router)

	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Listen binds the listen address.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.ln = ln
	logging.GetLogger().Infof("status endpoint listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Serve serves on the bound listener and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(s.ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			logging.GetLogger().Warnf("status endpoint shutdown error: %v", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
