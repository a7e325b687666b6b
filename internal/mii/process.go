package mii

import (
	"context"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/premai-io/mii-serve/internal/logging"
)

// ProcessServer serves MII deployments by running the bootstrap script
// under a Python interpreter as a supervised child process.
type ProcessServer struct {
	opts Options
}

// NewProcessServer creates a new ProcessServer.
func NewProcessServer(opts Options) *ProcessServer {
	return &ProcessServer{opts: opts}
}

// Serve starts a deployment and returns once it accepts connections.
func (p *ProcessServer) Serve(ctx context.Context, cfg ServeConfig) (Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	script, err := WriteBootstrap(p.opts.ScriptDir)
	if err != nil {
		return nil, err
	}

	baseURL := "http://" + dialAddr(cfg.RESTfulAPIHost, cfg.RESTfulAPIPort)
	client := NewClient(baseURL, cfg.DeploymentName)
	probe := p.readinessProbe(cfg, client)

	sub, err := NewSubprocess(SubprocessConfig{
		Command:        p.opts.Python,
		Args:           append([]string{script}, BuildArgs(cfg)...),
		Env:            append(os.Environ(), p.opts.Env...),
		Label:          "mii",
		Quiet:          p.opts.Quiet,
		Probe:          probe,
		StartupTimeout: p.opts.StartupTimeout,
		StopTimeout:    p.opts.StopTimeout,
	})
	if err != nil {
		return nil, err
	}

	logging.GetLogger().WithFields(logrus.Fields{
		"model":      cfg.ModelURI,
		"deployment": cfg.DeploymentName,
	}).Info("starting deployment")

	if err := sub.Start(ctx); err != nil {
		return nil, err
	}

	return &processHandle{sub: sub, client: client, probe: probe}, nil
}

// readinessProbe picks the REST gateway when it is enabled and the gRPC
// backend port otherwise.
func (p *ProcessServer) readinessProbe(cfg ServeConfig, client *Client) Probe {
	if cfg.EnableRESTfulAPI {
		return HTTPProbe(client.Endpoint())
	}
	grpcPort := p.opts.GRPCPort
	if grpcPort == 0 {
		grpcPort = DefaultOptions().GRPCPort
	}
	return TCPProbe(dialAddr("127.0.0.1", grpcPort))
}

// BuildArgs renders cfg as bootstrap script flags.
func BuildArgs(cfg ServeConfig) []string {
	args := []string{
		"--uri", cfg.ModelURI,
		"--deployment-name", cfg.DeploymentName,
		"--restful-api-port", strconv.Itoa(cfg.RESTfulAPIPort),
		"--restful-api-host", cfg.RESTfulAPIHost,
	}
	if cfg.EnableRESTfulAPI {
		args = append(args, "--enable-restful-api")
	} else {
		args = append(args, "--no-enable-restful-api")
	}
	return args
}

type processHandle struct {
	sub    *Subprocess
	client *Client
	probe  Probe
}

func (h *processHandle) Health(ctx context.Context) error {
	return h.probe(ctx)
}

func (h *processHandle) Done() <-chan struct{} {
	return h.sub.Done()
}

func (h *processHandle) ExitCode() int {
	return h.sub.ExitCode()
}

func (h *processHandle) PID() int {
	return h.sub.PID()
}

func (h *processHandle) BaseURL() string {
	return h.client.baseURL
}

func (h *processHandle) Close() error {
	return h.sub.GracefulStop()
}
