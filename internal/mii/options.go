package mii

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by Serve when a ServeConfig cannot be launched.
var ErrInvalidConfig = errors.New("invalid serve config")

// ServeConfig is the configuration handed to the MII serve entry point.
type ServeConfig struct {
	// ModelURI names the model to load, e.g. "microsoft/phi-1_5".
	ModelURI string

	// DeploymentName labels the running deployment; the REST route is
	// /mii/<DeploymentName>.
	DeploymentName string

	EnableRESTfulAPI bool
	RESTfulAPIPort   int
	RESTfulAPIHost   string
}

// Validate checks that the config names a model and a bindable REST endpoint.
func (c ServeConfig) Validate() error {
	if c.ModelURI == "" {
		return fmt.Errorf("%w: model URI is empty", ErrInvalidConfig)
	}
	if c.DeploymentName == "" {
		return fmt.Errorf("%w: deployment name is empty", ErrInvalidConfig)
	}
	if c.RESTfulAPIPort <= 0 || c.RESTfulAPIPort > 65535 {
		return fmt.Errorf("%w: restful api port %d out of range", ErrInvalidConfig, c.RESTfulAPIPort)
	}
	if c.RESTfulAPIHost == "" {
		return fmt.Errorf("%w: restful api host is empty", ErrInvalidConfig)
	}
	return nil
}

// Options configures how a ProcessServer runs the serving backend.
type Options struct {
	// Python is the interpreter used to run the bootstrap script.
	Python string

	// ScriptDir is where the bootstrap script is written before launch.
	ScriptDir string

	// GRPCPort is probed for readiness when the REST API is disabled.
	GRPCPort int

	// StartupTimeout bounds the wait for the backend to accept connections.
	// Model download and load happen inside this window.
	StartupTimeout time.Duration

	// StopTimeout is how long to wait after SIGTERM before SIGKILL.
	StopTimeout time.Duration

	// Env is appended to the inherited environment of the backend.
	Env []string

	// Quiet suppresses backend stdout/stderr output.
	Quiet bool
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Python:         "python3",
		GRPCPort:       50051,
		StartupTimeout: 30 * time.Minute,
		StopTimeout:    30 * time.Second,
	}
}
