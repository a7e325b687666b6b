package mii

import "context"

// Server is the "start serving" entry point of the MII serving library.
// Serve returns once the deployment accepts requests, or with an error if it
// never does.
type Server interface {
	Serve(ctx context.Context, cfg ServeConfig) (Handle, error)
}

// Handle refers to a running deployment.
type Handle interface {
	// Health returns nil if the deployment is accepting requests.
	Health(ctx context.Context) error

	// Done is closed when the deployment exits.
	Done() <-chan struct{}

	// ExitCode returns the backend exit code, or -1 while it is running.
	ExitCode() int

	// PID returns the backend process ID, or 0 if not known.
	PID() int

	// BaseURL is the HTTP base URL of the REST API as seen from this host.
	BaseURL() string

	// Close stops the deployment and releases its resources.
	Close() error
}
