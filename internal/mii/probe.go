package mii

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// probeTimeout bounds a single readiness check.
const probeTimeout = 2 * time.Second

// HTTPProbe returns a Probe that is ready once url answers with any status
// below 500. The MII REST route only accepts POST, so a 405 still means the
// gateway is up.
func HTTPProbe(url string) Probe {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("health check returned %d", resp.StatusCode)
		}
		return nil
	}
}

// TCPProbe returns a Probe that is ready once addr accepts a TCP connection.
func TCPProbe(addr string) Probe {
	return func(ctx context.Context) error {
		d := net.Dialer{Timeout: probeTimeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

// dialAddr turns a bind host and port into an address this host can dial.
// Wildcard binds are reached over loopback.
func dialAddr(host string, port int) string {
	switch host {
	case "", "0.0.0.0":
		host = "127.0.0.1"
	case "::", "[::]":
		host = "::1"
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
