package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/premai-io/mii-serve/pkg/api"
)

type fakeReporter struct {
	info   api.LaunchInfo
	health error
}

func (r *fakeReporter) Info() api.LaunchInfo             { return r.info }
func (r *fakeReporter) Health(ctx context.Context) error { return r.health }

func TestHealthzReady(t *testing.T) {
	s := New("127.0.0.1:0", &fakeReporter{}, "v1.0.0")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp api.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != api.Ready {
		t.Errorf("status = %s, want Ready", resp.Status)
	}
}

func TestHealthzNotReady(t *testing.T) {
	s := New("127.0.0.1:0", &fakeReporter{health: errors.New("deployment is NotReady")}, "v1.0.0")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var resp api.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != api.NotReady || resp.Error == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestStatusAndVersion(t *testing.T) {
	reporter := &fakeReporter{info: api.LaunchInfo{
		LaunchID:       "abc",
		Status:         api.Ready,
		ModelURI:       "microsoft/phi-1_5",
		DeploymentName: "default",
		RESTfulAPIPort: 8080,
	}}
	s := New("127.0.0.1:0", reporter, "v1.2.3")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/status = %d", rec.Code)
	}
	var info api.LaunchInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.LaunchID != "abc" || info.ModelURI != "microsoft/phi-1_5" || info.Status != api.Ready {
		t.Errorf("unexpected info: %+v", info)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	var v api.VersionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if v.Version != "v1.2.3" {
		t.Errorf("version = %q", v.Version)
	}
}

func TestServeAndShutdown(t *testing.T) {
	s := New("127.0.0.1:0", &fakeReporter{}, "dev")
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ctx)
	}()

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Serve = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestListenAddressInUse(t *testing.T) {
	a := New("127.0.0.1:0", &fakeReporter{}, "dev")
	if err := a.Listen(); err != nil {
		t.Fatal(err)
	}
	defer a.ln.Close()

	b := New(a.Addr(), &fakeReporter{}, "dev")
	if err := b.Listen(); err == nil {
		b.ln.Close()
		t.Fatal("expected error binding an address in use")
	}
}
