package mii

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/premai-io/mii-serve/pkg/api"
)

func TestClientEndpoint(t *testing.T) {
	c := NewClient("http://127.0.0.1:8080/", "default")
	if got := c.Endpoint(); got != "http://127.0.0.1:8080/mii/default" {
		t.Errorf("Endpoint = %q", got)
	}
}

func TestClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/mii/default" {
			http.Error(w, "bad route", http.StatusNotFound)
			return
		}
		var req api.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.MaxLength == nil || *req.MaxLength != 64 {
			http.Error(w, "max_length missing", http.StatusBadRequest)
			return
		}
		resp := make([]api.GenerateResponse, 0, len(req.Prompts))
		for _, p := range req.Prompts {
			resp = append(resp, api.GenerateResponse{
				GeneratedText: p + " world",
				PromptLength:  1,
				FinishReason:  "length",
			})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	maxLen := 64
	c := NewClient(server.URL, "default")
	got, err := c.Generate(context.Background(), &api.GenerateRequest{
		Prompts:   []string{"hello", "goodbye"},
		MaxLength: &maxLen,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d responses, want 2", len(got))
	}
	if got[0].GeneratedText != "hello world" || got[1].GeneratedText != "goodbye world" {
		t.Errorf("unexpected responses: %+v", got)
	}
}

func TestClientGenerateErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "deployment not ready", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(server.URL, "default")
	if _, err := c.Generate(context.Background(), &api.GenerateRequest{Prompts: []string{"hi"}}); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestClientGenerateEmptyPrompts(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "default")
	if _, err := c.Generate(context.Background(), &api.GenerateRequest{}); err == nil {
		t.Fatal("expected error for empty prompts")
	}
}
