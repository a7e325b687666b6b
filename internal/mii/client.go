package mii

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/premai-io/mii-serve/pkg/api"
)

// RESTPath is the route prefix of the MII REST gateway.
const RESTPath = "mii"

// Client is an HTTP client for the REST API of a running MII deployment.
type Client struct {
	baseURL    string
	deployment string
	httpClient *http.Client
}

// NewClient creates a new Client for the deployment served at baseURL.
func NewClient(baseURL, deployment string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		deployment: deployment,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute, // generation can be slow on large models
		},
	}
}

// Endpoint returns the deployment's REST URL, e.g. http://127.0.0.1:8080/mii/default.
func (c *Client) Endpoint() string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, RESTPath, c.deployment)
}

// Generate sends prompts to the deployment and returns one response per prompt.
func (c *Client) Generate(ctx context.Context, req *api.GenerateRequest) ([]api.GenerateResponse, error) {
	if len(req.Prompts) == 0 {
		return nil, fmt.Errorf("prompts must not be empty")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mii returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result []api.GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return result, nil
}
