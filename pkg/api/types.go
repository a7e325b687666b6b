package api

import "time"

// GenerateRequest is the body of POST /mii/<deployment>.
type GenerateRequest struct {
	Prompts      []string `json:"prompts"`
	MaxLength    *int     `json:"max_length,omitempty"`
	MaxNewTokens *int     `json:"max_new_tokens,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	TopP         *float64 `json:"top_p,omitempty"`
	DoSample     *bool    `json:"do_sample,omitempty"`
}

// GenerateResponse is one element of the POST /mii/<deployment> response,
// one per prompt.
type GenerateResponse struct {
	GeneratedText   string `json:"generated_text"`
	PromptLength    int    `json:"prompt_length"`
	GeneratedLength int    `json:"generated_length"`
	FinishReason    string `json:"finish_reason"`
}

// Status is the readiness vocabulary reported by the status endpoint.
type Status string

const (
	Ready    Status = "Ready"
	NotReady Status = "NotReady"
	Failed   Status = "Failed"
)

// HealthResponse is the response for GET /healthz.
type HealthResponse struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// LaunchInfo is the response for GET /status.
type LaunchInfo struct {
	LaunchID         string    `json:"launch_id"`
	Status           Status    `json:"status"`
	ModelURI         string    `json:"model_uri"`
	DeploymentName   string    `json:"deployment_name"`
	EnableRESTfulAPI bool      `json:"enable_restful_api"`
	RESTfulAPIHost   string    `json:"restful_api_host"`
	RESTfulAPIPort   int       `json:"restful_api_port"`
	BaseURL          string    `json:"base_url,omitempty"`
	PID              int       `json:"pid,omitempty"`
	ExitCode         *int      `json:"exit_code,omitempty"`
	StartedAt        time.Time `json:"started_at"`
}

// VersionResponse is the response for GET /version.
type VersionResponse struct {
	Version string `json:"version"`
}
