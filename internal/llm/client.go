// Package llm provides clients for text-completion endpoints.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CompletionRequest is the body sent to the completion endpoint.
type CompletionRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature float64  `json:"temperature"`
	Model       string   `json:"model"`
	Stop        []string `json:"stop"`
}

// Choice is one generated alternative.
type Choice struct {
	Text string `json:"text"`
}

// CompletionResponse is a well-formed completion result. Choice texts are
// already trimmed of surrounding whitespace. It may hold no choices.
type CompletionResponse struct {
	Choices []Choice `json:"choices"`
}

// FirstText returns the first choice, if any.
func (r *CompletionResponse) FirstText() (string, bool) {
	if r == nil || len(r.Choices) == 0 {
		return "", false
	}
	return r.Choices[0].Text, true
}

// Client is the interface for completion providers.
type Client interface {
	// Complete sends one completion request to endpoint. Failures are
	// returned as *CompletionError and are never retried.
	Complete(ctx context.Context, endpoint string, req *CompletionRequest) (*CompletionResponse, error)

	// Health probes GET {baseURL}/health and returns nil on HTTP 200.
	Health(ctx context.Context, baseURL string) error

	// Name returns the provider name.
	Name() string
}

// Provider is the type of completion provider.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderOpenAI Provider = "openai"
)

// Config contains configuration for completion clients.
type Config struct {
	// Timeout bounds a whole completion call.
	// Default: 30 seconds
	Timeout time.Duration

	// HealthTimeout bounds a health probe.
	// Default: 5 seconds
	HealthTimeout time.Duration

	// APIKey is sent as a bearer token when set.
	APIKey string
}

// SetDefaults fills in default values for optional fields.
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HealthTimeout == 0 {
		c.HealthTimeout = 5 * time.Second
	}
}

// NewClient creates a completion client for the given provider.
func NewClient(provider Provider, cfg Config) (Client, error) {
	switch provider {
	case ProviderLocal, "":
		return NewLocalClient(cfg), nil
	case ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", provider)
	}
}

// probeHealth is shared by all providers; the health route is not part of
// any provider API.
func probeHealth(ctx context.Context, httpClient *http.Client, timeout time.Duration, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := strings.TrimRight(baseURL, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NewTransportError(err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer drainAndClose(resp)

	if resp.StatusCode != http.StatusOK {
		return NewTransportError(fmt.Errorf("unexpected status %s", resp.Status))
	}
	return nil
}
