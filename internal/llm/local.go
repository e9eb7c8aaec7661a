package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// LocalClient talks to an OpenAI-compatible text-completion endpoint served
// by a local model runtime.
type LocalClient struct {
	config     Config
	httpClient *http.Client
}

// NewLocalClient creates a new local completion client.
func NewLocalClient(cfg Config) *LocalClient {
	cfg.SetDefaults()
	return &LocalClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the provider name.
func (c *LocalClient) Name() string {
	return string(ProviderLocal)
}

// Complete posts req to endpoint and parses the choices.
func (c *LocalClient) Complete(ctx context.Context, endpoint string, req *CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, NewTransportError(fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, NewTransportError(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewTransportError(fmt.Errorf("unexpected status %s", resp.Status))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransportError(err)
	}

	return decodeCompletion(data)
}

// Health probes the endpoint's health route.
func (c *LocalClient) Health(ctx context.Context, baseURL string) error {
	return probeHealth(ctx, c.httpClient, c.config.HealthTimeout, baseURL)
}

// decodeCompletion parses {"choices":[{"text":...}]}. A missing choices
// field or a choice without text is malformed; an empty list is not.
func decodeCompletion(data []byte) (*CompletionResponse, error) {
	var raw struct {
		Choices *[]struct {
			Text *string `json:"text"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, NewMalformedResponseError("body is not valid JSON", err)
	}
	if raw.Choices == nil {
		return nil, NewMalformedResponseError("missing choices field", nil)
	}

	choices := make([]Choice, 0, len(*raw.Choices))
	for i, ch := range *raw.Choices {
		if ch.Text == nil {
			return nil, NewMalformedResponseError(fmt.Sprintf("choice %d has no text field", i), nil)
		}
		choices = append(choices, Choice{Text: strings.TrimSpace(*ch.Text)})
	}

	return &CompletionResponse{Choices: choices}, nil
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
