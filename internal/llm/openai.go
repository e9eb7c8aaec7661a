package llm

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient sends completions through the OpenAI SDK's legacy
// completions API, for hosted or proxied OpenAI-compatible servers.
type OpenAIClient struct {
	config     Config
	httpClient *http.Client
}

// NewOpenAIClient creates a new OpenAI-compatible completion client.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	cfg.SetDefaults()
	return &OpenAIClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return string(ProviderOpenAI)
}

// Complete sends a completion request.
func (c *OpenAIClient) Complete(ctx context.Context, endpoint string, req *CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	clientConfig := openai.DefaultConfig(c.config.APIKey)
	clientConfig.BaseURL = baseURLFromEndpoint(endpoint)
	clientConfig.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(clientConfig)

	// The SDK omits a zero temperature from the body.
	temperature := float32(req.Temperature)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       req.Model,
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: temperature,
		Stop:        req.Stop,
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	choices := make([]Choice, 0, len(resp.Choices))
	for _, ch := range resp.Choices {
		choices = append(choices, Choice{Text: strings.TrimSpace(ch.Text)})
	}

	return &CompletionResponse{Choices: choices}, nil
}

// Health probes the endpoint's health route.
func (c *OpenAIClient) Health(ctx context.Context, baseURL string) error {
	return probeHealth(ctx, c.httpClient, c.config.HealthTimeout, baseURL)
}

// classifyOpenAIError checks status errors first: a RequestError can wrap the
// JSON error from decoding a non-JSON error body.
func classifyOpenAIError(err error) *CompletionError {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	if errors.As(err, &apiErr) || errors.As(err, &reqErr) {
		return NewTransportError(err)
	}

	if isDecodeError(err) {
		return NewMalformedResponseError("body is not valid JSON", err)
	}

	return classifyTransportError(err)
}

// baseURLFromEndpoint turns ".../v1/completions" into ".../v1"; the SDK
// appends the route itself.
func baseURLFromEndpoint(endpoint string) string {
	base := strings.TrimRight(endpoint, "/")
	return strings.TrimSuffix(base, "/completions")
}
