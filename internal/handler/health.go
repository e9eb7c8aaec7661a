package handler

import (
	"errors"
	"net/http"

	natsclient "github.com/neurochat-ai/neurochat/internal/nats"
	"github.com/neurochat-ai/neurochat/internal/service"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	conversationService *service.ConversationService
	natsClient          *natsclient.Client
}

// NewHealthHandler creates a new health handler. natsClient is nil when the
// transcript feed is disabled.
func NewHealthHandler(convSvc *service.ConversationService, natsClient *natsclient.Client) *HealthHandler {
	return &HealthHandler{
		conversationService: convSvc,
		natsClient:          natsClient,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	endpoint := h.conversationService.Defaults().Endpoint
	if err := h.conversationService.CheckEndpoint(r.Context(), endpoint); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "completion endpoint unhealthy: " + err.Error(),
		})
		return
	}

	if h.natsClient != nil && !h.natsClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// EndpointHealthResponse reports the liveness of a completion endpoint.
type EndpointHealthResponse struct {
	URL     string `json:"url"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// Endpoint handles GET /api/v1/endpoint/health?url=
func (h *HealthHandler) Endpoint(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		url = h.conversationService.Defaults().Endpoint
	}

	err := h.conversationService.CheckEndpoint(r.Context(), url)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, "validation_error", validationErr.Error(), levelWarning)
		return
	}

	resp := &EndpointHealthResponse{URL: url, Healthy: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
