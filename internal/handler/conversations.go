package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/neurochat-ai/neurochat/internal/export"
	"github.com/neurochat-ai/neurochat/internal/middleware"
	"github.com/neurochat-ai/neurochat/internal/model"
	"github.com/neurochat-ai/neurochat/internal/service"
	"github.com/neurochat-ai/neurochat/pkg/logger"
)

// ConversationHandler handles session-level endpoints.
type ConversationHandler struct {
	conversationService *service.ConversationService
	logger              *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(convSvc *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversationService: convSvc,
		logger:              log,
	}
}

// Get handles GET /api/v1/session
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess := h.conversationService.Session(middleware.GetSessionID(r.Context()))
	writeJSON(w, http.StatusOK, h.conversationService.Snapshot(sess))
}

// UpdateSystemPrompt handles PUT /api/v1/system-prompt
func (h *ConversationHandler) UpdateSystemPrompt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.conversationService.Session(middleware.GetSessionID(ctx))

	var req model.UpdateSystemPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", levelError)
		return
	}

	if err := h.conversationService.UpdateSystemPrompt(ctx, sess, req.SystemPrompt); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.UpdateSystemPromptRequest{SystemPrompt: req.SystemPrompt})
}

// Reset handles POST /api/v1/reset
func (h *ConversationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.conversationService.Session(middleware.GetSessionID(ctx))

	h.conversationService.Reset(ctx, sess)

	writeJSON(w, http.StatusOK, h.conversationService.Snapshot(sess))
}

// Export handles GET /api/v1/export
func (h *ConversationHandler) Export(w http.ResponseWriter, r *http.Request) {
	sess := h.conversationService.Session(middleware.GetSessionID(r.Context()))

	doc, filename, err := h.conversationService.Export(sess)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	data, err := export.Marshal(doc)
	if err != nil {
		h.logger.Error("failed to encode export", zap.String("session_id", sess.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "unexpected_error", "failed to export chat", levelError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
