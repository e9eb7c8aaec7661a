package handler

import (
	"encoding/json"
	"net/http"

	"github.com/neurochat-ai/neurochat/internal/middleware"
	"github.com/neurochat-ai/neurochat/internal/model"
	"github.com/neurochat-ai/neurochat/internal/service"
	"github.com/neurochat-ai/neurochat/pkg/logger"
)

// MessageHandler handles chat turns.
type MessageHandler struct {
	conversationService *service.ConversationService
	logger              *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(convSvc *service.ConversationService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		conversationService: convSvc,
		logger:              log,
	}
}

// Send handles POST /api/v1/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.conversationService.Session(middleware.GetSessionID(ctx))

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", levelError)
		return
	}

	settings := h.conversationService.ResolveSettings(&req)
	reply, err := h.conversationService.Submit(ctx, sess, req.Content, settings)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.SendMessageResponse{
		Message:  reply,
		Messages: h.conversationService.Snapshot(sess).Messages,
	})
}
