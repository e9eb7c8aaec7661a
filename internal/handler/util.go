package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/neurochat-ai/neurochat/internal/export"
	"github.com/neurochat-ai/neurochat/internal/llm"
	"github.com/neurochat-ai/neurochat/internal/model"
	"github.com/neurochat-ai/neurochat/internal/service"
	"github.com/neurochat-ai/neurochat/pkg/logger"
)

const (
	levelWarning = "warning"
	levelError   = "error"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message, level string) {
	writeJSON(w, status, &model.ErrorResponse{
		Code:    code,
		Message: message,
		Level:   level,
	})
}

// writeServiceError maps controller errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error) {
	var validationErr *service.ValidationError
	var rateErr *service.RateLimitedError
	var completionErr *llm.CompletionError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, "validation_error", validationErr.Error(), levelWarning)

	case errors.As(err, &rateErr):
		retryAfter := rateErr.RetryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeJSON(w, http.StatusTooManyRequests, &model.ErrorResponse{
			Code:       "rate_limited",
			Message:    rateErr.Error(),
			Level:      levelWarning,
			RetryAfter: retryAfter,
		})

	case errors.As(err, &completionErr):
		status := http.StatusBadGateway
		if completionErr.Kind == llm.KindTimeout {
			status = http.StatusGatewayTimeout
		}
		writeError(w, status, string(completionErr.Kind), completionErr.Error(), levelError)

	case errors.Is(err, service.ErrNoValidResponse):
		writeError(w, http.StatusBadGateway, "no_valid_response", "Failed to get a valid response from the model.", levelError)

	case errors.Is(err, export.ErrNothingToExport):
		writeError(w, http.StatusNotFound, "nothing_to_export", "There are no messages to export.", levelWarning)

	default:
		log.Error("unhandled request error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "unexpected_error", "An unexpected error occurred. Please try again.", levelError)
	}
}
