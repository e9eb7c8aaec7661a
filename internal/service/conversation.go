// Package service provides the conversation controller of the chat server.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/neurochat-ai/neurochat/internal/export"
	"github.com/neurochat-ai/neurochat/internal/llm"
	"github.com/neurochat-ai/neurochat/internal/model"
	"github.com/neurochat-ai/neurochat/internal/prompt"
	"github.com/neurochat-ai/neurochat/internal/session"
	"github.com/neurochat-ai/neurochat/pkg/logger"
	"github.com/neurochat-ai/neurochat/pkg/metrics"
)

// QuickPrompts are offered by the chat page as one-click turns.
var QuickPrompts = []string{
	"Tell me a joke about programming.",
	"Explain how APIs work in simple terms.",
	"Write a short Python function to calculate fibonacci numbers.",
	"What are the best practices for code documentation?",
	"Generate a creative story about AI and humans working together.",
}

// TranscriptPublisher receives appended messages and turn failures.
type TranscriptPublisher interface {
	PublishEvent(ctx context.Context, event *model.ConversationEvent) error
}

// Config holds the controller settings.
type Config struct {
	Defaults      model.TurnSettings
	HistoryWindow int
	MinInterval   time.Duration
	StopSequences []string
	App           model.AppInfo
}

// ConversationService runs conversation turns against a completion client.
type ConversationService struct {
	store     *session.Store
	client    llm.Client
	publisher TranscriptPublisher
	logger    *logger.Logger
	config    Config
	now       func() time.Time
}

// NewConversationService creates a new conversation service. publisher may
// be nil.
func NewConversationService(
	store *session.Store,
	client llm.Client,
	publisher TranscriptPublisher,
	log *logger.Logger,
	cfg Config,
) *ConversationService {
	if cfg.StopSequences == nil {
		cfg.StopSequences = prompt.DefaultStopSequences
	}
	if log == nil {
		log = logger.Global()
	}
	return &ConversationService{
		store:     store,
		client:    client,
		publisher: publisher,
		logger:    log,
		config:    cfg,
		now:       time.Now,
	}
}

// Session returns the session for id, creating one if needed.
func (s *ConversationService) Session(id string) *session.Session {
	return s.store.GetOrInit(id)
}

// Defaults returns the configured turn settings.
func (s *ConversationService) Defaults() model.TurnSettings {
	return s.config.Defaults
}

// ResolveSettings fills unset request controls with the configured defaults.
func (s *ConversationService) ResolveSettings(req *model.SendMessageRequest) model.TurnSettings {
	settings := s.config.Defaults
	if req.Endpoint != "" {
		settings.Endpoint = req.Endpoint
	}
	if req.Model != "" {
		settings.Model = req.Model
	}
	if req.Temperature != nil {
		settings.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		settings.MaxTokens = *req.MaxTokens
	}
	return settings
}

// Snapshot returns what the chat page renders for a session.
func (s *ConversationService) Snapshot(sess *session.Session) *model.SessionResponse {
	resp := &model.SessionResponse{
		Defaults:     s.config.Defaults,
		QuickPrompts: QuickPrompts,
		App:          s.config.App,
	}
	_ = sess.Run(func(state *model.ConversationState) error {
		resp.Messages = state.Transcript()
		resp.SystemPrompt = state.SystemPrompt
		return nil
	})
	return resp
}

// Reset clears the session's messages and keeps its system prompt.
func (s *ConversationService) Reset(ctx context.Context, sess *session.Session) {
	sess.Reset()

	s.logger.WithSession(logger.CorrelationIDFromContext(ctx), sess.ID).Info("conversation reset")
	s.publish(ctx, sess.ID, &model.ConversationEvent{Type: model.EventTypeReset})
}

// UpdateSystemPrompt replaces the session's system prompt. An empty prompt
// drops the system line from future prompts.
func (s *ConversationService) UpdateSystemPrompt(ctx context.Context, sess *session.Session, systemPrompt string) error {
	if len(systemPrompt) > maxContentLength {
		return newValidationError("system_prompt", "system prompt exceeds maximum length")
	}
	sess.SetSystemPrompt(systemPrompt)

	s.logger.WithSession(logger.CorrelationIDFromContext(ctx), sess.ID).Info("system prompt updated",
		zap.Int("length", len(systemPrompt)),
	)
	return nil
}

// Export builds the downloadable transcript for a session.
func (s *ConversationService) Export(sess *session.Session) (*model.ChatExport, string, error) {
	var (
		doc      *model.ChatExport
		filename string
	)
	err := sess.Run(func(state *model.ConversationState) error {
		var err error
		doc, filename, err = export.Build(state, s.config.App, s.now())
		return err
	})
	return doc, filename, err
}

// CheckEndpoint probes the health route of a completion endpoint base URL.
func (s *ConversationService) CheckEndpoint(ctx context.Context, baseURL string) error {
	if err := ValidateAPIURL(baseURL); err != nil {
		return err
	}
	return s.client.Health(ctx, baseURL)
}

func (s *ConversationService) publish(ctx context.Context, sessionID string, event *model.ConversationEvent) {
	if s.publisher == nil {
		return
	}

	event.ID = uuid.Must(uuid.NewV7()).String()
	event.SessionID = sessionID
	event.CreatedAt = s.now()

	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		metrics.TranscriptPublishFailures.WithLabelValues(string(event.Type)).Inc()
		s.logger.Warn("failed to publish transcript event",
			zap.String("session_id", sessionID),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}

// turnOutcome labels a finished turn for metrics.
func turnOutcome(err error) string {
	var validationErr *ValidationError
	var rateErr *RateLimitedError

	switch {
	case err == nil:
		return "success"
	case errors.As(err, &validationErr):
		return "invalid"
	case errors.As(err, &rateErr):
		return "rate_limited"
	case errors.Is(err, ErrNoValidResponse):
		return "no_valid_response"
	case llm.KindOf(err) != "":
		return string(llm.KindOf(err))
	default:
		return "unexpected"
	}
}
