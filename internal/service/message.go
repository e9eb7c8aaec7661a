package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/neurochat-ai/neurochat/internal/llm"
	"github.com/neurochat-ai/neurochat/internal/model"
	"github.com/neurochat-ai/neurochat/internal/prompt"
	"github.com/neurochat-ai/neurochat/internal/ratelimit"
	"github.com/neurochat-ai/neurochat/internal/session"
	"github.com/neurochat-ai/neurochat/pkg/logger"
	"github.com/neurochat-ai/neurochat/pkg/metrics"
	"github.com/neurochat-ai/neurochat/pkg/tracing"
)

// Submit runs one user turn: validate, rate-check, append the user message,
// call the completion endpoint and append the reply. On any failure after the
// user message is appended the log keeps it and gains no assistant message.
//
// The session is locked for the whole turn. The completion call is bounded
// by the client timeout only; a cancelled request context does not abort it.
func (s *ConversationService) Submit(ctx context.Context, sess *session.Session, input string, settings model.TurnSettings) (reply *model.Message, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "conversation.submit",
		trace.WithAttributes(
			attribute.String("session.id", sess.ID),
			attribute.String("llm.provider", s.client.Name()),
			attribute.String("llm.model", settings.Model),
		),
	)
	defer span.End()

	log := s.logger.WithSession(logger.CorrelationIDFromContext(ctx), sess.ID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("turn panicked", zap.Any("panic", r), zap.Stack("stack"))
			reply, err = nil, ErrUnexpected
		}

		metrics.RecordTurn(turnOutcome(err))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if err := ValidateMessageContent(input); err != nil {
		log.Info("turn rejected", zap.String("reason", err.Error()))
		return nil, err
	}
	if err := ValidateSettings(settings); err != nil {
		log.Info("turn rejected", zap.String("reason", err.Error()))
		return nil, err
	}

	err = sess.Run(func(state *model.ConversationState) error {
		now := s.now()
		if !ratelimit.Allow(state, now, s.config.MinInterval) {
			return &RateLimitedError{Wait: ratelimit.Remaining(state, now, s.config.MinInterval)}
		}

		userMsg := model.NewUserMessage(input)
		state.Append(userMsg)
		metrics.RecordMessage(string(model.RoleUser))
		s.publish(ctx, sess.ID, &model.ConversationEvent{Type: model.EventTypeMessage, Message: &userMsg})

		// The history window already holds the new input; it is repeated as
		// the final Human line.
		text := prompt.Build(state, input, s.config.HistoryWindow)

		resp, err := s.complete(context.WithoutCancel(ctx), settings, text)
		if err != nil {
			return err
		}

		content, ok := resp.FirstText()
		if !ok {
			return ErrNoValidResponse
		}

		assistantMsg := model.NewAssistantMessage(content)
		state.Append(assistantMsg)
		metrics.RecordMessage(string(model.RoleAssistant))
		s.publish(ctx, sess.ID, &model.ConversationEvent{Type: model.EventTypeMessage, Message: &assistantMsg})

		reply = &assistantMsg
		return nil
	})
	if err != nil {
		s.reportFailure(ctx, log, sess.ID, err)
		return nil, err
	}

	log.Info("turn completed",
		zap.Int("reply_length", len(reply.Content)),
	)
	return reply, nil
}

// complete sends the prompt and records the call.
func (s *ConversationService) complete(ctx context.Context, settings model.TurnSettings, text string) (*llm.CompletionResponse, error) {
	ctx, span := tracing.Tracer().Start(ctx, "llm.complete",
		trace.WithAttributes(attribute.String("llm.endpoint", settings.Endpoint)),
	)
	defer span.End()

	start := time.Now()
	resp, err := s.client.Complete(ctx, settings.Endpoint, &llm.CompletionRequest{
		Prompt:      text,
		MaxTokens:   settings.MaxTokens,
		Temperature: settings.Temperature,
		Model:       settings.Model,
		Stop:        s.config.StopSequences,
	})

	outcome := "success"
	if err != nil {
		outcome = string(llm.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	metrics.RecordCompletion(s.client.Name(), outcome, time.Since(start).Seconds())

	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	return resp, nil
}

// reportFailure logs a failed turn and publishes it to the transcript feed.
func (s *ConversationService) reportFailure(ctx context.Context, log *logger.Logger, sessionID string, err error) {
	var rateErr *RateLimitedError
	if errors.As(err, &rateErr) {
		log.Info("turn rate limited", zap.Duration("wait", rateErr.Wait))
		s.publish(ctx, sessionID, &model.ConversationEvent{
			Type:     model.EventTypeRateLimit,
			Reason:   err.Error(),
			Metadata: map[string]any{"wait_seconds": rateErr.Wait.Seconds()},
		})
		return
	}

	eventType := model.EventTypeError
	if llm.IsTimeout(err) {
		eventType = model.EventTypeTimeout
	}

	log.Error("turn failed",
		zap.String("kind", turnOutcome(err)),
		zap.Error(err),
	)
	s.publish(ctx, sessionID, &model.ConversationEvent{
		Type:   eventType,
		Reason: err.Error(),
	})
}
