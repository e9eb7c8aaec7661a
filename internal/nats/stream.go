package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/neurochat-ai/neurochat/internal/model"
)

const (
	// StreamName is the name of the transcript stream.
	StreamName = "TRANSCRIPTS"

	// SubjectPrefix is the prefix for all transcript subjects.
	SubjectPrefix = "chat"
)

// TranscriptPublisher writes conversation events to JetStream. Events are
// only ever written; the chat server never reads them back.
type TranscriptPublisher struct {
	js jetstream.JetStream
}

// NewTranscriptPublisher creates a publisher on the given JetStream context.
func NewTranscriptPublisher(js jetstream.JetStream) *TranscriptPublisher {
	return &TranscriptPublisher{js: js}
}

// EnsureStream creates the transcript stream if it does not exist.
func (p *TranscriptPublisher) EnsureStream(ctx context.Context) error {
	_, err := p.js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Chat transcript messages and turn events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for an event.
func EventSubject(sessionID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, sessionID, eventType)
}

// SessionFilter returns the filter subject for all events of a session.
func SessionFilter(sessionID string) string {
	return fmt.Sprintf("%s.%s.>", SubjectPrefix, sessionID)
}

// PublishEvent publishes an event to JetStream.
func (p *TranscriptPublisher) PublishEvent(ctx context.Context, event *model.ConversationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.Publish(ctx, EventSubject(event.SessionID, event.Type), data,
		jetstream.WithMsgID(event.ID),
	); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
