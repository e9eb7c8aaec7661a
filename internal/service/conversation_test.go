package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurochat-ai/neurochat/internal/llm"
	"github.com/neurochat-ai/neurochat/internal/model"
	"github.com/neurochat-ai/neurochat/internal/session"
	"github.com/neurochat-ai/neurochat/pkg/logger"
)

type fakeClient struct {
	mu       sync.Mutex
	requests []*llm.CompletionRequest
	complete func(req *llm.CompletionRequest) (*llm.CompletionResponse, error)
	health   error
}

func (f *fakeClient) Complete(_ context.Context, _ string, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.complete(req)
}

func (f *fakeClient) Health(context.Context, string) error { return f.health }

func (f *fakeClient) Name() string { return "fake" }

func reply(text string) func(*llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return func(*llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Choices: []llm.Choice{{Text: text}}}, nil
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*model.ConversationEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, event *model.ConversationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]model.EventType, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testSettings(endpoint string) model.TurnSettings {
	return model.TurnSettings{
		Endpoint:    endpoint,
		Model:       "test-model",
		Temperature: 0.7,
		MaxTokens:   512,
	}
}

func newTestService(t *testing.T, client llm.Client, publisher TranscriptPublisher) (*ConversationService, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewConversationService(session.NewStore(), client, publisher, logger.NewNop(), Config{
		Defaults:      testSettings("http://127.0.0.1:1234/v1/completions"),
		HistoryWindow: 5,
		MinInterval:   time.Second,
		App:           model.AppInfo{Name: "NeuroChatAI", Version: "1.0.0"},
	})
	svc.now = clk.now
	return svc, clk
}

func completionServer(t *testing.T, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/v1/completions"
}

func messages(sess *session.Session) []model.Message {
	var msgs []model.Message
	_ = sess.Run(func(state *model.ConversationState) error {
		msgs = state.Transcript()
		return nil
	})
	return msgs
}

func TestSubmit_AppendsTrimmedReply(t *testing.T) {
	endpoint := completionServer(t, `{"choices":[{"text":" hi "}]}`)
	svc, _ := newTestService(t, llm.NewLocalClient(llm.Config{}), nil)
	sess := svc.Session("")

	msg, err := svc.Submit(context.Background(), sess, "Hello", testSettings(endpoint))

	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, []model.Message{
		model.NewUserMessage("Hello"),
		model.NewAssistantMessage("hi"),
	}, messages(sess))
}

func TestSubmit_EmptyChoicesReportsNoValidResponse(t *testing.T) {
	endpoint := completionServer(t, `{"choices":[]}`)
	svc, _ := newTestService(t, llm.NewLocalClient(llm.Config{}), nil)
	sess := svc.Session("")

	msg, err := svc.Submit(context.Background(), sess, "Hello", testSettings(endpoint))

	assert.Nil(t, msg)
	assert.ErrorIs(t, err, ErrNoValidResponse)
	assert.Equal(t, []model.Message{model.NewUserMessage("Hello")}, messages(sess))
}

func TestSubmit_TimeoutKeepsUserTurn(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	svc, _ := newTestService(t, llm.NewLocalClient(llm.Config{Timeout: 50 * time.Millisecond}), nil)
	sess := svc.Session("")

	msg, err := svc.Submit(context.Background(), sess, "Hello", testSettings(srv.URL))

	assert.Nil(t, msg)
	assert.True(t, llm.IsTimeout(err), "got %v", err)
	assert.Equal(t, []model.Message{model.NewUserMessage("Hello")}, messages(sess))
}

func TestSubmit_MalformedResponse(t *testing.T) {
	endpoint := completionServer(t, `{"result":"nope"}`)
	svc, _ := newTestService(t, llm.NewLocalClient(llm.Config{}), nil)
	sess := svc.Session("")

	_, err := svc.Submit(context.Background(), sess, "Hello", testSettings(endpoint))

	assert.True(t, llm.IsMalformedResponse(err), "got %v", err)
	assert.Len(t, messages(sess), 1)
}

func TestSubmit_ValidationHappensBeforeRateCheck(t *testing.T) {
	client := &fakeClient{complete: reply("ok")}
	svc, _ := newTestService(t, client, nil)
	sess := svc.Session("")

	_, err := svc.Submit(context.Background(), sess, "   \n\t", testSettings("http://localhost:1234/v1/completions"))

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "content", validationErr.Field)
	assert.Empty(t, messages(sess))
	assert.Empty(t, client.requests)

	// The rejected turn did not consume the rate gate.
	_, err = svc.Submit(context.Background(), sess, "Hello", testSettings("http://localhost:1234/v1/completions"))
	assert.NoError(t, err)
}

func TestSubmit_InvalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*model.TurnSettings)
		field  string
	}{
		{name: "bad url", modify: func(s *model.TurnSettings) { s.Endpoint = "not a url" }, field: "endpoint"},
		{name: "missing scheme", modify: func(s *model.TurnSettings) { s.Endpoint = "localhost:1234" }, field: "endpoint"},
		{name: "empty model", modify: func(s *model.TurnSettings) { s.Model = " " }, field: "model"},
		{name: "temperature high", modify: func(s *model.TurnSettings) { s.Temperature = 1.5 }, field: "temperature"},
		{name: "temperature negative", modify: func(s *model.TurnSettings) { s.Temperature = -0.1 }, field: "temperature"},
		{name: "max tokens low", modify: func(s *model.TurnSettings) { s.MaxTokens = 9 }, field: "max_tokens"},
		{name: "max tokens high", modify: func(s *model.TurnSettings) { s.MaxTokens = 4097 }, field: "max_tokens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, &fakeClient{complete: reply("ok")}, nil)
			settings := testSettings("http://localhost:1234/v1/completions")
			tt.modify(&settings)

			_, err := svc.Submit(context.Background(), svc.Session(""), "Hello", settings)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestSubmit_RateLimited(t *testing.T) {
	client := &fakeClient{complete: reply("ok")}
	svc, clk := newTestService(t, client, nil)
	sess := svc.Session("")
	settings := testSettings("http://localhost:1234/v1/completions")

	_, err := svc.Submit(context.Background(), sess, "one", settings)
	require.NoError(t, err)

	clk.advance(400 * time.Millisecond)
	_, err = svc.Submit(context.Background(), sess, "two", settings)

	var rateErr *RateLimitedError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 600*time.Millisecond, rateErr.Wait)
	assert.Equal(t, 1, rateErr.RetryAfterSeconds())
	assert.Len(t, messages(sess), 2)
	assert.Len(t, client.requests, 1)

	clk.advance(600 * time.Millisecond)
	_, err = svc.Submit(context.Background(), sess, "two", settings)
	assert.NoError(t, err)
	assert.Len(t, messages(sess), 4)
}

func TestSubmit_PromptIncludesAppendedTurn(t *testing.T) {
	client := &fakeClient{complete: reply("reply")}
	svc, clk := newTestService(t, client, nil)
	sess := svc.Session("")
	settings := testSettings("http://localhost:1234/v1/completions")
	require.NoError(t, svc.UpdateSystemPrompt(context.Background(), sess, "Be terse."))

	_, err := svc.Submit(context.Background(), sess, "first", settings)
	require.NoError(t, err)
	clk.advance(time.Second)
	_, err = svc.Submit(context.Background(), sess, "second", settings)
	require.NoError(t, err)

	require.Len(t, client.requests, 2)
	assert.Equal(t, "System: Be terse.\nHuman: first\nHuman: first\nAssistant:", client.requests[0].Prompt)
	assert.Equal(t,
		"System: Be terse.\nHuman: first\nAssistant: reply\nHuman: second\nHuman: second\nAssistant:",
		client.requests[1].Prompt,
	)
	assert.Equal(t, []string{"\nHuman:", "\n\nHuman:", "\nSystem:"}, client.requests[1].Stop)
	assert.Equal(t, "test-model", client.requests[1].Model)
	assert.Equal(t, 512, client.requests[1].MaxTokens)
}

func TestSubmit_HistoryWindowCountsNewTurn(t *testing.T) {
	client := &fakeClient{complete: reply("ok")}
	svc, clk := newTestService(t, client, nil)
	sess := svc.Session("")
	settings := testSettings("http://localhost:1234/v1/completions")

	for _, input := range []string{"one", "two", "three"} {
		_, err := svc.Submit(context.Background(), sess, input, settings)
		require.NoError(t, err)
		clk.advance(time.Second)
	}

	// Window of 5 over [one ok two ok three].
	require.Len(t, client.requests, 3)
	assert.Equal(t,
		"System: "+model.DefaultSystemPrompt+"\nHuman: one\nAssistant: ok\nHuman: two\nAssistant: ok\nHuman: three\nHuman: three\nAssistant:",
		client.requests[2].Prompt,
	)
}

func TestSubmit_PanicBecomesUnexpected(t *testing.T) {
	client := &fakeClient{complete: func(*llm.CompletionRequest) (*llm.CompletionResponse, error) {
		panic("boom")
	}}
	svc, clk := newTestService(t, client, nil)
	sess := svc.Session("")
	settings := testSettings("http://localhost:1234/v1/completions")

	_, err := svc.Submit(context.Background(), sess, "Hello", settings)
	assert.ErrorIs(t, err, ErrUnexpected)

	// The session lock was released and the session still works.
	client.complete = reply("ok")
	clk.advance(time.Second)
	msg, err := svc.Submit(context.Background(), sess, "again", settings)
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
}

func TestSubmit_PublishesTranscript(t *testing.T) {
	publisher := &recordingPublisher{}
	client := &fakeClient{complete: reply("ok")}
	svc, _ := newTestService(t, client, publisher)
	sess := svc.Session("")
	settings := testSettings("http://localhost:1234/v1/completions")

	_, err := svc.Submit(context.Background(), sess, "Hello", settings)
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), sess, "Again", settings)
	require.Error(t, err)
	svc.Reset(context.Background(), sess)

	assert.Equal(t, []model.EventType{
		model.EventTypeMessage,
		model.EventTypeMessage,
		model.EventTypeRateLimit,
		model.EventTypeReset,
	}, publisher.types())
	for _, e := range publisher.events {
		assert.Equal(t, sess.ID, e.SessionID)
		assert.NotEmpty(t, e.ID)
	}
}

func TestReset_KeepsSystemPrompt(t *testing.T) {
	svc, _ := newTestService(t, &fakeClient{complete: reply("ok")}, nil)
	sess := svc.Session("")
	require.NoError(t, svc.UpdateSystemPrompt(context.Background(), sess, "Be terse."))
	_, err := svc.Submit(context.Background(), sess, "Hello", testSettings("http://localhost:1234/v1/completions"))
	require.NoError(t, err)

	svc.Reset(context.Background(), sess)

	snap := svc.Snapshot(sess)
	assert.Empty(t, snap.Messages)
	assert.Equal(t, "Be terse.", snap.SystemPrompt)
}

func TestResetAndSystemPrompt_ActOnHeldSession(t *testing.T) {
	publisher := &recordingPublisher{}
	svc, _ := newTestService(t, &fakeClient{complete: reply("ok")}, publisher)

	// A session no longer tracked by the service's store, as after a sweep.
	sess := session.NewStore().GetOrInit("")
	_ = sess.Run(func(state *model.ConversationState) error {
		state.Append(model.NewUserMessage("Hello"))
		return nil
	})

	require.NoError(t, svc.UpdateSystemPrompt(context.Background(), sess, "Be terse."))
	svc.Reset(context.Background(), sess)

	snap := svc.Snapshot(sess)
	assert.Empty(t, snap.Messages)
	assert.Equal(t, "Be terse.", snap.SystemPrompt)
	assert.Equal(t, []model.EventType{model.EventTypeReset}, publisher.types())
}

func TestSnapshot(t *testing.T) {
	svc, _ := newTestService(t, &fakeClient{complete: reply("ok")}, nil)
	sess := svc.Session("")

	snap := svc.Snapshot(sess)

	assert.Empty(t, snap.Messages)
	assert.Equal(t, model.DefaultSystemPrompt, snap.SystemPrompt)
	assert.Equal(t, QuickPrompts, snap.QuickPrompts)
	assert.Len(t, snap.QuickPrompts, 5)
	assert.Equal(t, "NeuroChatAI", snap.App.Name)
	assert.Equal(t, 512, snap.Defaults.MaxTokens)
}

func TestResolveSettings(t *testing.T) {
	svc, _ := newTestService(t, &fakeClient{}, nil)
	temp := 0.0
	tokens := 100

	got := svc.ResolveSettings(&model.SendMessageRequest{Model: "other", Temperature: &temp, MaxTokens: &tokens})

	assert.Equal(t, "http://127.0.0.1:1234/v1/completions", got.Endpoint)
	assert.Equal(t, "other", got.Model)
	assert.Equal(t, 0.0, got.Temperature)
	assert.Equal(t, 100, got.MaxTokens)

	assert.Equal(t, svc.Defaults(), svc.ResolveSettings(&model.SendMessageRequest{}))
}

func TestExport(t *testing.T) {
	svc, _ := newTestService(t, &fakeClient{complete: reply("ok")}, nil)
	sess := svc.Session("")

	_, _, err := svc.Export(sess)
	assert.Error(t, err)

	_, err = svc.Submit(context.Background(), sess, "Hello", testSettings("http://localhost:1234/v1/completions"))
	require.NoError(t, err)

	doc, filename, err := svc.Export(sess)
	require.NoError(t, err)
	assert.Equal(t, "chat_history_20240501_120000.json", filename)
	assert.Len(t, doc.Messages, 2)
	assert.Equal(t, "NeuroChatAI", doc.AppInfo.Name)
}

func TestCheckEndpoint(t *testing.T) {
	client := &fakeClient{}
	svc, _ := newTestService(t, client, nil)

	assert.NoError(t, svc.CheckEndpoint(context.Background(), "http://localhost:1234"))

	var validationErr *ValidationError
	assert.ErrorAs(t, svc.CheckEndpoint(context.Background(), "nope"), &validationErr)

	client.health = llm.NewTransportError(assert.AnError)
	assert.True(t, llm.IsTransport(svc.CheckEndpoint(context.Background(), "http://localhost:1234")))
}
