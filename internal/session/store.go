// Package session holds per-session conversation state in memory.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neurochat-ai/neurochat/internal/model"
	"github.com/neurochat-ai/neurochat/pkg/metrics"
)

// Session owns one conversation state. All access goes through Run, which
// serialises turns of the same session.
type Session struct {
	ID string

	mu       sync.Mutex
	state    *model.ConversationState
	lastSeen time.Time
	now      func() time.Time
}

// Run executes fn with exclusive access to the session state.
func (s *Session) Run(fn func(state *model.ConversationState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = s.now()
	defer func() { s.lastSeen = s.now() }()

	return fn(s.state)
}

// Reset clears the message log, keeping the system prompt.
func (s *Session) Reset() {
	_ = s.Run(func(state *model.ConversationState) error {
		state.ClearMessages()
		return nil
	})
}

// SetSystemPrompt replaces the system prompt.
func (s *Session) SetSystemPrompt(systemPrompt string) {
	_ = s.Run(func(state *model.ConversationState) error {
		state.SystemPrompt = systemPrompt
		return nil
	})
}

// Store maps session ids to sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewStore creates an empty in-memory session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// GetOrInit returns the session for id, creating it with default state if it
// does not exist. An empty id always creates a new session with a fresh id.
func (s *Store) GetOrInit(id string) *Session {
	if id != "" {
		s.mu.RLock()
		sess, ok := s.sessions[id]
		s.mu.RUnlock()
		if ok {
			return sess
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	} else if sess, ok := s.sessions[id]; ok {
		return sess
	}

	sess := &Session{
		ID:       id,
		state:    model.NewConversationState(),
		lastSeen: s.now(),
		now:      s.now,
	}
	s.sessions[id] = sess
	metrics.SetActiveSessions(len(s.sessions))

	return sess
}

// Get returns an existing session.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Sweep drops sessions idle for longer than maxIdle and returns how many
// were removed. Sessions with a turn in progress are kept.
func (s *Store) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if !sess.mu.TryLock() {
			continue
		}
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()

		if idle {
			delete(s.sessions, id)
			removed++
		}
	}
	metrics.SetActiveSessions(len(s.sessions))

	return removed
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
