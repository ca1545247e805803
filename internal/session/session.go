package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session binds a client-chosen key to one conversation. The turn mutex is
// the admission gate: at most one turn runs per session at any moment, so two
// requests racing on the same key can never interleave their messages.
type Session struct {
	// ID is the internal identity, distinct from the client-chosen Key.
	ID  uuid.UUID
	Key string

	Conversation *Conversation
	CreatedAt    time.Time

	// turnMu serializes turns. Held for the full duration of a turn,
	// including all backend round trips.
	turnMu sync.Mutex

	mu           sync.Mutex
	lastActivity time.Time
	closed       bool
}

func newSession(key string) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.New(),
		Key:          key,
		Conversation: NewConversation(),
		CreatedAt:    now,
		lastActivity: now,
	}
}

// LastActivity returns when the session last started or finished a turn.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// Closed reports whether the session has been closed. A closed session
// rejects new turns permanently.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
