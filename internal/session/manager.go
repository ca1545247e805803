package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sebsoto/mcp/internal/orchestrator"
)

var (
	// ErrSessionClosed rejects a turn submitted to a closed session.
	ErrSessionClosed = errors.New("session is closed")

	// ErrSessionNotFound reports a close for a key with no live session.
	ErrSessionNotFound = errors.New("session not found")
)

// TurnRunner runs one user turn against a conversation. Satisfied by
// *orchestrator.Loop.
type TurnRunner interface {
	RunTurn(ctx context.Context, conv orchestrator.Conversation, userText string) (*orchestrator.TurnResult, error)
}

// Manager owns the live session table. It serializes turns per session,
// restores evicted sessions from the store, and evicts idle sessions in the
// background.
type Manager struct {
	runner  TurnRunner
	store   Store
	idleTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*Session

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewManager creates a manager and starts its idle-eviction janitor. idleTTL
// of zero disables eviction.
func NewManager(runner TurnRunner, store Store, idleTTL time.Duration) *Manager {
	m := &Manager{
		runner:   runner,
		store:    store,
		idleTTL:  idleTTL,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
	if idleTTL > 0 {
		m.wg.Add(1)
		go m.janitor()
	}
	return m
}

// GetOrCreate returns the live session for key, restoring its transcript from
// the store when the session was evicted, or creating a fresh one. Concurrent
// calls with the same key get the same *Session.
//
// The store read happens outside the manager lock so a slow restore for one
// key never stalls lookups for every other key. Two racing creators both
// load; the insert is double-checked and the loser adopts the winner.
func (m *Manager) GetOrCreate(ctx context.Context, key string) (*Session, error) {
	m.mu.Lock()
	if sess, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return sess, nil
	}
	m.mu.Unlock()

	transcript, err := m.store.LoadTranscript(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session %q: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[key]; ok {
		return sess, nil
	}

	sess := newSession(key)
	if len(transcript) > 0 {
		sess.Conversation = RestoreConversation(transcript)
		log.Printf("🔄 Restored session %q with %d messages from the store.", key, len(transcript))
	}

	m.sessions[key] = sess
	return sess, nil
}

// isCurrent reports whether sess is still the session mapped for key.
func (m *Manager) isCurrent(key string, sess *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[key] == sess
}

// SubmitUserMessage runs one turn for the session identified by key. Turns on
// the same session run strictly one at a time; a second submit blocks until
// the first finishes. The transcript is persisted after every turn, aborted
// or not, since an abort still extends the conversation.
func (m *Manager) SubmitUserMessage(ctx context.Context, key, text string) (*orchestrator.TurnResult, error) {
	var sess *Session
	for {
		var err error
		sess, err = m.GetOrCreate(ctx, key)
		if err != nil {
			return nil, err
		}

		sess.turnMu.Lock()
		if sess.Closed() {
			sess.turnMu.Unlock()
			return nil, ErrSessionClosed
		}
		// The janitor may have evicted this session between the lookup and
		// the lock, and a racing submit may already be running a turn on the
		// key's replacement. Running here anyway would put two loops on one
		// key, so start over with the currently mapped session.
		if !m.isCurrent(key, sess) {
			sess.turnMu.Unlock()
			continue
		}
		break
	}
	defer sess.turnMu.Unlock()

	sess.touch()
	result, runErr := m.runner.RunTurn(ctx, sess.Conversation, text)
	sess.touch()

	if saveErr := m.store.SaveTranscript(ctx, key, sess.Conversation.Messages()); saveErr != nil {
		log.Printf("WARNING: Failed to persist transcript for session %q: %v", key, saveErr)
	}

	return result, runErr
}

// CloseSession removes the session and its transcript. It waits for any
// in-flight turn to finish; a turn submitted after the close starts is
// rejected with ErrSessionClosed.
//
// The key stays mapped to the closing session until its loop has drained and
// the transcript is gone. Unmapping earlier would let a racing submit recycle
// the key into a second live session while the first turn is still running,
// restore a transcript the in-flight turn is about to overwrite, and then
// lose that transcript to the delete below.
func (m *Manager) CloseSession(ctx context.Context, key string) error {
	m.mu.Lock()
	sess, ok := m.sessions[key]
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	sess.markClosed()

	// Wait out the in-flight turn. New submits on the still-mapped session
	// now fail with ErrSessionClosed instead of starting a turn.
	sess.turnMu.Lock()
	defer sess.turnMu.Unlock()

	if err := m.store.DeleteTranscript(ctx, key); err != nil {
		return fmt.Errorf("failed to delete transcript for session %q: %w", key, err)
	}

	m.mu.Lock()
	if m.sessions[key] == sess {
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	log.Printf("🗑️ Closed session %q.", key)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops the janitor. Live sessions stay persisted in the store.
func (m *Manager) Close() {
	close(m.stop)
	m.wg.Wait()
}

// janitor periodically evicts sessions idle past the TTL. Evicted sessions
// are not closed: their transcript stays in the store and the next submit
// restores them.
func (m *Manager) janitor() {
	defer m.wg.Done()

	interval := m.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *Manager) evictIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, sess := range m.sessions {
		if time.Since(sess.LastActivity()) < m.idleTTL {
			continue
		}
		// A session mid-turn holds its lock and is not idle, and a closing
		// session belongs to CloseSession until it is done with it.
		if !sess.turnMu.TryLock() {
			continue
		}
		closed := sess.Closed()
		sess.turnMu.Unlock()
		if closed {
			continue
		}
		delete(m.sessions, key)
		log.Printf("🧹 Evicted idle session %q.", key)
	}
}
