// Package session owns conversation state: the append-only message history,
// the per-session turn lock, and the manager that routes user messages into
// the orchestration loop and persists transcripts.
package session

import (
	"sync"

	"github.com/sebsoto/mcp/internal/llm"
)

// Conversation is an append-only message history. Messages are never edited
// or removed once appended; a turn only ever extends the tail.
type Conversation struct {
	mu       sync.RWMutex
	messages []llm.Message
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// RestoreConversation rebuilds a conversation from a persisted transcript.
func RestoreConversation(messages []llm.Message) *Conversation {
	return &Conversation{messages: append([]llm.Message(nil), messages...)}
}

// Append adds one message to the tail.
func (c *Conversation) Append(msg llm.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// Messages returns a snapshot copy of the history. Callers can hold it across
// a backend round trip without racing concurrent appends.
func (c *Conversation) Messages() []llm.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]llm.Message(nil), c.messages...)
}

// Len returns the number of messages in the history.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}
