package session

import (
	"context"
	"sync"

	"github.com/sebsoto/mcp/internal/llm"
)

// MemoryStore keeps transcripts in process memory. It is the default store
// for single-instance deployments and for tests; transcripts do not survive a
// restart.
type MemoryStore struct {
	mu          sync.RWMutex
	transcripts map[string][]llm.Message
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{transcripts: make(map[string][]llm.Message)}
}

func (s *MemoryStore) SaveTranscript(_ context.Context, key string, messages []llm.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts[key] = append([]llm.Message(nil), messages...)
	return nil
}

func (s *MemoryStore) LoadTranscript(_ context.Context, key string) ([]llm.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	messages, ok := s.transcripts[key]
	if !ok {
		return nil, nil
	}
	return append([]llm.Message(nil), messages...), nil
}

func (s *MemoryStore) DeleteTranscript(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transcripts, key)
	return nil
}
