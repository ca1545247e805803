package session

import (
	"context"

	"github.com/sebsoto/mcp/internal/llm"
)

// Store persists session transcripts so a session can outlive an eviction or
// a gateway restart. Implementations must tolerate concurrent calls for
// different keys; the manager already serializes calls for one key.
type Store interface {
	// SaveTranscript writes the full transcript for key, replacing any
	// previous one.
	SaveTranscript(ctx context.Context, key string, messages []llm.Message) error

	// LoadTranscript returns the persisted transcript for key, or
	// (nil, nil) when none exists.
	LoadTranscript(ctx context.Context, key string) ([]llm.Message, error)

	// DeleteTranscript removes the transcript for key. Deleting a missing
	// key is not an error.
	DeleteTranscript(ctx context.Context, key string) error
}
