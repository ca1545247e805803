package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebsoto/mcp/internal/llm"
)

func TestConversationAppendAndSnapshot(t *testing.T) {
	conv := NewConversation()
	assert.Equal(t, 0, conv.Len())

	conv.Append(llm.Message{Role: llm.RoleUser, Content: "hello"})
	conv.Append(llm.Message{Role: llm.RoleAssistant, Content: "hi"})

	snapshot := conv.Messages()
	require.Len(t, snapshot, 2)

	// The snapshot is a copy: later appends do not leak into it.
	conv.Append(llm.Message{Role: llm.RoleUser, Content: "more"})
	assert.Len(t, snapshot, 2)
	assert.Equal(t, 3, conv.Len())
}

func TestRestoreConversation(t *testing.T) {
	original := []llm.Message{
		{Role: llm.RoleSystem, Content: "be helpful"},
		{Role: llm.RoleUser, Content: "hello"},
	}
	conv := RestoreConversation(original)

	require.Equal(t, 2, conv.Len())
	assert.Equal(t, original, conv.Messages())

	// Restoring copies: mutating the source does not touch the conversation.
	original[0].Content = "mutated"
	assert.Equal(t, "be helpful", conv.Messages()[0].Content)
}

func TestConversationConcurrentAppends(t *testing.T) {
	conv := NewConversation()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv.Append(llm.Message{Role: llm.RoleUser, Content: "x"})
			_ = conv.Messages()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, conv.Len())
}
