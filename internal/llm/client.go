// Package llm abstracts the backend model behind a small chat-completion
// interface so the orchestration loop never depends on a particular provider's
// wire format.
package llm

import (
	"context"

	"github.com/sebsoto/mcp/internal/tools"
)

// Role represents the originator of a message in a conversation.
// Using a defined type and constants prevents typos and improves code clarity.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single message in a conversation history.
type Message struct {
	Role       Role              `json:"role"`
	Content    string            `json:"content"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	ToolCalls  []*tools.ToolCall `json:"tool_calls,omitempty"`
}

// ChatResult holds the complete output of one chat completion. Exactly one of
// Content and ToolCalls is meaningful per turn in practice, but some models
// emit both at once, so both are carried.
type ChatResult struct {
	// The generated text content from the model.
	Content string
	// Tool calls requested by the model. Models can request multiple tools
	// in one response, so this is a slice.
	ToolCalls []*tools.ToolCall
}

// ChatClient is the interface every backend model client implements.
type ChatClient interface {
	// CompleteChat submits the full conversation history plus the
	// advertised tool schemas and blocks for one complete model response.
	CompleteChat(
		ctx context.Context,
		messages []Message,
		availableTools []tools.Tool,
	) (*ChatResult, error)
}
