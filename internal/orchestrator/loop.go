// Package orchestrator drives the multi-turn tool-calling loop: submit the
// conversation to the backend, execute any requested tools, feed the results
// back, and repeat until the model answers in plain text or the iteration
// bound trips.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sebsoto/mcp/internal/llm"
	"github.com/sebsoto/mcp/internal/protocol"
	"github.com/sebsoto/mcp/internal/tools"
)

// defaultMaxIterations bounds backend round trips per turn when no limit is
// configured.
const defaultMaxIterations = 5

// Conversation is the message history the loop reads and extends. The session
// layer owns the concrete type; the loop only needs append and snapshot.
type Conversation interface {
	Append(msg llm.Message)
	Messages() []llm.Message
	Len() int
}

// Loop runs one user turn to completion against a backend and a tool
// registry. A Loop is stateless across turns and safe for concurrent use by
// multiple sessions.
type Loop struct {
	client         llm.ChatClient
	registry       *tools.Registry
	maxIterations  int
	backendTimeout time.Duration
	systemPrompt   string
}

// NewLoop creates the orchestration loop. maxIterations caps backend round
// trips per turn (zero means the default); backendTimeout bounds each backend
// call (zero means no per-call deadline beyond the caller's context).
func NewLoop(client llm.ChatClient, registry *tools.Registry, maxIterations int, backendTimeout time.Duration, systemPrompt string) *Loop {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	return &Loop{
		client:         client,
		registry:       registry,
		maxIterations:  maxIterations,
		backendTimeout: backendTimeout,
		systemPrompt:   systemPrompt,
	}
}

// TurnResult is the successful outcome of one user turn.
type TurnResult struct {
	// AssistantText is the model's final plain-text answer.
	AssistantText string
	// Trace records every tool call executed during the turn, in request
	// order across all iterations.
	Trace []protocol.ToolTraceEntry
}

// RunTurn appends the user's message and loops until the backend returns a
// terminal text response. Tool failures never abort the turn: each failed
// call degrades to a tool-role failure message the model can react to. A
// backend failure or an exhausted iteration bound returns an *AbortError; the
// conversation keeps everything appended up to that point.
func (l *Loop) RunTurn(ctx context.Context, conv Conversation, userText string) (*TurnResult, error) {
	if l.systemPrompt != "" && conv.Len() == 0 {
		conv.Append(llm.Message{Role: llm.RoleSystem, Content: l.systemPrompt})
	}
	conv.Append(llm.Message{Role: llm.RoleUser, Content: userText})

	var trace []protocol.ToolTraceEntry

	for i := 0; i < l.maxIterations; i++ {
		result, err := l.completeChat(ctx, conv.Messages())
		if err != nil {
			kind := KindBackendUnavailable
			if errors.Is(err, context.DeadlineExceeded) {
				kind = KindBackendTimeout
			}
			return nil, &AbortError{Kind: kind, Err: err}
		}

		if len(result.ToolCalls) == 0 {
			conv.Append(llm.Message{Role: llm.RoleAssistant, Content: result.Content})
			return &TurnResult{AssistantText: result.Content, Trace: trace}, nil
		}

		// The assistant message carrying the tool calls goes into the
		// history first, then one tool message per call in request order.
		conv.Append(llm.Message{
			Role:      llm.RoleAssistant,
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		})

		outcomes := l.dispatchToolCalls(ctx, result.ToolCalls)
		for idx, call := range result.ToolCalls {
			conv.Append(llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Content:    outcomes[idx].content,
			})
			trace = append(trace, outcomes[idx].traceEntry(call))
		}
	}

	return nil, &AbortError{Kind: KindIterationBound}
}

// completeChat submits one backend request under the per-call deadline.
func (l *Loop) completeChat(ctx context.Context, messages []llm.Message) (*llm.ChatResult, error) {
	if l.backendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.backendTimeout)
		defer cancel()
	}
	return l.client.CompleteChat(ctx, messages, l.registry.Definitions())
}

// toolOutcome is the result of one dispatched tool call.
type toolOutcome struct {
	content string
	err     *tools.ToolError
}

// traceEntry renders the outcome for the response trace.
func (o toolOutcome) traceEntry(call *tools.ToolCall) protocol.ToolTraceEntry {
	entry := protocol.ToolTraceEntry{
		ToolName:  call.Function.Name,
		Arguments: json.RawMessage(call.Function.Arguments),
		Status:    protocol.ToolStatusOK,
		Detail:    o.content,
	}
	if o.err != nil {
		entry.Status = protocol.ToolStatusError
		entry.Detail = o.err.Reason
	}
	return entry
}

// dispatchToolCalls runs all calls of one batch concurrently and returns their
// outcomes indexed by request order, so results are appended to the
// conversation in the order the model asked for them regardless of which
// executor finishes first.
func (l *Loop) dispatchToolCalls(ctx context.Context, calls []*tools.ToolCall) []toolOutcome {
	outcomes := make([]toolOutcome, len(calls))

	var wg sync.WaitGroup
	for idx, call := range calls {
		wg.Add(1)
		go func(idx int, call *tools.ToolCall) {
			defer wg.Done()
			outcomes[idx] = l.invoke(ctx, call)
		}(idx, call)
	}
	wg.Wait()

	return outcomes
}

// invoke runs one tool call and converts any failure into a conversational
// result. The failure reason becomes the tool message content so the model
// can see what went wrong and recover.
func (l *Loop) invoke(ctx context.Context, call *tools.ToolCall) toolOutcome {
	content, err := l.registry.Invoke(ctx, call)
	if err == nil {
		return toolOutcome{content: content}
	}

	var toolErr *tools.ToolError
	if !errors.As(err, &toolErr) {
		toolErr = &tools.ToolError{
			Kind:   tools.KindToolExecutionFailed,
			Tool:   call.Function.Name,
			Reason: err.Error(),
		}
	}
	log.Printf("⚠️ Tool call %s (%s) failed: %s", call.Function.Name, toolErr.Kind, toolErr.Reason)
	return toolOutcome{content: toolErr.Reason, err: toolErr}
}
