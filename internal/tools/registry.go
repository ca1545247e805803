package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sebsoto/mcp/internal/sandbox"
)

// defaultToolTimeout bounds a single executor call when no timeout is
// configured.
const defaultToolTimeout = 30 * time.Second

// registration pairs an executor with the sandbox policy guarding it, if any.
type registration struct {
	tool   ToolExecutor
	policy sandbox.Policy
}

// Registry maps tool names to their executors and enforces the invocation
// pipeline: schema validation, then sandbox policy, then the executor with a
// timeout and panic containment.
//
// The registry is built once at startup and never mutated afterwards, so it
// is safely shared read-concurrently by every session.
type Registry struct {
	tools       map[string]registration
	toolTimeout time.Duration
}

// NewRegistry creates an empty registry. toolTimeout bounds each executor
// call; zero means the default.
func NewRegistry(toolTimeout time.Duration) *Registry {
	if toolTimeout <= 0 {
		toolTimeout = defaultToolTimeout
	}
	return &Registry{
		tools:       make(map[string]registration),
		toolTimeout: toolTimeout,
	}
}

// Register adds an unguarded tool.
func (r *Registry) Register(tool ToolExecutor) {
	r.RegisterGuarded(tool, nil)
}

// RegisterGuarded adds a tool whose arguments must pass the given sandbox
// policy before the executor runs.
func (r *Registry) RegisterGuarded(tool ToolExecutor, policy sandbox.Policy) {
	name := tool.Definition().Function.Name
	r.tools[name] = registration{tool: tool, policy: policy}
}

// Lookup returns the executor registered under name.
func (r *Registry) Lookup(name string) (ToolExecutor, bool) {
	reg, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return reg.tool, true
}

// Definitions returns the schemas of all registered tools, for advertising
// to the backend model.
func (r *Registry) Definitions() []Tool {
	defs := make([]Tool, 0, len(r.tools))
	for _, reg := range r.tools {
		defs = append(defs, reg.tool.Definition())
	}
	return defs
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return len(r.tools)
}

// Invoke runs one tool call through the full pipeline. Every failure comes
// back as a *ToolError — an unknown tool, bad arguments, a sandbox denial, a
// timed-out or panicking executor all degrade to a result the conversation
// can absorb. Nothing here is allowed to take down the session.
func (r *Registry) Invoke(ctx context.Context, call *ToolCall) (string, error) {
	name := call.Function.Name
	reg, ok := r.tools[name]
	if !ok {
		return "", &ToolError{
			Kind:   KindToolNotFound,
			Tool:   name,
			Reason: fmt.Sprintf("tool '%s' is not registered", name),
		}
	}

	schema := reg.tool.Definition().Function.Parameters
	args, err := schema.ValidateArguments(call.Function.Arguments)
	if err != nil {
		return "", &ToolError{Kind: KindToolArgumentInvalid, Tool: name, Reason: err.Error()}
	}

	if reg.policy != nil {
		if err := reg.policy.Evaluate(args); err != nil {
			return "", &ToolError{Kind: KindSandboxDenied, Tool: name, Reason: err.Error()}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.toolTimeout)
	defer cancel()

	result, err := runExecutor(ctx, reg.tool, call.Function.Arguments)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &ToolError{
				Kind:   KindToolTimeout,
				Tool:   name,
				Reason: fmt.Sprintf("tool '%s' did not finish within %s", name, r.toolTimeout),
			}
		}
		return "", &ToolError{Kind: KindToolExecutionFailed, Tool: name, Reason: err.Error()}
	}
	return result, nil
}

// executorResult carries one executor outcome across the timeout boundary.
type executorResult struct {
	content string
	err     error
}

// runExecutor calls the executor in its own goroutine so a tool that ignores
// its context still cannot hold the turn past the deadline. A panicking
// executor is converted to an error rather than crashing the gateway.
func runExecutor(ctx context.Context, tool ToolExecutor, arguments string) (string, error) {
	done := make(chan executorResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- executorResult{err: fmt.Errorf("executor panicked: %v", p)}
			}
		}()
		content, err := tool.Execute(ctx, arguments)
		done <- executorResult{content: content, err: err}
	}()

	select {
	case res := <-done:
		return res.content, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
