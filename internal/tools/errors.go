package tools

import "fmt"

// FailureKind classifies why a tool call failed. Every kind degrades to a
// conversational failure result; none of them aborts the turn.
type FailureKind string

const (
	KindToolNotFound        FailureKind = "tool_not_found"
	KindToolArgumentInvalid FailureKind = "tool_argument_invalid"
	KindSandboxDenied       FailureKind = "sandbox_denied"
	KindToolExecutionFailed FailureKind = "tool_execution_failed"
	KindToolTimeout         FailureKind = "tool_timeout"
)

// ToolError is the failure outcome of Registry.Invoke. Reason is the
// user-visible text appended to the conversation, so the backend model can
// see what went wrong and recover.
type ToolError struct {
	Kind   FailureKind
	Tool   string
	Reason string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q: %s: %s", e.Tool, e.Kind, e.Reason)
}
