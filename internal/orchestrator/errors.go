package orchestrator

import "fmt"

// AbortKind classifies why a turn was aborted. Unlike tool failures, which
// degrade to conversational results, an abort ends the turn with no final
// assistant text.
type AbortKind string

const (
	KindBackendUnavailable AbortKind = "backend_unavailable"
	KindBackendTimeout     AbortKind = "backend_timeout"
	KindIterationBound     AbortKind = "iteration_bound_exceeded"
)

// AbortError reports an aborted turn. The conversation up to the abort point
// is retained; only the turn's outcome is lost.
type AbortError struct {
	Kind AbortKind
	Err  error
}

func (e *AbortError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("turn aborted: %s", e.Kind)
	}
	return fmt.Sprintf("turn aborted: %s: %v", e.Kind, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}
