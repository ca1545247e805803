package tools

import "context"

// ToolExecutor is the contract every tool implements. The registry treats
// executors uniformly: it never needs to know what a tool does, only how to
// describe it and how to run it.
type ToolExecutor interface {
	// Definition returns the tool's schema, advertised to the backend
	// model so it understands the tool's name, purpose, and arguments.
	Definition() Tool

	// Execute runs the tool. Arguments arrive as the JSON string the
	// model produced, already validated against the schema from
	// Definition. The context carries the per-call timeout; executors
	// doing I/O must honor it.
	Execute(ctx context.Context, arguments string) (string, error)
}
