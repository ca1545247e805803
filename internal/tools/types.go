// Package tools defines the gateway's tool-calling layer: the schema types
// describing a tool to the backend model, the executor contract, and the
// registry that validates, sandboxes, and dispatches tool calls.
package tools

import (
	"encoding/json"
	"fmt"
	"math"
)

// ToolTypeFunction is the standard type for function-based tools.
const ToolTypeFunction = "function"

// Tool is the schema advertised to the backend model so it knows a tool
// exists, what it does, and which arguments it takes.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function is the name, description, and parameter schema of a callable tool.
// The description matters: the model decides from it when to use the tool.
type Function struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  JSONSchema `json:"parameters"`
}

// JSONSchema is a structured subset of JSON Schema used for tool parameters.
// Keeping it typed (instead of map[string]interface{}) makes definitions
// checkable and lets the registry validate arguments before dispatch.
type JSONSchema struct {
	// Type is the data type of this node: "object" for the top-level
	// parameters, or "string", "number", "integer", "boolean", "array".
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
}

// ToolCall is a request from the backend model to execute one tool.
type ToolCall struct {
	// ID correlates this request with its result message; unique within a
	// conversation.
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction carries the name and JSON-encoded arguments of a call.
type ToolCallFunction struct {
	Name string `json:"name"`
	// Arguments is a JSON object as a string, exactly as the model emitted
	// it. It is validated against the tool's schema before any executor
	// sees it.
	Arguments string `json:"arguments"`
}

// NewFunctionTool builds a Tool with the standard "function" type.
func NewFunctionTool(name, description string, parameters JSONSchema) Tool {
	return Tool{
		Type: ToolTypeFunction,
		Function: Function{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// ValidateArguments parses raw as a JSON object and checks it against the
// schema: every required key must be present, and every declared key that is
// present must have the declared kind. It returns the decoded arguments so
// callers (the sandbox policy, in particular) can inspect them without
// re-parsing.
//
// Model output is duck-typed by nature; this is the single choke point that
// turns a bad argument into a typed validation error instead of a runtime
// type failure deeper in an executor.
func (s JSONSchema) ValidateArguments(raw string) (map[string]any, error) {
	if raw == "" {
		raw = "{}"
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	for _, key := range s.Required {
		if _, ok := args[key]; !ok {
			return nil, fmt.Errorf("missing required argument %q", key)
		}
	}
	for key, prop := range s.Properties {
		value, ok := args[key]
		if !ok {
			continue
		}
		if err := checkKind(prop.Type, value); err != nil {
			return nil, fmt.Errorf("argument %q: %w", key, err)
		}
	}
	return args, nil
}

// checkKind verifies a decoded JSON value against a schema type name.
func checkKind(want string, value any) error {
	switch want {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("expected number, got %T", value)
		}
	case "integer":
		f, ok := value.(float64)
		if !ok || f != math.Trunc(f) {
			return fmt.Errorf("expected integer, got %v", value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
	}
	return nil
}
