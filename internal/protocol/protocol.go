// Package protocol defines the payload contract exchanged between a chat
// client and the gateway. The transport framing (HTTP paths, headers) is the
// caller's concern; this package only owns the envelope shapes and their
// strict encoding rules.
//
// Malformed input never produces a partially-populated value: decoding either
// yields a fully valid envelope or a *ParseError describing what was wrong.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Error kinds reported to the client. These are part of the wire contract, so
// both the gateway handler and the console client reference them from here.
const (
	ErrKindProtocolParse      = "protocol_parse_error"
	ErrKindBackendUnavailable = "backend_unavailable"
	ErrKindBackendTimeout     = "backend_timeout"
	ErrKindIterationBound     = "iteration_bound_exceeded"
	ErrKindSessionClosed      = "session_closed"
	ErrKindInternal           = "internal_error"
)

// Outcome statuses for a single tool call in the trace.
const (
	ToolStatusOK    = "ok"
	ToolStatusError = "error"
)

// ChatRequest is one user turn submitted to the gateway.
type ChatRequest struct {
	// SessionKey selects (or lazily creates) the conversation this turn
	// belongs to. Client-chosen and opaque to the gateway.
	SessionKey string `json:"session_key"`
	// Text is the user's message for this turn.
	Text string `json:"text"`
}

// ToolTraceEntry records one tool invocation performed while producing the
// assistant's answer, in dispatch order.
type ToolTraceEntry struct {
	ToolName string `json:"tool_name"`
	// Arguments is the raw JSON object the backend supplied for the call.
	Arguments json.RawMessage `json:"arguments,omitempty"`
	// Status is ToolStatusOK or ToolStatusError.
	Status string `json:"status"`
	// Detail is the tool output on success, or the failure reason.
	Detail string `json:"detail"`
}

// ErrorInfo is the structured error surface of a failed turn.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ChatResponse is the gateway's answer to one ChatRequest. Exactly one of
// the success fields (AssistantText, plus an optional ToolTrace) or Error is
// meaningful.
type ChatResponse struct {
	AssistantText string           `json:"assistant_text,omitempty"`
	ToolTrace     []ToolTraceEntry `json:"tool_trace,omitempty"`
	Error         *ErrorInfo       `json:"error,omitempty"`
}

// ParseError reports a malformed envelope. It is returned before any session
// state is touched.
type ParseError struct {
	// Field names the offending field when known, e.g. "session_key".
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid envelope: field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid envelope: %s", e.Reason)
}

// EncodeRequest serializes a ChatRequest for the wire.
func EncodeRequest(req *ChatRequest) ([]byte, error) {
	return json.Marshal(req)
}

// DecodeRequest parses and validates a ChatRequest. Unknown fields, wrong
// value types, and missing required fields all fail with a *ParseError.
func DecodeRequest(data []byte) (*ChatRequest, error) {
	var req ChatRequest
	if err := decodeStrict(data, &req); err != nil {
		return nil, err
	}
	if req.SessionKey == "" {
		return nil, &ParseError{Field: "session_key", Reason: "required"}
	}
	if req.Text == "" {
		return nil, &ParseError{Field: "text", Reason: "required"}
	}
	return &req, nil
}

// EncodeResponse serializes a ChatResponse for the wire.
func EncodeResponse(resp *ChatResponse) ([]byte, error) {
	return json.Marshal(resp)
}

// DecodeResponse parses and validates a ChatResponse.
func DecodeResponse(data []byte) (*ChatResponse, error) {
	var resp ChatResponse
	if err := decodeStrict(data, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil && resp.Error.Kind == "" {
		return nil, &ParseError{Field: "error.kind", Reason: "required when error is present"}
	}
	for i, entry := range resp.ToolTrace {
		if entry.Status != ToolStatusOK && entry.Status != ToolStatusError {
			return nil, &ParseError{
				Field:  fmt.Sprintf("tool_trace[%d].status", i),
				Reason: fmt.Sprintf("unknown status %q", entry.Status),
			}
		}
	}
	return &resp, nil
}

// decodeStrict unmarshals into v rejecting unknown fields and trailing data.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &ParseError{Reason: err.Error()}
	}
	// A second document after the envelope is as malformed as a bad field.
	if dec.More() {
		return &ParseError{Reason: "trailing data after envelope"}
	}
	return nil
}
