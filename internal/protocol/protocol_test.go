package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	orig := &ChatRequest{SessionKey: "alice", Text: "Read /tmp/allowed_files/payload.txt"}

	data, err := EncodeRequest(orig)
	require.NoError(t, err)

	decoded, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, orig, decoded)
}

func TestResponseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		resp *ChatResponse
	}{
		{
			name: "plain text answer",
			resp: &ChatResponse{AssistantText: "The file says hello."},
		},
		{
			name: "answer with tool trace",
			resp: &ChatResponse{
				AssistantText: "Done.",
				ToolTrace: []ToolTraceEntry{
					{ToolName: "file_read", Arguments: json.RawMessage(`{"path":"/tmp/allowed_files/a.txt"}`), Status: ToolStatusOK, Detail: "File: /tmp/allowed_files/a.txt"},
					{ToolName: "file_read", Arguments: json.RawMessage(`{"path":"/etc/passwd"}`), Status: ToolStatusError, Detail: "Access denied: path must be within /tmp/allowed_files"},
				},
			},
		},
		{
			name: "error envelope",
			resp: &ChatResponse{Error: &ErrorInfo{Kind: ErrKindBackendTimeout, Message: "backend did not answer in time"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeResponse(tt.resp)
			require.NoError(t, err)

			decoded, err := DecodeResponse(data)
			require.NoError(t, err)
			assert.Equal(t, tt.resp, decoded)
		})
	}
}

func TestDecodeRequestRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `hello`},
		{"wrong type for text", `{"session_key":"a","text":42}`},
		{"missing session key", `{"text":"hi"}`},
		{"empty session key", `{"session_key":"","text":"hi"}`},
		{"missing text", `{"session_key":"a"}`},
		{"unknown field", `{"session_key":"a","text":"hi","mode":"turbo"}`},
		{"trailing document", `{"session_key":"a","text":"hi"}{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest([]byte(tt.input))
			assert.Nil(t, req, "malformed input must not yield a partial value")

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr), "expected *ParseError, got %v", err)
		})
	}
}

func TestDecodeResponseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"error without kind", `{"error":{"message":"boom"}}`},
		{"unknown trace status", `{"assistant_text":"ok","tool_trace":[{"tool_name":"x","status":"maybe","detail":""}]}`},
		{"wrong type for trace", `{"assistant_text":"ok","tool_trace":"none"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := DecodeResponse([]byte(tt.input))
			assert.Nil(t, resp)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr), "expected *ParseError, got %v", err)
		})
	}
}
