package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sebsoto/mcp/internal/tools"
)

// ollamaRequest is the top-level structure for an Ollama /api/chat call.
type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Tools    []tools.Tool    `json:"tools,omitempty"`
	Stream   bool            `json:"stream"`
}

// ollamaMessage represents a single message in Ollama's chat format.
type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

// ollamaToolCall is a tool call as Ollama emits it. Unlike the OpenAI format
// there is no call ID and arguments arrive as a JSON object, not a string.
type ollamaToolCall struct {
	Function ollamaToolCallFunction `json:"function"`
}

type ollamaToolCallFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ollamaResponse is a successful non-streaming response from /api/chat.
type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// OllamaClient is the client for a local or remote Ollama server.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Statically verify that OllamaClient implements the ChatClient interface.
var _ ChatClient = (*OllamaClient)(nil)

// NewOllamaClient creates a configured client for the Ollama chat API.
func NewOllamaClient(baseURL, model string, timeout time.Duration) (*OllamaClient, error) {
	if baseURL == "" {
		return nil, errors.New("ollama base URL cannot be empty")
	}
	if model == "" {
		return nil, errors.New("ollama model cannot be empty")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// CompleteChat performs a blocking request against the Ollama chat endpoint.
func (c *OllamaClient) CompleteChat(
	ctx context.Context,
	messages []Message,
	availableTools []tools.Tool,
) (*ChatResult, error) {
	payload, err := c.buildRequestPayload(messages, availableTools)
	if err != nil {
		return nil, fmt.Errorf("failed to build ollama request payload: %w", err)
	}

	respBody, err := c.doRequest(ctx, payload)
	if err != nil {
		return nil, err // The error from doRequest is already descriptive.
	}

	return parseOllamaResponse(respBody)
}

// buildRequestPayload constructs the JSON body for the Ollama API call.
func (c *OllamaClient) buildRequestPayload(messages []Message, availableTools []tools.Tool) (*bytes.Buffer, error) {
	req := ollamaRequest{
		Model:    c.model,
		Messages: toOllamaMessages(messages),
		Tools:    availableTools,
		Stream:   false,
	}

	payloadBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	return bytes.NewBuffer(payloadBytes), nil
}

// doRequest performs the HTTP call with retries and exponential backoff.
func (c *OllamaClient) doRequest(ctx context.Context, payload *bytes.Buffer) ([]byte, error) {
	var lastErr error
	delay := initialRetryDelay

	for i := 0; i < maxRetries; i++ {
		// Use a bytes.Reader so the request body can be re-read on retry.
		req, err := c.createRequest(ctx, bytes.NewReader(payload.Bytes()))
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("ollama request canceled: %w", ctx.Err())
			}
			lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", i+1, maxRetries, err)
			time.Sleep(delay)
			delay *= 2
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("failed to read response body: %w", readErr)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		lastErr = fmt.Errorf("ollama API error (attempt %d/%d): status %d, body: %s", i+1, maxRetries, resp.StatusCode, string(body))

		// Do not retry on client errors (e.g., 400 Bad Request).
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, lastErr
		}

		time.Sleep(delay)
		delay *= 2
	}
	return nil, lastErr
}

// createRequest is a helper to build the common parts of an http.Request.
func (c *OllamaClient) createRequest(ctx context.Context, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// toOllamaMessages converts our internal message slice to Ollama's format.
// Tool result messages keep the plain "tool" role; Ollama correlates results
// positionally, so the call ID is dropped on the wire.
func toOllamaMessages(messages []Message) []ollamaMessage {
	ollamaMsgs := make([]ollamaMessage, 0, len(messages))
	for _, msg := range messages {
		m := ollamaMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		if msg.Role == RoleAssistant && len(msg.ToolCalls) > 0 {
			m.ToolCalls = make([]ollamaToolCall, 0, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				m.ToolCalls = append(m.ToolCalls, ollamaToolCall{
					Function: ollamaToolCallFunction{
						Name:      tc.Function.Name,
						Arguments: json.RawMessage(tc.Function.Arguments),
					},
				})
			}
		}
		ollamaMsgs = append(ollamaMsgs, m)
	}
	return ollamaMsgs
}

// parseOllamaResponse converts a full Ollama response to our internal
// ChatResult. Ollama tool calls carry no IDs, so one is synthesized per call;
// the rest of the gateway relies on IDs to correlate results with requests.
func parseOllamaResponse(body []byte) (*ChatResult, error) {
	var ollamaResp ollamaResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ollama response: %w", err)
	}

	result := &ChatResult{
		Content: ollamaResp.Message.Content,
	}

	if len(ollamaResp.Message.ToolCalls) > 0 {
		result.ToolCalls = make([]*tools.ToolCall, 0, len(ollamaResp.Message.ToolCalls))
		for _, tc := range ollamaResp.Message.ToolCalls {
			arguments := string(tc.Function.Arguments)
			if arguments == "" {
				arguments = "{}"
			}
			result.ToolCalls = append(result.ToolCalls, &tools.ToolCall{
				ID:   uuid.NewString(),
				Type: tools.ToolTypeFunction,
				Function: tools.ToolCallFunction{
					Name:      tc.Function.Name,
					Arguments: arguments,
				},
			})
		}
	}

	if result.Content == "" && len(result.ToolCalls) == 0 {
		return nil, errors.New("ollama returned an empty message")
	}
	return result, nil
}
