package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/sebsoto/mcp/internal/tools"
)

// GeminiClient is the client for interacting with Google's Gemini models.
type GeminiClient struct {
	client *genai.GenerativeModel
}

var _ ChatClient = (*GeminiClient)(nil)

func NewGeminiClient(apiKey, modelID string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key cannot be empty")
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := client.GenerativeModel(modelID)
	model.SetMaxOutputTokens(4096)
	return &GeminiClient{client: model}, nil
}

// CompleteChat performs a blocking request to the Gemini API.
func (c *GeminiClient) CompleteChat(
	ctx context.Context,
	messages []Message,
	availableTools []tools.Tool,
) (*ChatResult, error) {
	if len(messages) == 0 {
		return nil, errors.New("gemini request requires at least one message")
	}

	model := c.modelForRequest(availableTools)
	chat := model.StartChat()
	chat.History = toGeminiContentHistory(messages)

	lastMessage := messages[len(messages)-1]
	resp, err := chat.SendMessage(ctx, lastMessageParts(lastMessage)...)
	if err != nil {
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	return parseGeminiResponse(resp)
}

// modelForRequest returns a shallow copy of the shared model carrying this
// request's tool schemas. One GeminiClient serves every session concurrently,
// so the shared model itself is never mutated after construction.
func (c *GeminiClient) modelForRequest(availableTools []tools.Tool) *genai.GenerativeModel {
	model := *c.client
	if len(availableTools) > 0 {
		model.Tools = toGeminiTools(availableTools)
	} else {
		model.Tools = nil
	}
	return &model
}

// toGeminiTools converts our internal tool definition to the Gemini SDK's format.
func toGeminiTools(toolsToConvert []tools.Tool) []*genai.Tool {
	var geminiTools []*genai.Tool
	for _, t := range toolsToConvert {
		funcDecl := &genai.FunctionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  convertSchema(t.Function.Parameters),
		}
		geminiTools = append(geminiTools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{funcDecl},
		})
	}
	return geminiTools
}

// convertSchema is a helper function to convert our JSONSchema to the Gemini SDK's schema type.
func convertSchema(s tools.JSONSchema) *genai.Schema {
	genaiSchema := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
	}
	switch s.Type {
	case "object":
		genaiSchema.Type = genai.TypeObject
	case "string":
		genaiSchema.Type = genai.TypeString
	case "number":
		genaiSchema.Type = genai.TypeNumber
	case "integer":
		genaiSchema.Type = genai.TypeInteger
	case "boolean":
		genaiSchema.Type = genai.TypeBoolean
	case "array":
		genaiSchema.Type = genai.TypeArray
	}
	if s.Properties != nil {
		genaiSchema.Properties = make(map[string]*genai.Schema)
		for k, v := range s.Properties {
			genaiSchema.Properties[k] = convertSchema(*v)
		}
	}
	return genaiSchema
}

// toGeminiContentHistory converts our message history to the Gemini SDK's
// format. The last message is the new prompt and is excluded from history.
func toGeminiContentHistory(messages []Message) []*genai.Content {
	var history []*genai.Content
	for i := range messages[:len(messages)-1] {
		msg := messages[i]
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: messageParts(msg),
		})
	}
	return history
}

// lastMessageParts builds the SendMessage parts for the newest message.
func lastMessageParts(msg Message) []genai.Part {
	return messageParts(msg)
}

// messageParts maps one internal message onto Gemini parts. Assistant tool
// calls become FunctionCall parts and tool results become FunctionResponse
// parts, so a resubmitted multi-turn tool exchange round-trips correctly.
func messageParts(msg Message) []genai.Part {
	var parts []genai.Part

	if msg.Role == RoleTool {
		// Call IDs are synthesized as "gemini-toolcall-<name>"; Gemini wants
		// the bare function name back in the response part.
		parts = append(parts, genai.FunctionResponse{
			Name: strings.TrimPrefix(msg.ToolCallID, "gemini-toolcall-"),
			Response: map[string]any{
				"content": msg.Content,
			},
		})
		return parts
	}

	if msg.Content != "" {
		parts = append(parts, genai.Text(msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			log.Printf("Warning: could not decode tool call args for %s: %v", tc.Function.Name, err)
			args = map[string]any{}
		}
		parts = append(parts, genai.FunctionCall{
			Name: tc.Function.Name,
			Args: args,
		})
	}
	if len(parts) == 0 {
		parts = append(parts, genai.Text(""))
	}
	return parts
}

// parseGeminiResponse converts a Gemini API response into our internal ChatResult.
func parseGeminiResponse(resp *genai.GenerateContentResponse) (*ChatResult, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("no content returned from Gemini")
	}

	candidate := resp.Candidates[0]
	var contentBuilder strings.Builder
	var toolCalls []*tools.ToolCall

	for _, part := range candidate.Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			contentBuilder.WriteString(string(v))
		case genai.FunctionCall:
			argsJSON, err := json.Marshal(v.Args)
			if err != nil {
				log.Printf("Warning: could not marshal tool call args: %v", err)
				continue
			}
			toolCalls = append(toolCalls, &tools.ToolCall{
				ID:   fmt.Sprintf("gemini-toolcall-%s", v.Name),
				Type: tools.ToolTypeFunction,
				Function: tools.ToolCallFunction{
					Name:      v.Name,
					Arguments: string(argsJSON),
				},
			})
		}
	}

	return &ChatResult{
		Content:   strings.TrimSpace(contentBuilder.String()),
		ToolCalls: toolCalls,
	}, nil
}
