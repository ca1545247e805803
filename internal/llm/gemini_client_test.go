package llm

import (
	"sync"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebsoto/mcp/internal/tools"
)

func testTool(name string) tools.Tool {
	return tools.NewFunctionTool(name, "test tool", tools.JSONSchema{
		Type: "object",
		Properties: map[string]*tools.JSONSchema{
			"path": {Type: "string"},
		},
		Required: []string{"path"},
	})
}

func TestModelForRequestDoesNotMutateSharedModel(t *testing.T) {
	client := &GeminiClient{client: &genai.GenerativeModel{}}

	withTools := client.modelForRequest([]tools.Tool{testTool("file_read")})
	require.Len(t, withTools.Tools, 1)
	assert.Equal(t, "file_read", withTools.Tools[0].FunctionDeclarations[0].Name)

	// The shared model is untouched, and a tool-less request gets a copy
	// with no tools even after a tooled one.
	assert.Nil(t, client.client.Tools)
	assert.Nil(t, client.modelForRequest(nil).Tools)
	assert.NotSame(t, client.client, withTools)
}

func TestModelForRequestConcurrentUse(t *testing.T) {
	client := &GeminiClient{client: &genai.GenerativeModel{}}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(tooled bool) {
			defer wg.Done()
			if tooled {
				model := client.modelForRequest([]tools.Tool{testTool("calculate")})
				assert.Len(t, model.Tools, 1)
			} else {
				assert.Nil(t, client.modelForRequest(nil).Tools)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	assert.Nil(t, client.client.Tools)
}

func TestConvertSchemaKinds(t *testing.T) {
	schema := convertSchema(tools.JSONSchema{
		Type: "object",
		Properties: map[string]*tools.JSONSchema{
			"path":  {Type: "string", Description: "a path"},
			"count": {Type: "integer"},
			"ratio": {Type: "number"},
			"deep":  {Type: "boolean"},
			"tags":  {Type: "array"},
		},
		Required: []string{"path"},
	})

	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, []string{"path"}, schema.Required)
	assert.Equal(t, genai.TypeString, schema.Properties["path"].Type)
	assert.Equal(t, "a path", schema.Properties["path"].Description)
	assert.Equal(t, genai.TypeInteger, schema.Properties["count"].Type)
	assert.Equal(t, genai.TypeNumber, schema.Properties["ratio"].Type)
	assert.Equal(t, genai.TypeBoolean, schema.Properties["deep"].Type)
	assert.Equal(t, genai.TypeArray, schema.Properties["tags"].Type)
}
