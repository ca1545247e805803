package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebsoto/mcp/internal/sandbox"
)

// mockExecutor lets each test supply behavior through function fields.
type mockExecutor struct {
	definition Tool
	executeFn  func(ctx context.Context, arguments string) (string, error)
}

var _ ToolExecutor = (*mockExecutor)(nil)

func (m *mockExecutor) Definition() Tool {
	return m.definition
}

func (m *mockExecutor) Execute(ctx context.Context, arguments string) (string, error) {
	return m.executeFn(ctx, arguments)
}

func newMockExecutor(name string, fn func(ctx context.Context, arguments string) (string, error)) *mockExecutor {
	return &mockExecutor{
		definition: NewFunctionTool(name, "test tool", JSONSchema{
			Type: "object",
			Properties: map[string]*JSONSchema{
				"path": {Type: "string"},
			},
			Required: []string{"path"},
		}),
		executeFn: fn,
	}
}

func newCall(name, arguments string) *ToolCall {
	return &ToolCall{
		ID:   "call-1",
		Type: ToolTypeFunction,
		Function: ToolCallFunction{
			Name:      name,
			Arguments: arguments,
		},
	}
}

func requireToolError(t *testing.T, err error, kind FailureKind) *ToolError {
	t.Helper()
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, kind, toolErr.Kind)
	return toolErr
}

func TestRegistryInvokeUnknownTool(t *testing.T) {
	registry := NewRegistry(0)

	result, err := registry.Invoke(context.Background(), newCall("nope", `{}`))

	assert.Empty(t, result)
	toolErr := requireToolError(t, err, KindToolNotFound)
	assert.Equal(t, "nope", toolErr.Tool)
	assert.Contains(t, toolErr.Reason, "'nope' is not registered")
}

func TestRegistryInvokeInvalidArguments(t *testing.T) {
	registry := NewRegistry(0)
	registry.Register(newMockExecutor("echo", func(_ context.Context, _ string) (string, error) {
		t.Fatal("executor must not run when validation fails")
		return "", nil
	}))

	_, err := registry.Invoke(context.Background(), newCall("echo", `{"wrong":true}`))

	toolErr := requireToolError(t, err, KindToolArgumentInvalid)
	assert.Contains(t, toolErr.Reason, `missing required argument "path"`)
}

func TestRegistryInvokeSandboxDenied(t *testing.T) {
	root := t.TempDir()
	allowed := filepath.Join(root, "allowed_files")
	require.NoError(t, os.Mkdir(allowed, 0o755))

	policy, err := sandbox.NewPathPolicy("path", allowed)
	require.NoError(t, err)

	registry := NewRegistry(0)
	registry.RegisterGuarded(newMockExecutor("file_read", func(_ context.Context, _ string) (string, error) {
		t.Fatal("executor must not run when the sandbox denies")
		return "", nil
	}), policy)

	outside := filepath.Join(root, "secret.txt")
	_, err = registry.Invoke(context.Background(), newCall("file_read", `{"path":"`+outside+`"}`))

	toolErr := requireToolError(t, err, KindSandboxDenied)
	assert.Equal(t, "Access denied: File path must be within "+policy.Root(), toolErr.Reason)
}

func TestRegistryInvokeSandboxAllowed(t *testing.T) {
	root := t.TempDir()
	allowed := filepath.Join(root, "allowed_files")
	require.NoError(t, os.Mkdir(allowed, 0o755))

	policy, err := sandbox.NewPathPolicy("path", allowed)
	require.NoError(t, err)

	registry := NewRegistry(0)
	registry.RegisterGuarded(newMockExecutor("file_read", func(_ context.Context, arguments string) (string, error) {
		return "content of " + arguments, nil
	}), policy)

	inside := filepath.Join(allowed, "payload.txt")
	result, err := registry.Invoke(context.Background(), newCall("file_read", `{"path":"`+inside+`"}`))

	require.NoError(t, err)
	assert.Contains(t, result, "payload.txt")
}

func TestRegistryInvokeExecutorError(t *testing.T) {
	registry := NewRegistry(0)
	registry.Register(newMockExecutor("echo", func(_ context.Context, _ string) (string, error) {
		return "", errors.New("disk on fire")
	}))

	_, err := registry.Invoke(context.Background(), newCall("echo", `{"path":"x"}`))

	toolErr := requireToolError(t, err, KindToolExecutionFailed)
	assert.Contains(t, toolErr.Reason, "disk on fire")
}

func TestRegistryInvokeExecutorPanic(t *testing.T) {
	registry := NewRegistry(0)
	registry.Register(newMockExecutor("echo", func(_ context.Context, _ string) (string, error) {
		panic("boom")
	}))

	_, err := registry.Invoke(context.Background(), newCall("echo", `{"path":"x"}`))

	toolErr := requireToolError(t, err, KindToolExecutionFailed)
	assert.Contains(t, toolErr.Reason, "boom")
}

func TestRegistryInvokeTimeout(t *testing.T) {
	registry := NewRegistry(20 * time.Millisecond)
	registry.Register(newMockExecutor("slow", func(_ context.Context, _ string) (string, error) {
		// Deliberately ignores its context.
		time.Sleep(500 * time.Millisecond)
		return "too late", nil
	}))

	start := time.Now()
	_, err := registry.Invoke(context.Background(), newCall("slow", `{"path":"x"}`))

	assert.Less(t, time.Since(start), 400*time.Millisecond)
	toolErr := requireToolError(t, err, KindToolTimeout)
	assert.Contains(t, toolErr.Reason, "did not finish within")
}

func TestRegistryDefinitionsAndLookup(t *testing.T) {
	registry := NewRegistry(0)
	registry.Register(NewCalculatorTool())
	registry.Register(NewFileReadTool("/tmp/allowed_files"))

	assert.Equal(t, 2, registry.Count())

	defs := registry.Definitions()
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Function.Name)
	}
	assert.ElementsMatch(t, []string{"calculate", "file_read"}, names)

	_, ok := registry.Lookup("calculate")
	assert.True(t, ok)
	_, ok = registry.Lookup("missing")
	assert.False(t, ok)
}
