package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileReadTool reads a file from the local filesystem and returns its content
// with basic metadata. Path containment is not checked here: the registry's
// sandbox policy has already approved the path by the time Execute runs.
type FileReadTool struct {
	root string
}

var _ ToolExecutor = (*FileReadTool)(nil)

// NewFileReadTool creates the file_read tool. root is only used in the
// schema description so the model knows where it is allowed to read.
func NewFileReadTool(root string) *FileReadTool {
	return &FileReadTool{root: root}
}

// Definition describes the tool to the backend model.
func (ft *FileReadTool) Definition() Tool {
	return NewFunctionTool(
		"file_read",
		fmt.Sprintf("Read the contents of a file from the filesystem. The path must be within %s", ft.root),
		JSONSchema{
			Type: "object",
			Properties: map[string]*JSONSchema{
				"path": {
					Type:        "string",
					Description: "The file path to read",
				},
			},
			Required: []string{"path"},
		},
	)
}

// Execute reads the requested file and formats a result block the model can
// quote from.
func (ft *FileReadTool) Execute(_ context.Context, arguments string) (string, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments for file_read: %w", err)
	}

	info, err := os.Stat(args.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", args.Path)
		}
		return "", fmt.Errorf("failed to stat file '%s': %w", args.Path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is not a file: %s", args.Path)
	}

	content, err := os.ReadFile(args.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read file '%s': %w", args.Path, err)
	}

	mimeType := guessMIMEType(args.Path)
	if mimeType == "" {
		mimeType = "unknown"
	}
	return fmt.Sprintf("File: %s\nSize: %d bytes\nMIME Type: %s\n\nContent:\n%s",
		args.Path, len(content), mimeType, string(content)), nil
}

// guessMIMEType maps common file extensions to MIME types. Unknown
// extensions return the empty string.
func guessMIMEType(path string) string {
	switch filepath.Ext(path) {
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".go":
		return "text/x-go"
	case ".py":
		return "text/x-python"
	case ".js":
		return "text/javascript"
	case ".ts":
		return "text/typescript"
	case ".json":
		return "application/json"
	case ".xml":
		return "application/xml"
	case ".html":
		return "text/html"
	case ".css":
		return "text/css"
	case ".yaml", ".yml":
		return "application/x-yaml"
	case ".toml":
		return "application/toml"
	default:
		return ""
	}
}
