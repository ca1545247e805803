package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRoot creates a sandbox root with one readable file inside it and a
// sibling directory (with a secret file) outside it.
func newTestRoot(t *testing.T) (root, outside string) {
	t.Helper()
	base := t.TempDir()
	root = filepath.Join(base, "allowed_files")
	outside = filepath.Join(base, "private")
	require.NoError(t, os.Mkdir(root, 0o755))
	require.NoError(t, os.Mkdir(outside, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "payload.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("secret"), 0o644))
	return root, outside
}

func TestNewPathPolicyValidatesRoot(t *testing.T) {
	_, err := NewPathPolicy("path", filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = NewPathPolicy("path", file)
	assert.Error(t, err, "a plain file cannot be a sandbox root")

	_, err = NewPathPolicy("", t.TempDir())
	assert.Error(t, err)
}

func TestPathPolicyEvaluate(t *testing.T) {
	root, outside := newTestRoot(t)
	policy, err := NewPathPolicy("path", root)
	require.NoError(t, err)

	tests := []struct {
		name  string
		args  map[string]any
		allow bool
	}{
		{"file inside root", map[string]any{"path": filepath.Join(root, "payload.txt")}, true},
		{"root itself", map[string]any{"path": root}, true},
		{"relative path resolves against root", map[string]any{"path": "payload.txt"}, true},
		{"nonexistent file with valid parent", map[string]any{"path": filepath.Join(root, "missing.txt")}, true},
		{"file outside root", map[string]any{"path": filepath.Join(outside, "secret.txt")}, false},
		{"dot-dot escape", map[string]any{"path": filepath.Join(root, "..", "private", "secret.txt")}, false},
		{"lexical prefix sibling", map[string]any{"path": root + "extra/file.txt"}, false},
		{"nonexistent parent", map[string]any{"path": filepath.Join(root, "no", "such", "dir", "f.txt")}, false},
		{"missing argument", map[string]any{"file": "x"}, false},
		{"non-string argument", map[string]any{"path": 42}, false},
		{"empty argument", map[string]any{"path": ""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Evaluate(tt.args)
			if tt.allow {
				assert.NoError(t, err)
				return
			}
			var denied *DeniedError
			require.True(t, errors.As(err, &denied), "expected *DeniedError, got %v", err)
			assert.Contains(t, denied.Error(), "Access denied")
			assert.Contains(t, denied.Error(), policy.Root())
		})
	}
}

func TestPathPolicyDeniesSymlinkEscape(t *testing.T) {
	root, outside := newTestRoot(t)
	link := filepath.Join(root, "sneaky.txt")
	if err := os.Symlink(filepath.Join(outside, "secret.txt"), link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	policy, err := NewPathPolicy("path", root)
	require.NoError(t, err)

	// The link lives inside the root lexically, but its target does not.
	var denied *DeniedError
	err = policy.Evaluate(map[string]any{"path": link})
	require.True(t, errors.As(err, &denied), "expected symlink escape to be denied, got %v", err)

	// A symlinked directory escaping the root is denied as the parent of a
	// nonexistent file too.
	dirLink := filepath.Join(root, "exit")
	require.NoError(t, os.Symlink(outside, dirLink))
	err = policy.Evaluate(map[string]any{"path": filepath.Join(dirLink, "new.txt")})
	assert.True(t, errors.As(err, &denied))
}

func TestPathPolicyAllowsSymlinkWithinRoot(t *testing.T) {
	root, _ := newTestRoot(t)
	link := filepath.Join(root, "alias.txt")
	if err := os.Symlink(filepath.Join(root, "payload.txt"), link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	policy, err := NewPathPolicy("path", root)
	require.NoError(t, err)
	assert.NoError(t, policy.Evaluate(map[string]any{"path": link}))
}
