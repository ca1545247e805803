// Package sandbox enforces capability policies on tool arguments before any
// tool executor runs. A policy decision is made from the arguments alone and
// fails closed: anything that cannot be positively proven inside the allowed
// boundary is denied.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Policy evaluates a decoded tool argument object and returns nil to allow
// the call, or a *DeniedError to reject it.
type Policy interface {
	Evaluate(args map[string]any) error
}

// DeniedError is the deny outcome of a policy evaluation. Its message is
// intentionally user-visible: the backend model receives it as the tool
// failure reason and may recover conversationally.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return e.Reason
}

// PathPolicy restricts one string argument to paths whose canonical form
// lives under a fixed root directory.
//
// The boundary check compares canonical absolute paths, not lexical
// prefixes: ".." segments are cleaned away and symlinks are resolved, so
// neither dot-dot escapes nor symlink escapes can cross the root.
type PathPolicy struct {
	argument string
	root     string
}

var _ Policy = (*PathPolicy)(nil)

// NewPathPolicy builds a policy confining the named argument to root. The
// root is canonicalized up front (absolute, symlinks resolved) and must be an
// existing directory; a gateway misconfigured with a bogus sandbox root
// should fail at startup, not at the first tool call.
func NewPathPolicy(argument, root string) (*PathPolicy, error) {
	if argument == "" {
		return nil, fmt.Errorf("sandbox: argument name cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("sandbox: invalid root %q: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("sandbox: cannot resolve root %q: %w", abs, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("sandbox: cannot stat root %q: %w", resolved, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sandbox: root %q is not a directory", resolved)
	}
	return &PathPolicy{argument: argument, root: resolved}, nil
}

// Root returns the canonical root directory the policy confines paths to.
func (p *PathPolicy) Root() string {
	return p.root
}

// Evaluate checks the policy's argument in args. Missing argument, non-string
// value, and any canonicalization failure all deny; the deny reason never
// reveals more than the configured root.
func (p *PathPolicy) Evaluate(args map[string]any) error {
	raw, ok := args[p.argument]
	if !ok {
		return p.deny()
	}
	path, ok := raw.(string)
	if !ok || path == "" {
		return p.deny()
	}

	// Relative paths are interpreted against the root, matching how the
	// tool schema describes them to the model.
	abs := filepath.Clean(path)
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(p.root, abs)
	}

	resolved, err := canonicalize(abs)
	if err != nil {
		return p.deny()
	}
	if resolved != p.root && !strings.HasPrefix(resolved, p.root+string(filepath.Separator)) {
		return p.deny()
	}
	return nil
}

func (p *PathPolicy) deny() *DeniedError {
	return &DeniedError{Reason: fmt.Sprintf("Access denied: File path must be within %s", p.root)}
}

// canonicalize resolves symlinks in path. The final element is allowed to
// not exist yet (the executor reports its own not-found error); everything
// above it must resolve.
func canonicalize(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}
	dir, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(path)), nil
}
