// Package security provides path validation for tools that touch the
// workspace filesystem.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator restricts file access to the workspace root and prevents
// path traversal (CWE-22). Relative paths resolve against the root.
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at root. An empty root uses
// the current working directory.
func NewPathValidator(root string) (*PathValidator, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		root = wd
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}
	// Resolve the root's own symlinks so prefix checks compare real paths.
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}
	return &PathValidator{root: filepath.Clean(absRoot)}, nil
}

// Root returns the workspace root.
func (v *PathValidator) Root() string {
	return v.root
}

// Validate cleans path, resolves it against the root, and rejects anything
// escaping the root. It returns the safe absolute path.
func (v *PathValidator) Validate(path string) (string, error) {
	cleaned := filepath.Clean(path)
	if !filepath.IsAbs(cleaned) {
		cleaned = filepath.Join(v.root, cleaned)
	}

	rootWithSep := v.root + string(filepath.Separator)
	if cleaned != v.root && !strings.HasPrefix(cleaned+string(filepath.Separator), rootWithSep) {
		return "", fmt.Errorf("access denied: %s is outside the workspace", path)
	}

	// Symlinks must not escape the root either. A nonexistent target is
	// fine for files about to be created.
	resolved, err := filepath.EvalSymlinks(cleaned)
	if err != nil {
		if os.IsNotExist(err) {
			return cleaned, nil
		}
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	if resolved != v.root && !strings.HasPrefix(resolved+string(filepath.Separator), rootWithSep) {
		return "", fmt.Errorf("access denied: %s resolves outside the workspace", path)
	}
	return resolved, nil
}
