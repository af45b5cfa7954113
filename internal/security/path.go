// Package security confines the paths handed to the MCP tools to one
// directory.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideDirectory is returned for paths that leave the configured directory.
var ErrOutsideDirectory = errors.New("path is outside configured directory")

// PathValidator resolves tool paths against a root directory
type PathValidator struct {
	root string // absolute, symlinks evaluated
}

// NewPathValidator creates a validator rooted at dir. The directory must exist.
func NewPathValidator(dir string) (*PathValidator, error) {
	if dir == "" {
		return nil, errors.New("configured directory cannot be empty")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	return &PathValidator{root: resolved}, nil
}

// Root returns the resolved root directory.
func (v *PathValidator) Root() string {
	return v.root
}

// Resolve returns the absolute form of path. Relative paths are taken
// relative to the root. The result, with symlinks evaluated, must lie
// inside the root.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", errors.New("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	clean := filepath.Clean(path)

	resolved, err := evalExisting(clean)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if !v.contains(resolved) {
		return "", fmt.Errorf("%w: %s", ErrOutsideDirectory, path)
	}
	return resolved, nil
}

// ResolveOutput is Resolve for a file that is about to be written: the
// path must not name the root itself or an existing directory.
func (v *PathValidator) ResolveOutput(path string) (string, error) {
	resolved, err := v.Resolve(path)
	if err != nil {
		return "", err
	}
	if resolved == v.root {
		return "", fmt.Errorf("output path is the configured directory: %s", path)
	}
	if info, err := os.Stat(resolved); err == nil && info.IsDir() {
		return "", fmt.Errorf("output path is a directory: %s", path)
	}
	return resolved, nil
}

func (v *PathValidator) contains(path string) bool {
	if path == v.root {
		return true
	}
	rootWithSep := v.root
	if !strings.HasSuffix(rootWithSep, string(filepath.Separator)) {
		rootWithSep += string(filepath.Separator)
	}
	return strings.HasPrefix(path, rootWithSep)
}

// evalExisting evaluates symlinks in the longest existing prefix of path
// and appends the remaining elements unchanged.
func evalExisting(path string) (string, error) {
	var rest []string
	for current := path; ; {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			for i := len(rest) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, rest[i])
			}
			return resolved, nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return path, nil
		}
		rest = append(rest, filepath.Base(current))
		current = parent
	}
}
