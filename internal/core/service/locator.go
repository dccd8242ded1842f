package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/martijn/snapchain/internal/core/domain"
)

// Locator finds repository roots by walking directories upward until a
// marker file is found.
type Locator struct {
	marker string
}

func NewLocator() *Locator {
	return &Locator{marker: domain.MarkerFileName}
}

// LocateRoot returns the nearest directory at or above start that holds a
// marker file.
func (l *Locator) LocateRoot(start string) (string, error) {
	dir, err := resolveDir(start)
	if err != nil {
		return "", err
	}
	return l.walk(dir, start)
}

// LocateParent returns the nearest repository strictly above dir, so a
// repository is never its own parent.
func (l *Locator) LocateParent(dir string) (string, error) {
	resolved, err := resolveDir(dir)
	if err != nil {
		return "", err
	}
	parent := filepath.Dir(resolved)
	if parent == resolved {
		return "", fmt.Errorf("no repository above %s: %w", dir, domain.ErrNotFound)
	}
	return l.walk(parent, dir)
}

func (l *Locator) walk(dir, origin string) (string, error) {
	for {
		info, err := os.Stat(filepath.Join(dir, l.marker))
		if err == nil && info.Mode().IsRegular() {
			return dir, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to check %s: %w", dir, err)
		}

		next := filepath.Dir(dir)
		if next == dir {
			return "", fmt.Errorf("no repository found from %s: %w", origin, domain.ErrNotFound)
		}
		dir = next
	}
}

// resolveDir makes path absolute and resolves symlinks. A path that does
// not exist yet, like a source directory before its first backup, is
// resolved through its nearest existing ancestor.
func resolveDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	var rest []string
	for {
		resolved, err := filepath.EvalSymlinks(abs)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return abs, nil
		}
		rest = append([]string{filepath.Base(abs)}, rest...)
		abs = parent
	}
}
