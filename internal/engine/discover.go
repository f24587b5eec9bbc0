package engine

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

var ErrNoMatches = errors.New("no files match")

// Discoverer expands one source pattern into file paths.
type Discoverer interface {
	Discover(pattern string) ([]string, error)
}

// GlobDiscoverer matches patterns against the files below Root.
// Returned paths are relative to Root unless the pattern was absolute.
type GlobDiscoverer struct {
	Root string
}

func (d GlobDiscoverer) Discover(pattern string) ([]string, error) {
	if filepath.IsAbs(pattern) {
		return d.discoverAbs(pattern)
	}

	pat := filepath.ToSlash(pattern)
	if !doublestar.ValidatePattern(pat) {
		return nil, fmt.Errorf("invalid source pattern %q", pattern)
	}

	root := d.Root
	if root == "" {
		root = "."
	}
	matches, err := doublestar.Glob(os.DirFS(root), path.Clean(pat), doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("while globbing %s: %w", pattern, err)
	}
	if len(matches) == 0 && !hasMeta(pat) {
		return nil, fmt.Errorf("%w %q", ErrNoMatches, pattern)
	}

	slices.Sort(matches)
	for i, m := range matches {
		matches[i] = filepath.FromSlash(m)
	}
	return matches, nil
}

func (d GlobDiscoverer) discoverAbs(pattern string) ([]string, error) {
	if !hasMeta(filepath.ToSlash(pattern)) {
		if stat, err := os.Stat(pattern); err != nil || stat.IsDir() {
			return nil, fmt.Errorf("%w %q", ErrNoMatches, pattern)
		}
		return []string{filepath.Clean(pattern)}, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("while globbing %s: %w", pattern, err)
	}
	files := matches[:0]
	for _, m := range matches {
		if stat, err := os.Stat(m); err == nil && !stat.IsDir() {
			files = append(files, m)
		}
	}
	slices.Sort(files)
	return files, nil
}

// hasMeta reports whether pattern contains glob metacharacters.
func hasMeta(pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// DiscoverAll expands every pattern in order. Matches are not deduplicated across patterns.
func DiscoverAll(d Discoverer, patterns []string) (PathSet, error) {
	var files PathSet
	for _, pat := range patterns {
		matches, err := d.Discover(pat)
		if err != nil {
			return nil, err
		}
		files.Add(matches...)
	}
	return files, nil
}
