package corpus

import (
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Enumerate yields the absolute paths of the regular files under root that
// match any of patterns, de-duplicated and in lexicographic order.
//
// The sequence is evaluated each time it is ranged over, so re-ranging it
// reflects the current filesystem. A missing root yields nothing.
// Patterns are filepath.Match globs relative to root; malformed patterns
// are skipped (see Validate).
func Enumerate(root string, patterns []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, path := range collect(root, patterns) {
			if !yield(path) {
				return
			}
		}
	}
}

// List collects Enumerate into a slice.
func List(root string, patterns []string) []string {
	var paths []string
	for p := range Enumerate(root, patterns) {
		paths = append(paths, p)
	}
	return paths
}

// Validate reports the first malformed pattern.
func Validate(patterns []string) error {
	for _, p := range patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}
	return nil
}

func collect(root string, patterns []string) []string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		slog.Error("Error getting absolute path", "root", root, "error", err)
		return nil
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		slog.Debug("Root directory not found, nothing to do", "root", absRoot)
		return nil
	}

	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(absRoot, pattern))
		if err != nil {
			slog.Warn("Skipping malformed pattern", "pattern", pattern, "error", err)
			continue
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			if info, err := os.Stat(m); err != nil || !info.Mode().IsRegular() {
				continue
			}
			seen[m] = true
			paths = append(paths, m)
		}
	}
	sort.Strings(paths)

	slog.Debug("Enumerated documents", "root", absRoot, "patterns", patterns, "count", len(paths))
	return paths
}
