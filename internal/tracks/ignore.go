package tracks

import (
	"path/filepath"
	"strings"
)

// defaultIgnorePatterns are never offered as candidates. Dot files cover
// macOS resource forks ("._Track.gpx") and other hidden entries.
var defaultIgnorePatterns = []string{
	".*",
}

// Ignore checks file names against a set of glob patterns.
// Patterns are matched against the base name only; directories are always
// descended into.
type Ignore struct {
	patterns []string
}

// NewIgnore creates an Ignore with the default patterns merged with any
// additional patterns. Duplicates are removed.
func NewIgnore(extra []string) *Ignore {
	seen := make(map[string]struct{}, len(defaultIgnorePatterns)+len(extra))
	var merged []string
	for _, p := range append(append([]string{}, defaultIgnorePatterns...), extra...) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		merged = append(merged, p)
	}
	return &Ignore{patterns: merged}
}

// ShouldIgnore returns true if the base name of path matches any pattern.
func (ig *Ignore) ShouldIgnore(path string) bool {
	name := filepath.Base(path)
	for _, pattern := range ig.patterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// hasExt reports whether name ends in ext, ignoring case.
func hasExt(name, ext string) bool {
	return strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext))
}
