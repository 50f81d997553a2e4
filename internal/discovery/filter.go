package discovery

import (
	"path/filepath"
	"strings"

	"testsearch/internal/domain"
)

// Filter filters test identifiers by name pattern
type Filter struct{}

// NewFilter creates a new Filter
func NewFilter() *Filter {
	return &Filter{}
}

// FilterIdentifiers keeps the identifiers whose short name matches pattern.
// The short name is the file base name followed by classes and function,
// e.g. "test_api.py::TestUsers::test_create".
func (f *Filter) FilterIdentifiers(ids []domain.TestIdentifier, pattern string) []domain.TestIdentifier {
	if pattern == "" {
		return ids
	}

	var filtered []domain.TestIdentifier
	for _, id := range ids {
		if f.Match(ShortName(id), pattern) {
			filtered = append(filtered, id)
		}
	}
	return filtered
}

// Match reports whether name matches the wildcard pattern.
// Supports patterns like "test_api.py::*" or "*create*"; a pattern without
// wildcards matches as a substring.
func (f *Filter) Match(name, pattern string) bool {
	if pattern == "" {
		return true
	}

	// filepath.Match supports * and ? but stops at path separators
	if matched, err := filepath.Match(pattern, name); err == nil && matched {
		return true
	}

	if strings.Contains(pattern, "*") {
		// Every non-empty part between wildcards must appear, in order
		rest := name
		hasPart := false
		for _, part := range strings.Split(pattern, "*") {
			if part == "" {
				continue
			}
			hasPart = true
			idx := strings.Index(rest, part)
			if idx < 0 {
				return false
			}
			rest = rest[idx+len(part):]
		}
		return hasPart
	}

	if !strings.Contains(pattern, "?") {
		return strings.Contains(name, pattern)
	}
	return false
}

// ShortName renders an identifier with the file base name instead of the full path
func ShortName(id domain.TestIdentifier) string {
	parts := append([]string{filepath.Base(id.FilePath)}, id.ClassPath...)
	parts = append(parts, id.Name)
	return strings.Join(parts, domain.Separator)
}
