// Package scopes implements capability-grant matching for sessions, access
// tokens and verification records. A scope is a dot-delimited string such as
// "profile.address"; a trailing wildcard ("profile.*") grants every scope in
// that namespace.
package scopes

import (
	"slices"
	"sort"
	"strings"
)

const (
	// Separator separates multiple scopes in a string representation.
	Separator = " "

	// Wildcard matches every scope.
	Wildcard = "*"

	// Delimiter separates scope segments (e.g. "profile.address").
	Delimiter = "."
)

// Parse converts a space-separated scope string into a slice.
// Empty entries are dropped; nil is returned for empty input.
func Parse(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	parts := strings.Split(s, Separator)
	out := make([]string, 0, len(parts))
	for i := range parts {
		if parts[i] = strings.TrimSpace(parts[i]); parts[i] != "" {
			out = append(out, parts[i])
		}
	}
	return out
}

// Join converts a scope slice back to its space-separated string form.
func Join(scopes []string) string {
	if len(scopes) == 0 {
		return ""
	}
	return strings.Join(scopes, Separator)
}

// Matches reports whether a single scope satisfies a pattern.
//
// Matching rules:
//   - direct match: "profile" matches "profile"
//   - global wildcard: "*" matches any scope
//   - namespace wildcard: "profile.*" matches any scope under "profile."
func Matches(scope, pattern string) bool {
	if scope == pattern || pattern == Wildcard {
		return true
	}

	if strings.HasSuffix(pattern, Wildcard) {
		prefix := strings.TrimSuffix(pattern, Wildcard)
		prefix = strings.TrimSuffix(prefix, Delimiter)
		return strings.HasPrefix(scope, prefix+Delimiter)
	}

	return false
}

// Has reports whether granted contains a scope satisfying the requested one.
func Has(granted []string, scope string) bool {
	for _, g := range granted {
		if Matches(scope, g) {
			return true
		}
	}
	return false
}

// HasAll reports whether granted satisfies every required scope.
// An empty required set is always satisfied; a global wildcard grant
// satisfies everything.
func HasAll(granted, required []string) bool {
	if len(required) == 0 {
		return true
	}
	if len(granted) == 0 {
		return false
	}
	if slices.Contains(granted, Wildcard) {
		return true
	}
	for _, req := range required {
		if !Has(granted, req) {
			return false
		}
	}
	return true
}

// HasAny reports whether granted satisfies at least one required scope.
func HasAny(granted, required []string) bool {
	if len(required) == 0 {
		return true
	}
	if len(granted) == 0 {
		return false
	}
	if slices.Contains(granted, Wildcard) {
		return true
	}
	for _, req := range required {
		if Has(granted, req) {
			return true
		}
	}
	return false
}

// Normalize removes duplicates and sorts scopes for stable storage and
// comparison. Returns nil for empty input.
func Normalize(scopes []string) []string {
	if len(scopes) == 0 {
		return nil
	}

	unique := make(map[string]struct{}, len(scopes))
	for i := range scopes {
		unique[scopes[i]] = struct{}{}
	}

	out := make([]string, 0, len(unique))
	for s := range unique {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
