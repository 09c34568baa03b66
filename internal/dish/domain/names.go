package domain

import (
	"strings"
	"unicode/utf8"
)

// MaxNameLength bounds names stored in indexed varchar columns.
const MaxNameLength = 255

// NormalizeName trims surrounding whitespace. Matching stays case-sensitive.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// ValidName reports whether a normalized name is non-empty and fits MaxNameLength.
func ValidName(name string) bool {
	return name != "" && utf8.RuneCountInString(name) <= MaxNameLength
}

// UniqueNames normalizes names, drops blanks and duplicates, and keeps first-seen order.
func UniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, raw := range names {
		name := NormalizeName(raw)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
