package util

import "strings"

// NormalizeKey lowercases and trims s for case-insensitive matching.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
