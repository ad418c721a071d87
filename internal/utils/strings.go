package utils

import (
	"fmt"
	"unicode/utf8"
)

// DefaultMaxStringLength applies when TruncateString is given a non-positive limit.
const DefaultMaxStringLength = 500

// TruncateString shortens s to at most maxLen runes and records the original
// rune count in the suffix. Log attributes and error bodies go through it, so
// multi-byte text (captions, emoji) is never cut mid-character.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxStringLength
	}
	total := utf8.RuneCountInString(s)
	if total <= maxLen {
		return s
	}
	cut := 0
	for i := range s {
		if maxLen == 0 {
			cut = i
			break
		}
		maxLen--
	}
	return fmt.Sprintf("%s... (truncated, total: %d chars)", s[:cut], total)
}
