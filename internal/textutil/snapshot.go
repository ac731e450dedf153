package textutil

import (
	"fmt"
	"strings"
)

// Truncate returns the first limit runes of s followed by "..." when s is
// longer than limit runes; otherwise s unchanged.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i] + "..."
		}
		count++
	}
	return s
}

// NumberLines renders source with 1-based line numbers ("%3d: line").
func NumberLines(source string) string {
	lines := strings.Split(source, "\n")
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%3d: %s", i+1, line)
	}
	return b.String()
}

// FirstLine returns the first non-empty trimmed line of s.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
