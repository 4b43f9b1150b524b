package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPathLength caps URL paths in log fields
	MaxPathLength = 500
	// MaxGeneralStringLength caps all other request-derived strings
	MaxGeneralStringLength = 2000
)

// SanitizePath prepares a URL path for logging. Paths come straight from the
// client, so control characters and invalid UTF-8 are stripped before they
// can corrupt a log line.
func SanitizePath(path string) string {
	if path == "" {
		return ""
	}
	path = stripUnsafeRunes(path)
	if len(path) > MaxPathLength {
		path = path[:MaxPathLength] + "..."
	}
	return path
}

// SanitizeString strips unsafe runes from a client-derived string and
// truncates it. A non-positive maxLength falls back to the general cap.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	s = stripUnsafeRunes(s)
	if len(s) > maxLength {
		s = s[:maxLength] + "..."
	}
	return s
}

func stripUnsafeRunes(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	var builder strings.Builder
	builder.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}
