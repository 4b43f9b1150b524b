package ai

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Unexported key type so values set here cannot collide with other packages.
type contextKey string

const userIDContextKey contextKey = "user_id"

// WithUserID tags a context with the acting user's ID for provider logging
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

const (
	// MaxPreviewLength caps prompt and response previews in normal logs
	MaxPreviewLength = 200
	// MaxDebugContentLength caps previews when full debug logging is on
	MaxDebugContentLength = 10000
	// RedactedValue replaces sensitive data in log output
	RedactedValue = "[REDACTED]"
)

// SanitizeAPIKey keeps the first and last four characters of a key and
// redacts the rest. Keys too short to safely expose anything are fully
// redacted.
func SanitizeAPIKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) <= 8 {
		return RedactedValue
	}
	return apiKey[:4] + RedactedValue + apiKey[len(apiKey)-4:]
}

// SanitizePrompt creates a safe preview of a prompt for logging.
// Even in fullLog mode the content is sanitized to prevent log injection.
func SanitizePrompt(prompt string, fullLog bool) string {
	return sanitizeStringForLogging(prompt, previewLimit(fullLog))
}

// SanitizeResponse creates a safe preview of a model response for logging
func SanitizeResponse(response string, fullLog bool) string {
	return sanitizeStringForLogging(response, previewLimit(fullLog))
}

func previewLimit(fullLog bool) int {
	if fullLog {
		return MaxDebugContentLength
	}
	return MaxPreviewLength
}

// sanitizeStringForLogging drops control characters, repairs invalid UTF-8
// and truncates to maxLen
func sanitizeStringForLogging(s string, maxLen int) string {
	if s == "" {
		return ""
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsPrint(r), r == ' ', r == '\t', r == '\n', r == '\r':
			b.WriteRune(r)
		}
	}
	s = b.String()

	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

// ExtractUserID reads a user ID previously stored with WithUserID. UUID
// values stored directly are stringified.
func ExtractUserID(ctx context.Context) string {
	switch id := ctx.Value(userIDContextKey).(type) {
	case string:
		return id
	case interface{ String() string }:
		return id.String()
	default:
		return ""
	}
}
