package middleware

import (
	"context"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds a request when no explicit timeout is given
const DefaultRequestTimeout = 30 * time.Second

// Timeout enforces a deadline per request. The context deadline lets
// downstream calls (DB, LLM) abort early; http.TimeoutHandler guarantees the
// client gets a response even if a handler ignores its context.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		handler := http.TimeoutHandler(next, timeout, "Request Timeout")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			handler.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
