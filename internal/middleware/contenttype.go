package middleware

import (
	"net/http"
	"strings"
)

// ContentType rejects request bodies the API cannot parse. JSON is the
// default; multipart is allowed because chat messages can carry an image
// part. Parameters like charset and boundary pass through.
func ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPatch, http.MethodPut:
			contentType := strings.ToLower(r.Header.Get("Content-Type"))
			if contentType == "" {
				http.Error(w, "Content-Type header is required", http.StatusBadRequest)
				return
			}
			if !strings.HasPrefix(contentType, "application/json") &&
				!strings.HasPrefix(contentType, "multipart/form-data") {
				http.Error(w, "Content-Type must be application/json or multipart/form-data", http.StatusUnsupportedMediaType)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
