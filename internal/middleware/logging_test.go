package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"ok", http.MethodGet, "/healthz", http.StatusOK},
		{"created", http.MethodPost, "/api/v1/habits", http.StatusCreated},
		{"not found", http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zap.InfoLevel)
			handler := Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}

			entries := logs.FilterMessage("http_request").All()
			if len(entries) != 1 {
				t.Fatalf("http_request entries = %d, want 1", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["method"] != tt.method {
				t.Errorf("logged method = %v", fields["method"])
			}
			if fields["path"] != tt.path {
				t.Errorf("logged path = %v", fields["path"])
			}
			if fields["status_code"] != int64(tt.status) {
				t.Errorf("logged status_code = %v", fields["status_code"])
			}
		})
	}
}

func TestLogging_DefaultsTo200WithoutExplicitWriteHeader(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	handler := Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("http_request entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["status_code"]; got != int64(http.StatusOK) {
		t.Errorf("logged status_code = %v, want 200", got)
	}
}
