package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is any dependency that can report its liveness
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker handles health check requests. The cache and queue checks
// are optional; nil means the dependency is not configured.
type HealthChecker struct {
	db    Pinger
	cache Pinger
	queue func(ctx context.Context) error
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(db Pinger, cache Pinger, queue func(ctx context.Context) error) *HealthChecker {
	return &HealthChecker{db: db, cache: cache, queue: queue}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint. Basic mode only confirms the
// process is serving; mode=extended pings the dependencies.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if r.URL.Query().Get("mode") == "extended" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := make(map[string]string)

		if err := h.db.Ping(ctx); err != nil {
			response.Status = "unhealthy"
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "healthy"
		}

		if h.cache == nil {
			checks["redis"] = "not configured"
		} else if err := h.cache.Ping(ctx); err != nil {
			response.Status = "unhealthy"
			checks["redis"] = "unhealthy: " + err.Error()
		} else {
			checks["redis"] = "healthy"
		}

		if h.queue == nil {
			checks["rabbitmq"] = "not configured"
		} else if err := h.queue(ctx); err != nil {
			response.Status = "unhealthy"
			checks["rabbitmq"] = "unhealthy: " + err.Error()
		} else {
			checks["rabbitmq"] = "healthy"
		}

		response.Checks = checks
	}

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
