package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestHealthCheck_Basic(t *testing.T) {
	t.Parallel()

	// basic mode must not touch dependencies, so a failing db is fine
	h := NewHealthChecker(&fakePinger{err: errors.New("down")}, nil, nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeHealth(t, rec)
	if resp.Status != "healthy" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.Checks != nil {
		t.Errorf("checks = %v, want none in basic mode", resp.Checks)
	}
}

func TestHealthCheck_ExtendedHealthy(t *testing.T) {
	t.Parallel()

	queueOK := func(ctx context.Context) error { return nil }
	h := NewHealthChecker(&fakePinger{}, &fakePinger{}, queueOK)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz?mode=extended", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeHealth(t, rec)
	for _, dep := range []string{"database", "redis", "rabbitmq"} {
		if resp.Checks[dep] != "healthy" {
			t.Errorf("checks[%s] = %q", dep, resp.Checks[dep])
		}
	}
}

func TestHealthCheck_ExtendedDatabaseDown(t *testing.T) {
	t.Parallel()

	h := NewHealthChecker(&fakePinger{err: errors.New("connection refused")}, &fakePinger{}, nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz?mode=extended", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	resp := decodeHealth(t, rec)
	if resp.Status != "unhealthy" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.Checks["database"] == "healthy" {
		t.Errorf("checks[database] = %q", resp.Checks["database"])
	}
}

func TestHealthCheck_ExtendedOptionalDepsNotConfigured(t *testing.T) {
	t.Parallel()

	h := NewHealthChecker(&fakePinger{}, nil, nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz?mode=extended", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: missing optional deps must not fail health", rec.Code)
	}
	resp := decodeHealth(t, rec)
	if resp.Checks["redis"] != "not configured" {
		t.Errorf("checks[redis] = %q", resp.Checks["redis"])
	}
	if resp.Checks["rabbitmq"] != "not configured" {
		t.Errorf("checks[rabbitmq] = %q", resp.Checks["rabbitmq"])
	}
}
