package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubPinger struct {
	err   error
	delay time.Duration
}

func (s *stubPinger) Ping(ctx context.Context) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return response
}

func TestHealthHandler_Healthz(t *testing.T) {
	h := NewHealthHandler(&stubPinger{err: errors.New("down")}, nil)

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("liveness must not depend on postgres; got %d", rec.Code)
	}
	if got := decodeHealth(t, rec); got.Status != "ok" || got.Checks != nil {
		t.Errorf("unexpected liveness body: %+v", got)
	}
}

func TestHealthHandler_Readyz(t *testing.T) {
	tests := []struct {
		name         string
		db, cache    HealthChecker
		wantCode     int
		wantStatus   string
		wantPostgres string
		wantRedis    string
	}{
		{
			name:         "both healthy",
			db:           &stubPinger{},
			cache:        &stubPinger{delay: 5 * time.Millisecond},
			wantCode:     http.StatusOK,
			wantStatus:   "ok",
			wantPostgres: "ok",
			wantRedis:    "ok",
		},
		{
			name:         "postgres down",
			db:           &stubPinger{err: errors.New("connection refused")},
			cache:        &stubPinger{},
			wantCode:     http.StatusServiceUnavailable,
			wantStatus:   "unhealthy",
			wantPostgres: "error: connection refused",
			wantRedis:    "ok",
		},
		{
			name:         "redis down",
			db:           &stubPinger{},
			cache:        &stubPinger{err: errors.New("dial tcp: i/o timeout")},
			wantCode:     http.StatusServiceUnavailable,
			wantStatus:   "unhealthy",
			wantPostgres: "ok",
			wantRedis:    "error: dial tcp: i/o timeout",
		},
		{
			name:         "not wired",
			wantCode:     http.StatusOK,
			wantStatus:   "ok",
			wantPostgres: "not configured",
			wantRedis:    "not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, tt.cache)

			rec := httptest.NewRecorder()
			h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
			got := decodeHealth(t, rec)
			if got.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", got.Status, tt.wantStatus)
			}
			if got.Checks["postgres"] != tt.wantPostgres {
				t.Errorf("postgres = %q, want %q", got.Checks["postgres"], tt.wantPostgres)
			}
			if got.Checks["redis"] != tt.wantRedis {
				t.Errorf("redis = %q, want %q", got.Checks["redis"], tt.wantRedis)
			}
		})
	}
}
