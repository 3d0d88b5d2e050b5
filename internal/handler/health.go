package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	db    HealthChecker
	cache HealthChecker
}

// NewHealthHandler creates a new HealthHandler.
// Pass nil for db or cache if they are not yet initialized.
func NewHealthHandler(db, cache HealthChecker) *HealthHandler {
	return &HealthHandler{
		db:    db,
		cache: cache,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is the liveness endpoint. No dependency checks.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is the readiness endpoint. Postgres and Redis are pinged
// concurrently; it returns 200 only if both are healthy.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	checks := make(map[string]string)
	healthy := true

	g, gctx := errgroup.WithContext(ctx)
	check := func(name string, checker HealthChecker) {
		if checker == nil {
			checks[name] = "not configured"
			return
		}
		g.Go(func() error {
			err := checker.Ping(gctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				checks[name] = "error: " + err.Error()
				healthy = false
				return nil
			}
			checks[name] = "ok"
			return nil
		})
	}

	mu.Lock()
	check("postgres", h.db)
	check("redis", h.cache)
	mu.Unlock()

	_ = g.Wait()

	status := "ok"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, HealthResponse{
		Status: status,
		Checks: checks,
	})
}
