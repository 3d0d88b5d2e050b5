package handler

import (
	"fmt"
	"net/http"

	"github.com/larder/larder/internal/metrics"
)

// MetricsHandler exposes in-memory metrics when the Prometheus recorder is
// not in use.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns counters in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "larder_recipe_operations_total{op=\"create\"} %d\n", snap.RecipesCreated)
	writeMetric(w, "larder_recipe_operations_total{op=\"update\"} %d\n", snap.RecipesUpdated)
	writeMetric(w, "larder_recipe_operations_total{op=\"delete\"} %d\n", snap.RecipesDeleted)

	writeMetric(w, "larder_recipe_cache_lookups_total{result=\"hit\"} %d\n", snap.RecipeCacheHits)
	writeMetric(w, "larder_recipe_cache_lookups_total{result=\"miss\"} %d\n", snap.RecipeCacheMisses)

	writeMetric(w, "larder_recipe_ingredient_rows_total{action=\"insert\"} %d\n", snap.JoinRowsInserted)
	writeMetric(w, "larder_recipe_ingredient_rows_total{action=\"update\"} %d\n", snap.JoinRowsUpdated)
	writeMetric(w, "larder_recipe_ingredient_rows_total{action=\"delete\"} %d\n", snap.JoinRowsDeleted)
	writeMetric(w, "larder_ingredients_created_total %d\n", snap.IngredientsCreated)

	writeMetric(w, "larder_users_registered_total %d\n", snap.UsersRegistered)
	writeMetric(w, "larder_logins_failed_total %d\n", snap.LoginsFailed)

	writeMetric(w, "larder_http_requests_total %d\n", snap.HTTPRequests)
	writeMetric(w, "larder_rate_limit_rejects_total %d\n", snap.RateLimitRejected)
	writeMetric(w, "larder_panic_recoveries_total %d\n", snap.PanicsRecovered)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
