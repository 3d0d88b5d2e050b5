package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "larder"

// PrometheusRecorder exports metrics through a Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	recipeOps          *prometheus.CounterVec
	recipeCache        *prometheus.CounterVec
	joinRows           *prometheus.CounterVec
	ingredientsCreated prometheus.Counter
	usersRegistered    prometheus.Counter
	loginsFailed       prometheus.Counter
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	rateLimitRejects   *prometheus.CounterVec
	panicRecoveries    prometheus.Counter
}

// NewPrometheus creates a recorder backed by its own registry, which also
// carries the Go runtime and process collectors.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		recipeOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipe_operations_total",
			Help:      "Recipe writes by operation",
		}, []string{"op"}),
		recipeCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipe_cache_lookups_total",
			Help:      "Recipe cache lookups by result",
		}, []string{"result"}),
		joinRows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipe_ingredient_rows_total",
			Help:      "Recipe-ingredient join rows written by reconcile, by action",
		}, []string{"action"}),
		ingredientsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingredients_created_total",
			Help:      "Catalog ingredients created",
		}),
		usersRegistered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_registered_total",
			Help:      "Accounts registered",
		}),
		loginsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_failed_total",
			Help:      "Login attempts rejected for bad credentials",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimitRejects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejects_total",
			Help:      "Requests rejected by rate limiting",
		}, []string{"scope"}),
		panicRecoveries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panic_recoveries_total",
			Help:      "Panics recovered in HTTP handlers",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (p *PrometheusRecorder) Gatherer() prometheus.Gatherer {
	return p.registry
}

// IncRecipeCreated increments recipe created counter.
func (p *PrometheusRecorder) IncRecipeCreated() { p.recipeOps.WithLabelValues("create").Inc() }

// IncRecipeUpdated increments recipe updated counter.
func (p *PrometheusRecorder) IncRecipeUpdated() { p.recipeOps.WithLabelValues("update").Inc() }

// IncRecipeDeleted increments recipe deleted counter.
func (p *PrometheusRecorder) IncRecipeDeleted() { p.recipeOps.WithLabelValues("delete").Inc() }

// IncRecipeCacheHit increments cache hit counter.
func (p *PrometheusRecorder) IncRecipeCacheHit() { p.recipeCache.WithLabelValues("hit").Inc() }

// IncRecipeCacheMiss increments cache miss counter.
func (p *PrometheusRecorder) IncRecipeCacheMiss() { p.recipeCache.WithLabelValues("miss").Inc() }

// ObserveIngredientChanges adds join-row writes of one reconcile pass.
func (p *PrometheusRecorder) ObserveIngredientChanges(inserted, updated, deleted int) {
	p.joinRows.WithLabelValues("insert").Add(float64(inserted))
	p.joinRows.WithLabelValues("update").Add(float64(updated))
	p.joinRows.WithLabelValues("delete").Add(float64(deleted))
}

// AddIngredientsCreated adds newly created catalog rows.
func (p *PrometheusRecorder) AddIngredientsCreated(n int) {
	p.ingredientsCreated.Add(float64(n))
}

// IncUserRegistered increments registration counter.
func (p *PrometheusRecorder) IncUserRegistered() { p.usersRegistered.Inc() }

// IncLoginFailed increments failed login counter.
func (p *PrometheusRecorder) IncLoginFailed() { p.loginsFailed.Inc() }

// ObserveHTTPRequest records RED metrics for a served request.
func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncRateLimitRejected counts a rejected request.
func (p *PrometheusRecorder) IncRateLimitRejected(scope string) {
	p.rateLimitRejects.WithLabelValues(scope).Inc()
}

// IncPanicRecovered counts a recovered panic.
func (p *PrometheusRecorder) IncPanicRecovered() { p.panicRecoveries.Inc() }
