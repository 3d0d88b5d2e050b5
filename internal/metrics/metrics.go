// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Recipe metrics
	IncRecipeCreated()
	IncRecipeUpdated()
	IncRecipeDeleted()
	IncRecipeCacheHit()
	IncRecipeCacheMiss()

	// Reconcile metrics: join rows written per pass, catalog rows added.
	ObserveIngredientChanges(inserted, updated, deleted int)
	AddIngredientsCreated(n int)

	// Account metrics
	IncUserRegistered()
	IncLoginFailed()

	// HTTP metrics
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
	IncRateLimitRejected(scope string) // scope: "user" or "ip"
	IncPanicRecovered()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
