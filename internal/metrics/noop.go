package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncRecipeCreated is a no-op.
func (n *NoopRecorder) IncRecipeCreated() {}

// IncRecipeUpdated is a no-op.
func (n *NoopRecorder) IncRecipeUpdated() {}

// IncRecipeDeleted is a no-op.
func (n *NoopRecorder) IncRecipeDeleted() {}

// IncRecipeCacheHit is a no-op.
func (n *NoopRecorder) IncRecipeCacheHit() {}

// IncRecipeCacheMiss is a no-op.
func (n *NoopRecorder) IncRecipeCacheMiss() {}

// ObserveIngredientChanges is a no-op.
func (n *NoopRecorder) ObserveIngredientChanges(inserted, updated, deleted int) {}

// AddIngredientsCreated is a no-op.
func (n *NoopRecorder) AddIngredientsCreated(count int) {}

// IncUserRegistered is a no-op.
func (n *NoopRecorder) IncUserRegistered() {}

// IncLoginFailed is a no-op.
func (n *NoopRecorder) IncLoginFailed() {}

// ObserveHTTPRequest is a no-op.
func (n *NoopRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}

// IncRateLimitRejected is a no-op.
func (n *NoopRecorder) IncRateLimitRejected(scope string) {}

// IncPanicRecovered is a no-op.
func (n *NoopRecorder) IncPanicRecovered() {}
