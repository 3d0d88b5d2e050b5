package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	RecipesCreated     uint64
	RecipesUpdated     uint64
	RecipesDeleted     uint64
	RecipeCacheHits    uint64
	RecipeCacheMisses  uint64
	JoinRowsInserted   uint64
	JoinRowsUpdated    uint64
	JoinRowsDeleted    uint64
	IngredientsCreated uint64
	UsersRegistered    uint64
	LoginsFailed       uint64
	HTTPRequests       uint64
	RateLimitRejected  uint64
	PanicsRecovered    uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	recipesCreated     uint64
	recipesUpdated     uint64
	recipesDeleted     uint64
	recipeCacheHits    uint64
	recipeCacheMisses  uint64
	joinRowsInserted   uint64
	joinRowsUpdated    uint64
	joinRowsDeleted    uint64
	ingredientsCreated uint64
	usersRegistered    uint64
	loginsFailed       uint64
	httpRequests       uint64
	rateLimitRejected  uint64
	panicsRecovered    uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		RecipesCreated:     atomic.LoadUint64(&m.recipesCreated),
		RecipesUpdated:     atomic.LoadUint64(&m.recipesUpdated),
		RecipesDeleted:     atomic.LoadUint64(&m.recipesDeleted),
		RecipeCacheHits:    atomic.LoadUint64(&m.recipeCacheHits),
		RecipeCacheMisses:  atomic.LoadUint64(&m.recipeCacheMisses),
		JoinRowsInserted:   atomic.LoadUint64(&m.joinRowsInserted),
		JoinRowsUpdated:    atomic.LoadUint64(&m.joinRowsUpdated),
		JoinRowsDeleted:    atomic.LoadUint64(&m.joinRowsDeleted),
		IngredientsCreated: atomic.LoadUint64(&m.ingredientsCreated),
		UsersRegistered:    atomic.LoadUint64(&m.usersRegistered),
		LoginsFailed:       atomic.LoadUint64(&m.loginsFailed),
		HTTPRequests:       atomic.LoadUint64(&m.httpRequests),
		RateLimitRejected:  atomic.LoadUint64(&m.rateLimitRejected),
		PanicsRecovered:    atomic.LoadUint64(&m.panicsRecovered),
	}
}

// IncRecipeCreated increments recipe created counter.
func (m *InMemoryRecorder) IncRecipeCreated() {
	atomic.AddUint64(&m.recipesCreated, 1)
}

// IncRecipeUpdated increments recipe updated counter.
func (m *InMemoryRecorder) IncRecipeUpdated() {
	atomic.AddUint64(&m.recipesUpdated, 1)
}

// IncRecipeDeleted increments recipe deleted counter.
func (m *InMemoryRecorder) IncRecipeDeleted() {
	atomic.AddUint64(&m.recipesDeleted, 1)
}

// IncRecipeCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncRecipeCacheHit() {
	atomic.AddUint64(&m.recipeCacheHits, 1)
}

// IncRecipeCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncRecipeCacheMiss() {
	atomic.AddUint64(&m.recipeCacheMisses, 1)
}

// ObserveIngredientChanges adds join-row writes of one reconcile pass.
func (m *InMemoryRecorder) ObserveIngredientChanges(inserted, updated, deleted int) {
	atomic.AddUint64(&m.joinRowsInserted, uint64(inserted))
	atomic.AddUint64(&m.joinRowsUpdated, uint64(updated))
	atomic.AddUint64(&m.joinRowsDeleted, uint64(deleted))
}

// AddIngredientsCreated adds newly created catalog rows.
func (m *InMemoryRecorder) AddIngredientsCreated(n int) {
	atomic.AddUint64(&m.ingredientsCreated, uint64(n))
}

// IncUserRegistered increments registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	atomic.AddUint64(&m.usersRegistered, 1)
}

// IncLoginFailed increments failed login counter.
func (m *InMemoryRecorder) IncLoginFailed() {
	atomic.AddUint64(&m.loginsFailed, 1)
}

// ObserveHTTPRequest counts a served request.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}

// IncRateLimitRejected counts a rejected request.
func (m *InMemoryRecorder) IncRateLimitRejected(scope string) {
	atomic.AddUint64(&m.rateLimitRejected, 1)
}

// IncPanicRecovered counts a recovered panic.
func (m *InMemoryRecorder) IncPanicRecovered() {
	atomic.AddUint64(&m.panicsRecovered, 1)
}
