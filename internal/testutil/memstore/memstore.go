// Package memstore provides in-memory stand-ins for the Postgres repository
// and the Redis cache, for unit tests of the service and HTTP layers.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/larder/larder/internal/cache"
	"github.com/larder/larder/internal/model"
	"github.com/larder/larder/internal/repository"
)

// Store is an in-memory repository. It applies the same reconcile rules as
// the Postgres repository through repository.BuildTarget and DiffIngredients.
type Store struct {
	mu sync.Mutex

	// Err, when set, is returned by every call.
	Err error

	users      map[int64]*model.User
	nextUserID int64

	catalog          map[string]model.Ingredient
	nextIngredientID int64

	recipes      map[int64]*model.Recipe
	joins        map[int64][]model.RecipeIngredient
	nextRecipeID int64

	// LastPlan is the plan applied by the most recent reconcile.
	LastPlan repository.IngredientPlan
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:   make(map[int64]*model.User),
		catalog: make(map[string]model.Ingredient),
		recipes: make(map[int64]*model.Recipe),
		joins:   make(map[int64][]model.RecipeIngredient),
	}
}

// ============================================================================
// Users
// ============================================================================

// CreateUser stores a user and assigns its ID.
func (s *Store) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	for _, u := range s.users {
		if u.Username == user.Username {
			return repository.ErrUsernameExists
		}
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}

	s.nextUserID++
	user.ID = s.nextUserID
	user.CreatedAt = time.Now().UTC()
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// GetUserByEmail retrieves a user by email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	for _, u := range s.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// UsernameExists reports whether the username is taken.
func (s *Store) UsernameExists(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}

	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// EmailExists reports whether the email is taken.
func (s *Store) EmailExists(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}

	for _, u := range s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// ============================================================================
// Recipes
// ============================================================================

// CreateRecipe stores a recipe and reconciles its ingredients.
func (s *Store) CreateRecipe(_ context.Context, recipe *model.Recipe, ingredients []model.IngredientInput) (repository.ReconcileStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return repository.ReconcileStats{}, s.Err
	}
	if err := repository.ValidateIngredients(ingredients); err != nil {
		return repository.ReconcileStats{}, err
	}

	s.nextRecipeID++
	now := time.Now().UTC()
	recipe.ID = s.nextRecipeID
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	stats := s.reconcile(recipe.ID, ingredients)
	recipe.Ingredients = copyRows(s.joins[recipe.ID])

	stored := *recipe
	stored.Ingredients = nil
	s.recipes[recipe.ID] = &stored

	return stats, nil
}

// GetRecipeByID retrieves a recipe with its ingredients.
func (s *Store) GetRecipeByID(_ context.Context, id int64) (*model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.load(id)
}

// ListRecipes returns a page ordered by ID and the total match count.
func (s *Store) ListRecipes(_ context.Context, filter repository.RecipeFilter) ([]*model.Recipe, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}

	if filter.Offset < 0 {
		return nil, 0, fmt.Errorf("negative offset %d", filter.Offset)
	}

	search := strings.ToLower(filter.Search)

	ids := make([]int64, 0, len(s.recipes))
	for id, r := range s.recipes {
		if search == "" || s.matches(r, search) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := len(ids)
	out := []*model.Recipe{}
	for i := filter.Offset; i < total && len(out) < filter.Limit; i++ {
		r, _ := s.load(ids[i])
		out = append(out, r)
	}
	return out, total, nil
}

// UpdateRecipe applies a partial update.
func (s *Store) UpdateRecipe(_ context.Context, id int64, update repository.RecipeUpdate) (*model.Recipe, repository.ReconcileStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, repository.ReconcileStats{}, s.Err
	}

	r, ok := s.recipes[id]
	if !ok {
		return nil, repository.ReconcileStats{}, repository.ErrRecipeNotFound
	}
	if update.ReplaceIngredients {
		if err := repository.ValidateIngredients(update.Ingredients); err != nil {
			return nil, repository.ReconcileStats{}, err
		}
	}

	if update.Title != nil {
		r.Title = *update.Title
	}
	if update.Description != nil {
		r.Description = *update.Description
	}
	if update.SetInstructions {
		r.Instructions = update.Instructions
	}
	r.UpdatedAt = time.Now().UTC()

	var stats repository.ReconcileStats
	if update.ReplaceIngredients {
		stats = s.reconcile(id, update.Ingredients)
	}

	out, err := s.load(id)
	return out, stats, err
}

// DeleteRecipe removes a recipe owned by ownerID and its join rows.
func (s *Store) DeleteRecipe(_ context.Context, id, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	r, ok := s.recipes[id]
	if !ok {
		return repository.ErrRecipeNotFound
	}
	if r.OwnerID != ownerID {
		return repository.ErrNotRecipeOwner
	}

	delete(s.joins, id)
	delete(s.recipes, id)
	return nil
}

// CatalogSize returns the number of catalog entries.
func (s *Store) CatalogSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.catalog)
}

// JoinRows returns the number of join rows referencing a recipe.
func (s *Store) JoinRows(recipeID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.joins[recipeID])
}

func (s *Store) reconcile(recipeID int64, desired []model.IngredientInput) repository.ReconcileStats {
	created := 0
	for _, in := range desired {
		key := model.IngredientKey(in.Name)
		if _, ok := s.catalog[key]; ok {
			continue
		}
		s.nextIngredientID++
		s.catalog[key] = model.Ingredient{ID: s.nextIngredientID, Name: model.NormalizeIngredientName(in.Name)}
		created++
	}

	target := repository.BuildTarget(desired, s.catalog)
	plan := repository.DiffIngredients(s.joins[recipeID], target)
	s.LastPlan = plan
	s.joins[recipeID] = target

	return repository.ReconcileStats{
		Inserted:           len(plan.Insert),
		Updated:            len(plan.Update),
		Deleted:            len(plan.Delete),
		IngredientsCreated: created,
	}
}

func (s *Store) load(id int64) (*model.Recipe, error) {
	r, ok := s.recipes[id]
	if !ok {
		return nil, repository.ErrRecipeNotFound
	}
	out := *r
	out.Ingredients = copyRows(s.joins[id])
	return &out, nil
}

func (s *Store) matches(r *model.Recipe, search string) bool {
	if strings.Contains(strings.ToLower(r.Title), search) {
		return true
	}
	for _, row := range s.joins[r.ID] {
		if strings.Contains(strings.ToLower(row.Name), search) {
			return true
		}
	}
	return false
}

func copyRows(rows []model.RecipeIngredient) []model.RecipeIngredient {
	out := make([]model.RecipeIngredient, len(rows))
	copy(out, rows)
	return out
}

// ============================================================================
// Cache
// ============================================================================

// Cache is an in-memory recipe cache and token denylist.
type Cache struct {
	mu sync.Mutex

	// Err, when set, is returned by every call.
	Err error

	recipes map[int64]model.Recipe
	revoked map[string]time.Time
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{
		recipes: make(map[int64]model.Recipe),
		revoked: make(map[string]time.Time),
	}
}

// GetRecipe returns cache.ErrCacheMiss when absent.
func (c *Cache) GetRecipe(_ context.Context, id int64) (*model.Recipe, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	r, ok := c.recipes[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	r.Ingredients = copyRows(r.Ingredients)
	return &r, nil
}

// SetRecipe stores a copy of recipe.
func (c *Cache) SetRecipe(_ context.Context, recipe *model.Recipe) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	stored := *recipe
	stored.Ingredients = copyRows(recipe.Ingredients)
	c.recipes[recipe.ID] = stored
	return nil
}

// DeleteRecipe evicts a recipe.
func (c *Cache) DeleteRecipe(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	delete(c.recipes, id)
	return nil
}

// HasRecipe reports whether a recipe is cached.
func (c *Cache) HasRecipe(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.recipes[id]
	return ok
}

// RevokeToken denylists a token id.
func (c *Cache) RevokeToken(_ context.Context, tokenID string, expiresAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.revoked[tokenID] = expiresAt
	return nil
}

// IsTokenRevoked reports whether a token id is denylisted.
func (c *Cache) IsTokenRevoked(_ context.Context, tokenID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, c.Err
	}
	_, ok := c.revoked[tokenID]
	return ok, nil
}
