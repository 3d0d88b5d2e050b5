package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/larder/larder/internal/cache"
	"github.com/larder/larder/internal/metrics"
	"github.com/larder/larder/internal/model"
	"github.com/larder/larder/internal/repository"
)

// DefaultPageSize is the listing page size when none is configured.
const DefaultPageSize = 10

// RecipeStore is the persistence the recipe service needs.
type RecipeStore interface {
	CreateRecipe(ctx context.Context, recipe *model.Recipe, ingredients []model.IngredientInput) (repository.ReconcileStats, error)
	GetRecipeByID(ctx context.Context, id int64) (*model.Recipe, error)
	ListRecipes(ctx context.Context, filter repository.RecipeFilter) ([]*model.Recipe, int, error)
	UpdateRecipe(ctx context.Context, id int64, update repository.RecipeUpdate) (*model.Recipe, repository.ReconcileStats, error)
	DeleteRecipe(ctx context.Context, id, ownerID int64) error
}

// RecipeCache is the read-through cache in front of RecipeStore.
// GetRecipe returns cache.ErrCacheMiss when the entry is absent.
type RecipeCache interface {
	GetRecipe(ctx context.Context, id int64) (*model.Recipe, error)
	SetRecipe(ctx context.Context, recipe *model.Recipe) error
	DeleteRecipe(ctx context.Context, id int64) error
}

// RecipeService handles recipe business logic.
type RecipeService struct {
	store    RecipeStore
	cache    RecipeCache
	pageSize int
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewRecipeService creates a new RecipeService. A nil cache disables caching.
func NewRecipeService(store RecipeStore, recipeCache RecipeCache, pageSize int, recorder metrics.Recorder, logger *slog.Logger) *RecipeService {
	if recipeCache == nil {
		recipeCache = noopRecipeCache{}
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecipeService{
		store:    store,
		cache:    recipeCache,
		pageSize: pageSize,
		metrics:  recorder,
		logger:   logger,
	}
}

// PageSize returns the fixed listing page size.
func (s *RecipeService) PageSize() int {
	return s.pageSize
}

// CreateRecipe validates the payload and stores a recipe owned by ownerID.
func (s *RecipeService) CreateRecipe(ctx context.Context, ownerID int64, in RecipeInput) (*model.Recipe, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	recipe := &model.Recipe{
		OwnerID:      ownerID,
		Title:        in.Title.Value,
		Description:  in.Description.Value,
		Instructions: optionalString(in.Instructions),
	}

	stats, err := s.store.CreateRecipe(ctx, recipe, ingredientInputs(in.Ingredients))
	if err != nil {
		return nil, mapStoreError(err)
	}

	s.recordReconcile(stats)
	s.metrics.IncRecipeCreated()

	if err := s.cache.SetRecipe(ctx, recipe); err != nil {
		s.logger.Debug("recipe cache warm failed", "recipe_id", recipe.ID, "error", err)
	}

	s.logger.Info("recipe_created",
		"recipe_id", recipe.ID,
		"owner_id", ownerID,
		"ingredients", len(recipe.Ingredients),
		"ingredients_created", stats.IngredientsCreated,
	)

	return recipe, nil
}

// GetRecipe retrieves a recipe, cache first.
func (s *RecipeService) GetRecipe(ctx context.Context, id int64) (*model.Recipe, error) {
	cached, err := s.cache.GetRecipe(ctx, id)
	if err == nil {
		s.metrics.IncRecipeCacheHit()
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("recipe cache read failed", "recipe_id", id, "error", err)
	}
	s.metrics.IncRecipeCacheMiss()

	recipe, err := s.store.GetRecipeByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}

	if err := s.cache.SetRecipe(ctx, recipe); err != nil {
		s.logger.Debug("recipe cache backfill failed", "recipe_id", id, "error", err)
	}

	return recipe, nil
}

// ListRecipesInput defines input for listing recipes.
type ListRecipesInput struct {
	Page   int
	Search string
}

// RecipePage is one page of a listing.
type RecipePage struct {
	Recipes []*model.Recipe
	Total   int
	Pages   int
	Page    int
}

// ListRecipes returns a page of recipes. Pages below 1 are treated as 1;
// pages past the end are empty.
func (s *RecipeService) ListRecipes(ctx context.Context, in ListRecipesInput) (*RecipePage, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}

	recipes, total, err := s.store.ListRecipes(ctx, repository.RecipeFilter{
		Search: in.Search,
		Limit:  s.pageSize,
		Offset: pageOffset(page, s.pageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	return &RecipePage{
		Recipes: recipes,
		Total:   total,
		Pages:   pageCount(total, s.pageSize),
		Page:    page,
	}, nil
}

// UpdateRecipe applies the fields present in the payload. A missing recipe is
// reported before any field is validated.
func (s *RecipeService) UpdateRecipe(ctx context.Context, id int64, in RecipeInput) (*model.Recipe, error) {
	if _, err := s.store.GetRecipeByID(ctx, id); err != nil {
		return nil, mapStoreError(err)
	}

	if err := validateUpdate(in); err != nil {
		return nil, err
	}

	update := repository.RecipeUpdate{
		Title:       optionalString(in.Title),
		Description: optionalString(in.Description),
	}
	if in.Instructions.Present {
		update.SetInstructions = true
		update.Instructions = optionalString(in.Instructions)
	}
	if in.Ingredients.Present {
		update.ReplaceIngredients = true
		update.Ingredients = ingredientInputs(in.Ingredients)
	}

	recipe, stats, err := s.store.UpdateRecipe(ctx, id, update)
	if err != nil {
		return nil, mapStoreError(err)
	}

	s.recordReconcile(stats)
	s.metrics.IncRecipeUpdated()
	s.invalidate(ctx, id)

	s.logger.Info("recipe_updated",
		"recipe_id", id,
		"ingredients_replaced", update.ReplaceIngredients,
		"rows_inserted", stats.Inserted,
		"rows_updated", stats.Updated,
		"rows_deleted", stats.Deleted,
	)

	return recipe, nil
}

// DeleteRecipe removes a recipe. Only its owner may delete it.
func (s *RecipeService) DeleteRecipe(ctx context.Context, id, actorID int64) error {
	if err := s.store.DeleteRecipe(ctx, id, actorID); err != nil {
		return mapStoreError(err)
	}

	s.metrics.IncRecipeDeleted()
	s.invalidate(ctx, id)

	s.logger.Info("recipe_deleted", "recipe_id", id, "owner_id", actorID)
	return nil
}

func (s *RecipeService) invalidate(ctx context.Context, id int64) {
	if err := s.cache.DeleteRecipe(ctx, id); err != nil {
		s.logger.Warn("recipe cache invalidation failed", "recipe_id", id, "error", err)
	}
}

func (s *RecipeService) recordReconcile(stats repository.ReconcileStats) {
	s.metrics.ObserveIngredientChanges(stats.Inserted, stats.Updated, stats.Deleted)
	if stats.IngredientsCreated > 0 {
		s.metrics.AddIngredientsCreated(stats.IngredientsCreated)
	}
}

// mapStoreError translates repository sentinels into service errors.
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrRecipeNotFound):
		return ErrRecipeNotFound
	case errors.Is(err, repository.ErrNotRecipeOwner):
		return ErrForbidden
	case errors.Is(err, repository.ErrInvalidIngredient):
		return ErrInvalidIngredientName
	case errors.Is(err, repository.ErrInvalidQuantity):
		return ErrInvalidIngredientQuantity
	}
	return err
}

// pageOffset returns the row offset of page. Offsets that would overflow
// saturate at math.MaxInt, which is past the end of any listing.
func pageOffset(page, size int) int {
	if page-1 > math.MaxInt/size {
		return math.MaxInt
	}
	return (page - 1) * size
}

func pageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

type noopRecipeCache struct{}

func (noopRecipeCache) GetRecipe(context.Context, int64) (*model.Recipe, error) {
	return nil, cache.ErrCacheMiss
}

func (noopRecipeCache) SetRecipe(context.Context, *model.Recipe) error { return nil }

func (noopRecipeCache) DeleteRecipe(context.Context, int64) error { return nil }
