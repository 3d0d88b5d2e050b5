package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/larder/larder/internal/model"
)

const recipeKeyPrefix = "recipe:"

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

func recipeKey(id int64) string {
	return recipeKeyPrefix + strconv.FormatInt(id, 10)
}

// GetRecipe retrieves a recipe from cache by ID.
// Returns ErrCacheMiss if not found. A corrupt entry is evicted and reported
// as a miss.
func (c *Cache) GetRecipe(ctx context.Context, id int64) (*model.Recipe, error) {
	key := recipeKey(id)

	result, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	cached := &model.CachedRecipe{
		OwnerID:         result["owner_id"],
		Title:           result["title"],
		Description:     result["description"],
		Instructions:    result["instructions"],
		HasInstructions: result["has_instructions"],
		Ingredients:     result["ingredients"],
		CreatedAt:       result["created_at"],
		UpdatedAt:       result["updated_at"],
	}

	recipe, err := cached.ToRecipe(id)
	if err != nil {
		c.client.Del(ctx, key)
		return nil, ErrCacheMiss
	}

	return recipe, nil
}

// SetRecipe stores a recipe in cache for the configured TTL.
func (c *Cache) SetRecipe(ctx context.Context, recipe *model.Recipe) error {
	key := recipeKey(recipe.ID)

	cached, err := recipe.ToCachedRecipe()
	if err != nil {
		return fmt.Errorf("encode recipe: %w", err)
	}

	fields := map[string]any{
		"owner_id":         cached.OwnerID,
		"title":            cached.Title,
		"description":      cached.Description,
		"instructions":     cached.Instructions,
		"has_instructions": cached.HasInstructions,
		"ingredients":      cached.Ingredients,
		"created_at":       cached.CreatedAt,
		"updated_at":       cached.UpdatedAt,
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, c.recipeTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache recipe: %w", err)
	}

	return nil
}

// DeleteRecipe removes a recipe from cache.
func (c *Cache) DeleteRecipe(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, recipeKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete recipe from cache: %w", err)
	}
	return nil
}
