// Package model defines domain entities for the application.
package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Recipe is a user-owned recipe with its resolved ingredient associations.
type Recipe struct {
	ID           int64              `json:"id"`
	OwnerID      int64              `json:"owner_id"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Instructions *string            `json:"instructions,omitempty"`
	Ingredients  []RecipeIngredient `json:"ingredients"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// IsOwnedBy reports whether userID created the recipe.
func (r *Recipe) IsOwnedBy(userID int64) bool {
	return r.OwnerID == userID
}

// Ingredient is a catalog entry shared by every recipe that references it.
type Ingredient struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RecipeIngredient is one join row: a catalog ingredient with a per-recipe quantity.
type RecipeIngredient struct {
	IngredientID int64  `json:"ingredient_id"`
	Name         string `json:"name"`
	Quantity     string `json:"quantity"`
	Position     int    `json:"position"`
}

// IngredientInput is a desired (name, quantity) pair as supplied by a caller.
type IngredientInput struct {
	Name     string
	Quantity string
}

// NormalizeIngredientName trims surrounding whitespace from a name.
func NormalizeIngredientName(name string) string {
	return strings.TrimSpace(name)
}

// IngredientKey is the catalog identity of a name.
// Matching is case-insensitive after trimming.
func IngredientKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CachedRecipe represents recipe data stored in a Redis hash.
type CachedRecipe struct {
	OwnerID         string `redis:"owner_id"`
	Title           string `redis:"title"`
	Description     string `redis:"description"`
	Instructions    string `redis:"instructions"`
	HasInstructions string `redis:"has_instructions"` // "1" or "0"
	Ingredients     string `redis:"ingredients"`      // JSON array
	CreatedAt       string `redis:"created_at"`       // RFC3339Nano
	UpdatedAt       string `redis:"updated_at"`       // RFC3339Nano
}

// ToCachedRecipe converts a Recipe to its cache representation.
func (r *Recipe) ToCachedRecipe() (*CachedRecipe, error) {
	ingredients := r.Ingredients
	if ingredients == nil {
		ingredients = []RecipeIngredient{}
	}
	encoded, err := json.Marshal(ingredients)
	if err != nil {
		return nil, err
	}

	cached := &CachedRecipe{
		OwnerID:         strconv.FormatInt(r.OwnerID, 10),
		Title:           r.Title,
		Description:     r.Description,
		HasInstructions: "0",
		Ingredients:     string(encoded),
		CreatedAt:       r.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:       r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if r.Instructions != nil {
		cached.Instructions = *r.Instructions
		cached.HasInstructions = "1"
	}
	return cached, nil
}

// ToRecipe converts a cache entry back to a Recipe with the given id.
func (c *CachedRecipe) ToRecipe(id int64) (*Recipe, error) {
	ownerID, err := strconv.ParseInt(c.OwnerID, 10, 64)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, c.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	var ingredients []RecipeIngredient
	if err := json.Unmarshal([]byte(c.Ingredients), &ingredients); err != nil {
		return nil, err
	}

	recipe := &Recipe{
		ID:          id,
		OwnerID:     ownerID,
		Title:       c.Title,
		Description: c.Description,
		Ingredients: ingredients,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
	if c.HasInstructions == "1" {
		instructions := c.Instructions
		recipe.Instructions = &instructions
	}
	return recipe, nil
}
