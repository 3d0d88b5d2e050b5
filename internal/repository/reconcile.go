package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/larder/larder/internal/model"
)

// IngredientPlan is the minimal set of join-row changes that turns a recipe's
// current associations into the target ones.
type IngredientPlan struct {
	Insert []model.RecipeIngredient
	Update []model.RecipeIngredient
	Delete []int64
}

// IsEmpty reports whether applying the plan would change nothing.
func (p IngredientPlan) IsEmpty() bool {
	return len(p.Insert) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

// ReconcileStats summarizes what a reconcile pass did.
type ReconcileStats struct {
	Inserted           int
	Updated            int
	Deleted            int
	IngredientsCreated int
}

func (p IngredientPlan) stats(created int) ReconcileStats {
	return ReconcileStats{
		Inserted:           len(p.Insert),
		Updated:            len(p.Update),
		Deleted:            len(p.Delete),
		IngredientsCreated: created,
	}
}

// ValidateIngredients checks every pair before anything is written.
func ValidateIngredients(desired []model.IngredientInput) error {
	for _, in := range desired {
		if model.IngredientKey(in.Name) == "" {
			return ErrInvalidIngredient
		}
		if strings.TrimSpace(in.Quantity) == "" {
			return ErrInvalidQuantity
		}
	}
	return nil
}

// BuildTarget turns the desired pairs into join rows keyed by catalog id.
// A repeated ingredient keeps the position of its first occurrence and the
// quantity of its last.
func BuildTarget(desired []model.IngredientInput, catalog map[string]model.Ingredient) []model.RecipeIngredient {
	target := make([]model.RecipeIngredient, 0, len(desired))
	index := make(map[int64]int, len(desired))

	for _, in := range desired {
		ingredient, ok := catalog[model.IngredientKey(in.Name)]
		if !ok {
			continue
		}
		if i, seen := index[ingredient.ID]; seen {
			target[i].Quantity = in.Quantity
			continue
		}
		index[ingredient.ID] = len(target)
		target = append(target, model.RecipeIngredient{
			IngredientID: ingredient.ID,
			Name:         ingredient.Name,
			Quantity:     in.Quantity,
			Position:     len(target),
		})
	}

	return target
}

// DiffIngredients compares current join rows with the target rows.
// Rows whose quantity and position already match produce no change.
func DiffIngredients(current, target []model.RecipeIngredient) IngredientPlan {
	var plan IngredientPlan

	existing := make(map[int64]model.RecipeIngredient, len(current))
	for _, row := range current {
		existing[row.IngredientID] = row
	}

	wanted := make(map[int64]struct{}, len(target))
	for _, row := range target {
		wanted[row.IngredientID] = struct{}{}

		old, ok := existing[row.IngredientID]
		switch {
		case !ok:
			plan.Insert = append(plan.Insert, row)
		case old.Quantity != row.Quantity || old.Position != row.Position:
			plan.Update = append(plan.Update, row)
		}
	}

	for _, row := range current {
		if _, ok := wanted[row.IngredientID]; !ok {
			plan.Delete = append(plan.Delete, row.IngredientID)
		}
	}

	return plan
}

// ReconcileIngredients makes the recipe's associations match desired inside tx
// and returns the resulting rows in position order. Validation runs before any
// catalog or join mutation.
func (r *Repository) ReconcileIngredients(ctx context.Context, tx pgx.Tx, recipeID int64, desired []model.IngredientInput) ([]model.RecipeIngredient, ReconcileStats, error) {
	if err := ValidateIngredients(desired); err != nil {
		return nil, ReconcileStats{}, err
	}

	names := make([]string, len(desired))
	for i, in := range desired {
		names[i] = in.Name
	}

	catalog, created, err := r.ResolveIngredients(ctx, tx, names)
	if err != nil {
		return nil, ReconcileStats{}, err
	}

	current, err := listRecipeIngredients(ctx, tx, recipeID)
	if err != nil {
		return nil, ReconcileStats{}, err
	}

	target := BuildTarget(desired, catalog)
	plan := DiffIngredients(current, target)

	if err := applyIngredientPlan(ctx, tx, recipeID, plan); err != nil {
		return nil, ReconcileStats{}, fmt.Errorf("failed to apply ingredient plan: %w", err)
	}

	return target, plan.stats(created), nil
}
