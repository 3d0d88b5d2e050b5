package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/larder/larder/internal/model"
	"github.com/lib/pq"
)

const recipeIngredientColumns = `ri.recipe_id, ri.ingredient_id, i.name, ri.quantity, ri.position`

// listRecipeIngredients returns the join rows of one recipe in position order.
func listRecipeIngredients(ctx context.Context, q querier, recipeID int64) ([]model.RecipeIngredient, error) {
	byRecipe, err := listIngredientsForRecipes(ctx, q, []int64{recipeID})
	if err != nil {
		return nil, err
	}
	return byRecipe[recipeID], nil
}

// listIngredientsForRecipes loads the join rows of several recipes in one query.
func listIngredientsForRecipes(ctx context.Context, q querier, recipeIDs []int64) (map[int64][]model.RecipeIngredient, error) {
	result := make(map[int64][]model.RecipeIngredient, len(recipeIDs))
	if len(recipeIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT ` + recipeIngredientColumns + `
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.recipe_id = ANY($1)
		ORDER BY ri.recipe_id, ri.position, ri.ingredient_id
	`

	rows, err := q.Query(ctx, query, pq.Array(recipeIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list recipe ingredients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			recipeID int64
			row      model.RecipeIngredient
		)
		if err := rows.Scan(&recipeID, &row.IngredientID, &row.Name, &row.Quantity, &row.Position); err != nil {
			return nil, fmt.Errorf("failed to scan recipe ingredient: %w", err)
		}
		result[recipeID] = append(result[recipeID], row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipe ingredients: %w", err)
	}

	return result, nil
}

// applyIngredientPlan writes the plan in one batch: deletes, then in-place
// updates, then inserts.
func applyIngredientPlan(ctx context.Context, tx pgx.Tx, recipeID int64, plan IngredientPlan) error {
	if plan.IsEmpty() {
		return nil
	}

	batch := &pgx.Batch{}

	if len(plan.Delete) > 0 {
		batch.Queue(`
			DELETE FROM recipe_ingredients
			WHERE recipe_id = $1 AND ingredient_id = ANY($2)
		`, recipeID, pq.Array(plan.Delete))
	}

	for _, row := range plan.Update {
		batch.Queue(`
			UPDATE recipe_ingredients
			SET quantity = $3, position = $4
			WHERE recipe_id = $1 AND ingredient_id = $2
		`, recipeID, row.IngredientID, row.Quantity, row.Position)
	}

	for _, row := range plan.Insert {
		batch.Queue(`
			INSERT INTO recipe_ingredients (recipe_id, ingredient_id, quantity, position)
			VALUES ($1, $2, $3, $4)
		`, recipeID, row.IngredientID, row.Quantity, row.Position)
	}

	return tx.SendBatch(ctx, batch).Close()
}

// deleteRecipeIngredients removes every join row of a recipe.
func deleteRecipeIngredients(ctx context.Context, q querier, recipeID int64) (int64, error) {
	result, err := q.Exec(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = $1`, recipeID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete recipe ingredients: %w", err)
	}
	return result.RowsAffected(), nil
}

// CountRecipeIngredients returns the number of join rows referencing a recipe.
func (r *Repository) CountRecipeIngredients(ctx context.Context, recipeID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM recipe_ingredients WHERE recipe_id = $1`, recipeID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recipe ingredients: %w", err)
	}
	return count, nil
}
