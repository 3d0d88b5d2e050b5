package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/larder/larder/internal/model"
)

// Common errors for recipe repository operations.
var (
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrNotRecipeOwner = errors.New("recipe belongs to another user")
)

const recipeColumns = `r.id, r.user_id, r.title, r.description, r.instructions, r.created_at, r.updated_at`

// RecipeFilter contains options for listing recipes.
type RecipeFilter struct {
	Search string // case-insensitive substring of title or any ingredient name
	Limit  int
	Offset int
}

// RecipeUpdate holds the fields present in a partial update.
// Nil pointers leave the column untouched.
type RecipeUpdate struct {
	Title              *string
	Description        *string
	SetInstructions    bool
	Instructions       *string
	ReplaceIngredients bool
	Ingredients        []model.IngredientInput
}

// CreateRecipe inserts a recipe and its ingredient associations in one
// transaction. ID, timestamps and Ingredients are filled in on success.
func (r *Repository) CreateRecipe(ctx context.Context, recipe *model.Recipe, ingredients []model.IngredientInput) (ReconcileStats, error) {
	var stats ReconcileStats

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO recipes (user_id, title, description, instructions)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at
		`
		if err := tx.QueryRow(ctx, query,
			recipe.OwnerID,
			recipe.Title,
			recipe.Description,
			recipe.Instructions,
		).Scan(&recipe.ID, &recipe.CreatedAt, &recipe.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert recipe: %w", err)
		}

		rows, s, err := r.ReconcileIngredients(ctx, tx, recipe.ID, ingredients)
		if err != nil {
			return err
		}
		recipe.Ingredients = rows
		stats = s
		return nil
	})
	if err != nil {
		return ReconcileStats{}, wrapWriteErr("create recipe", err)
	}

	return stats, nil
}

// GetRecipeByID retrieves a recipe with its ingredients.
func (r *Repository) GetRecipeByID(ctx context.Context, id int64) (*model.Recipe, error) {
	return loadRecipe(ctx, r.pool, id)
}

// ListRecipes returns one page of recipes ordered by id, plus the total number
// of recipes matching the filter.
func (r *Repository) ListRecipes(ctx context.Context, filter RecipeFilter) ([]*model.Recipe, int, error) {
	var (
		where string
		args  []any
	)
	if search := filter.Search; search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		where = `
			WHERE r.title ILIKE $1
			   OR EXISTS (
				SELECT 1
				FROM recipe_ingredients ri
				JOIN ingredients i ON i.id = ri.ingredient_id
				WHERE ri.recipe_id = r.id AND i.name ILIKE $1
			   )`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM recipes r`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	if total == 0 || filter.Offset < 0 || filter.Offset >= total {
		return []*model.Recipe{}, total, nil
	}

	argIndex := len(args) + 1
	query := `SELECT ` + recipeColumns + ` FROM recipes r` + where +
		fmt.Sprintf(" ORDER BY r.id ASC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	recipes := make([]*model.Recipe, 0, filter.Limit)
	ids := make([]int64, 0, filter.Limit)
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, recipe)
		ids = append(ids, recipe.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating recipes: %w", err)
	}
	rows.Close()

	byRecipe, err := listIngredientsForRecipes(ctx, r.pool, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, recipe := range recipes {
		recipe.Ingredients = nonNil(byRecipe[recipe.ID])
	}

	return recipes, total, nil
}

// UpdateRecipe applies a partial update under a row lock and returns the
// stored result. updated_at is always bumped.
func (r *Repository) UpdateRecipe(ctx context.Context, id int64, update RecipeUpdate) (*model.Recipe, ReconcileStats, error) {
	var (
		recipe *model.Recipe
		stats  ReconcileStats
	)

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockRecipe(ctx, tx, id, nil); err != nil {
			return err
		}

		query := `
			UPDATE recipes
			SET title = COALESCE($2, title),
			    description = COALESCE($3, description),
			    instructions = CASE WHEN $4::boolean THEN $5::text ELSE instructions END,
			    updated_at = NOW()
			WHERE id = $1
		`
		if _, err := tx.Exec(ctx, query,
			id,
			update.Title,
			update.Description,
			update.SetInstructions,
			update.Instructions,
		); err != nil {
			return fmt.Errorf("failed to update recipe: %w", err)
		}

		if update.ReplaceIngredients {
			_, s, err := r.ReconcileIngredients(ctx, tx, id, update.Ingredients)
			if err != nil {
				return err
			}
			stats = s
		}

		loaded, err := loadRecipe(ctx, tx, id)
		if err != nil {
			return err
		}
		recipe = loaded
		return nil
	})
	if err != nil {
		return nil, ReconcileStats{}, wrapWriteErr("update recipe", err)
	}

	return recipe, stats, nil
}

// DeleteRecipe removes a recipe owned by ownerID: join rows first, then the
// recipe row, in one transaction. Catalog entries are kept.
func (r *Repository) DeleteRecipe(ctx context.Context, id, ownerID int64) error {
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockRecipe(ctx, tx, id, &ownerID); err != nil {
			return err
		}

		if _, err := deleteRecipeIngredients(ctx, tx, id); err != nil {
			return err
		}

		result, err := tx.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete recipe: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrRecipeNotFound
		}
		return nil
	})
	if err != nil {
		return wrapWriteErr("delete recipe", err)
	}
	return nil
}

// lockRecipe takes a row lock on the recipe. When ownerID is set the recipe
// must belong to that user.
func lockRecipe(ctx context.Context, tx pgx.Tx, id int64, ownerID *int64) error {
	var owner int64
	err := tx.QueryRow(ctx, `SELECT user_id FROM recipes WHERE id = $1 FOR UPDATE`, id).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRecipeNotFound
		}
		return fmt.Errorf("failed to lock recipe: %w", err)
	}
	if ownerID != nil && owner != *ownerID {
		return ErrNotRecipeOwner
	}
	return nil
}

func loadRecipe(ctx context.Context, q querier, id int64) (*model.Recipe, error) {
	row := q.QueryRow(ctx, `SELECT `+recipeColumns+` FROM recipes r WHERE r.id = $1`, id)
	recipe, err := scanRecipe(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}

	ingredients, err := listRecipeIngredients(ctx, q, id)
	if err != nil {
		return nil, err
	}
	recipe.Ingredients = nonNil(ingredients)
	return recipe, nil
}

func scanRecipe(row pgx.Row) (*model.Recipe, error) {
	var recipe model.Recipe
	err := row.Scan(
		&recipe.ID,
		&recipe.OwnerID,
		&recipe.Title,
		&recipe.Description,
		&recipe.Instructions,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

// wrapWriteErr passes sentinel errors through and wraps store faults.
func wrapWriteErr(op string, err error) error {
	switch {
	case errors.Is(err, ErrRecipeNotFound),
		errors.Is(err, ErrNotRecipeOwner),
		errors.Is(err, ErrInvalidIngredient),
		errors.Is(err, ErrInvalidQuantity):
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// escapeLike escapes LIKE metacharacters so search input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nonNil(rows []model.RecipeIngredient) []model.RecipeIngredient {
	if rows == nil {
		return []model.RecipeIngredient{}
	}
	return rows
}
