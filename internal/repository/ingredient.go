package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/larder/larder/internal/model"
	"github.com/lib/pq"
)

// Catalog errors.
var (
	ErrInvalidIngredient  = errors.New("invalid ingredient name")
	ErrInvalidQuantity    = errors.New("invalid ingredient quantity")
	ErrIngredientNotFound = errors.New("ingredient not found")
)

// ResolveIngredients maps every name to its catalog entry, keyed by
// model.IngredientKey. Names that differ only in case or surrounding space
// resolve to one entry. Missing entries are created with the first spelling
// seen; the returned count is how many rows this call inserted.
func (r *Repository) ResolveIngredients(ctx context.Context, tx pgx.Tx, names []string) (map[string]model.Ingredient, int, error) {
	var (
		keys     []string
		spelling = make(map[string]string, len(names))
	)
	for _, name := range names {
		key := model.IngredientKey(name)
		if key == "" {
			return nil, 0, ErrInvalidIngredient
		}
		if _, seen := spelling[key]; seen {
			continue
		}
		spelling[key] = model.NormalizeIngredientName(name)
		keys = append(keys, key)
	}

	resolved, err := lookupIngredients(ctx, tx, keys)
	if err != nil {
		return nil, 0, err
	}

	created := 0
	for _, key := range missingKeys(keys, resolved) {
		ingredient, inserted, err := insertIngredient(ctx, tx, spelling[key])
		if err != nil {
			return nil, 0, err
		}
		if inserted {
			created++
		}
		resolved[key] = ingredient
	}

	return resolved, created, nil
}

// missingKeys returns the keys absent from resolved, sorted. Inserting in one
// global order keeps concurrent writers from deadlocking on the unique index.
func missingKeys(keys []string, resolved map[string]model.Ingredient) []string {
	missing := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := resolved[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

// ResolveIngredient resolves a single name in its own transaction.
func (r *Repository) ResolveIngredient(ctx context.Context, name string) (model.Ingredient, error) {
	var ingredient model.Ingredient
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		resolved, _, err := r.ResolveIngredients(ctx, tx, []string{name})
		if err != nil {
			return err
		}
		ingredient = resolved[model.IngredientKey(name)]
		return nil
	})
	return ingredient, err
}

// GetIngredientByName looks up a catalog entry case-insensitively.
func (r *Repository) GetIngredientByName(ctx context.Context, name string) (model.Ingredient, error) {
	ingredient, err := findIngredient(ctx, r.pool, model.NormalizeIngredientName(name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Ingredient{}, ErrIngredientNotFound
		}
		return model.Ingredient{}, fmt.Errorf("failed to get ingredient: %w", err)
	}
	return ingredient, nil
}

// CountIngredientsByName returns how many catalog rows match name
// case-insensitively. The unique index keeps this at most 1.
func (r *Repository) CountIngredientsByName(ctx context.Context, name string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ingredients WHERE lower(name) = lower($1)`,
		model.NormalizeIngredientName(name),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ingredients: %w", err)
	}
	return count, nil
}

// lookupIngredients fetches existing entries for the given keys in one round-trip.
func lookupIngredients(ctx context.Context, q querier, keys []string) (map[string]model.Ingredient, error) {
	resolved := make(map[string]model.Ingredient, len(keys))
	if len(keys) == 0 {
		return resolved, nil
	}

	query := `
		SELECT i.id, i.name, n.input
		FROM unnest($1::text[]) AS n(input)
		JOIN ingredients i ON lower(i.name) = lower(n.input)
	`

	rows, err := q.Query(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("failed to look up ingredients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ingredient model.Ingredient
			input      string
		)
		if err := rows.Scan(&ingredient.ID, &ingredient.Name, &input); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		resolved[model.IngredientKey(input)] = ingredient
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ingredients: %w", err)
	}

	return resolved, nil
}

// insertIngredient creates a catalog entry. When a concurrent writer created
// the same name first, the existing entry is returned instead.
func insertIngredient(ctx context.Context, q querier, name string) (model.Ingredient, bool, error) {
	var ingredient model.Ingredient
	err := q.QueryRow(ctx, `
		INSERT INTO ingredients (name)
		VALUES ($1)
		ON CONFLICT DO NOTHING
		RETURNING id, name
	`, name).Scan(&ingredient.ID, &ingredient.Name)
	if err == nil {
		return ingredient, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Ingredient{}, false, fmt.Errorf("failed to insert ingredient: %w", err)
	}

	ingredient, err = findIngredient(ctx, q, name)
	if err != nil {
		return model.Ingredient{}, false, fmt.Errorf("failed to resolve ingredient after conflict: %w", err)
	}
	return ingredient, false, nil
}

func findIngredient(ctx context.Context, q querier, name string) (model.Ingredient, error) {
	var ingredient model.Ingredient
	err := q.QueryRow(ctx,
		`SELECT id, name FROM ingredients WHERE lower(name) = lower($1)`, name,
	).Scan(&ingredient.ID, &ingredient.Name)
	return ingredient, err
}
