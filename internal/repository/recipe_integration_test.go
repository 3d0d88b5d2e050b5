//go:build integration

package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/larder/larder/internal/model"
	"github.com/larder/larder/internal/testutil"
)

// ============================================================================
// Recipe Repository Integration Tests
// ============================================================================

func TestIntegrationRecipeRepository_CreateRecipe(t *testing.T) {
	ctx, repo, owner := newRecipeTestEnv(t)

	recipe := testutil.NewTestRecipe(t, owner.ID, "Spaghetti Carbonara")
	stats, err := repo.CreateRecipe(ctx, recipe, []model.IngredientInput{
		{Name: "Spaghetti", Quantity: "200g"},
		{Name: "Pancetta", Quantity: "150g"},
	})
	if err != nil {
		t.Fatalf("CreateRecipe failed: %v", err)
	}

	if recipe.ID == 0 {
		t.Fatal("ID should be set")
	}
	if len(recipe.Ingredients) != 2 {
		t.Fatalf("expected 2 ingredients, got %d", len(recipe.Ingredients))
	}
	if stats.Inserted != 2 || stats.IngredientsCreated != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	got, err := repo.GetRecipeByID(ctx, recipe.ID)
	if err != nil {
		t.Fatalf("GetRecipeByID failed: %v", err)
	}
	if got.Ingredients[0].Name != "Spaghetti" || got.Ingredients[1].Quantity != "150g" {
		t.Errorf("unexpected ingredients: %+v", got.Ingredients)
	}
	if got.OwnerID != owner.ID {
		t.Errorf("OwnerID = %d, want %d", got.OwnerID, owner.ID)
	}
}

func TestIntegrationRecipeRepository_CreateRecipe_DuplicateNames(t *testing.T) {
	ctx, repo, owner := newRecipeTestEnv(t)

	recipe := testutil.NewTestRecipe(t, owner.ID, "Pancakes")
	_, err := repo.CreateRecipe(ctx, recipe, []model.IngredientInput{
		{Name: "Flour", Quantity: "1 cup"},
		{Name: "Milk", Quantity: "1 cup"},
		{Name: "flour", Quantity: "2 cups"},
	})
	if err != nil {
		t.Fatalf("CreateRecipe failed: %v", err)
	}

	if len(recipe.Ingredients) != 2 {
		t.Fatalf("expected 2 ingredients after dedup, got %d", len(recipe.Ingredients))
	}
	if recipe.Ingredients[0].Name != "Flour" || recipe.Ingredients[0].Quantity != "2 cups" {
		t.Errorf("last occurrence should win: %+v", recipe.Ingredients[0])
	}
}

func TestIntegrationRecipeRepository_CreateRecipe_InvalidRollsBack(t *testing.T) {
	ctx, repo, owner := newRecipeTestEnv(t)

	recipe := testutil.NewTestRecipe(t, owner.ID, "Broken")
	_, err := repo.CreateRecipe(ctx, recipe, []model.IngredientInput{
		{Name: "Salt", Quantity: "1 tsp"},
		{Name: "Pepper", Quantity: " "},
	})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}

	_, total, err := repo.ListRecipes(ctx, RecipeFilter{Limit: 10})
	if err != nil {
		t.Fatalf("ListRecipes failed: %v", err)
	}
	if total != 0 {
		t.Errorf("no recipe should be stored, total = %d", total)
	}
	if n, _ := repo.CountIngredientsByName(ctx, "Salt"); n != 0 {
		t.Errorf("catalog should be untouched, Salt count = %d", n)
	}
}

func TestIntegrationRecipeRepository_SharedCatalog(t *testing.T) {
	ctx, repo, owner := newRecipeTestEnv(t)

	bread := testutil.NewTestRecipe(t, owner.ID, "Bread")
	if _, err := repo.CreateRecipe(ctx, bread, []model.IngredientInput{{Name: "Flour", Quantity: "500g"}}); err != nil {
		t.Fatalf("CreateRecipe failed: %v", err)
	}
	cake := testutil.NewTestRecipe(t, owner.ID, "Cake")
	stats, err := repo.CreateRecipe(ctx, cake, []model.IngredientInput{{Name: "FLOUR", Quantity: "250g"}})
	if err != nil {
		t.Fatalf("CreateRecipe failed: %v", err)
	}

	if stats.IngredientsCreated != 0 {
		t.Errorf("second recipe should reuse catalog entry, created = %d", stats.IngredientsCreated)
	}
	count, err := repo.CountIngredientsByName(ctx, "flour")
	if err != nil {
		t.Fatalf("CountIngredientsByName failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 catalog row for Flour, got %d", count)
	}
	if cake.Ingredients[0].Name != "Flour" || cake.Ingredients[0].Quantity != "250g" {
		t.Errorf("cake ingredient = %+v", cake.Ingredients[0])
	}
	if bread.Ingredients[0].Quantity != "500g" {
		t.Errorf("bread ingredient = %+v", bread.Ingredients[0])
	}
}

func TestIntegrationRecipeRepository_ResolveIngredient_Concurrent(t *testing.T) {
	ctx, repo, _ := newRecipeTestEnv(t)

	const workers = 8
	ids := make([]int64, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ingredient, err := repo.ResolveIngredient(ctx, "Saffron")
			ids[i], errs[i] = ingredient.ID, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("worker %d resolved id %d, want %d", i, ids[i], ids[0])
		}
	}
	if count, _ := repo.CountIngredientsByName(ctx, "saffron"); count != 1 {
		t.Errorf("expected 1 catalog row, got %d", count)
	}
}

func TestIntegrationRecipeRepository_CreateRecipe_OppositeOrderConcurrent(t *testing.T) {
	ctx, repo, owner := newRecipeTestEnv(t)

	forward := []model.IngredientInput{
		{Name: "Cardamom", Quantity: "3 pods"},
		{Name: "Nutmeg", Quantity: "1 pinch"},
		{Name: "Star anise", Quantity: "2"},
	}
	backward := []model.IngredientInput{forward[2], forward[1], forward[0]}

	const rounds = 6
	errs := make([]error, rounds*2)

	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		for j, ingredients := range [][]model.IngredientInput{forward, backward} {
			wg.Add(1)
			go func(slot int, ingredients []model.IngredientInput) {
				defer wg.Done()
				recipe := testutil.NewTestRecipe(t, owner.ID, "Chai")
				_, errs[slot] = repo.CreateRecipe(ctx, recipe, ingredients)
			}(i*2+j, ingredients)
		}
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	for _, name := range []string{"cardamom", "nutmeg", "star anise"} {
		if count, _ := repo.CountIngredientsByName(ctx, name); count != 1 {
			t.Errorf("expected 1 catalog row for %q, got %d", name, count)
		}
	}
}

func TestIntegrationRecipeRepository_UpdateRecipe_ReplacesIngredients(t *testing.T) {
	ctx, repo, owner := newRecipeTestEnv(t)

	recipe := testutil.NewTestRecipe(t, owner.ID, "Omelette")
	if _, err := repo.CreateRecipe(ctx, recipe, []model.IngredientInput{
		{Name: "Eggs", Quantity: "3"},
		{Name: "Cheese", Quantity: "50g"},
	}); err != nil {
		t.Fatalf("CreateRecipe failed: %v", err)
	}

	title := "Cheeseless Omelette"
	updated, stats, err := repo.UpdateRecipe(ctx, recipe.ID, RecipeUpdate{
		Title:              &title,
		ReplaceIngredients: true,
		Ingredients: []model.IngredientInput{
			{Name: "Eggs", Quantity: "4"},
			{Name: "Chives", Quantity: "1 tbsp"},
		},
	})
	if err != nil {
		t.Fatalf("UpdateRecipe failed: %v", err)
	}

	if updated.Title != title || updated.Description != recipe.Description {
		t.Errorf("unexpected fields: %+v", updated)
	}
	if stats.Inserted != 1 || stats.Updated != 1 || stats.Deleted != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	for _, ing := range updated.Ingredients {
		if ing.Name == "Cheese" {
			t.Error("Cheese should no longer be associated")
		}
	}
	if count, _ := repo.CountIngredientsByName(ctx, "Cheese"); count != 1 {
		t.Errorf("Cheese should remain in the catalog, count = %d", count)
	}
	if updated.UpdatedAt.Before(recipe.UpdatedAt) {
		t.Errorf("UpdatedAt went backwards: %v < %v", updated.UpdatedAt, recipe.UpdatedAt)
	}
}

func TestIntegrationRecipeRepository_UpdateRecipe_Idempotent(t *testing.T) {
	ctx, repo, owner := newRecipeTestEnv(t)

	input := []model.IngredientInput{
		{Name: "Rice", Quantity: "1 cup"},
		{Name: "Water", Quantity: "2 cups"},
	}
	recipe := testutil.NewTestRecipe(t, owner.ID, "Rice")
	if _, err := repo.CreateRecipe(ctx, recipe, input); err != nil {
		t.Fatalf("CreateRecipe failed: %v", err)
	}

	updated, stats, err := repo.UpdateRecipe(ctx, recipe.ID, RecipeUpdate{
		ReplaceIngredients: true,
		Ingredients:        input,
	})
	if err != nil {
		t.Fatalf("UpdateRecipe failed: %v", err)
	}

	if stats != (ReconcileStats{}) {
		t.Errorf("identical update should touch nothing, stats = %+v", stats)
	}
	for i, ing := range updated.Ingredients {
		if ing.IngredientID != recipe.Ingredients[i].IngredientID {
			t.Errorf("ingredient %d identity changed: %d -> %d", i, recipe.Ingredients[i].IngredientID, ing.IngredientID)
		}
	}
}

func TestIntegrationRecipeRepository_UpdateRecipe_NotFound(t *testing.T) {
	ctx, repo, _ := newRecipeTestEnv(t)

	title := "x"
	_, _, err := repo.UpdateRecipe(ctx, 999999, RecipeUpdate{Title: &title})
	if !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestIntegrationRecipeRepository_DeleteRecipe(t *testing.T) {
	ctx, repo, owner := newRecipeTestEnv(t)

	recipe := testutil.NewTestRecipe(t, owner.ID, "Soup")
	if _, err := repo.CreateRecipe(ctx, recipe, []model.IngredientInput{{Name: "Leek", Quantity: "2"}}); err != nil {
		t.Fatalf("CreateRecipe failed: %v", err)
	}

	if err := repo.DeleteRecipe(ctx, recipe.ID, owner.ID); err != nil {
		t.Fatalf("DeleteRecipe failed: %v", err)
	}

	if _, err := repo.GetRecipeByID(ctx, recipe.ID); !errors.Is(err, ErrRecipeNotFound) {
		t.Errorf("expected ErrRecipeNotFound after delete, got %v", err)
	}
	if n, _ := repo.CountRecipeIngredients(ctx, recipe.ID); n != 0 {
		t.Errorf("join rows should be gone, got %d", n)
	}
	if n, _ := repo.CountIngredientsByName(ctx, "Leek"); n != 1 {
		t.Errorf("catalog entry should be kept, got %d", n)
	}
}

func TestIntegrationRecipeRepository_DeleteRecipe_NotOwner(t *testing.T) {
	ctx, repo, owner := newRecipeTestEnv(t)

	other := testutil.NewTestUser(t, "other")
	if err := repo.CreateUser(ctx, other); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	recipe := testutil.NewTestRecipe(t, owner.ID, "Stew")
	if _, err := repo.CreateRecipe(ctx, recipe, []model.IngredientInput{{Name: "Beef", Quantity: "1kg"}}); err != nil {
		t.Fatalf("CreateRecipe failed: %v", err)
	}

	if err := repo.DeleteRecipe(ctx, recipe.ID, other.ID); !errors.Is(err, ErrNotRecipeOwner) {
		t.Fatalf("expected ErrNotRecipeOwner, got %v", err)
	}
	if _, err := repo.GetRecipeByID(ctx, recipe.ID); err != nil {
		t.Errorf("recipe should still exist: %v", err)
	}
	if err := repo.DeleteRecipe(ctx, 999999, owner.ID); !errors.Is(err, ErrRecipeNotFound) {
		t.Errorf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestIntegrationRecipeRepository_ListRecipes(t *testing.T) {
	ctx, repo, owner := newRecipeTestEnv(t)

	for i, title := range []string{"Carbonara", "Amatriciana", "Pancetta Salad", "Pesto"} {
		recipe := testutil.NewTestRecipe(t, owner.ID, title)
		ingredients := []model.IngredientInput{{Name: "Salt", Quantity: "pinch"}}
		if i < 2 {
			ingredients = append(ingredients, model.IngredientInput{Name: "Pancetta", Quantity: "100g"})
		}
		if _, err := repo.CreateRecipe(ctx, recipe, ingredients); err != nil {
			t.Fatalf("CreateRecipe failed: %v", err)
		}
	}

	t.Run("search matches title or ingredient", func(t *testing.T) {
		recipes, total, err := repo.ListRecipes(ctx, RecipeFilter{Search: "pancetta", Limit: 10})
		if err != nil {
			t.Fatalf("ListRecipes failed: %v", err)
		}
		if total != 3 || len(recipes) != 3 {
			t.Fatalf("expected 3 matches, got total=%d len=%d", total, len(recipes))
		}
		for _, r := range recipes {
			if r.Title == "Pesto" {
				t.Error("Pesto should not match")
			}
		}
	})

	t.Run("metacharacters match literally", func(t *testing.T) {
		_, total, err := repo.ListRecipes(ctx, RecipeFilter{Search: "%", Limit: 10})
		if err != nil {
			t.Fatalf("ListRecipes failed: %v", err)
		}
		if total != 0 {
			t.Errorf("expected no matches for literal %%, got %d", total)
		}
	})

	t.Run("whitespace is a literal filter", func(t *testing.T) {
		recipes, total, err := repo.ListRecipes(ctx, RecipeFilter{Search: " ", Limit: 10})
		if err != nil {
			t.Fatalf("ListRecipes failed: %v", err)
		}
		if total != 1 || len(recipes) != 1 || recipes[0].Title != "Pancetta Salad" {
			t.Fatalf("expected only Pancetta Salad, got total=%d len=%d", total, len(recipes))
		}
	})

	t.Run("negative offset is past the end", func(t *testing.T) {
		recipes, total, err := repo.ListRecipes(ctx, RecipeFilter{Limit: 3, Offset: -9})
		if err != nil {
			t.Fatalf("ListRecipes failed: %v", err)
		}
		if total != 4 || len(recipes) != 0 {
			t.Errorf("expected empty page of 4, got total=%d len=%d", total, len(recipes))
		}
	})

	t.Run("paging", func(t *testing.T) {
		recipes, total, err := repo.ListRecipes(ctx, RecipeFilter{Limit: 3, Offset: 3})
		if err != nil {
			t.Fatalf("ListRecipes failed: %v", err)
		}
		if total != 4 || len(recipes) != 1 || recipes[0].Title != "Pesto" {
			t.Errorf("unexpected page: total=%d recipes=%v", total, recipes)
		}
		if len(recipes[0].Ingredients) != 1 {
			t.Errorf("ingredients should be loaded, got %+v", recipes[0].Ingredients)
		}
	})

	t.Run("past the end", func(t *testing.T) {
		recipes, total, err := repo.ListRecipes(ctx, RecipeFilter{Limit: 10, Offset: 50})
		if err != nil {
			t.Fatalf("ListRecipes failed: %v", err)
		}
		if total != 4 || len(recipes) != 0 {
			t.Errorf("expected empty page with total 4, got total=%d len=%d", total, len(recipes))
		}
	})
}

func newRecipeTestEnv(t *testing.T) (context.Context, *Repository, *model.User) {
	t.Helper()

	ctx, pool := testutil.NewPool(t)
	repo := NewWithPool(pool)

	owner := testutil.NewTestUser(t, "owner")
	if err := repo.CreateUser(ctx, owner); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	return ctx, repo, owner
}
