package dto

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larder/larder/internal/auth"
	"github.com/larder/larder/internal/model"
	"github.com/larder/larder/internal/service"
)

func TestDecodeRecipeRequestRejects(t *testing.T) {
	bodies := map[string]string{
		"empty":        "",
		"whitespace":   "   ",
		"empty_object": "{}",
		"array":        `[{"title":"x"}]`,
		"string":       `"hello"`,
		"null":         "null",
		"malformed":    `{"title":`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRecipeRequest(strings.NewReader(body))
			require.ErrorIs(t, err, ErrInvalidJSON)
		})
	}
}

func TestDecodeRequestsBodyTooLarge(t *testing.T) {
	body := `{"title": "` + strings.Repeat("x", 64) + `"}`
	limited := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Body = http.MaxBytesReader(httptest.NewRecorder(), req.Body, 16)
		return req
	}

	_, err := DecodeRecipeRequest(limited().Body)
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	_, err = DecodeLoginRequest(limited().Body)
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	_, err = DecodeRegisterRequest(limited().Body)
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	_, err = DecodeRecipeRequest(strings.NewReader(`{"title": `))
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestDecodeRecipeRequestFields(t *testing.T) {
	body := `{
		"title": "  Carbonara ",
		"description": 42,
		"instructions": null,
		"ingredients": [
			{"name": "Spaghetti", "quantity": "200g"},
			"oops",
			{"name": 5}
		]
	}`

	in, err := DecodeRecipeRequest(strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, service.StringField("  Carbonara "), in.Title)
	assert.True(t, in.Description.Present)
	assert.False(t, in.Description.IsString)
	assert.True(t, in.Instructions.IsNull)

	require.True(t, in.Ingredients.IsList)
	require.Len(t, in.Ingredients.Items, 3)
	assert.True(t, in.Ingredients.Items[0].IsObject)
	assert.Equal(t, "200g", in.Ingredients.Items[0].Quantity.Value)
	assert.False(t, in.Ingredients.Items[1].IsObject)
	assert.True(t, in.Ingredients.Items[2].IsObject)
	assert.False(t, in.Ingredients.Items[2].Name.IsString)
	assert.False(t, in.Ingredients.Items[2].Quantity.Present)
}

func TestDecodeRecipeRequestIngredientsNotList(t *testing.T) {
	in, err := DecodeRecipeRequest(strings.NewReader(`{"ingredients": {"name": "x"}}`))
	require.NoError(t, err)
	assert.True(t, in.Ingredients.Present)
	assert.False(t, in.Ingredients.IsList)
	assert.False(t, in.Title.Present)
}

func TestDecodeLoginRequest(t *testing.T) {
	req, err := DecodeLoginRequest(strings.NewReader(`{"email": "a@example.com", "password": 123}`))
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", req.Email)
	assert.Empty(t, req.Password)

	_, err = DecodeLoginRequest(strings.NewReader("null"))
	require.ErrorIs(t, err, ErrInvalidJSON)
}

func TestDecodeRegisterRequest(t *testing.T) {
	in, err := DecodeRegisterRequest(strings.NewReader(`{"username": "chef", "email": "c@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, "chef", in.Username)
	assert.Empty(t, in.Password)
}

func TestToRecipeResponse(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	recipe := &model.Recipe{
		ID:          3,
		OwnerID:     9,
		Title:       "Soup",
		Description: "Warm",
		Ingredients: []model.RecipeIngredient{
			{IngredientID: 1, Name: "Leek", Quantity: "2", Position: 0},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	resp := ToRecipeResponse(recipe)
	assert.Equal(t, int64(3), resp.ID)
	assert.Equal(t, int64(9), resp.OwnerID)
	assert.Nil(t, resp.Instructions)
	assert.Equal(t, []IngredientResponse{{Name: "Leek", Quantity: "2"}}, resp.Ingredients)
}

func TestToRecipeListResponseEmpty(t *testing.T) {
	resp := ToRecipeListResponse("ok", &service.RecipePage{Page: 4})
	assert.NotNil(t, resp.Recipes)
	assert.Empty(t, resp.Recipes)
	assert.Equal(t, 4, resp.CurrentPage)
}

func TestToLoginResponse(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	resp := ToLoginResponse("Login successful", &auth.IssuedToken{Token: "t", ID: "id", ExpiresAt: exp})
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "t", resp.AccessToken)
	assert.Equal(t, exp, resp.ExpiresAt)
}
