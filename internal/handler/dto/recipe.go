// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/larder/larder/internal/model"
	"github.com/larder/larder/internal/service"
)

// Body decoding errors.
var (
	// ErrInvalidJSON is returned when a body is not a non-empty JSON object.
	ErrInvalidJSON = errors.New("invalid JSON data")
	// ErrBodyTooLarge is returned when reading stops at the body size limit.
	ErrBodyTooLarge = errors.New("request body too large")
)

// readError maps a body read failure to a decoding error.
func readError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return ErrBodyTooLarge
	}
	return ErrInvalidJSON
}

// DecodeRecipeRequest reads a create or update body. Fields are kept raw so
// a missing key stays distinguishable from a null or a wrong type. An empty
// object, a non-object or malformed JSON yields ErrInvalidJSON.
func DecodeRecipeRequest(r io.Reader) (service.RecipeInput, error) {
	fields, err := decodeObject(r)
	if err != nil {
		return service.RecipeInput{}, err
	}

	return service.RecipeInput{
		Title:        fieldValue(fields, "title"),
		Description:  fieldValue(fields, "description"),
		Instructions: fieldValue(fields, "instructions"),
		Ingredients:  ingredientsField(fields),
	}, nil
}

func decodeObject(r io.Reader) (map[string]json.RawMessage, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, readError(err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil, ErrInvalidJSON
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, ErrInvalidJSON
	}
	if len(fields) == 0 {
		return nil, ErrInvalidJSON
	}
	return fields, nil
}

func fieldValue(fields map[string]json.RawMessage, key string) service.FieldValue {
	raw, ok := fields[key]
	if !ok {
		return service.FieldValue{}
	}
	return rawValue(raw)
}

func rawValue(raw json.RawMessage) service.FieldValue {
	v := service.FieldValue{Present: true}
	trimmed := bytes.TrimSpace(raw)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		v.IsNull = true
	case len(trimmed) > 0 && trimmed[0] == '"':
		if err := json.Unmarshal(trimmed, &v.Value); err == nil {
			v.IsString = true
		}
	}
	return v
}

func ingredientsField(fields map[string]json.RawMessage) service.IngredientsField {
	raw, ok := fields["ingredients"]
	if !ok {
		return service.IngredientsField{}
	}

	f := service.IngredientsField{Present: true}
	var items []json.RawMessage
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' || json.Unmarshal(trimmed, &items) != nil {
		return f
	}
	f.IsList = true

	f.Items = make([]service.IngredientField, len(items))
	for i, item := range items {
		var obj map[string]json.RawMessage
		trimmedItem := bytes.TrimSpace(item)
		if len(trimmedItem) == 0 || trimmedItem[0] != '{' || json.Unmarshal(trimmedItem, &obj) != nil {
			continue
		}
		f.Items[i] = service.IngredientField{
			IsObject: true,
			Name:     fieldValue(obj, "name"),
			Quantity: fieldValue(obj, "quantity"),
		}
	}
	return f
}

// IngredientResponse is one ingredient of a recipe.
type IngredientResponse struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// RecipeResponse represents a recipe in API responses.
type RecipeResponse struct {
	ID           int64                `json:"id"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Instructions *string              `json:"instructions,omitempty"`
	OwnerID      int64                `json:"owner_id"`
	Ingredients  []IngredientResponse `json:"ingredients"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// RecipeEnvelope wraps a single recipe with a message.
type RecipeEnvelope struct {
	Message string          `json:"message"`
	Recipe  *RecipeResponse `json:"recipe"`
}

// RecipeListResponse represents one page of recipes.
type RecipeListResponse struct {
	Message     string           `json:"message"`
	Recipes     []RecipeResponse `json:"recipes"`
	Total       int              `json:"total"`
	Pages       int              `json:"pages"`
	CurrentPage int              `json:"current_page"`
}

// ToRecipeResponse converts a Recipe model to RecipeResponse DTO.
func ToRecipeResponse(recipe *model.Recipe) *RecipeResponse {
	ingredients := make([]IngredientResponse, len(recipe.Ingredients))
	for i, ri := range recipe.Ingredients {
		ingredients[i] = IngredientResponse{Name: ri.Name, Quantity: ri.Quantity}
	}
	return &RecipeResponse{
		ID:           recipe.ID,
		Title:        recipe.Title,
		Description:  recipe.Description,
		Instructions: recipe.Instructions,
		OwnerID:      recipe.OwnerID,
		Ingredients:  ingredients,
		CreatedAt:    recipe.CreatedAt,
		UpdatedAt:    recipe.UpdatedAt,
	}
}

// ToRecipeListResponse converts a service page to RecipeListResponse.
func ToRecipeListResponse(message string, page *service.RecipePage) *RecipeListResponse {
	recipes := make([]RecipeResponse, len(page.Recipes))
	for i, recipe := range page.Recipes {
		recipes[i] = *ToRecipeResponse(recipe)
	}
	return &RecipeListResponse{
		Message:     message,
		Recipes:     recipes,
		Total:       page.Total,
		Pages:       page.Pages,
		CurrentPage: page.Page,
	}
}

// MessageResponse is a body carrying only a message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
