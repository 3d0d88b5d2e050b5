package service

import (
	"strings"

	"github.com/larder/larder/internal/model"
)

// FieldValue is one scalar JSON field as the client sent it. Keeping the JSON
// type lets validation report a wrong type and a blank value the same way.
type FieldValue struct {
	Present  bool
	IsNull   bool
	IsString bool
	Value    string
}

// StringField is a present string field. Used by tests and tooling.
func StringField(v string) FieldValue {
	return FieldValue{Present: true, IsString: true, Value: v}
}

// NonBlank reports whether the field is a string with visible content.
func (f FieldValue) NonBlank() bool {
	return f.Present && f.IsString && strings.TrimSpace(f.Value) != ""
}

// IngredientField is one element of the ingredients list.
type IngredientField struct {
	IsObject bool
	Name     FieldValue
	Quantity FieldValue
}

// IngredientsField is the ingredients list as the client sent it.
type IngredientsField struct {
	Present bool
	IsList  bool
	Items   []IngredientField
}

// IngredientList builds a present list from (name, quantity) pairs.
func IngredientList(pairs ...model.IngredientInput) IngredientsField {
	items := make([]IngredientField, len(pairs))
	for i, p := range pairs {
		items[i] = IngredientField{
			IsObject: true,
			Name:     StringField(p.Name),
			Quantity: StringField(p.Quantity),
		}
	}
	return IngredientsField{Present: true, IsList: true, Items: items}
}

// RecipeInput is a create or update payload.
type RecipeInput struct {
	Title        FieldValue
	Description  FieldValue
	Instructions FieldValue
	Ingredients  IngredientsField
}

// validateCreate checks a create payload. Order: title, description,
// ingredients list, each ingredient's name then quantity, instructions.
func validateCreate(in RecipeInput) error {
	if !in.Title.NonBlank() {
		return ErrInvalidTitle
	}
	if !in.Description.NonBlank() {
		return ErrInvalidDescription
	}
	if err := validateIngredients(in.Ingredients); err != nil {
		return err
	}
	return validateInstructions(in.Instructions)
}

// validateUpdate checks only the fields present, in the create order.
func validateUpdate(in RecipeInput) error {
	if in.Title.Present && !in.Title.NonBlank() {
		return ErrInvalidTitle
	}
	if in.Description.Present && !in.Description.NonBlank() {
		return ErrInvalidDescription
	}
	if in.Ingredients.Present {
		if err := validateIngredients(in.Ingredients); err != nil {
			return err
		}
	}
	return validateInstructions(in.Instructions)
}

func validateIngredients(f IngredientsField) error {
	if !f.Present || !f.IsList || len(f.Items) == 0 {
		return ErrInvalidIngredients
	}
	for _, item := range f.Items {
		if !item.IsObject || !item.Name.NonBlank() {
			return ErrInvalidIngredientName
		}
		if !item.Quantity.NonBlank() {
			return ErrInvalidIngredientQuantity
		}
	}
	return nil
}

// validateInstructions accepts an absent or null field, or any string.
func validateInstructions(f FieldValue) error {
	if f.Present && !f.IsNull && !f.IsString {
		return ErrInvalidInstructions
	}
	return nil
}

func ingredientInputs(f IngredientsField) []model.IngredientInput {
	out := make([]model.IngredientInput, len(f.Items))
	for i, item := range f.Items {
		out[i] = model.IngredientInput{
			Name:     item.Name.Value,
			Quantity: item.Quantity.Value,
		}
	}
	return out
}

func optionalString(f FieldValue) *string {
	if !f.Present || !f.IsString {
		return nil
	}
	v := f.Value
	return &v
}
