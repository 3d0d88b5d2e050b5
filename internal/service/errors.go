// Package service provides business logic for the application.
package service

import "errors"

// Recipe validation errors, reported in this order on create.
var (
	ErrInvalidTitle              = errors.New("invalid or missing title")
	ErrInvalidDescription        = errors.New("invalid or missing description")
	ErrInvalidIngredients        = errors.New("invalid or missing ingredients")
	ErrInvalidIngredientName     = errors.New("invalid ingredient name")
	ErrInvalidIngredientQuantity = errors.New("invalid ingredient quantity")
	ErrInvalidInstructions       = errors.New("invalid instructions")
)

// Recipe lookup and ownership errors.
var (
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrForbidden      = errors.New("not allowed to modify this recipe")
)

// Account errors, reported in this order on registration.
var (
	ErrMissingUsername    = errors.New("missing username")
	ErrMissingEmail       = errors.New("missing email")
	ErrMissingPassword    = errors.New("missing password")
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already exists")
	ErrWeakPassword       = errors.New("password does not meet policy")
	ErrMissingCredentials = errors.New("missing email or password")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// IsValidationError reports whether err is a client input error.
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var validationErrors = []error{
	ErrInvalidTitle,
	ErrInvalidDescription,
	ErrInvalidIngredients,
	ErrInvalidIngredientName,
	ErrInvalidIngredientQuantity,
	ErrInvalidInstructions,
	ErrMissingUsername,
	ErrMissingEmail,
	ErrMissingPassword,
	ErrUsernameExists,
	ErrEmailExists,
	ErrWeakPassword,
	ErrMissingCredentials,
}
