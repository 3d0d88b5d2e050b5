package dto

import (
	"encoding/json"
	"io"
	"time"

	"github.com/larder/larder/internal/auth"
	"github.com/larder/larder/internal/model"
	"github.com/larder/larder/internal/service"
)

// LoginRequest is a decoded login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// DecodeRegisterRequest reads a registration body. Non-string fields are
// treated as missing.
func DecodeRegisterRequest(r io.Reader) (service.RegisterInput, error) {
	fields, err := decodeAuthObject(r)
	if err != nil {
		return service.RegisterInput{}, err
	}
	return service.RegisterInput{
		Username: stringOrEmpty(fields, "username"),
		Email:    stringOrEmpty(fields, "email"),
		Password: stringOrEmpty(fields, "password"),
	}, nil
}

// DecodeLoginRequest reads a login body.
func DecodeLoginRequest(r io.Reader) (LoginRequest, error) {
	fields, err := decodeAuthObject(r)
	if err != nil {
		return LoginRequest{}, err
	}
	return LoginRequest{
		Email:    stringOrEmpty(fields, "email"),
		Password: stringOrEmpty(fields, "password"),
	}, nil
}

// decodeAuthObject accepts an empty object; missing fields are reported by
// the service.
func decodeAuthObject(r io.Reader) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&fields); err != nil {
		return nil, readError(err)
	}
	if fields == nil {
		return nil, ErrInvalidJSON
	}
	return fields, nil
}

func stringOrEmpty(fields map[string]json.RawMessage, key string) string {
	v := fieldValue(fields, key)
	if !v.IsString {
		return ""
	}
	return v.Value
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterResponse is returned on successful registration.
type RegisterResponse struct {
	Message string        `json:"message"`
	User    *UserResponse `json:"user"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Message     string    `json:"message"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

// ToLoginResponse converts an issued token to LoginResponse DTO.
func ToLoginResponse(message string, token *auth.IssuedToken) *LoginResponse {
	return &LoginResponse{
		Message:     message,
		AccessToken: token.Token,
		TokenType:   auth.TokenType,
		ExpiresAt:   token.ExpiresAt,
	}
}
