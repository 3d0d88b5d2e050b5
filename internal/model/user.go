package model

import "time"

// User is a registered account that can own recipes.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize
	CreatedAt    time.Time `json:"created_at"`
}

// AuthContext holds the authenticated caller of a request.
// This is injected into the request context by auth middleware.
type AuthContext struct {
	UserID    int64
	TokenID   string
	ExpiresAt time.Time
}
