// Package models defines server-side data models persisted in the database
// and rendered by the HTTP API.
package models

import "time"

// User is a registered identity. PasswordHash is a bcrypt hash and is never
// serialized.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Registration is the sign-up payload.
type Registration struct {
	Username string `json:"username" validate:"required,min=3,max=80"`
	Password string `json:"password" validate:"required,max=72"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Role     string `json:"role" validate:"omitempty,oneof=admin researcher consumer user buoy"`
}

// Credentials is the login payload.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
