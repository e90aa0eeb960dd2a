package domain

import "time"

// User models an account that can obtain bearer tokens.
type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is what a verified token tells us about the caller.
type Identity struct {
	UserID string
	Email  string
}
