package ports

import (
	"context"

	"github.com/shouryamanekar/product-management-backend/internal/core/domain"
)

// RegisterInput is the sign-up payload. Tags drive internal/pkg/validation.
type RegisterInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// LoginInput is the sign-in payload.
type LoginInput struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// AuthResult is returned by both Register and Login.
type AuthResult struct {
	Token string
	User  *domain.User
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	// VerifyToken checks signature and expiry of a bearer token.
	VerifyToken(ctx context.Context, token string) (*domain.Identity, error)
}
