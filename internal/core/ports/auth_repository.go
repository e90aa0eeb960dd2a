package ports

import (
	"context"

	"github.com/shouryamanekar/product-management-backend/internal/core/domain"
)

// UserRepository defines the persistence operations the auth flow needs.
type UserRepository interface {
	// FindByEmail returns domain.ErrUserNotFound when no account matches.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create stores the user and returns it with its generated ID. A second
	// account for the same email yields domain.ErrUserExists.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
