package ports

import (
	"context"

	"github.com/shouryamanekar/product-management-backend/internal/core/domain"
)

// CreateProductInput carries a new product. Price is a pointer so a missing
// price can be told apart from a price of zero.
type CreateProductInput struct {
	Name        string   `validate:"required"`
	Price       *float64 `validate:"required,min=0"`
	Description *string
	Stock       *int `validate:"omitempty,min=0"`

	// IdempotencyKey is optional; UserID scopes it to the caller.
	IdempotencyKey string
	UserID         string
}

// UpdateProductInput is a partial update; nil fields are left untouched.
type UpdateProductInput struct {
	ID          string
	Name        *string
	Price       *float64 `validate:"omitempty,min=0"`
	Description *string
	Stock       *int `validate:"omitempty,min=0"`
}

// ListProductsInput carries the raw list parameters. Zero or negative Page
// and Limit fall back to defaults in the service.
type ListProductsInput struct {
	Search   string
	MinPrice *float64
	MaxPrice *float64
	Page     int
	Limit    int
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Total    int64
	Page     int
	Pages    int
	Limit    int
	Products []domain.Product
}

// ProductService defines the catalog use cases.
type ProductService interface {
	Create(ctx context.Context, in CreateProductInput) (*domain.Product, error)
	List(ctx context.Context, in ListProductsInput) (*ProductPage, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Update(ctx context.Context, in UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}
