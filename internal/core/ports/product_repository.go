package ports

import (
	"context"
	"time"

	"github.com/shouryamanekar/product-management-backend/internal/core/domain"
)

// ProductFilter carries the query parameters for listing products.
type ProductFilter struct {
	Search   string   // optional: case-insensitive substring of name
	MinPrice *float64 // optional: price >= MinPrice
	MaxPrice *float64 // optional: price <= MaxPrice
	Page     int      // 1-based
	Limit    int      // rows per page
}

// ProductRepository defines persistence operations for products.
//
// Every method taking an id returns domain.ErrInvalidProductID when the id is
// not a valid store identifier and domain.ErrProductNotFound when nothing
// matches.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) (*domain.Product, error)
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	// List returns one page of matches ordered by creation time together with
	// the total number of matches before pagination.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int64, error)
	// Update writes only the fields present in patch and returns the stored
	// document after the write.
	Update(ctx context.Context, id string, patch domain.ProductPatch, at time.Time) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

// IdempotencyStore remembers which product a client-supplied
// Idempotency-Key produced. A key is reserved before the insert so two
// concurrent requests with the same key cannot both create a product.
type IdempotencyStore interface {
	// Reserve claims key. It returns reserved=true when the caller now owns
	// it. Otherwise productID is the product stored for the key, or "" while
	// the owning request is still in flight.
	Reserve(ctx context.Context, key string) (productID string, reserved bool, err error)
	// Remember binds a reserved key to the product it produced.
	Remember(ctx context.Context, key, productID string) error
	// Release drops a reservation whose insert failed.
	Release(ctx context.Context, key string) error
}
