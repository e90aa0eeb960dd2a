package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shouryamanekar/product-management-backend/internal/core/domain"
	"github.com/shouryamanekar/product-management-backend/internal/core/ports"
	"github.com/shouryamanekar/product-management-backend/internal/pkg/metrics"
	"github.com/shouryamanekar/product-management-backend/internal/pkg/validation"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100

	// maxPage keeps (page-1)*limit well inside int64 for any allowed limit.
	maxPage = math.MaxInt32
)

var createRules = []validation.Rule{
	{Field: "Name", Tag: "required", Err: domain.ErrNameAndPriceRequired},
	{Field: "Price", Tag: "required", Err: domain.ErrNameAndPriceRequired},
	{Field: "Price", Tag: "min", Err: domain.ErrNegativePrice},
	{Field: "Stock", Tag: "min", Err: domain.ErrNegativeStock},
}

var updateRules = []validation.Rule{
	{Field: "Price", Tag: "min", Err: domain.ErrNegativePrice},
	{Field: "Stock", Tag: "min", Err: domain.ErrNegativeStock},
}

// ProductService implements the catalog use cases on top of a
// ProductRepository. keys is optional; without it Idempotency-Key headers
// are ignored.
type ProductService struct {
	repo     ports.ProductRepository
	keys     ports.IdempotencyStore
	validate *validation.Validator
	logger   zerolog.Logger
}

func NewProductService(repo ports.ProductRepository, keys ports.IdempotencyStore, logger zerolog.Logger) *ProductService {
	return &ProductService{
		repo:     repo,
		keys:     keys,
		validate: validation.New(),
		logger:   logger,
	}
}

// Create validates and stores a new product. If an idempotency key is given
// and was already used by the same caller, the product it produced is
// returned without a second insert.
func (s *ProductService) Create(ctx context.Context, in ports.CreateProductInput) (*domain.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Check(&in, createRules...); err != nil {
		return nil, err
	}

	key := s.scopedKey(in.UserID, in.IdempotencyKey)
	if key != "" {
		existing, owned, err := s.claim(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			metrics.ProductsCreatedTotal.WithLabelValues("true").Inc()
			return existing, nil
		}
		if !owned {
			key = ""
		}
	}

	now := time.Now().UTC()
	product := &domain.Product{
		Name:      in.Name,
		Price:     *in.Price,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Stock != nil {
		product.Stock = *in.Stock
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create product")
		if key != "" {
			if rerr := s.keys.Release(ctx, key); rerr != nil {
				s.logger.Warn().Err(rerr).Msg("failed to release idempotency key")
			}
		}
		return nil, storeError(err)
	}

	if key != "" {
		if err := s.keys.Remember(ctx, key, created.ID); err != nil {
			s.logger.Warn().Err(err).Str("product_id", created.ID).Msg("failed to store idempotency key")
		}
	}

	metrics.ProductsCreatedTotal.WithLabelValues("false").Inc()
	s.logger.Info().Str("product_id", created.ID).Str("user_id", in.UserID).Msg("product created")
	return created, nil
}

// List returns one page of products matching the filters. Page and limit
// fall back to 1 and 10; limit is capped at 100 and page at maxPage.
func (s *ProductService) List(ctx context.Context, in ports.ListProductsInput) (*ports.ProductPage, error) {
	page := in.Page
	if page < 1 {
		page = defaultPage
	}
	if page > maxPage {
		page = maxPage
	}
	limit := in.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	items, total, err := s.repo.List(ctx, ports.ProductFilter{
		Search:   in.Search,
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list products")
		return nil, storeError(err)
	}
	if items == nil {
		items = []domain.Product{}
	}

	metrics.ProductListResults.Observe(float64(len(items)))

	return &ports.ProductPage{
		Total:    total,
		Page:     page,
		Pages:    totalPages(total, limit),
		Limit:    limit,
		Products: items,
	}, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return p, nil
}

// Update applies a partial update. Only fields present in the request are
// written; a rejected update leaves the stored product untouched.
func (s *ProductService) Update(ctx context.Context, in ports.UpdateProductInput) (*domain.Product, error) {
	current, err := s.repo.FindByID(ctx, in.ID)
	if err != nil {
		return nil, storeError(err)
	}

	patch := domain.ProductPatch{
		Name:        in.Name,
		Price:       in.Price,
		Description: in.Description,
		Stock:       in.Stock,
	}
	if patch.Empty() {
		return nil, domain.ErrNoFieldsToUpdate
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.ErrEmptyName
		}
		patch.Name = &name
	}
	if err := s.validate.Check(&in, updateRules...); err != nil {
		return nil, err
	}

	next := patch.Apply(*current)
	if err := next.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, in.ID, patch, time.Now().UTC())
	if err != nil {
		return nil, storeError(err)
	}

	metrics.ProductsUpdatedTotal.Inc()
	s.logger.Info().Str("product_id", updated.ID).Msg("product updated")
	return updated, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err)
	}

	metrics.ProductsDeletedTotal.Inc()
	s.logger.Info().Str("product_id", id).Msg("product deleted")
	return nil
}

// scopedKey namespaces a client key by user so two callers can't collide.
func (s *ProductService) scopedKey(userID, key string) string {
	key = strings.TrimSpace(key)
	if s.keys == nil || key == "" {
		return ""
	}
	return userID + ":" + key
}

// claim reserves key for this request. It returns the product a previous
// request with the same key created, or owned=true when the caller holds the
// reservation and must Remember or Release it. Store failures are logged and
// the create proceeds without idempotency.
func (s *ProductService) claim(ctx context.Context, key string) (existing *domain.Product, owned bool, err error) {
	id, reserved, err := s.keys.Reserve(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("idempotency reserve failed, creating anyway")
		return nil, false, nil
	}
	if reserved {
		return nil, true, nil
	}
	if id == "" {
		return nil, false, domain.ErrRequestInProgress
	}

	existing, err = s.repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrProductNotFound) {
		// Deleted since; the new insert takes the key over.
		s.logger.Debug().Str("product_id", id).Msg("idempotent product no longer exists")
		return nil, true, nil
	}
	if err != nil {
		return nil, false, storeError(err)
	}
	s.logger.Info().Str("product_id", id).Msg("idempotent replay")
	return existing, false, nil
}

// storeError passes domain errors through and wraps anything else as an
// internal failure.
func storeError(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.Internal(err)
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
