package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shouryamanekar/product-management-backend/internal/core/domain"
	"github.com/shouryamanekar/product-management-backend/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

type stubProductRepo struct {
	byID      map[string]*domain.Product
	seq       int
	listErr   error
	createErr error
	updates   int
	creates   int
	lastQuery ports.ProductFilter
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{byID: make(map[string]*domain.Product)}
}

// validID mirrors the ObjectID hex check done by the Mongo repository.
func validID(id string) bool {
	if len(id) != 24 {
		return false
	}
	for _, c := range id {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}

func (r *stubProductRepo) lookup(id string) (*domain.Product, error) {
	if !validID(id) {
		return nil, domain.ErrInvalidProductID
	}
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func (r *stubProductRepo) Create(_ context.Context, p *domain.Product) (*domain.Product, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.seq++
	r.creates++
	clone := *p
	clone.ID = fmt.Sprintf("%024x", r.seq)
	// distinct timestamps keep ordering deterministic
	clone.CreatedAt = time.Date(2024, 1, 1, 0, 0, r.seq, 0, time.UTC)
	r.byID[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id string) (*domain.Product, error) {
	p, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	clone := *p
	return &clone, nil
}

// List applies the same filters and ordering the real Mongo repo uses.
func (r *stubProductRepo) List(_ context.Context, f ports.ProductFilter) ([]domain.Product, int64, error) {
	r.lastQuery = f
	if r.listErr != nil {
		return nil, 0, r.listErr
	}

	var matched []domain.Product
	for _, p := range r.byID {
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		matched = append(matched, *p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })

	total := int64(len(matched))
	skip := (f.Page - 1) * f.Limit
	if skip > len(matched) {
		return nil, total, nil
	}
	end := skip + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

func (r *stubProductRepo) Update(_ context.Context, id string, patch domain.ProductPatch, at time.Time) (*domain.Product, error) {
	p, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	r.updates++
	next := patch.Apply(*p)
	next.UpdatedAt = at
	r.byID[id] = &next
	out := next
	return &out, nil
}

func (r *stubProductRepo) Delete(_ context.Context, id string) error {
	if _, err := r.lookup(id); err != nil {
		return err
	}
	delete(r.byID, id)
	return nil
}

// stubKeyStore keeps reservations in a map; a reserved key maps to "" until
// Remember binds it to a product.
type stubKeyStore struct {
	keys       map[string]string
	reserveErr error
	released   []string
}

func newStubKeyStore() *stubKeyStore {
	return &stubKeyStore{keys: map[string]string{}}
}

func (s *stubKeyStore) Reserve(_ context.Context, key string) (string, bool, error) {
	if s.reserveErr != nil {
		return "", false, s.reserveErr
	}
	if id, ok := s.keys[key]; ok {
		return id, false, nil
	}
	s.keys[key] = ""
	return "", true, nil
}

func (s *stubKeyStore) Remember(_ context.Context, key, productID string) error {
	s.keys[key] = productID
	return nil
}

func (s *stubKeyStore) Release(_ context.Context, key string) error {
	delete(s.keys, key)
	s.released = append(s.released, key)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

func ptr[T any](v T) *T { return &v }

func seed(t *testing.T, svc *ProductService, name string, price float64) *domain.Product {
	t.Helper()
	p, err := svc.Create(context.Background(), ports.CreateProductInput{Name: name, Price: ptr(price)})
	if err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
	return p
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestProductService_Create_Success(t *testing.T) {
	repo := newStubProductRepo()
	svc := NewProductService(repo, nil, discardLogger)

	p, err := svc.Create(context.Background(), ports.CreateProductInput{
		Name: "Test", Price: ptr(100.0), Stock: ptr(10),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == "" {
		t.Fatalf("expected id")
	}
	if p.Name != "Test" || p.Price != 100 || p.Stock != 10 || p.Description != "" {
		t.Fatalf("unexpected product: %+v", p)
	}
}

func TestProductService_Create_Defaults(t *testing.T) {
	svc := NewProductService(newStubProductRepo(), nil, discardLogger)

	p, err := svc.Create(context.Background(), ports.CreateProductInput{Name: "Free", Price: ptr(0.0)})
	if err != nil {
		t.Fatalf("price 0 must be accepted: %v", err)
	}
	if p.Stock != 0 || p.Description != "" {
		t.Fatalf("expected defaults, got %+v", p)
	}
}

func TestProductService_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   ports.CreateProductInput
		want error
	}{
		{"no name", ports.CreateProductInput{Price: ptr(10.0)}, domain.ErrNameAndPriceRequired},
		{"blank name", ports.CreateProductInput{Name: "  ", Price: ptr(10.0)}, domain.ErrNameAndPriceRequired},
		{"no price", ports.CreateProductInput{Name: "x"}, domain.ErrNameAndPriceRequired},
		{"negative price", ports.CreateProductInput{Name: "x", Price: ptr(-5.0)}, domain.ErrNegativePrice},
		{"negative stock", ports.CreateProductInput{Name: "x", Price: ptr(5.0), Stock: ptr(-1)}, domain.ErrNegativeStock},
		{"negative price beats negative stock", ports.CreateProductInput{Name: "x", Price: ptr(-1.0), Stock: ptr(-1)}, domain.ErrNegativePrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newStubProductRepo()
			svc := NewProductService(repo, nil, discardLogger)

			_, err := svc.Create(context.Background(), tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if repo.creates != 0 {
				t.Fatalf("nothing should be stored on validation failure")
			}
		})
	}
}

func TestProductService_Create_IdempotentReplay(t *testing.T) {
	repo := newStubProductRepo()
	keys := newStubKeyStore()
	svc := NewProductService(repo, keys, discardLogger)

	in := ports.CreateProductInput{Name: "Once", Price: ptr(1.0), IdempotencyKey: "abc", UserID: "u1"}
	first, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected replay to return %s, got %s", first.ID, second.ID)
	}
	if repo.creates != 1 {
		t.Fatalf("expected exactly one insert, got %d", repo.creates)
	}

	// Same key from another user is a different request.
	in.UserID = "u2"
	third, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("third create: %v", err)
	}
	if third.ID == first.ID {
		t.Fatalf("keys must be scoped per user")
	}
}

func TestProductService_Create_IdempotencyStoreDown(t *testing.T) {
	repo := newStubProductRepo()
	keys := newStubKeyStore()
	keys.reserveErr = errors.New("redis down")
	svc := NewProductService(repo, keys, discardLogger)

	if _, err := svc.Create(context.Background(), ports.CreateProductInput{Name: "x", Price: ptr(1.0), IdempotencyKey: "k"}); err != nil {
		t.Fatalf("store outage must not fail the create: %v", err)
	}
	if repo.creates != 1 {
		t.Fatalf("expected insert despite store outage")
	}
}

func TestProductService_Create_KeyInFlight(t *testing.T) {
	repo := newStubProductRepo()
	keys := newStubKeyStore()
	keys.keys["u1:abc"] = ""
	svc := NewProductService(repo, keys, discardLogger)

	_, err := svc.Create(context.Background(), ports.CreateProductInput{Name: "x", Price: ptr(1.0), IdempotencyKey: "abc", UserID: "u1"})
	if !errors.Is(err, domain.ErrRequestInProgress) {
		t.Fatalf("expected ErrRequestInProgress, got %v", err)
	}
	if domain.KindOf(err) != domain.KindConflict {
		t.Fatalf("expected conflict kind, got %v", domain.KindOf(err))
	}
	if repo.creates != 0 {
		t.Fatalf("a second request must not insert while the first holds the key")
	}
}

func TestProductService_Create_FailedInsertReleasesKey(t *testing.T) {
	repo := newStubProductRepo()
	repo.createErr = errors.New("connection reset")
	keys := newStubKeyStore()
	svc := NewProductService(repo, keys, discardLogger)

	in := ports.CreateProductInput{Name: "x", Price: ptr(1.0), IdempotencyKey: "abc", UserID: "u1"}
	if _, err := svc.Create(context.Background(), in); domain.KindOf(err) != domain.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if len(keys.released) != 1 || keys.released[0] != "u1:abc" {
		t.Fatalf("expected the reservation to be released, got %v", keys.released)
	}

	repo.createErr = nil
	p, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("retry after release: %v", err)
	}
	if keys.keys["u1:abc"] != p.ID {
		t.Fatalf("expected key bound to %s, got %q", p.ID, keys.keys["u1:abc"])
	}
}

func TestProductService_Create_KeyOfDeletedProduct(t *testing.T) {
	repo := newStubProductRepo()
	keys := newStubKeyStore()
	svc := NewProductService(repo, keys, discardLogger)
	ctx := context.Background()

	in := ports.CreateProductInput{Name: "x", Price: ptr(1.0), IdempotencyKey: "abc", UserID: "u1"}
	first, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	second, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("create after delete: %v", err)
	}
	if second.ID == first.ID || keys.keys["u1:abc"] != second.ID {
		t.Fatalf("expected a new product bound to the key, got %s (key=%q)", second.ID, keys.keys["u1:abc"])
	}
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestProductService_List_PriceRange(t *testing.T) {
	svc := NewProductService(newStubProductRepo(), nil, discardLogger)
	for i, price := range []float64{10, 50, 100, 150, 200} {
		seed(t, svc, fmt.Sprintf("p%d", i), price)
	}

	page, err := svc.List(context.Background(), ports.ListProductsInput{MinPrice: ptr(50.0), MaxPrice: ptr(150.0)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || len(page.Products) != 3 {
		t.Fatalf("expected 3 matches, got total=%d len=%d", page.Total, len(page.Products))
	}
	for _, p := range page.Products {
		if p.Price < 50 || p.Price > 150 {
			t.Fatalf("price %v outside range", p.Price)
		}
	}
	if page.Pages != 1 || page.Page != 1 {
		t.Fatalf("unexpected paging: %+v", page)
	}
}

func TestProductService_List_Pagination(t *testing.T) {
	svc := NewProductService(newStubProductRepo(), nil, discardLogger)
	for i := 0; i < 25; i++ {
		seed(t, svc, fmt.Sprintf("item-%02d", i), float64(i))
	}

	page, err := svc.List(context.Background(), ports.ListProductsInput{Page: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 25 || page.Pages != 3 || page.Limit != 10 {
		t.Fatalf("unexpected paging: total=%d pages=%d limit=%d", page.Total, page.Pages, page.Limit)
	}
	if len(page.Products) != 5 || page.Products[0].Name != "item-20" {
		t.Fatalf("unexpected last page: %+v", page.Products)
	}

	page, err = svc.List(context.Background(), ports.ListProductsInput{Page: 2, Limit: 7})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Pages != 4 || len(page.Products) != 7 || page.Products[0].Name != "item-07" {
		t.Fatalf("unexpected page 2/7: pages=%d first=%s", page.Pages, page.Products[0].Name)
	}
}

func TestProductService_List_Defaults(t *testing.T) {
	repo := newStubProductRepo()
	svc := NewProductService(repo, nil, discardLogger)

	page, err := svc.List(context.Background(), ports.ListProductsInput{Page: -2, Limit: 0})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.lastQuery.Page != 1 || repo.lastQuery.Limit != 10 {
		t.Fatalf("expected defaults page=1 limit=10, got %+v", repo.lastQuery)
	}
	if page.Products == nil {
		t.Fatalf("products must be an empty slice, not nil")
	}
	if page.Total != 0 || page.Pages != 0 {
		t.Fatalf("unexpected empty page: %+v", page)
	}

	_, _ = svc.List(context.Background(), ports.ListProductsInput{Limit: 1000})
	if repo.lastQuery.Limit != maxLimit {
		t.Fatalf("expected limit capped at %d, got %d", maxLimit, repo.lastQuery.Limit)
	}
}

func TestProductService_List_Search(t *testing.T) {
	svc := NewProductService(newStubProductRepo(), nil, discardLogger)
	seed(t, svc, "Red Apple", 1)
	seed(t, svc, "Green apple", 2)
	seed(t, svc, "Banana", 3)

	page, err := svc.List(context.Background(), ports.ListProductsInput{Search: "APPLE"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 apples, got %d", page.Total)
	}
}

func TestProductService_List_SearchIsLiteral(t *testing.T) {
	svc := NewProductService(newStubProductRepo(), nil, discardLogger)
	seed(t, svc, "Xphone", 1)
	seed(t, svc, "Smart phone", 2)

	page, err := svc.List(context.Background(), ports.ListProductsInput{Search: " phone"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || page.Products[0].Name != "Smart phone" {
		t.Fatalf("expected only the spaced match, got %+v", page.Products)
	}
}

func TestProductService_List_HugePage(t *testing.T) {
	repo := newStubProductRepo()
	svc := NewProductService(repo, nil, discardLogger)
	seed(t, svc, "only", 1)

	page, err := svc.List(context.Background(), ports.ListProductsInput{Page: 100000000000000000, Limit: 100})
	if err != nil {
		t.Fatalf("huge page must not fail: %v", err)
	}
	if repo.lastQuery.Page != maxPage {
		t.Fatalf("expected page clamped to %d, got %d", maxPage, repo.lastQuery.Page)
	}
	if int64(repo.lastQuery.Page-1)*int64(repo.lastQuery.Limit) < 0 {
		t.Fatalf("skip overflowed for %+v", repo.lastQuery)
	}
	if page.Products == nil || len(page.Products) != 0 {
		t.Fatalf("expected an empty page, got %+v", page.Products)
	}
	if page.Total != 1 || page.Pages != 1 {
		t.Fatalf("expected total=1 pages=1, got %+v", page)
	}
}

func TestProductService_List_StoreError(t *testing.T) {
	repo := newStubProductRepo()
	repo.listErr = errors.New("boom")
	svc := NewProductService(repo, nil, discardLogger)

	_, err := svc.List(context.Background(), ports.ListProductsInput{})
	if domain.KindOf(err) != domain.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Get / Update / Delete
// ---------------------------------------------------------------------------

func TestProductService_Get(t *testing.T) {
	svc := NewProductService(newStubProductRepo(), nil, discardLogger)
	p := seed(t, svc, "Test", 100)

	got, err := svc.Get(context.Background(), p.ID)
	if err != nil || got.ID != p.ID || got.Name != "Test" || got.Price != 100 {
		t.Fatalf("unexpected get result: %+v, %v", got, err)
	}

	if _, err := svc.Get(context.Background(), "64b7f0c2a1b2c3d4e5f60718"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "not-a-valid-id"); !errors.Is(err, domain.ErrInvalidProductID) {
		t.Fatalf("expected ErrInvalidProductID, got %v", err)
	}
}

func TestProductService_Update_Partial(t *testing.T) {
	svc := NewProductService(newStubProductRepo(), nil, discardLogger)
	created, err := svc.Create(context.Background(), ports.CreateProductInput{
		Name: "Test", Price: ptr(100.0), Description: ptr("desc"), Stock: ptr(10),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(context.Background(), ports.UpdateProductInput{ID: created.ID, Price: ptr(150.0)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Price != 150 || updated.Name != "Test" || updated.Description != "desc" || updated.Stock != 10 {
		t.Fatalf("only price should change: %+v", updated)
	}
}

func TestProductService_Update_ZeroValuesOverwrite(t *testing.T) {
	svc := NewProductService(newStubProductRepo(), nil, discardLogger)
	created, _ := svc.Create(context.Background(), ports.CreateProductInput{
		Name: "Test", Price: ptr(100.0), Description: ptr("desc"), Stock: ptr(10),
	})

	updated, err := svc.Update(context.Background(), ports.UpdateProductInput{
		ID: created.ID, Price: ptr(0.0), Stock: ptr(0), Description: ptr(""),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Price != 0 || updated.Stock != 0 || updated.Description != "" {
		t.Fatalf("explicit zero values must be written: %+v", updated)
	}
}

func TestProductService_Update_Rejections(t *testing.T) {
	repo := newStubProductRepo()
	svc := NewProductService(repo, nil, discardLogger)
	created := seed(t, svc, "Test", 100)

	tests := []struct {
		name string
		in   ports.UpdateProductInput
		want error
	}{
		{"negative price", ports.UpdateProductInput{ID: created.ID, Price: ptr(-1.0)}, domain.ErrNegativePrice},
		{"negative stock", ports.UpdateProductInput{ID: created.ID, Stock: ptr(-3)}, domain.ErrNegativeStock},
		{"empty name", ports.UpdateProductInput{ID: created.ID, Name: ptr(" ")}, domain.ErrEmptyName},
		{"no fields", ports.UpdateProductInput{ID: created.ID}, domain.ErrNoFieldsToUpdate},
		{"unknown id", ports.UpdateProductInput{ID: "64b7f0c2a1b2c3d4e5f60718", Price: ptr(1.0)}, domain.ErrProductNotFound},
		{"malformed id", ports.UpdateProductInput{ID: "nope", Price: ptr(1.0)}, domain.ErrInvalidProductID},
		{"unknown id wins over bad payload", ports.UpdateProductInput{ID: "64b7f0c2a1b2c3d4e5f60718", Price: ptr(-1.0)}, domain.ErrProductNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(context.Background(), tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if repo.updates != 0 {
		t.Fatalf("rejected updates must not write, got %d writes", repo.updates)
	}
	after, _ := svc.Get(context.Background(), created.ID)
	if after.Price != 100 {
		t.Fatalf("record changed after failed update: %+v", after)
	}
}

func TestProductService_Delete_Twice(t *testing.T) {
	svc := NewProductService(newStubProductRepo(), nil, discardLogger)
	p := seed(t, svc, "Test", 1)

	if err := svc.Delete(context.Background(), p.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := svc.Delete(context.Background(), p.ID); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound on second delete, got %v", err)
	}
	if _, err := svc.Get(context.Background(), p.ID); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected product gone, got %v", err)
	}
	if err := svc.Delete(context.Background(), "bad"); !errors.Is(err, domain.ErrInvalidProductID) {
		t.Fatalf("expected ErrInvalidProductID, got %v", err)
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 10, 0}, {1, 10, 1}, {10, 10, 1}, {11, 10, 2}, {25, 7, 4},
	}
	for _, c := range cases {
		if got := totalPages(c.total, c.limit); got != c.want {
			t.Fatalf("totalPages(%d,%d) = %d, want %d", c.total, c.limit, got, c.want)
		}
	}
}

func TestCatalogLifecycle(t *testing.T) {
	ctx := context.Background()
	authSvc := newTestAuthService(newStubUserRepo())
	products := NewProductService(newStubProductRepo(), nil, discardLogger)

	if _, err := authSvc.Register(ctx, ports.RegisterInput{Name: "Test", Email: "test@example.com", Password: "pass123"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	login, err := authSvc.Login(ctx, ports.LoginInput{Email: "test@example.com", Password: "pass123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	id, err := authSvc.VerifyToken(ctx, login.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	created, err := products.Create(ctx, ports.CreateProductInput{
		Name: "Test", Price: ptr(100.0), Stock: ptr(10), UserID: id.UserID,
	})
	if err != nil || created.ID == "" {
		t.Fatalf("create: %+v %v", created, err)
	}

	got, err := products.Get(ctx, created.ID)
	if err != nil || got.ID != created.ID || got.Name != "Test" || got.Price != 100 {
		t.Fatalf("get: %+v %v", got, err)
	}

	updated, err := products.Update(ctx, ports.UpdateProductInput{ID: created.ID, Price: ptr(150.0)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Price != 150 || updated.Name != "Test" || updated.Stock != 10 {
		t.Fatalf("update changed more than price: %+v", updated)
	}

	if err := products.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := products.Get(ctx, created.ID); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected 404 after delete, got %v", err)
	}
}
