package domain

import (
	"strings"
	"time"
)

// Product is a catalog entry. Price and Stock are never negative.
type Product struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate enforces the invariants every stored product must satisfy.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.Price < 0 {
		return ErrNegativePrice
	}
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	return nil
}

// ProductPatch carries a partial update. A nil field was absent from the
// request and must not be touched; a non-nil field overwrites, zero values
// included.
type ProductPatch struct {
	Name        *string
	Price       *float64
	Description *string
	Stock       *int
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Price == nil && p.Description == nil && p.Stock == nil
}

// Apply returns a copy of prod with the patch's present fields written over it.
func (p ProductPatch) Apply(prod Product) Product {
	if p.Name != nil {
		prod.Name = *p.Name
	}
	if p.Price != nil {
		prod.Price = *p.Price
	}
	if p.Description != nil {
		prod.Description = *p.Description
	}
	if p.Stock != nil {
		prod.Stock = *p.Stock
	}
	return prod
}
