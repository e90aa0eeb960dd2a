package handler

import (
	"github.com/shouryamanekar/product-management-backend/internal/core/domain"
	"github.com/shouryamanekar/product-management-backend/internal/core/ports"
)

func toUserResponse(u *domain.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

func toAuthResponse(res *ports.AuthResult) authResponse {
	return authResponse{Token: res.Token, User: toUserResponse(res.User)}
}

func toProductResponse(p *domain.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProductListResponse(page *ports.ProductPage) productListResponse {
	items := make([]productResponse, 0, len(page.Products))
	for i := range page.Products {
		items = append(items, toProductResponse(&page.Products[i]))
	}
	return productListResponse{
		Total:    page.Total,
		Page:     page.Page,
		Pages:    page.Pages,
		Products: items,
	}
}
