package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	Slug         string    `json:"slug"`
	ImageURL     *string   `json:"imageUrl"`
	IsActive     bool      `json:"isActive"`
	ProductCount int       `json:"productCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type CreateCategoryRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description *string `json:"description" binding:"omitempty,max=255"`
	Slug        *string `json:"slug" binding:"omitempty,max=100"`
	ImageURL    *string `json:"imageUrl" binding:"omitempty,max=255"`
	IsActive    *bool   `json:"isActive"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=255"`
	Slug        *string `json:"slug" binding:"omitempty,min=1,max=100"`
	ImageURL    *string `json:"imageUrl" binding:"omitempty,max=255"`
	IsActive    *bool   `json:"isActive"`
}

type CategoryQuery struct {
	IsActive *bool  `form:"isActive"`
	Search   string `form:"search" binding:"omitempty,max=100"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	SKU          string          `json:"sku"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	ImageURL     *string         `json:"imageUrl"`
	CategoryID   string          `json:"categoryId"`
	CategoryName string          `json:"category"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required,max=200"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required,gt=0"`
	Stock       int             `json:"stock" binding:"min=0"`
	SKU         string          `json:"sku" binding:"required,max=50"`
	ImageURL    *string         `json:"imageUrl"`
	CategoryID  string          `json:"categoryId" binding:"required"`
	IsActive    *bool           `json:"isActive"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" binding:"omitempty,gt=0"`
	Stock       *int             `json:"stock" binding:"omitempty,min=0"`
	SKU         *string          `json:"sku" binding:"omitempty,min=1,max=50"`
	ImageURL    *string          `json:"imageUrl"`
	CategoryID  *string          `json:"categoryId" binding:"omitempty,min=1"`
	IsActive    *bool            `json:"isActive"`
}

// UpdateStockRequest adjusts stock by a signed delta.
type UpdateStockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

type ProductQuery struct {
	Category string `form:"category"`
	IsActive *bool  `form:"isActive"`
	Search   string `form:"search" binding:"omitempty,max=100"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// CatalogFilter is shared by category and product listings.
type CatalogFilter struct {
	CategoryID string
	IsActive   *bool
	Search     string
	Page       int
	Limit      int
}

type PageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

func NewPageMeta(total, page, limit int) PageMeta {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return PageMeta{Total: total, Page: page, Limit: limit, TotalPages: pages}
}

// Paginate applies the listing defaults: page 1, limit 10, limit at most 100.
func Paginate(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
