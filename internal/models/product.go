package models

import (
	"time"
)

type Product struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Description *string `json:"description" db:"description"`
	Price       float64 `json:"price" db:"price"`
	CategoryID  int64   `json:"category_id" db:"category_id"`
	SKU         *string `json:"sku" db:"sku"`
	// StockQuantity of -1 means unlimited stock.
	StockQuantity int       `json:"stock_quantity" db:"stock_quantity"`
	ImageURL      *string   `json:"image_url" db:"image_url"`
	Status        string    `json:"status" db:"status"`
	SortOrder     int       `json:"sort_order" db:"sort_order"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
	CreatedBy     string    `json:"created_by" db:"created_by"`
}

// ProductWithCategory joins a product with its category name for listings.
type ProductWithCategory struct {
	Product
	CategoryName string `json:"category_name" db:"-"`
}

// ProductSearchFilter holds search and filter criteria for product queries.
type ProductSearchFilter struct {
	Query      string `json:"query,omitempty"`       // Substring match across name, sku, description
	CategoryID *int64 `json:"category_id,omitempty"` // Filter by category
	Status     string `json:"status,omitempty"`      // "", "active", "archived" or "all"; empty excludes archived
	Page       int    `json:"page,omitempty"`        // 1-based, clamped to [1, total pages]
	PageSize   int    `json:"page_size,omitempty"`
}

type ProductSearchResult struct {
	Products   []*ProductWithCategory `json:"products"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	TotalPages int                    `json:"total_pages"`
	PageSize   int                    `json:"page_size"`
}
