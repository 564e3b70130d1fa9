package models

import (
	"time"
)

// Entity statuses. Archived rows stay in the store for history and restore;
// they are invisible to normal listings.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

type Category struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	ParentID  *int64    `json:"parent_id" db:"parent_id"`
	Status    string    `json:"status" db:"status"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	CreatedBy string    `json:"created_by" db:"created_by"`
}

// CategoryNode is one row of the tree read model. Depth is computed by
// walking parent pointers among the returned rows; the counts only consider
// active children and active products.
type CategoryNode struct {
	Category
	Depth        int `json:"depth" db:"-"`
	ChildCount   int `json:"child_count" db:"-"`
	ProductCount int `json:"product_count" db:"-"`
}

// CategoryDeleteImpact summarizes what a recursive soft-delete would archive.
type CategoryDeleteImpact struct {
	Category              *Category `json:"category"`
	SubcategoryCount      int       `json:"subcategory_count"`
	ProductCount          int       `json:"product_count"`
	AllDescendantProducts int       `json:"all_descendant_products"`
}
