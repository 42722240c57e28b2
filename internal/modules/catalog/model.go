package catalog

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a product id does not resolve.
var ErrNotFound = errors.New("product not found")

// ErrInvalidProduct wraps admin input that fails validation.
var ErrInvalidProduct = errors.New("invalid product")

// Product is a piece of furniture in the storefront catalog.
// Price is in minor currency units. Stock is only changed through inventory adjustments.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	SKU         string    `json:"sku,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Price       int64     `json:"price"`
	Stock       int       `json:"stock"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Available reports whether the product can be sold at all.
func (p *Product) Available() bool { return p.IsPublished && p.Stock > 0 }

// ListFilter narrows List results.
type ListFilter struct {
	Category      string
	PublishedOnly bool
}

// CreateProductRequest holds the data for creating a product.
type CreateProductRequest struct {
	ID          string `json:"id,omitempty" validate:"omitempty,max=64"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Category    string `json:"category" validate:"max=100"`
	SKU         string `json:"sku" validate:"max=64"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	Price       int64  `json:"price" validate:"gte=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
	IsPublished bool   `json:"is_published"`
}

// UpdateProductRequest edits catalog fields. Stock is deliberately absent.
type UpdateProductRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Category    string `json:"category" validate:"max=100"`
	SKU         string `json:"sku" validate:"max=64"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	Price       int64  `json:"price" validate:"gte=0"`
	IsPublished bool   `json:"is_published"`
}
