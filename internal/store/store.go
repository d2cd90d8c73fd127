// Package store provides the product catalog storage operations.
package store

import (
	"context"
)

// DefaultThumbnail is used when a product is created without thumbnails.
const DefaultThumbnail = "./images/IMG_placeholder.jpg"

// Product represents a catalog entry as persisted in the collection file.
// Field order matches the on-disk document.
type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"       validate:"required"`
	Description string  `json:"description" validate:"required"`
	Code        string  `json:"code"        validate:"required"`
	Price       float64 `json:"price"       validate:"gte=0"`
	Status      bool    `json:"status"`
	Stock       int     `json:"stock"       validate:"gte=0"`
	Category    string  `json:"category"    validate:"required"`
	Thumbnails  string  `json:"thumbnails"`
}

// Collection is the ordered sequence of products, in insertion order.
// It is the unit of persistence: every mutation rewrites all of it.
type Collection []Product

// Fields is an untyped bag of product fields as supplied by a caller,
// typically the result of decoding a JSON object.
type Fields map[string]any

// Predicate is a set of equality constraints keyed by product field name.
// A product matches when every constraint holds.
type Predicate map[string]any

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different backends (e.g., file, in-memory).
type ProductStore interface {
	// Create validates fields, assigns the next id and appends the product.
	// Returns ValidationError for missing, unknown or mistyped fields and ConflictError if the code is taken.
	Create(ctx context.Context, fields Fields) (Collection, error)

	// GetAll returns the full current collection.
	// Returns an empty collection if no products exist.
	GetAll(ctx context.Context) (Collection, error)

	// GetBy returns the first product matching the predicate.
	// Returns NotFoundError if nothing matches.
	GetBy(ctx context.Context, predicate Predicate) (*Product, error)

	// Update merges fields over the product with the given id.
	// Returns NotFoundError if no product exists with the given id.
	Update(ctx context.Context, id int, fields Fields) (Collection, error)

	// Remove deletes the product with the given id.
	// Returns NotFoundError if no product exists with the given id.
	Remove(ctx context.Context, id int) error

	// NextID reports the id the next Create would assign.
	NextID(ctx context.Context) (int, error)

	// Ping reports whether the backing storage is readable.
	Ping(ctx context.Context) error
}

// nextID returns the last product's id + 1, or 1 for an empty collection.
// Ids freed by removal are never reused.
func nextID(c Collection) int {
	if len(c) == 0 {
		return 1
	}
	return c[len(c)-1].ID + 1
}

// indexOf returns the position of the product with the given id, or -1.
func (c Collection) indexOf(id int) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// byCode returns the product holding code, skipping the product with id skipID.
func (c Collection) byCode(code string, skipID int) (*Product, bool) {
	for i := range c {
		if c[i].Code == code && c[i].ID != skipID {
			return &c[i], true
		}
	}
	return nil, false
}
