// Package catalog holds the bundled product list used when the product store
// is unavailable or has no matching record, and the resolver the checkout flow
// uses to turn a product id or slug into a name and price.
package catalog

import (
	"context"

	"cruise-booking/internal/model"
)

// Catalog is an immutable, in-memory product list.
type Catalog interface {
	// Find returns the product whose ID or slug equals key.
	Find(key string) (*model.Product, bool)

	// All returns a copy of every product in load order.
	All() []model.Product

	// Size returns the number of products.
	Size() int
}

// Loader defines the interface for loading a catalog snapshot.
type Loader interface {
	// Load reads a JSON product array (optionally gzipped) from source.
	Load(ctx context.Context, source string) (Catalog, error)
}
