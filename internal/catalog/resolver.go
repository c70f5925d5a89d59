package catalog

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"cruise-booking/internal/model"
)

// Source tells where a resolved product came from.
type Source string

const (
	SourceStore       Source = "store"
	SourceFallback    Source = "fallback"
	SourcePlaceholder Source = "placeholder"
)

// ProductStore is the remote product store consulted before the fallback.
type ProductStore interface {
	GetByID(ctx context.Context, id string) (*model.Product, error)
	GetBySlug(ctx context.Context, slug string) (*model.Product, error)
}

// Resolution is the name and unit price to snapshot onto an order.
type Resolution struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Source    Source
}

// Resolver turns a product id or slug into a Resolution.
type Resolver interface {
	// Resolve never fails: when no source knows the product, the placeholder
	// name is used and the unit price is total divided by quantity.
	Resolve(ctx context.Context, productID string, total int64, quantity int) Resolution
}

type resolver struct {
	store    ProductStore
	fallback Catalog
	logger   zerolog.Logger
}

// NewResolver creates a resolver. store may be nil.
func NewResolver(store ProductStore, fallback Catalog, logger zerolog.Logger) Resolver {
	return &resolver{
		store:    store,
		fallback: fallback,
		logger:   logger.With().Str("component", "product-resolver").Logger(),
	}
}

func (r *resolver) Resolve(ctx context.Context, productID string, total int64, quantity int) Resolution {
	if productID == "" {
		productID = model.UnknownProductID
	} else {
		if p := r.fromStore(ctx, productID); p != nil {
			return Resolution{ProductID: productID, Name: p.DisplayName(), Price: p.Price, Source: SourceStore}
		}
		if r.fallback != nil {
			if p, ok := r.fallback.Find(productID); ok {
				return Resolution{ProductID: productID, Name: p.DisplayName(), Price: p.Price, Source: SourceFallback}
			}
		}
		r.logger.Warn().Str("product_id", productID).Msg("product not found in any source, using placeholder")
	}

	if quantity < 1 {
		quantity = 1
	}
	return Resolution{
		ProductID: productID,
		Name:      model.PlaceholderProductName,
		Price:     decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(quantity))),
		Source:    SourcePlaceholder,
	}
}

func (r *resolver) fromStore(ctx context.Context, key string) *model.Product {
	if r.store == nil {
		return nil
	}

	lookups := []func(context.Context, string) (*model.Product, error){r.store.GetByID, r.store.GetBySlug}
	for _, lookup := range lookups {
		p, err := lookup(ctx, key)
		if err == nil && p != nil {
			return p
		}
		if err != nil && !errors.Is(err, model.ErrProductNotFound) {
			// Store unavailable; the bundled list is the answer.
			r.logger.Warn().Err(err).Str("product_id", key).Msg("product store lookup failed")
			return nil
		}
	}
	return nil
}
