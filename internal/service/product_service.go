package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"cruise-booking/internal/catalog"
	"cruise-booking/internal/model"
	"cruise-booking/internal/repository"
)

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	fallback    catalog.Catalog
	logger      zerolog.Logger
}

// NewProductService creates a new product service backed by the store with
// fallback as the bundled catalogue.
func NewProductService(productRepo repository.ProductRepository, fallback catalog.Catalog, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		fallback:    fallback,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// GetAll retrieves active products with pagination.
func (s *productService) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	products, err := s.productRepo.GetAll(ctx, limit, offset)
	if err != nil {
		s.logger.Warn().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("product store unavailable, serving bundled catalogue")
		return s.fallbackPage(limit, offset), nil
	}

	if len(products) == 0 && offset == 0 {
		s.logger.Debug().Msg("product store is empty, serving bundled catalogue")
		return s.fallbackPage(limit, offset), nil
	}

	s.logger.Debug().
		Int("count", len(products)).
		Int("limit", limit).
		Int("offset", offset).
		Msg("retrieved products")

	return products, nil
}

func (s *productService) fallbackPage(limit, offset int) []model.Product {
	all := s.fallback.All()
	if offset >= len(all) {
		return []model.Product{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

// GetByID retrieves a single product by ID, then slug, then from the bundled
// catalogue.
func (s *productService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	if id == "" {
		s.logger.Warn().Msg("product ID is empty")
		return nil, model.ErrProductNotFound
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if errors.Is(err, model.ErrProductNotFound) {
		product, err = s.productRepo.GetBySlug(ctx, id)
	}
	switch {
	case err == nil:
		return product, nil
	case !errors.Is(err, model.ErrProductNotFound):
		s.logger.Warn().Err(err).Str("product_id", id).Msg("product store lookup failed, trying bundled catalogue")
	}

	if p, ok := s.fallback.Find(id); ok {
		return p, nil
	}

	s.logger.Debug().Str("product_id", id).Msg("product not found")
	return nil, model.ErrProductNotFound
}

// Seed upserts every bundled product when the products table is empty.
func (s *productService) Seed(ctx context.Context) (*SeedResult, error) {
	existing, err := s.productRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	if existing > 0 {
		s.logger.Info().Int("existing", existing).Msg("products already present, skipping seed")
		return &SeedResult{Existing: existing, Skipped: true}, nil
	}

	products := s.fallback.All()
	for i := range products {
		if err := s.productRepo.Upsert(ctx, &products[i]); err != nil {
			return &SeedResult{Seeded: i}, fmt.Errorf("failed to seed products: %w", err)
		}
	}

	s.logger.Info().Int("seeded", len(products)).Msg("products seeded")

	return &SeedResult{Seeded: len(products)}, nil
}
