package service

import (
	"context"

	"github.com/google/uuid"

	"cruise-booking/internal/model"
)

// ProductService defines operations for the product catalogue.
type ProductService interface {
	// GetAll retrieves active products with pagination. When the store is
	// unreachable or empty the bundled catalogue is served instead.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID or slug.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// Seed fills an empty products table from the bundled catalogue.
	Seed(ctx context.Context) (*SeedResult, error)
}

// ReconciliationService turns a client-reported payment into exactly one
// stored order.
type ReconciliationService interface {
	// Reconcile confirms the payment with the gateway and records the order.
	// The caller identity is read from ctx.
	Reconcile(ctx context.Context, req *model.ConfirmRequest) (*model.ConfirmResult, error)
}

// OrderQueryService defines read operations for customer orders.
type OrderQueryService interface {
	// ListOrders returns the customer's orders, newest first.
	ListOrders(ctx context.Context, q model.OrderQuery) ([]model.Order, error)

	// GetOrder retrieves one order by its order number.
	GetOrder(ctx context.Context, orderNumber string) (*model.Order, error)
}

// OrderAdminService defines operator operations on orders.
type OrderAdminService interface {
	// ListAll lists every order, newest first.
	ListAll(ctx context.Context) ([]model.Order, error)

	// UpdateStatus applies a status change validated against both state machines.
	UpdateStatus(ctx context.Context, id uuid.UUID, update model.StatusUpdate) (*model.Order, error)

	// ReassignGuestOrders attributes every guest order to the given user.
	ReassignGuestOrders(ctx context.Context, req model.ReassignRequest) (int64, error)

	// Import writes previously exported orders, skipping those already stored.
	Import(ctx context.Context, orders []model.Order) (*ImportResult, error)
}

// SeedResult reports what Seed did.
type SeedResult struct {
	Seeded   int  `json:"seeded"`
	Existing int  `json:"existing"`
	Skipped  bool `json:"skipped"`
}

// ImportResult reports what Import did.
type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
