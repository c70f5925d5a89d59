package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cruise-booking/internal/model"
)

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// GetAll retrieves active products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID.
	// Returns model.ErrProductNotFound when no row matches.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetBySlug retrieves a single product by its slug.
	GetBySlug(ctx context.Context, slug string) (*model.Product, error)

	// Count returns the number of stored products.
	Count(ctx context.Context) (int, error)

	// Upsert inserts the product or overwrites the row with the same ID.
	Upsert(ctx context.Context, p *model.Product) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// CreateIfAbsent inserts the order unless one already exists for its
	// gateway order id. It returns the stored row and whether this call
	// created it.
	CreateIfAbsent(ctx context.Context, order *model.Order) (*model.Order, bool, error)

	// GetByID retrieves an order by its primary key.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByOrderNumber retrieves an order by its customer-facing number.
	GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error)

	// GetByGatewayOrderID retrieves the order created for a gateway order id.
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*model.Order, error)

	// ListByUserID lists a user's orders, newest first.
	ListByUserID(ctx context.Context, userID string) ([]model.Order, error)

	// ListByEmail lists orders stamped with email, newest first.
	ListByEmail(ctx context.Context, email string) ([]model.Order, error)

	// ListAll lists every order, newest first.
	ListAll(ctx context.Context) ([]model.Order, error)

	// UpdateStatus writes the order status and, when paymentStatus is set, the
	// payment status with its timestamp. Last writer wins.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, paymentStatus *model.PaymentStatus, at time.Time) (*model.Order, error)

	// ReassignGuestOrders moves every guest-attributed order to userID and,
	// when email is set, stamps it on those orders. Returns the count moved.
	ReassignGuestOrders(ctx context.Context, userID, email string, at time.Time) (int64, error)
}

// UserRepository reads the accounts owned by the identity provider.
type UserRepository interface {
	// GetByID returns model.ErrUserNotFound when no row matches.
	GetByID(ctx context.Context, id string) (*model.User, error)
}
