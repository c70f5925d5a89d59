package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"cruise-booking/internal/model"
)

const orderColumns = `id, order_number, user_id, user_email, user_name, user_phone,
	product_id, product_name, product_price, quantity, total_amount,
	payment_method, payment_status, payment_key, gateway_order_id, paid_at, refunded_at,
	status, created_at, updated_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o             model.Order
		paymentStatus string
		status        string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.UserEmail, &o.UserName, &o.UserPhone,
		&o.ProductID, &o.ProductName, &o.ProductPrice, &o.Quantity, &o.TotalAmount,
		&o.Payment.Method, &paymentStatus, &o.Payment.PaymentKey, &o.Payment.GatewayOrderID,
		&o.Payment.PaidAt, &o.Payment.RefundedAt,
		&status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Payment.Status = model.PaymentStatus(paymentStatus)
	o.Status = model.OrderStatus(status)
	return &o, nil
}

// CreateIfAbsent inserts the order keyed on its gateway order id.
func (r *orderRepository) CreateIfAbsent(ctx context.Context, order *model.Order) (*model.Order, bool, error) {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (gateway_order_id) DO NOTHING
		RETURNING ` + orderColumns

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	logger := r.logger.With().
		Str("order_number", order.OrderNumber).
		Str("gateway_order_id", order.Payment.GatewayOrderID).
		Logger()

	created, err := scanOrder(r.pool.QueryRow(ctx, query,
		order.ID, order.OrderNumber, order.UserID, order.UserEmail, order.UserName, order.UserPhone,
		order.ProductID, order.ProductName, order.ProductPrice, order.Quantity, order.TotalAmount,
		order.Payment.Method, string(order.Payment.Status), order.Payment.PaymentKey, order.Payment.GatewayOrderID,
		order.Payment.PaidAt, order.Payment.RefundedAt,
		string(order.Status), order.CreatedAt, order.UpdatedAt,
	))
	if err == nil {
		logger.Debug().Str("order_id", created.ID.String()).Msg("order created successfully")
		return created, true, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		if constraint, ok := uniqueViolation(err); ok && constraint == orderNumberConstraint {
			logger.Warn().Msg("order number collision")
			return nil, false, ErrOrderNumberTaken
		}
		logger.Error().Err(err).Msg("failed to create order")
		return nil, false, fmt.Errorf("failed to create order: %w", err)
	}

	// Conflict on the gateway order id: the payment was already recorded.
	existing, err := r.GetByGatewayOrderID(ctx, order.Payment.GatewayOrderID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing order: %w", err)
	}

	logger.Info().
		Str("existing_order_number", existing.OrderNumber).
		Msg("order already recorded for gateway order id")

	return existing, false, nil
}

// GetByID retrieves an order by its primary key.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, "id", id)
}

// GetByOrderNumber retrieves an order by its customer-facing number.
func (r *orderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	return r.getOne(ctx, "order_number", orderNumber)
}

// GetByGatewayOrderID retrieves the order created for a gateway order id.
func (r *orderRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*model.Order, error) {
	return r.getOne(ctx, "gateway_order_id", gatewayOrderID)
}

// column is always a constant from this file.
func (r *orderRepository) getOne(ctx context.Context, column string, value any) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + column + ` = $1`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		r.logger.Error().Err(err).Str("column", column).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	return o, nil
}

// ListByUserID lists a user's orders, newest first.
func (r *orderRepository) ListByUserID(ctx context.Context, userID string) ([]model.Order, error) {
	return r.list(ctx, `WHERE user_id = $1`, userID)
}

// ListByEmail lists orders stamped with email, newest first. Matching
// ignores case.
func (r *orderRepository) ListByEmail(ctx context.Context, email string) ([]model.Order, error) {
	return r.list(ctx, `WHERE lower(user_email) = lower($1)`, email)
}

// ListAll lists every order, newest first.
func (r *orderRepository) ListAll(ctx context.Context) ([]model.Order, error) {
	return r.list(ctx, ``)
}

func (r *orderRepository) list(ctx context.Context, where string, args ...any) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ` + where + ` ORDER BY created_at DESC, order_number DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("filter", where).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// UpdateStatus writes the status change. Payment completion stamps paid_at
// once; a refund stamps refunded_at.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, paymentStatus *model.PaymentStatus, at time.Time) (*model.Order, error) {
	query := `
		UPDATE orders SET
			status = $2,
			payment_status = COALESCE($3::text, payment_status),
			paid_at = CASE WHEN $3::text = 'completed' THEN COALESCE(paid_at, $4::timestamptz) ELSE paid_at END,
			refunded_at = CASE WHEN $3::text = 'refunded' THEN $4::timestamptz ELSE refunded_at END,
			updated_at = $4::timestamptz
		WHERE id = $1
		RETURNING ` + orderColumns

	var ps *string
	if paymentStatus != nil {
		s := string(*paymentStatus)
		ps = &s
	}

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id, string(status), ps, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order status")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	r.logger.Info().
		Str("order_id", id.String()).
		Str("status", string(o.Status)).
		Str("payment_status", string(o.Payment.Status)).
		Msg("order status updated")

	return o, nil
}

// ReassignGuestOrders moves guest orders to userID in one statement.
func (r *orderRepository) ReassignGuestOrders(ctx context.Context, userID, email string, at time.Time) (int64, error) {
	query := `
		UPDATE orders SET
			user_id = $1,
			user_email = COALESCE(NULLIF($2, ''), user_email),
			updated_at = $3
		WHERE user_id = $4
	`

	tag, err := r.pool.Exec(ctx, query, userID, email, at, model.GuestUserID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to reassign guest orders")
		return 0, fmt.Errorf("failed to reassign guest orders: %w", err)
	}

	r.logger.Info().
		Str("user_id", userID).
		Int64("updated", tag.RowsAffected()).
		Msg("guest orders reassigned")

	return tag.RowsAffected(), nil
}
