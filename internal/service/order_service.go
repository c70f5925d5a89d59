package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cruise-booking/internal/metrics"
	"cruise-booking/internal/model"
	"cruise-booking/internal/repository"
)

// Steps of the order lookup chain, as recorded in metrics.
const (
	lookupByUserID = "user_id"
	lookupByEmail  = "email"
	lookupScan     = "scan"
	lookupNone     = "none"
)

// orderQueryService implements OrderQueryService.
type orderQueryService struct {
	orderRepo repository.OrderRepository
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewOrderQueryService creates a new order query service. m may be nil.
func NewOrderQueryService(orderRepo repository.OrderRepository, m *metrics.Metrics, logger zerolog.Logger) OrderQueryService {
	return &orderQueryService{
		orderRepo: orderRepo,
		metrics:   m,
		logger:    logger.With().Str("service", "order-query").Logger(),
	}
}

// ListOrders looks orders up by user id, then by email, then by scanning
// every order. A failing step is logged and the next one is tried.
func (s *orderQueryService) ListOrders(ctx context.Context, q model.OrderQuery) ([]model.Order, error) {
	q.UserID = strings.TrimSpace(q.UserID)
	q.Email = strings.TrimSpace(q.Email)
	if q.UserID == "" && q.Email == "" {
		return nil, model.NewValidationError("userId", "userId or email is required")
	}

	logger := s.logger.With().Str("user_id", q.UserID).Str("email", q.Email).Logger()

	var (
		failures int
		attempts int
		lastErr  error
	)
	step := func(name string, fetch func() ([]model.Order, error)) []model.Order {
		attempts++
		orders, err := fetch()
		if err != nil {
			failures++
			lastErr = err
			logger.Error().Err(err).Str("step", name).Msg("order lookup step failed")
			return nil
		}
		return orders
	}

	if q.UserID != "" {
		orders := step(lookupByUserID, func() ([]model.Order, error) {
			return s.orderRepo.ListByUserID(ctx, q.UserID)
		})
		if len(orders) > 0 {
			return s.answer(lookupByUserID, orders), nil
		}
	}

	if q.Email != "" {
		orders := step(lookupByEmail, func() ([]model.Order, error) {
			return s.orderRepo.ListByEmail(ctx, q.Email)
		})
		if len(orders) > 0 {
			logger.Debug().Int("count", len(orders)).Msg("orders found by email")
			return s.answer(lookupByEmail, orders), nil
		}
	}

	all := step(lookupScan, func() ([]model.Order, error) {
		return s.orderRepo.ListAll(ctx)
	})
	matched := []model.Order{}
	for _, o := range all {
		if (q.UserID != "" && o.UserID == q.UserID) || (q.Email != "" && strings.EqualFold(o.UserEmail, q.Email)) {
			matched = append(matched, o)
		}
	}
	if len(matched) > 0 {
		logger.Warn().
			Int("scanned", len(all)).
			Int("matched", len(matched)).
			Msg("orders found only by full scan")
		return s.answer(lookupScan, matched), nil
	}

	if failures == attempts {
		return nil, fmt.Errorf("failed to list orders: %w", lastErr)
	}

	s.metrics.RecordLookupStep(lookupNone)
	return matched, nil
}

func (s *orderQueryService) answer(step string, orders []model.Order) []model.Order {
	s.metrics.RecordLookupStep(step)
	sortNewestFirst(orders)
	return orders
}

// GetOrder retrieves one order by its order number.
func (s *orderQueryService) GetOrder(ctx context.Context, orderNumber string) (*model.Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, model.NewValidationError("orderNumber", "order number is required")
	}

	order, err := s.orderRepo.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func sortNewestFirst(orders []model.Order) {
	slices.SortStableFunc(orders, func(a, b model.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// orderAdminService implements OrderAdminService.
type orderAdminService struct {
	orderRepo   repository.OrderRepository
	orderNumber OrderNumberFunc
	now         func() time.Time
	logger      zerolog.Logger
}

// NewOrderAdminService creates a new order administration service.
func NewOrderAdminService(orderRepo repository.OrderRepository, logger zerolog.Logger) OrderAdminService {
	return &orderAdminService{
		orderRepo:   orderRepo,
		orderNumber: NewOrderNumber,
		now:         time.Now,
		logger:      logger.With().Str("service", "order-admin").Logger(),
	}
}

func (s *orderAdminService) ListAll(ctx context.Context) ([]model.Order, error) {
	orders, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus rejects changes that either state machine forbids. Setting
// the current status again is accepted.
func (s *orderAdminService) UpdateStatus(ctx context.Context, id uuid.UUID, update model.StatusUpdate) (*model.Order, error) {
	if !update.Status.Valid() {
		return nil, model.NewValidationError("status", fmt.Sprintf("unknown order status %q", update.Status))
	}
	if update.PaymentStatus != nil && !update.PaymentStatus.Valid() {
		return nil, model.NewValidationError("paymentStatus", fmt.Sprintf("unknown payment status %q", *update.PaymentStatus))
	}

	current, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Status != current.Status && !current.Status.CanTransitionTo(update.Status) {
		s.logger.Warn().
			Str("order_number", current.OrderNumber).
			Str("from", string(current.Status)).
			Str("to", string(update.Status)).
			Msg("order status transition rejected")
		return nil, model.ErrInvalidTransition
	}

	paymentStatus := update.PaymentStatus
	if paymentStatus != nil && *paymentStatus == current.Payment.Status {
		paymentStatus = nil
	}
	if paymentStatus != nil && !current.Payment.Status.CanTransitionTo(*paymentStatus) {
		s.logger.Warn().
			Str("order_number", current.OrderNumber).
			Str("from", string(current.Payment.Status)).
			Str("to", string(*paymentStatus)).
			Msg("payment status transition rejected")
		return nil, model.ErrInvalidTransition
	}
	if paymentStatus != nil && *paymentStatus == model.PaymentStatusCompleted && current.Payment.PaymentKey == "" {
		return nil, model.NewValidationError("paymentStatus", "a completed payment needs a payment key")
	}

	updated, err := s.orderRepo.UpdateStatus(ctx, id, update.Status, paymentStatus, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_number", updated.OrderNumber).
		Str("status", string(updated.Status)).
		Str("payment_status", string(updated.Payment.Status)).
		Msg("order status changed")

	return updated, nil
}

func (s *orderAdminService) ReassignGuestOrders(ctx context.Context, req model.ReassignRequest) (int64, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" || userID == model.GuestUserID {
		return 0, model.NewValidationError("userId", "a non-guest userId is required")
	}

	n, err := s.orderRepo.ReassignGuestOrders(ctx, userID, strings.TrimSpace(req.UserEmail), s.now())
	if err != nil {
		return 0, err
	}

	s.logger.Info().Str("user_id", userID).Int64("updated", n).Msg("guest orders reassigned")
	return n, nil
}

// Import writes orders through the same idempotent create as reconciliation.
// Orders whose number is taken by another payment get a fresh number.
func (s *orderAdminService) Import(ctx context.Context, orders []model.Order) (*ImportResult, error) {
	result := &ImportResult{}

	for i := range orders {
		o := &orders[i]
		if o.Payment.GatewayOrderID == "" {
			result.Skipped++
			continue
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = s.now()
		}
		if o.UpdatedAt.IsZero() {
			o.UpdatedAt = o.CreatedAt
		}

		var err error
		if o.OrderNumber == "" {
			if o.OrderNumber, err = s.orderNumber(o.CreatedAt); err != nil {
				return result, err
			}
		}

		_, created, err := s.orderRepo.CreateIfAbsent(ctx, o)
		if errors.Is(err, repository.ErrOrderNumberTaken) {
			var number string
			if number, err = s.orderNumber(o.CreatedAt); err == nil {
				s.logger.Warn().
					Str("order_number", o.OrderNumber).
					Str("new_order_number", number).
					Msg("imported order number already in use, renumbering")
				o.OrderNumber = number
				_, created, err = s.orderRepo.CreateIfAbsent(ctx, o)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Failed++
			s.logger.Error().Err(err).
				Str("order_number", o.OrderNumber).
				Str("gateway_order_id", o.Payment.GatewayOrderID).
				Msg("failed to import order")
			continue
		}

		if created {
			result.Created++
		} else {
			result.Skipped++
		}
	}

	s.logger.Info().
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("order import finished")

	return result, nil
}
