package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"cruise-booking/internal/cache"
	"cruise-booking/internal/catalog"
	"cruise-booking/internal/identity"
	"cruise-booking/internal/metrics"
	"cruise-booking/internal/model"
	"cruise-booking/internal/payment"
	"cruise-booking/internal/repository"
)

const (
	confirmScope = "toss-confirm"

	// Order numbers are random; a collision is retried with a fresh one.
	maxOrderNumberAttempts = 3

	receiptStatusDone = "DONE"

	notSavedWarning = "Payment was confirmed but the order could not be saved. Please contact support with your order number."
)

// replayRecord is what the idempotency store remembers per gateway order id.
// Saved is false when the payment was captured but the order row is missing.
type replayRecord struct {
	OrderNumber string `json:"orderNumber"`
	PaymentKey  string `json:"paymentKey"`
	TotalAmount int64  `json:"totalAmount"`
	Saved       bool   `json:"saved"`
}

// reconciliationService implements ReconciliationService.
type reconciliationService struct {
	gateway     payment.Gateway
	orderRepo   repository.OrderRepository
	products    catalog.Resolver
	idempotency cache.IdempotencyStore
	metrics     *metrics.Metrics
	orderNumber OrderNumberFunc
	now         func() time.Time
	logger      zerolog.Logger
}

// ReconciliationOption customises a reconciliation service.
type ReconciliationOption func(*reconciliationService)

// WithIdempotencyStore sets the replay cache and in-flight lock.
func WithIdempotencyStore(store cache.IdempotencyStore) ReconciliationOption {
	return func(s *reconciliationService) {
		if store != nil {
			s.idempotency = store
		}
	}
}

// WithMetrics records reconciliation outcomes on m.
func WithMetrics(m *metrics.Metrics) ReconciliationOption {
	return func(s *reconciliationService) { s.metrics = m }
}

// WithOrderNumbers replaces the order number generator.
func WithOrderNumbers(fn OrderNumberFunc) ReconciliationOption {
	return func(s *reconciliationService) { s.orderNumber = fn }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) ReconciliationOption {
	return func(s *reconciliationService) { s.now = now }
}

// NewReconciliationService creates a new reconciliation service.
func NewReconciliationService(
	gateway payment.Gateway,
	orderRepo repository.OrderRepository,
	products catalog.Resolver,
	logger zerolog.Logger,
	opts ...ReconciliationOption,
) ReconciliationService {
	s := &reconciliationService{
		gateway:     gateway,
		orderRepo:   orderRepo,
		products:    products,
		idempotency: cache.NopStore{},
		orderNumber: NewOrderNumber,
		now:         time.Now,
		logger:      logger.With().Str("service", "reconciliation").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reconcile confirms the payment and records the order exactly once per
// gateway order id.
func (s *reconciliationService) Reconcile(ctx context.Context, req *model.ConfirmRequest) (*model.ConfirmResult, error) {
	if req == nil {
		s.metrics.RecordReconciliation(metrics.OutcomeInvalid)
		return nil, model.NewValidationError("", "confirm request is required")
	}
	if err := payment.ValidateInput(req.PaymentKey, req.OrderID, req.Amount); err != nil {
		s.metrics.RecordReconciliation(metrics.OutcomeInvalid)
		return nil, err
	}

	logger := s.logger.With().
		Str("gateway_order_id", req.OrderID).
		Str("payment_key", payment.MaskKey(req.PaymentKey)).
		Logger()

	if result := s.replay(ctx, req, logger); result != nil {
		s.metrics.RecordReconciliation(metrics.OutcomeReplayed)
		return result, nil
	}

	locked, err := s.idempotency.TryLock(ctx, confirmScope, req.OrderID)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("idempotency lock unavailable, continuing without it")
	case !locked:
		logger.Info().Msg("confirmation already in progress")
		s.metrics.RecordReconciliation(metrics.OutcomeInProgress)
		return nil, model.ErrConfirmationInProgress
	default:
		defer func() {
			if err := s.idempotency.Release(context.WithoutCancel(ctx), confirmScope, req.OrderID); err != nil {
				logger.Warn().Err(err).Msg("failed to release idempotency lock")
			}
		}()
	}

	receipt, err := s.gateway.Confirm(ctx, req.PaymentKey, req.OrderID, req.Amount)
	if err != nil {
		logger.Warn().Err(err).Msg("payment confirmation failed")
		s.metrics.RecordReconciliation(metrics.OutcomeGatewayError)
		return nil, err
	}

	total := receipt.TotalAmount
	if total <= 0 {
		total = req.Amount
	}
	if total != req.Amount {
		logger.Warn().
			Int64("requested_amount", req.Amount).
			Int64("confirmed_amount", total).
			Msg("gateway confirmed a different amount than requested")
	}

	result := &model.ConfirmResult{
		Success: true,
		Payment: summarise(receipt, req, total),
	}

	order := s.buildOrder(ctx, req, receipt, total)

	stored, created, err := s.persist(ctx, order)
	if err != nil {
		perr := &model.PersistenceError{Op: "save order", Err: err}
		logger.Error().Err(perr).
			Str("order_number", order.OrderNumber).
			Int64("total_amount", total).
			Msg("payment captured but order was not saved")
		s.metrics.RecordReconciliation(metrics.OutcomeNotSaved)

		result.OrderNumber = order.OrderNumber
		result.Warning = notSavedWarning

		// A refresh must show this number again instead of re-confirming.
		s.remember(context.WithoutCancel(ctx), req.OrderID, replayRecord{
			OrderNumber: order.OrderNumber,
			PaymentKey:  req.PaymentKey,
			TotalAmount: total,
		}, logger)
		return result, nil
	}

	result.OrderNumber = stored.OrderNumber
	result.OrderSaved = true
	result.Replayed = !created

	s.remember(ctx, req.OrderID, replayRecord{
		OrderNumber: stored.OrderNumber,
		PaymentKey:  stored.Payment.PaymentKey,
		TotalAmount: stored.TotalAmount,
		Saved:       true,
	}, logger)

	if created {
		logger.Info().
			Str("order_number", stored.OrderNumber).
			Str("user_id", stored.UserID).
			Str("product_id", stored.ProductID).
			Int64("total_amount", stored.TotalAmount).
			Msg("order created")
		s.metrics.RecordReconciliation(metrics.OutcomeCreated)
	} else {
		logger.Info().Str("order_number", stored.OrderNumber).Msg("order was recorded concurrently")
		s.metrics.RecordReconciliation(metrics.OutcomeReplayed)
	}

	return result, nil
}

// replay returns the earlier result for this gateway order id, if any.
// Cache and lookup failures fall through to a fresh confirmation, and so
// does a payment key that differs from the recorded one.
func (s *reconciliationService) replay(ctx context.Context, req *model.ConfirmRequest, logger zerolog.Logger) *model.ConfirmResult {
	if result := s.recall(ctx, req, logger); result != nil {
		return result
	}

	existing, err := s.orderRepo.GetByGatewayOrderID(ctx, req.OrderID)
	if err != nil {
		if !errors.Is(err, model.ErrOrderNotFound) {
			logger.Warn().Err(err).Msg("existing order lookup failed")
		}
		return nil
	}
	if existing.Payment.PaymentKey != req.PaymentKey {
		logger.Warn().
			Str("order_number", existing.OrderNumber).
			Msg("payment key does not match the recorded order, not replaying")
		return nil
	}

	logger.Info().Str("order_number", existing.OrderNumber).Msg("replaying stored confirmation")

	var approvedAt string
	if existing.Payment.PaidAt != nil {
		approvedAt = existing.Payment.PaidAt.Format(time.RFC3339)
	}
	return &model.ConfirmResult{
		Success:     true,
		OrderNumber: existing.OrderNumber,
		OrderSaved:  true,
		Replayed:    true,
		Payment: model.PaymentSummary{
			PaymentKey:  existing.Payment.PaymentKey,
			OrderID:     existing.Payment.GatewayOrderID,
			Status:      receiptStatusDone,
			TotalAmount: existing.TotalAmount,
			ApprovedAt:  approvedAt,
		},
	}
}

// recall answers from the idempotency store.
func (s *reconciliationService) recall(ctx context.Context, req *model.ConfirmRequest, logger zerolog.Logger) *model.ConfirmResult {
	raw, ok, err := s.idempotency.Recall(ctx, confirmScope, req.OrderID)
	if err != nil {
		logger.Warn().Err(err).Msg("idempotency recall failed")
		return nil
	}
	if !ok {
		return nil
	}

	var rec replayRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.OrderNumber == "" {
		logger.Warn().Err(err).Msg("ignoring unreadable cached confirmation")
		return nil
	}
	if rec.PaymentKey != req.PaymentKey {
		logger.Warn().Msg("payment key does not match the cached confirmation, not replaying")
		return nil
	}

	total := rec.TotalAmount
	if total <= 0 {
		total = req.Amount
	}

	logger.Info().
		Str("order_number", rec.OrderNumber).
		Bool("order_saved", rec.Saved).
		Msg("replaying cached confirmation")

	result := &model.ConfirmResult{
		Success:     true,
		OrderNumber: rec.OrderNumber,
		OrderSaved:  rec.Saved,
		Replayed:    true,
		Payment: model.PaymentSummary{
			PaymentKey:  req.PaymentKey,
			OrderID:     req.OrderID,
			Status:      receiptStatusDone,
			TotalAmount: total,
		},
	}
	if !rec.Saved {
		result.Warning = notSavedWarning
	}
	return result
}

func (s *reconciliationService) remember(ctx context.Context, gatewayOrderID string, rec replayRecord, logger zerolog.Logger) {
	value, err := json.Marshal(rec)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to encode confirmation result")
		return
	}
	if err := s.idempotency.Remember(ctx, confirmScope, gatewayOrderID, string(value)); err != nil {
		logger.Warn().Err(err).Msg("failed to remember confirmation result")
	}
}

func (s *reconciliationService) buildOrder(ctx context.Context, req *model.ConfirmRequest, receipt *payment.Receipt, total int64) *model.Order {
	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	now := s.now()
	paidAt := now
	if t, err := time.Parse(time.RFC3339, receipt.ApprovedAt); err == nil {
		paidAt = t
	}

	caller := identity.FromContext(ctx)
	userID, email, name := caller.UserID, caller.Email, caller.Name
	if caller.IsGuest() {
		userID = req.UserID
	}
	if userID == "" {
		userID = model.GuestUserID
	}
	if email == "" {
		email = req.CustomerEmail
	}
	if name == "" {
		name = req.CustomerName
	}
	if name == "" {
		name = model.DefaultCustomerName
	}

	product := s.products.Resolve(ctx, req.ProductID, total, quantity)

	paymentKey := receipt.PaymentKey
	if paymentKey == "" {
		paymentKey = req.PaymentKey
	}

	return &model.Order{
		UserID:       userID,
		UserEmail:    email,
		UserName:     name,
		ProductID:    product.ProductID,
		ProductName:  product.Name,
		ProductPrice: product.Price,
		Quantity:     quantity,
		TotalAmount:  total,
		Payment: model.Payment{
			Method:         model.PaymentMethodToss,
			Status:         model.PaymentStatusCompleted,
			PaymentKey:     paymentKey,
			GatewayOrderID: req.OrderID,
			PaidAt:         &paidAt,
		},
		Status:    model.OrderStatusConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// persist writes the order under a fresh order number, regenerating the
// number on collision.
func (s *reconciliationService) persist(ctx context.Context, order *model.Order) (*model.Order, bool, error) {
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		number, err := s.orderNumber(order.CreatedAt)
		if err != nil {
			return nil, false, err
		}
		order.OrderNumber = number

		stored, created, err := s.orderRepo.CreateIfAbsent(ctx, order)
		if err == nil {
			return stored, created, nil
		}
		if !errors.Is(err, repository.ErrOrderNumberTaken) {
			return nil, false, err
		}
		lastErr = err
	}
	return nil, false, lastErr
}

func summarise(receipt *payment.Receipt, req *model.ConfirmRequest, total int64) model.PaymentSummary {
	summary := model.PaymentSummary{
		PaymentKey:  receipt.PaymentKey,
		OrderID:     receipt.OrderID,
		Status:      receipt.Status,
		TotalAmount: total,
		Method:      receipt.Method,
		ApprovedAt:  receipt.ApprovedAt,
	}
	if summary.PaymentKey == "" {
		summary.PaymentKey = req.PaymentKey
	}
	if summary.OrderID == "" {
		summary.OrderID = req.OrderID
	}
	return summary
}
