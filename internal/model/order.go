package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinels and defaults stamped on orders when the caller omitted them.
const (
	GuestUserID         = "guest"
	DefaultCustomerName = "고객"
	UnknownProductID    = "unknown"
	PaymentMethodToss   = "toss"
)

// OrderStatus is the order-level lifecycle state.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusCompleted, OrderStatusCancelled},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo reports whether the order may move from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus is the payment sub-record lifecycle state.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// completed is terminal for reconciliation, but a manual refund may still follow.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted: {PaymentStatusRefunded},
}

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether the payment may move from s to next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Payment is the gateway record embedded in an order.
type Payment struct {
	Method         string        `json:"method" db:"payment_method"`
	Status         PaymentStatus `json:"status" db:"payment_status"`
	PaymentKey     string        `json:"tossPaymentKey,omitempty" db:"payment_key"`
	GatewayOrderID string        `json:"tossOrderId,omitempty" db:"gateway_order_id"`
	PaidAt         *time.Time    `json:"paidAt,omitempty" db:"paid_at"`
	RefundedAt     *time.Time    `json:"refundedAt,omitempty" db:"refunded_at"`
}

// Order is a confirmed booking. Product name and price are snapshots taken
// when the order was created.
type Order struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	OrderNumber  string          `json:"orderNumber" db:"order_number"`
	UserID       string          `json:"userId" db:"user_id"`
	UserEmail    string          `json:"userEmail" db:"user_email"`
	UserName     string          `json:"userName" db:"user_name"`
	UserPhone    string          `json:"userPhone" db:"user_phone"`
	ProductID    string          `json:"productId" db:"product_id"`
	ProductName  string          `json:"productName" db:"product_name"`
	ProductPrice decimal.Decimal `json:"productPrice" db:"product_price"`
	Quantity     int             `json:"quantity" db:"quantity"`
	TotalAmount  int64           `json:"totalAmount" db:"total_amount"`
	Payment      Payment         `json:"payment"`
	Status       OrderStatus     `json:"status" db:"status"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

// ConfirmRequest is the payload the checkout success page sends after the
// payment widget redirected back.
type ConfirmRequest struct {
	PaymentKey    string `json:"paymentKey"`
	OrderID       string `json:"orderId"`
	Amount        int64  `json:"amount"`
	ProductID     string `json:"productId,omitempty"`
	Quantity      int    `json:"quantity,omitempty"`
	UserID        string `json:"userId,omitempty"`
	CustomerName  string `json:"customerName,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
}

// PaymentSummary is the subset of the gateway receipt echoed to the client.
type PaymentSummary struct {
	PaymentKey  string `json:"paymentKey"`
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
	TotalAmount int64  `json:"totalAmount"`
	Method      string `json:"method"`
	ApprovedAt  string `json:"approvedAt,omitempty"`
}

// ConfirmResult is the outcome of a successful confirmation. OrderSaved is
// false when the gateway captured the funds but the order could not be stored.
type ConfirmResult struct {
	Success     bool           `json:"success"`
	OrderNumber string         `json:"orderNumber"`
	OrderSaved  bool           `json:"orderSaved"`
	Replayed    bool           `json:"replayed"`
	Warning     string         `json:"warning,omitempty"`
	Payment     PaymentSummary `json:"payment"`
}

// OrderQuery selects the orders of one customer. At least one field must be set.
type OrderQuery struct {
	UserID string
	Email  string
}

// StatusUpdate is an admin status change. PaymentStatus is optional.
type StatusUpdate struct {
	Status        OrderStatus    `json:"status"`
	PaymentStatus *PaymentStatus `json:"paymentStatus,omitempty"`
}

// ReassignRequest moves guest-attributed orders to a known user.
type ReassignRequest struct {
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail,omitempty"`
}

// OrderListResponse wraps a list of orders.
type OrderListResponse struct {
	Orders []Order `json:"orders"`
	Count  int     `json:"count"`
}
