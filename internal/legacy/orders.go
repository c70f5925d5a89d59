// Package legacy reads order exports produced by the document store that
// preceded the orders table.
package legacy

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"cruise-booking/internal/model"
)

type exportedPayment struct {
	Method     string        `json:"method"`
	Status     string        `json:"status"`
	PaymentKey string        `json:"tossPaymentKey"`
	OrderID    string        `json:"tossOrderId"`
	PaidAt     WireTimestamp `json:"paidAt"`
	RefundedAt WireTimestamp `json:"refundedAt"`
}

type exportedOrder struct {
	OrderNumber  string          `json:"orderNumber"`
	UserID       string          `json:"userId"`
	UserEmail    string          `json:"userEmail"`
	UserName     string          `json:"userName"`
	UserPhone    string          `json:"userPhone"`
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductPrice decimal.Decimal `json:"productPrice"`
	Quantity     int             `json:"quantity"`
	TotalAmount  int64           `json:"totalAmount"`
	Payment      exportedPayment `json:"payment"`
	Status       string          `json:"status"`
	CreatedAt    WireTimestamp   `json:"createdAt"`
	UpdatedAt    WireTimestamp   `json:"updatedAt"`
}

// DecodeOrders reads a JSON array of exported orders. Orders without a
// gateway order id cannot be deduplicated and are dropped. Missing fields
// get the defaults reconciliation would have stamped.
func DecodeOrders(r io.Reader) ([]model.Order, error) {
	var exported []exportedOrder
	if err := json.NewDecoder(r).Decode(&exported); err != nil {
		return nil, fmt.Errorf("failed to decode order export: %w", err)
	}

	orders := make([]model.Order, 0, len(exported))
	for _, e := range exported {
		if strings.TrimSpace(e.Payment.OrderID) == "" {
			continue
		}
		orders = append(orders, e.toOrder())
	}
	return orders, nil
}

func (e exportedOrder) toOrder() model.Order {
	o := model.Order{
		OrderNumber:  e.OrderNumber,
		UserID:       valueOr(e.UserID, model.GuestUserID),
		UserEmail:    e.UserEmail,
		UserName:     valueOr(e.UserName, model.DefaultCustomerName),
		UserPhone:    e.UserPhone,
		ProductID:    valueOr(e.ProductID, model.UnknownProductID),
		ProductName:  valueOr(e.ProductName, model.PlaceholderProductName),
		ProductPrice: e.ProductPrice,
		Quantity:     e.Quantity,
		TotalAmount:  e.TotalAmount,
		Payment: model.Payment{
			Method:         valueOr(e.Payment.Method, model.PaymentMethodToss),
			Status:         model.PaymentStatus(valueOr(e.Payment.Status, string(model.PaymentStatusCompleted))),
			PaymentKey:     e.Payment.PaymentKey,
			GatewayOrderID: e.Payment.OrderID,
			PaidAt:         e.Payment.PaidAt.Ptr(),
			RefundedAt:     e.Payment.RefundedAt.Ptr(),
		},
		Status:    model.OrderStatus(valueOr(e.Status, string(model.OrderStatusConfirmed))),
		CreatedAt: e.CreatedAt.Time,
		UpdatedAt: e.UpdatedAt.Time,
	}

	if o.Quantity < 1 {
		o.Quantity = 1
	}
	if o.ProductPrice.IsZero() && o.TotalAmount > 0 {
		o.ProductPrice = decimal.NewFromInt(o.TotalAmount).Div(decimal.NewFromInt(int64(o.Quantity)))
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	if o.Payment.Status == model.PaymentStatusCompleted && o.Payment.PaidAt == nil && !o.CreatedAt.IsZero() {
		paidAt := o.CreatedAt
		o.Payment.PaidAt = &paidAt
	}
	return o
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
