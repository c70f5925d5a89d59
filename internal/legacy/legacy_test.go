package legacy

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cruise-booking/internal/model"
)

func TestWireTimestamp_UnmarshalJSON(t *testing.T) {
	want := time.Date(2024, 12, 24, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "RFC 3339 UTC", input: `"2024-12-24T10:30:00Z"`, want: want},
		{name: "RFC 3339 with offset", input: `"2024-12-24T19:30:00+09:00"`, want: want},
		{name: "seconds object", input: `{"seconds": 1735036200, "nanoseconds": 0}`, want: want},
		{name: "underscore seconds object", input: `{"_seconds": 1735036200, "_nanoseconds": 500000000}`, want: want.Add(500 * time.Millisecond)},
		{name: "epoch seconds", input: `1735036200`, want: want},
		{name: "null", input: `null`, want: time.Time{}},
		{name: "empty string", input: `""`, want: time.Time{}},
		{name: "garbage string", input: `"yesterday"`, wantErr: true},
		{name: "object without seconds", input: `{"nanos": 5}`, wantErr: true},
		{name: "boolean", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts WireTimestamp
			err := json.Unmarshal([]byte(tt.input), &ts)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(ts.Time), "got %s", ts.Time)
		})
	}
}

func TestDecodeOrders(t *testing.T) {
	export := `[
		{
			"orderNumber": "ORD-20241224-AB12CD",
			"userId": "u1",
			"userEmail": "a@b.com",
			"userName": "홍길동",
			"productId": "voyager",
			"productName": "보이저 패키지",
			"productPrice": 599000,
			"quantity": 1,
			"totalAmount": 599000,
			"payment": {
				"method": "toss",
				"status": "completed",
				"tossPaymentKey": "pk_1",
				"tossOrderId": "ord_1",
				"paidAt": {"_seconds": 1735036200, "_nanoseconds": 0}
			},
			"status": "confirmed",
			"createdAt": {"seconds": 1735036200, "nanoseconds": 0},
			"updatedAt": "2024-12-24T10:30:00Z"
		},
		{
			"orderNumber": "ORD-20241225-EF34GH",
			"totalAmount": 1000000,
			"quantity": 2,
			"payment": {"tossPaymentKey": "pk_2", "tossOrderId": "ord_2"},
			"createdAt": 1735122600
		},
		{
			"orderNumber": "ORD-20241226-NOGATE",
			"totalAmount": 1000,
			"payment": {"method": "toss"}
		}
	]`

	orders, err := DecodeOrders(strings.NewReader(export))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	first := orders[0]
	assert.Equal(t, "u1", first.UserID)
	assert.Equal(t, "ord_1", first.Payment.GatewayOrderID)
	assert.Equal(t, model.PaymentStatusCompleted, first.Payment.Status)
	require.NotNil(t, first.Payment.PaidAt)
	assert.True(t, first.Payment.PaidAt.Equal(time.Date(2024, 12, 24, 10, 30, 0, 0, time.UTC)))
	assert.True(t, first.CreatedAt.Equal(first.UpdatedAt))
	assert.True(t, first.ProductPrice.Equal(decimal.NewFromInt(599000)))

	second := orders[1]
	assert.Equal(t, model.GuestUserID, second.UserID)
	assert.Equal(t, model.DefaultCustomerName, second.UserName)
	assert.Equal(t, model.UnknownProductID, second.ProductID)
	assert.Equal(t, model.PlaceholderProductName, second.ProductName)
	assert.Equal(t, model.PaymentMethodToss, second.Payment.Method)
	assert.Equal(t, model.OrderStatusConfirmed, second.Status)
	assert.True(t, second.ProductPrice.Equal(decimal.NewFromInt(500000)))
	require.NotNil(t, second.Payment.PaidAt)
	assert.True(t, second.Payment.PaidAt.Equal(second.CreatedAt))
	assert.True(t, second.UpdatedAt.Equal(second.CreatedAt))
}

func TestDecodeOrders_Invalid(t *testing.T) {
	_, err := DecodeOrders(strings.NewReader(`{"orders": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode order export")

	_, err = DecodeOrders(strings.NewReader(`[{"createdAt": "not a time", "payment": {"tossOrderId": "x"}}]`))
	require.Error(t, err)
}
