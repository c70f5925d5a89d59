package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cruise-booking/internal/model"
)

func testOrder(orderNumber, gatewayOrderID, userID, email string, createdAt time.Time) *model.Order {
	paidAt := createdAt
	return &model.Order{
		OrderNumber:  orderNumber,
		UserID:       userID,
		UserEmail:    email,
		UserName:     "홍길동",
		ProductID:    "voyager",
		ProductName:  "보이저 패키지",
		ProductPrice: decimal.NewFromInt(599000),
		Quantity:     1,
		TotalAmount:  599000,
		Payment: model.Payment{
			Method:         model.PaymentMethodToss,
			Status:         model.PaymentStatusCompleted,
			PaymentKey:     "pk_" + gatewayOrderID,
			GatewayOrderID: gatewayOrderID,
			PaidAt:         &paidAt,
		},
		Status:    model.OrderStatusConfirmed,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestOrderRepository(t *testing.T) {
	pool, db := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("create if absent inserts once", func(t *testing.T) {
		db.Truncate(t)

		created, isNew, err := repo.CreateIfAbsent(ctx, testOrder("ORD-20250301-AAAAAA", "ord_1", "u1", "a@b.com", base))
		require.NoError(t, err)
		assert.True(t, isNew)
		assert.Equal(t, "ORD-20250301-AAAAAA", created.OrderNumber)
		assert.True(t, created.ProductPrice.Equal(decimal.NewFromInt(599000)))
		require.NotNil(t, created.Payment.PaidAt)

		again, isNew, err := repo.CreateIfAbsent(ctx, testOrder("ORD-20250301-BBBBBB", "ord_1", "u1", "a@b.com", base.Add(time.Minute)))
		require.NoError(t, err)
		assert.False(t, isNew)
		assert.Equal(t, created.ID, again.ID)
		assert.Equal(t, "ORD-20250301-AAAAAA", again.OrderNumber)

		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("order number collision", func(t *testing.T) {
		db.Truncate(t)

		_, _, err := repo.CreateIfAbsent(ctx, testOrder("ORD-20250301-AAAAAA", "ord_1", "u1", "", base))
		require.NoError(t, err)

		_, _, err = repo.CreateIfAbsent(ctx, testOrder("ORD-20250301-AAAAAA", "ord_2", "u1", "", base))
		assert.ErrorIs(t, err, ErrOrderNumberTaken)
	})

	t.Run("completed payment requires key", func(t *testing.T) {
		db.Truncate(t)

		o := testOrder("ORD-20250301-AAAAAA", "ord_1", "u1", "", base)
		o.Payment.PaymentKey = ""

		_, _, err := repo.CreateIfAbsent(ctx, o)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrOrderNumberTaken)
	})

	t.Run("lookups", func(t *testing.T) {
		db.Truncate(t)

		created, _, err := repo.CreateIfAbsent(ctx, testOrder("ORD-20250301-AAAAAA", "ord_1", "u1", "a@b.com", base))
		require.NoError(t, err)

		byID, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.OrderNumber, byID.OrderNumber)

		byNumber, err := repo.GetByOrderNumber(ctx, "ORD-20250301-AAAAAA")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byNumber.ID)

		byGateway, err := repo.GetByGatewayOrderID(ctx, "ord_1")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byGateway.ID)

		_, err = repo.GetByOrderNumber(ctx, "ORD-19990101-ZZZZZZ")
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})

	t.Run("list by user and email newest first", func(t *testing.T) {
		db.Truncate(t)

		for i, o := range []*model.Order{
			testOrder("ORD-20250301-000001", "ord_1", "u1", "a@b.com", base),
			testOrder("ORD-20250301-000002", "ord_2", "u1", "a@b.com", base.Add(time.Hour)),
			testOrder("ORD-20250301-000003", "ord_3", model.GuestUserID, "A@B.com", base.Add(2*time.Hour)),
			testOrder("ORD-20250301-000004", "ord_4", "u2", "c@d.com", base.Add(3*time.Hour)),
		} {
			_, _, err := repo.CreateIfAbsent(ctx, o)
			require.NoError(t, err, "order %d", i)
		}

		byUser, err := repo.ListByUserID(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, byUser, 2)
		assert.Equal(t, "ORD-20250301-000002", byUser[0].OrderNumber)
		assert.Equal(t, "ORD-20250301-000001", byUser[1].OrderNumber)

		byEmail, err := repo.ListByEmail(ctx, "a@b.com")
		require.NoError(t, err)
		require.Len(t, byEmail, 3)
		assert.Equal(t, "ORD-20250301-000003", byEmail[0].OrderNumber)

		none, err := repo.ListByUserID(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("update status stamps timestamps", func(t *testing.T) {
		db.Truncate(t)

		created, _, err := repo.CreateIfAbsent(ctx, testOrder("ORD-20250301-AAAAAA", "ord_1", "u1", "", base))
		require.NoError(t, err)

		updatedAt := base.Add(24 * time.Hour)
		updated, err := repo.UpdateStatus(ctx, created.ID, model.OrderStatusCompleted, nil, updatedAt)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCompleted, updated.Status)
		assert.Equal(t, model.PaymentStatusCompleted, updated.Payment.Status)
		assert.True(t, updated.UpdatedAt.Equal(updatedAt))
		assert.Nil(t, updated.Payment.RefundedAt)

		refunded := model.PaymentStatusRefunded
		refundAt := base.Add(48 * time.Hour)
		updated, err = repo.UpdateStatus(ctx, created.ID, model.OrderStatusCancelled, &refunded, refundAt)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusRefunded, updated.Payment.Status)
		require.NotNil(t, updated.Payment.RefundedAt)
		assert.True(t, updated.Payment.RefundedAt.Equal(refundAt))
		require.NotNil(t, updated.Payment.PaidAt)
		assert.True(t, updated.Payment.PaidAt.Equal(base))
	})

	t.Run("update status of missing order", func(t *testing.T) {
		db.Truncate(t)

		_, err := repo.UpdateStatus(ctx, uuid.New(), model.OrderStatusCompleted, nil, base)
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})

	t.Run("reassign guest orders", func(t *testing.T) {
		db.Truncate(t)

		for _, o := range []*model.Order{
			testOrder("ORD-20250301-000001", "ord_1", model.GuestUserID, "guest@b.com", base),
			testOrder("ORD-20250301-000002", "ord_2", model.GuestUserID, "", base),
			testOrder("ORD-20250301-000003", "ord_3", "u2", "c@d.com", base),
		} {
			_, _, err := repo.CreateIfAbsent(ctx, o)
			require.NoError(t, err)
		}

		n, err := repo.ReassignGuestOrders(ctx, "u1", "", base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		orders, err := repo.ListByUserID(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, orders, 2)
		emails := []string{orders[0].UserEmail, orders[1].UserEmail}
		assert.ElementsMatch(t, []string{"guest@b.com", ""}, emails)

		n, err = repo.ReassignGuestOrders(ctx, "u1", "a@b.com", base.Add(time.Hour))
		require.NoError(t, err)
		assert.Zero(t, n)

		other, err := repo.GetByOrderNumber(ctx, "ORD-20250301-000003")
		require.NoError(t, err)
		assert.Equal(t, "u2", other.UserID)
	})
}
