package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cruise-booking/internal/identity"
	"cruise-booking/internal/model"
)

var (
	member = identity.Identity{UserID: "u1", Email: "a@b.com", Role: model.RoleUser}
	admin  = identity.Identity{UserID: "admin-1", Email: "ops@b.com", Role: model.RoleAdmin}
)

func TestOrderHandler_List(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		caller         *identity.Identity
		query          string
		expectedQuery  *model.OrderQuery
		mockReturn     []model.Order
		mockError      error
		expectedStatus int
		expectedCount  int
	}{
		{
			name:           "Guest is rejected",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Member lists own orders",
			caller:         &member,
			expectedQuery:  &model.OrderQuery{UserID: "u1", Email: "a@b.com"},
			mockReturn:     []model.Order{{OrderNumber: "ORD-1"}, {OrderNumber: "ORD-2"}},
			expectedStatus: http.StatusOK,
			expectedCount:  2,
		},
		{
			name:           "Member cannot query someone else",
			caller:         &member,
			query:          "?userId=u2&email=c@d.com",
			expectedQuery:  &model.OrderQuery{UserID: "u1", Email: "a@b.com"},
			mockReturn:     []model.Order{},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Admin queries any user",
			caller:         &admin,
			query:          "?userId=u2&email=c@d.com",
			expectedQuery:  &model.OrderQuery{UserID: "u2", Email: "c@d.com"},
			mockReturn:     []model.Order{{OrderNumber: "ORD-9"}},
			expectedStatus: http.StatusOK,
			expectedCount:  1,
		},
		{
			name:           "Service error",
			caller:         &member,
			expectedQuery:  &model.OrderQuery{UserID: "u1", Email: "a@b.com"},
			mockError:      errors.New("database error"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderQueryService)
			if tt.expectedQuery != nil {
				mockService.On("ListOrders", mock.Anything, *tt.expectedQuery).Return(tt.mockReturn, tt.mockError)
			}

			handler := NewOrderHandler(mockService, logger)

			req := httptest.NewRequest(http.MethodGet, "/api/orders/user"+tt.query, nil)
			if tt.caller != nil {
				req = withCaller(req, *tt.caller)
			}
			w := httptest.NewRecorder()

			handler.List(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var resp model.OrderListResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Equal(t, tt.expectedCount, resp.Count)
				assert.Len(t, resp.Orders, tt.expectedCount)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_Get(t *testing.T) {
	logger := zerolog.Nop()
	owned := &model.Order{OrderNumber: "ORD-1", UserID: "u1"}
	guestOrder := &model.Order{OrderNumber: "ORD-2", UserID: model.GuestUserID, UserEmail: "a@b.com"}
	mixedCase := &model.Order{OrderNumber: "ORD-4", UserID: model.GuestUserID, UserEmail: "A@B.COM"}
	foreign := &model.Order{OrderNumber: "ORD-3", UserID: "u2", UserEmail: "c@d.com"}

	tests := []struct {
		name           string
		caller         *identity.Identity
		orderNumber    string
		mockReturn     *model.Order
		mockError      error
		expectedStatus int
	}{
		{name: "Guest is rejected", orderNumber: "ORD-1", expectedStatus: http.StatusUnauthorized},
		{name: "Owner by user id", caller: &member, orderNumber: "ORD-1", mockReturn: owned, expectedStatus: http.StatusOK},
		{name: "Owner by email", caller: &member, orderNumber: "ORD-2", mockReturn: guestOrder, expectedStatus: http.StatusOK},
		{name: "Owner by email in another case", caller: &member, orderNumber: "ORD-4", mockReturn: mixedCase, expectedStatus: http.StatusOK},
		{name: "Someone else's order", caller: &member, orderNumber: "ORD-3", mockReturn: foreign, expectedStatus: http.StatusForbidden},
		{name: "Admin sees any order", caller: &admin, orderNumber: "ORD-3", mockReturn: foreign, expectedStatus: http.StatusOK},
		{name: "Not found", caller: &member, orderNumber: "ORD-404", mockError: model.ErrOrderNotFound, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderQueryService)
			if tt.caller != nil {
				mockService.On("GetOrder", mock.Anything, tt.orderNumber).Return(tt.mockReturn, tt.mockError)
			}

			handler := NewOrderHandler(mockService, logger)

			req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/orders/"+tt.orderNumber, nil), "orderNumber", tt.orderNumber)
			if tt.caller != nil {
				req = withCaller(req, *tt.caller)
			}
			w := httptest.NewRecorder()

			handler.Get(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestAdminHandler_UpdateStatus(t *testing.T) {
	logger := zerolog.Nop()
	id := uuid.New()
	refunded := model.PaymentStatusRefunded

	tests := []struct {
		name           string
		id             string
		body           string
		expectService  bool
		mockError      error
		expectedStatus int
	}{
		{
			name:           "Cancel with refund",
			id:             id.String(),
			body:           `{"status":"cancelled","paymentStatus":"refunded"}`,
			expectService:  true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Invalid transition",
			id:             id.String(),
			body:           `{"status":"cancelled","paymentStatus":"refunded"}`,
			expectService:  true,
			mockError:      model.ErrInvalidTransition,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Invalid ID",
			id:             "not-a-uuid",
			body:           `{"status":"cancelled"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid body",
			id:             id.String(),
			body:           `status=cancelled`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderAdminService)
			if tt.expectService {
				update := model.StatusUpdate{Status: model.OrderStatusCancelled, PaymentStatus: &refunded}
				var ret *model.Order
				if tt.mockError == nil {
					ret = &model.Order{ID: id, Status: model.OrderStatusCancelled}
				}
				mockService.On("UpdateStatus", mock.Anything, id, update).Return(ret, tt.mockError)
			}

			handler := NewAdminHandler(mockService, logger)

			req := httptest.NewRequest(http.MethodPatch, "/api/admin/orders/"+tt.id+"/status", strings.NewReader(tt.body))
			req = withURLParams(req, "id", tt.id)
			w := httptest.NewRecorder()

			handler.UpdateStatus(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestAdminHandler_FixOrders(t *testing.T) {
	mockService := new(MockOrderAdminService)
	mockService.On("ReassignGuestOrders", mock.Anything, model.ReassignRequest{UserID: "u1", UserEmail: "a@b.com"}).Return(int64(2), nil)

	handler := NewAdminHandler(mockService, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/fix-orders", strings.NewReader(`{"userId":"u1","userEmail":"a@b.com"}`))
	w := httptest.NewRecorder()

	handler.FixOrders(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success": true, "userId": "u1", "updated": 2}`, w.Body.String())
}

func TestAdminHandler_ListOrders(t *testing.T) {
	mockService := new(MockOrderAdminService)
	mockService.On("ListAll", mock.Anything).Return([]model.Order{{OrderNumber: "ORD-1"}}, nil)

	handler := NewAdminHandler(mockService, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	w := httptest.NewRecorder()

	handler.ListOrders(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp model.OrderListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Count)
}
