package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cruise-booking/internal/identity"
	"cruise-booking/internal/model"
	"cruise-booking/internal/service"
)

// OrderHandler handles customer order queries.
type OrderHandler struct {
	service service.OrderQueryService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderQueryService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// List handles GET /api/orders and GET /api/orders/user. Non-admin callers
// always get their own orders; admins may pass userId and email.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := identity.FromContext(r.Context())
	if caller.IsGuest() {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "authentication required", h.logger)
		return
	}

	q := model.OrderQuery{UserID: caller.UserID, Email: caller.Email}
	if caller.IsAdmin() {
		params := r.URL.Query()
		userID := strings.TrimSpace(params.Get("userId"))
		email := strings.TrimSpace(params.Get("email"))
		if userID != "" || email != "" {
			q = model.OrderQuery{UserID: userID, Email: email}
		}
	}

	orders, err := h.service.ListOrders(r.Context(), q)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, model.OrderListResponse{Orders: orders, Count: len(orders)})
}

// Get handles GET /api/orders/{orderNumber}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller := identity.FromContext(r.Context())
	if caller.IsGuest() {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "authentication required", h.logger)
		return
	}

	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	if !caller.IsAdmin() && !caller.Owns(order) {
		respondError(w, model.ErrForbidden, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// AdminHandler handles operator order endpoints.
type AdminHandler struct {
	service service.OrderAdminService
	logger  zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(service service.OrderAdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With().Str("handler", "admin").Logger(),
	}
}

// ListOrders handles GET /api/admin/orders.
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListAll(r.Context())
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, model.OrderListResponse{Orders: orders, Count: len(orders)})
}

// UpdateStatus handles PATCH /api/admin/orders/{id}/status.
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "invalid order ID format", h.logger)
		return
	}

	var update model.StatusUpdate
	if !decodeJSON(w, r, &update, h.logger) {
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), id, update)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

type fixOrdersResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
	Updated int64  `json:"updated"`
}

// FixOrders handles POST /api/admin/fix-orders.
func (h *AdminHandler) FixOrders(w http.ResponseWriter, r *http.Request) {
	var req model.ReassignRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	n, err := h.service.ReassignGuestOrders(r.Context(), req)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, fixOrdersResponse{Success: true, UserID: strings.TrimSpace(req.UserID), Updated: n})
}
