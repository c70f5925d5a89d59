package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"cruise-booking/internal/model"
	"cruise-booking/internal/service"
)

// PaymentHandler handles payment confirmation requests.
type PaymentHandler struct {
	service service.ReconciliationService
	logger  zerolog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(service service.ReconciliationService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger.With().Str("handler", "payment").Logger(),
	}
}

// Confirm handles POST /api/payments/toss/confirm. The caller identity has
// already been resolved onto the request context.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req model.ConfirmRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := h.service.Reconcile(r.Context(), &req)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
