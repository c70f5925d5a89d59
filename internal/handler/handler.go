package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"cruise-booking/internal/model"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).Str("error", message).Int("status", status).Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// respondError maps a service error onto a status code and error body.
// Gateway rejections keep the gateway's status and message.
func respondError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var (
		verr *model.ValidationError
		cerr *model.ConfigurationError
		perr *model.PaymentConfirmationError
		derr *model.DomainError
	)

	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, verr.Error(), logger)
	case errors.As(err, &cerr):
		logger.Error().Err(err).Msg("server is missing required configuration")
		writeError(w, http.StatusInternalServerError, model.ErrCodeConfiguration, "payment service is not configured", logger)
	case errors.As(err, &perr):
		status := perr.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		code := perr.Code
		if code == "" {
			code = model.ErrCodePaymentConfirmation
		}
		writeError(w, status, code, perr.Message, logger)
	case errors.As(err, &derr):
		writeError(w, domainStatus(derr.Code), derr.Code, derr.Message, logger)
	default:
		logger.Error().Err(err).Msg("unexpected error")
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
	}
}

func domainStatus(code string) int {
	switch code {
	case model.ErrCodeProductNotFound, model.ErrCodeOrderNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidTransition, model.ErrCodeConfirmationInFlight:
		return http.StatusConflict
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeInvalidQuantity:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a size-limited JSON body into dst, writing the error
// response itself when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, logger zerolog.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", logger)
		return false
	}
	return true
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
