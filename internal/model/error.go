package model

import (
	"errors"
	"fmt"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON           = "INVALID_JSON"
	ErrCodeMissingField          = "MISSING_FIELD"
	ErrCodeInvalidPayment        = "INVALID_PAYMENT"
	ErrCodeConfiguration         = "CONFIGURATION_ERROR"
	ErrCodePaymentConfirmation   = "PAYMENT_CONFIRMATION_FAILED"
	ErrCodeConfirmationInFlight  = "CONFIRMATION_IN_PROGRESS"
	ErrCodeProductNotFound       = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound         = "ORDER_NOT_FOUND"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeInvalidQuantity       = "INVALID_QUANTITY"
	ErrCodeInvalidTransition     = "INVALID_STATUS_TRANSITION"
	ErrCodeUnauthorised          = "UNAUTHORIZED"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeInternalError         = "INTERNAL_ERROR"
	ErrCodeGatewayUnavailable    = "GATEWAY_UNAVAILABLE"
	ErrCodePersistenceIncomplete = "ORDER_NOT_SAVED"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrProductNotFound        = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrOrderNotFound          = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrUserNotFound           = NewDomainError(ErrCodeUserNotFound, "User not found")
	ErrInvalidQuantity        = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidTransition      = NewDomainError(ErrCodeInvalidTransition, "Status transition is not allowed")
	ErrConfirmationInProgress = NewDomainError(ErrCodeConfirmationInFlight, "Payment confirmation is already in progress for this order")
	ErrForbidden              = NewDomainError(ErrCodeForbidden, "Access to this resource is not allowed")
)

// ValidationError reports missing or malformed caller input. It is raised
// before any external call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConfigurationError reports a required server setting that is absent.
// Setting names the variable, never its value.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("required setting %s is not configured", e.Setting)
}

// PaymentConfirmationError is returned when the gateway rejected or could not
// confirm a payment. No order may be written after this error.
type PaymentConfirmationError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *PaymentConfirmationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment confirmation failed (status %d, %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("payment confirmation failed (status %d): %s", e.StatusCode, e.Message)
}

// PersistenceError wraps a storage failure that happened after the gateway
// already captured the funds. Reconciliation downgrades it to a flagged success.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
