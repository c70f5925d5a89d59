// Package payment talks to the Toss Payments confirmation API.
package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cruise-booking/internal/metrics"
	"cruise-booking/internal/model"
)

const (
	confirmPath = "/v1/payments/confirm"

	// maxResponseBytes bounds how much of a gateway response is read.
	maxResponseBytes = 1 << 20

	secretKeySetting = "TOSS_SECRET_KEY"
)

// Receipt is the gateway's record of a confirmed payment. Raw holds the
// response body exactly as received.
type Receipt struct {
	PaymentKey  string          `json:"paymentKey"`
	OrderID     string          `json:"orderId"`
	Status      string          `json:"status"`
	TotalAmount int64           `json:"totalAmount"`
	Method      string          `json:"method"`
	ApprovedAt  string          `json:"approvedAt"`
	Raw         json.RawMessage `json:"-"`
}

// Gateway confirms client-reported payments with the provider.
type Gateway interface {
	// Confirm issues exactly one confirmation request. It never retries.
	Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (*Receipt, error)
}

// Config holds the client settings.
type Config struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

type tossClient struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewTossClient creates a gateway client. When httpClient is nil a pooled
// client with cfg.Timeout is used.
func NewTossClient(cfg Config, httpClient *http.Client, m *metrics.Metrics, logger zerolog.Logger) Gateway {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &tossClient{
		secretKey:  cfg.SecretKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		metrics:    m,
		logger:     logger.With().Str("component", "toss-gateway").Logger(),
	}
}

type confirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *tossClient) Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (*Receipt, error) {
	if err := ValidateInput(paymentKey, orderID, amount); err != nil {
		return nil, err
	}

	if c.secretKey == "" {
		c.logger.Error().Msg("toss secret key is not configured")
		return nil, &model.ConfigurationError{Setting: secretKeySetting}
	}

	payload, err := json.Marshal(confirmRequest{PaymentKey: paymentKey, OrderID: orderID, Amount: amount})
	if err != nil {
		return nil, fmt.Errorf("failed to encode confirm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+confirmPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build confirm request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.secretKey+":")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	logger := c.logger.With().
		Str("order_id", orderID).
		Str("payment_key", MaskKey(paymentKey)).
		Int64("amount", amount).
		Logger()

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveGateway("transport_error", time.Since(start))
		logger.Error().Err(err).Msg("payment gateway unreachable")
		return nil, &model.PaymentConfirmationError{
			StatusCode: http.StatusBadGateway,
			Code:       model.ErrCodeGatewayUnavailable,
			Message:    err.Error(),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.metrics.ObserveGateway("transport_error", time.Since(start))
		logger.Error().Err(err).Msg("failed to read gateway response")
		return nil, &model.PaymentConfirmationError{
			StatusCode: http.StatusBadGateway,
			Code:       model.ErrCodeGatewayUnavailable,
			Message:    err.Error(),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.ObserveGateway("rejected", time.Since(start))
		confirmErr := rejection(resp.StatusCode, body)
		logger.Warn().
			Int("status", resp.StatusCode).
			Str("code", confirmErr.Code).
			Str("message", confirmErr.Message).
			Msg("payment confirmation rejected")
		return nil, confirmErr
	}

	var receipt Receipt
	if err := json.Unmarshal(body, &receipt); err != nil {
		c.metrics.ObserveGateway("rejected", time.Since(start))
		logger.Error().Err(err).Msg("gateway returned an undecodable receipt")
		return nil, &model.PaymentConfirmationError{
			StatusCode: http.StatusBadGateway,
			Message:    "gateway returned an unreadable confirmation",
		}
	}
	receipt.Raw = json.RawMessage(body)

	c.metrics.ObserveGateway("approved", time.Since(start))
	logger.Info().
		Str("status", receipt.Status).
		Int64("total_amount", receipt.TotalAmount).
		Msg("payment confirmed")

	return &receipt, nil
}

func rejection(status int, body []byte) *model.PaymentConfirmationError {
	out := &model.PaymentConfirmationError{StatusCode: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		out.Code = eb.Code
		out.Message = eb.Message
	}
	if out.Message == "" {
		out.Message = http.StatusText(status)
	}
	return out
}

// ValidateInput checks the three confirmation inputs.
func ValidateInput(paymentKey, orderID string, amount int64) error {
	if strings.TrimSpace(paymentKey) == "" {
		return model.NewValidationError("paymentKey", "is required")
	}
	if strings.TrimSpace(orderID) == "" {
		return model.NewValidationError("orderId", "is required")
	}
	if amount <= 0 {
		return model.NewValidationError("amount", "must be a positive integer")
	}
	return nil
}

// MaskKey shortens a payment key for logs.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "****"
}
