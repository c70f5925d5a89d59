package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"cruise-booking/internal/catalog"
	"cruise-booking/internal/database/dbtest"
	"cruise-booking/internal/handler"
	"cruise-booking/internal/identity"
	"cruise-booking/internal/metrics"
	"cruise-booking/internal/payment"
	"cruise-booking/internal/repository"
	"cruise-booking/internal/router"
	"cruise-booking/internal/service"
)

const (
	testAPIKey    = "test-api-key"
	testJWTSecret = "test-jwt-secret"
	testIssuer    = "cruise-test"
)

// SetupTestDB starts a migrated PostgreSQL container.
func SetupTestDB(t *testing.T) *dbtest.TestDB {
	t.Helper()
	return dbtest.Start(t)
}

// SeedUser inserts a row into users.
func SeedUser(t *testing.T, pool *pgxpool.Pool, id, email, name, role string) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		"INSERT INTO users (id, email, display_name, role) VALUES ($1, $2, $3, $4)",
		id, email, name, role,
	)
	if err != nil {
		t.Fatalf("failed to seed user %s: %v", id, err)
	}
}

// CountOrders returns the number of stored orders.
func CountOrders(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()

	var n int
	if err := pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM orders").Scan(&n); err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	return n
}

// TossStub stands in for the Toss confirmation API. It approves every
// request unless Reject was called.
type TossStub struct {
	Server *httptest.Server

	mu      sync.Mutex
	calls   int
	status  int
	code    string
	message string
}

// NewTossStub starts the stub and closes it with t.Cleanup.
func NewTossStub(t *testing.T) *TossStub {
	t.Helper()

	s := &TossStub{status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Server.Close)
	return s
}

func (s *TossStub) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls++
	status, code, message := s.status, s.code, s.message
	s.mu.Unlock()

	var req struct {
		PaymentKey string `json:"paymentKey"`
		OrderID    string `json:"orderId"`
		Amount     int64  `json:"amount"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status != http.StatusOK {
		_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"paymentKey":  req.PaymentKey,
		"orderId":     req.OrderID,
		"status":      "DONE",
		"totalAmount": req.Amount,
		"method":      "카드",
		"approvedAt":  time.Now().Format(time.RFC3339),
	})
}

// Reject makes every following confirmation fail with the given response.
func (s *TossStub) Reject(status int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status, s.code, s.message = status, code, message
}

// Calls returns how many confirmations reached the stub.
func (s *TossStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// setupTestServer wires the full HTTP stack against pool and the stub.
func setupTestServer(t *testing.T, pool *pgxpool.Pool, toss *TossStub) http.Handler {
	t.Helper()

	logger := zerolog.Nop()
	m := metrics.New()

	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)

	fallback := catalog.Bundled()
	gateway := payment.NewTossClient(payment.Config{
		SecretKey: "test_sk",
		BaseURL:   toss.Server.URL,
		Timeout:   5 * time.Second,
	}, toss.Server.Client(), m, logger)

	productService := service.NewProductService(productRepo, fallback, logger)
	reconciliationService := service.NewReconciliationService(
		gateway, orderRepo, catalog.NewResolver(productRepo, fallback, logger), logger, service.WithMetrics(m),
	)

	return router.New(router.Handlers{
		Product: handler.NewProductHandler(productService, logger),
		Payment: handler.NewPaymentHandler(reconciliationService, logger),
		Order:   handler.NewOrderHandler(service.NewOrderQueryService(orderRepo, m, logger), logger),
		Admin:   handler.NewAdminHandler(service.NewOrderAdminService(orderRepo, logger), logger),
	}, identity.NewResolver(testJWTSecret, testIssuer, userRepo, logger), m, testAPIKey, logger)
}

// bearer signs a token for id.
func bearer(t *testing.T, id identity.Identity) string {
	t.Helper()

	token, err := identity.IssueToken(testJWTSecret, testIssuer, id, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return "Bearer " + token
}

// expiredBearer returns a header whose token lapsed two hours ago.
func expiredBearer(t *testing.T, id identity.Identity) string {
	t.Helper()

	token, err := identity.IssueToken(testJWTSecret, testIssuer, id, time.Hour, time.Now().Add(-3*time.Hour))
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return "Bearer " + token
}
