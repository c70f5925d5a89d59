package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"cruise-booking/internal/handler"
	"cruise-booking/internal/identity"
	"cruise-booking/internal/metrics"
	"cruise-booking/internal/middleware"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Product *handler.ProductHandler
	Payment *handler.PaymentHandler
	Order   *handler.OrderHandler
	Admin   *handler.AdminHandler
}

// New creates a new HTTP router with all routes and middleware configured.
// Customer routes resolve the bearer identity first. Catalog and payment
// confirmation fall back to guest on a bad token, order reads reject it,
// and admin routes require the API key.
func New(
	h Handlers,
	resolver identity.Resolver,
	m *metrics.Metrics,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Applied in order: Recovery -> Logging -> Metrics -> CORS
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(m.Middleware)
	r.Use(middleware.CORS)

	r.Get("/health", handler.Health)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalIdentity(resolver, logger))

			r.Get("/products", h.Product.GetAll)
			r.Get("/products/{id}", h.Product.GetByID)

			// The payment is already captured by the time this runs.
			r.Post("/payments/toss/confirm", h.Payment.Confirm)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Identity(resolver, logger))

			r.Get("/orders", h.Order.List)
			r.Get("/orders/user", h.Order.List)
			r.Get("/orders/{orderNumber}", h.Order.Get)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(apiKey, logger))

			r.Get("/orders", h.Admin.ListOrders)
			r.Patch("/orders/{id}/status", h.Admin.UpdateStatus)
			r.Post("/fix-orders", h.Admin.FixOrders)
			r.Post("/seed", h.Product.Seed)
		})
	})

	return r
}
