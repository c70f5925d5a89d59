package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"cruise-booking/internal/cache"
	"cruise-booking/internal/catalog"
	"cruise-booking/internal/config"
	"cruise-booking/internal/database"
	"cruise-booking/internal/handler"
	"cruise-booking/internal/identity"
	"cruise-booking/internal/metrics"
	"cruise-booking/internal/payment"
	"cruise-booking/internal/repository"
	"cruise-booking/internal/router"
	"cruise-booking/internal/service"
)

// confirmLockTTL bounds how long a crashed confirmation can block a retry.
const confirmLockTTL = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting cruise booking API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if _, err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	m := metrics.New()

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)

	fallback := loadCatalog(ctx, cfg, logger)

	if cfg.Toss.SecretKey == "" {
		logger.Warn().Msg("TOSS_SECRET_KEY is not set, payment confirmations will fail")
	}
	gateway := payment.NewTossClient(payment.Config{
		SecretKey: cfg.Toss.SecretKey,
		BaseURL:   cfg.Toss.BaseURL,
		Timeout:   cfg.Toss.Timeout,
	}, nil, m, logger)

	opts := []service.ReconciliationOption{service.WithMetrics(m)}
	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, confirming without replay cache")
		} else {
			defer rdb.Close()
			opts = append(opts, service.WithIdempotencyStore(
				cache.NewRedisIdempotencyStore(rdb, confirmLockTTL, cfg.Redis.IdempotencyTTL),
			))
		}
	}

	// Initialize services
	productService := service.NewProductService(productRepo, fallback, logger)
	reconciliationService := service.NewReconciliationService(
		gateway,
		orderRepo,
		catalog.NewResolver(productRepo, fallback, logger),
		logger,
		opts...,
	)
	orderQueryService := service.NewOrderQueryService(orderRepo, m, logger)
	orderAdminService := service.NewOrderAdminService(orderRepo, logger)

	// Initialize router
	mux := router.New(router.Handlers{
		Product: handler.NewProductHandler(productService, logger),
		Payment: handler.NewPaymentHandler(reconciliationService, logger),
		Order:   handler.NewOrderHandler(orderQueryService, logger),
		Admin:   handler.NewAdminHandler(orderAdminService, logger),
	}, identity.NewResolver(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, userRepo, logger), m, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// loadCatalog picks the fallback product list: the S3 snapshot when enabled,
// then CATALOG_FALLBACK_PATH, then the bundled dataset.
func loadCatalog(ctx context.Context, cfg *config.Config, logger zerolog.Logger) catalog.Catalog {
	var s3Loader catalog.Loader
	s3Key := ""
	if cfg.S3.Enabled {
		l, err := catalog.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local catalog")
		} else {
			s3Loader = l
			s3Key = cfg.S3.Key
		}
	}

	return catalog.NewFallbackLoader(
		s3Loader,
		catalog.NewFileLoader(logger),
		s3Key,
		cfg.Catalog.FallbackPath,
		logger,
	).Load(ctx)
}
