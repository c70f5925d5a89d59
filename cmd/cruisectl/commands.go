package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"cruise-booking/internal/catalog"
	"cruise-booking/internal/config"
	"cruise-booking/internal/database"
	"cruise-booking/internal/identity"
	"cruise-booking/internal/legacy"
	"cruise-booking/internal/model"
	"cruise-booking/internal/repository"
	"cruise-booking/internal/service"
)

// env is what every database command needs.
type env struct {
	cfg    *config.Config
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// bootDB loads config and opens the database connection.
func bootDB(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &env{cfg: cfg, pool: pool, logger: logger}, nil
}

// cruisectl migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := bootDB(cmd.Context())
		if err != nil {
			return err
		}
		defer e.pool.Close()

		applied, err := database.Migrate(cmd.Context(), e.pool, e.logger)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
			return nil
		}
		for _, name := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", name)
		}
		return nil
	},
}

// cruisectl seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the products table from the bundled catalog when it is empty",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := bootDB(cmd.Context())
		if err != nil {
			return err
		}
		defer e.pool.Close()

		fallback := catalog.Bundled()
		if path := e.cfg.Catalog.FallbackPath; path != "" {
			c, err := catalog.NewFileLoader(e.logger).Load(cmd.Context(), path)
			if err != nil {
				return err
			}
			fallback = c
		}

		svc := service.NewProductService(repository.NewProductRepository(e.pool, e.logger), fallback, e.logger)
		result, err := svc.Seed(cmd.Context())
		if err != nil {
			return err
		}

		if result.Skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "Skipped: %d products already stored\n", result.Existing)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d products\n", result.Seeded)
		return nil
	},
}

var fixGuestOrdersCmd = &cobra.Command{
	Use:   "fix-guest-orders USER_ID",
	Short: "Attribute every guest order to USER_ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")

		e, err := bootDB(cmd.Context())
		if err != nil {
			return err
		}
		defer e.pool.Close()

		svc := service.NewOrderAdminService(repository.NewOrderRepository(e.pool, e.logger), e.logger)
		n, err := svc.ReassignGuestOrders(cmd.Context(), model.ReassignRequest{UserID: args[0], UserEmail: email})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Reassigned %d orders to %s\n", n, args[0])
		return nil
	},
}

var importOrdersCmd = &cobra.Command{
	Use:   "import-orders FILE",
	Short: "Import a JSON order export, skipping orders already recorded",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()

		orders, err := legacy.DecodeOrders(f)
		if err != nil {
			return err
		}

		e, err := bootDB(cmd.Context())
		if err != nil {
			return err
		}
		defer e.pool.Close()

		svc := service.NewOrderAdminService(repository.NewOrderRepository(e.pool, e.logger), e.logger)
		result, err := svc.Import(cmd.Context(), orders)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %d, skipped %d, failed %d\n", result.Created, result.Skipped, result.Failed)
		if result.Failed > 0 {
			return fmt.Errorf("%d orders failed to import", result.Failed)
		}
		return nil
	},
}

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token USER_ID",
	Short: "Sign a bearer token for USER_ID with the configured JWT secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		token, err := identity.IssueToken(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, identity.Identity{
			UserID: args[0],
			Email:  email,
			Name:   name,
			Role:   role,
		}, ttl, time.Now())
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	fixGuestOrdersCmd.Flags().String("email", "", "email to stamp on reassigned orders")

	issueTokenCmd.Flags().String("email", "", "email claim")
	issueTokenCmd.Flags().String("name", "", "display name claim")
	issueTokenCmd.Flags().String("role", model.RoleUser, "role claim (user or admin)")
	issueTokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
}
