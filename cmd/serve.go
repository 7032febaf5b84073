package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/gearshop/gearshop"
	"github.com/gearshop/gearshop/pkg/config"
	"github.com/gearshop/gearshop/pkg/crypto"
	transport "github.com/gearshop/gearshop/pkg/transport/http"
)

func init() {
	rootCmd.AddCommand(newServeCommand())
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gearshop API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func newLogger(verbosity int) logr.Logger {
	// logr V-levels map onto negative slog levels.
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(-verbosity),
	})
	return logr.FromSlogHandler(handler)
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.Logging.Verbosity)

	client, err := gearshop.New(gearshop.Config{
		Logger: logger.WithName("gearshop"),
		Tokens: gearshop.TokenConfig{
			Secret: cfg.Auth.JWTSecret,
			TTL:    cfg.Auth.TokenTTL,
		},
		Catalog: gearshop.CatalogConfig{
			AllowedCategories:   cfg.Catalog.AllowedCategories,
			PurgeableCategories: cfg.Catalog.PurgeableCategories,
		},
		Bootstrap: gearshop.BootstrapConfig{
			Username: cfg.Bootstrap.Username,
			Email:    cfg.Bootstrap.Email,
			Password: cfg.Bootstrap.Password,
		},
		Runtime: gearshop.RuntimeConfig{
			Storage: gearshop.StorageConfig{
				Backend: gearshop.StorageBackend(cfg.Storage.Backend),
				Postgres: gearshop.PostgresConfig{
					DSN:             cfg.Storage.Postgres.DSN,
					MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
					MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
					ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
				},
			},
			Hasher: gearshop.HasherConfig{
				Backend: gearshop.HasherBackend(cfg.Auth.Hasher),
				Bcrypt:  crypto.BcryptOptions{Cost: cfg.Auth.BcryptCost},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("initialize client: %w", err)
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			logger.Error(closeErr, "failed to close client")
		}
	}()

	super, err := client.EnsureSuperAdmin(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap super admin: %w", err)
	}
	logger.V(1).Info("super admin present", "id", super.ID)

	handler := transport.NewHandler(client, transport.Options{
		Logger:             logger.WithName("http"),
		LoginRatePerMinute: cfg.Server.LoginRatePerMinute,
		LoginRateBurst:     cfg.Server.LoginRateBurst,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "storage", cfg.Storage.Backend)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
