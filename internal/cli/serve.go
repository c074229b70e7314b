package cli

import (
	"fmt"
	"os"

	"github.com/abgdnv/gocommerce/cart_service/internal/app"
	"github.com/abgdnv/gocommerce/cart_service/internal/config"
	"github.com/abgdnv/gocommerce/cart_service/internal/session"
	"github.com/abgdnv/gocommerce/cart_service/pkg/bootstrap"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the cart service",
		Long: `Run the HTTP, gRPC and pprof servers until interrupted.

Examples:
  cart serve
  cart serve --config ./deploy/config.yaml --env ./deploy/.env`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigFile, rootOpts.EnvFile)
			if err != nil {
				return fmt.Errorf("error loading configuration: %w", err)
			}
			logger := bootstrap.NewLogger(cfg.Log.Level, os.Stdout, session.PrincipalAttr)
			logger.Info("Cart service starting...", "config_log_level", cfg.Log.Level)
			logger.Debug("Configuration loaded", "config", cfg.String())

			if err := app.Run(cmd.Context(), cfg, logger); err != nil {
				logger.Error("Cart service stopped with error", "error", err)
				return err
			}
			logger.Info("Cart service stopped")
			return nil
		},
	}
}
