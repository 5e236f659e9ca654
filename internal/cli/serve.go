package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobcespedes/ansible.hpilo/api"
	"github.com/jobcespedes/ansible.hpilo/internal/config"
	"github.com/jobcespedes/ansible.hpilo/internal/controller"
	"github.com/jobcespedes/ansible.hpilo/internal/ilo"
	"github.com/jobcespedes/ansible.hpilo/internal/server"
)

func newServeCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the PXE boot HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed to load config: %v\n", err)
				return &exitError{code: ExitInvalidArgument, err: err}
			}
			logger := setupLogger(cfg, info)

			// The configured driver must be present before the service
			// accepts any work.
			drv, err := ilo.Lookup(cfg.Driver)
			if err != nil {
				logger.Error().Err(err).Msg("client driver unavailable")
				return &exitError{code: ExitMissingCapability, err: err}
			}

			logger.Info().
				Str("version", info.Version).
				Str("commit", info.Commit).
				Str("build_date", info.BuildDate).
				Msg("starting pxeboot-hpilo")
			if cfg.DevMode {
				logger.Warn().Msg("DEV MODE ENABLED - authentication is bypassed; do not use in production")
			}

			ctrl := controller.New(drv, controller.Config{
				Cooldown:      cfg.Cooldown,
				DeviceTimeout: cfg.DeviceTimeout,
				Logger:        logger,
			})
			srv := server.New(ctrl, cfg, logger, info.Version, info.Commit, info.BuildDate,
				server.WithOpenAPISpec(api.OpenAPISpec))

			httpServer := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           srv.Router(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				// One request blocks through the cooldown and device
				// round-trips, so the write timeout must cover both.
				WriteTimeout: cfg.Cooldown + 4*cfg.DeviceTimeout,
				IdleTimeout:  120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
				if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
					errCh <- serveErr
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
			case serveErr := <-errCh:
				logger.Error().Err(serveErr).Msg("HTTP server error")
			case <-cmd.Context().Done():
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer shutdownCancel()
			if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
				logger.Error().Err(shutdownErr).Msg("HTTP server shutdown error")
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	}
}
