package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/keel/internal/metrics"
	httpAdapter "github.com/aretw0/keel/pkg/adapters/http"
	"github.com/aretw0/keel/pkg/canvas"
	"github.com/aretw0/keel/pkg/statechart"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the translators, the policy and workflow stores, canvas sessions and
Prometheus metrics as a JSON API over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("listen") {
			cfg.Listen, _ = cmd.Flags().GetString("listen")
		}
		if cmd.Flags().Changed("store") {
			cfg.Store, _ = cmd.Flags().GetString("store")
		}
		if cmd.Flags().Changed("evaluator") {
			cfg.EvaluatorURL, _ = cmd.Flags().GetString("evaluator")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		scope, err := statechart.ParseScope(cfg.Scope)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openBackend(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.close(); err != nil {
				logger.Error("Failed to close store", "err", err)
			}
		}()

		registryOpts := []canvas.RegistryOption{canvas.WithRegistryLogger(logger)}
		if store.locker != nil {
			registryOpts = append(registryOpts, canvas.WithLocker(store.locker))
		}

		opts := []httpAdapter.Option{
			httpAdapter.WithPolicyStore(store.policies),
			httpAdapter.WithWorkflowStore(store.workflows),
			httpAdapter.WithSessions(canvas.NewRegistry(registryOpts...)),
			httpAdapter.WithMetrics(metrics.New()),
			httpAdapter.WithScope(scope),
			httpAdapter.WithDebounce(cfg.Debounce),
			httpAdapter.WithLogger(logger),
		}
		if cfg.EvaluatorURL != "" {
			opts = append(opts, httpAdapter.WithDryRunner(
				httpAdapter.NewDryRunClient(cfg.EvaluatorURL, httpAdapter.WithClientLogger(logger)),
			))
		}

		// Sessions outlive request contexts but not the process.
		server := httpAdapter.NewServer(ctx, opts...)
		srv := &http.Server{
			Addr:              cfg.Listen,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting keel server", "address", srv.Addr, "store", cfg.Store)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			logger.Info("Shutdown signal received")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("Error killing server", "err", err)
				}
			}
			// Flush pending drafts of open canvas sessions.
			if err := server.Close(shutdownCtx); err != nil {
				logger.Error("Failed to close canvas sessions", "err", err)
			}
			logger.Info("keel server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "Address to listen on")
	serveCmd.Flags().String("store", "memory", "Store backend: memory, redis or sqlite")
	serveCmd.Flags().String("evaluator", "", "Base URL of the policy evaluator used for dry-runs")
}
