package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sales-reconciliation-service/internal/server"
	"sales-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var listenAddr string

// serveCmd runs the read-only reconciliation API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reconciliation API over HTTP",
	Long: `Serve exposes the reconciliation report surfaces as a read-only HTTP
API. Every request triggers a fresh reconciliation run against the
source tables; the server holds no state of its own.

Endpoints:
  GET /healthz
  GET /api/pivot?month=2025-09-01
  GET /api/kpis
  GET /api/diffs?only_nonzero=false
  GET /api/audit
  GET /api/consistency

Examples:
  salesrecon serve --database-url postgres://localhost/sales
  salesrecon serve --listen :9090`,

	PreRunE: validateServeFlags,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", ":8080", "HTTP listen address")

	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
}

func validateServeFlags(cmd *cobra.Command, args []string) error {
	listenAddr = viper.GetString("listen")
	if listenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	log := logger.GetGlobalLogger().WithComponent("server")

	appConfig := resolveAppConfig()
	if err := appConfig.Validate(); err != nil {
		return err
	}

	service, pool, err := buildService(ctx, appConfig)
	if err != nil {
		return err
	}
	defer pool.Close()

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           server.New(service, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", listenAddr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
