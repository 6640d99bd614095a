package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/uipilot/internal/config"
	uihttp "github.com/fyrsmithlabs/uipilot/internal/http"
	"github.com/fyrsmithlabs/uipilot/internal/store"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the uipilot HTTP API",
	Long: `Serve the uipilot HTTP API.

Endpoints:
  POST /api/v1/tasks      run a goal through the pipeline
  GET  /api/v1/tasks      list stored results
  GET  /api/v1/tasks/:id  fetch one stored result
  GET  /health            liveness
  GET  /metrics           Prometheus metrics

The server shuts down gracefully on SIGINT/SIGTERM, bounded by the
configured shutdown timeout.

Examples:
  # Serve on the configured address (default 127.0.0.1:8710)
  uipilot serve

  # Override the port
  UIPILOT_SERVER_PORT=9000 uipilot serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return err
	}

	tel, err := newTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = tel.Shutdown(context.Background()) }()

	logger, err := newLogger(cfg, tel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info(ctx, "starting uipilot",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("provider", cfg.Provider.Kind),
		zap.String("backend", cfg.Backend.Kind),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	st, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer func() { _ = st.Close() }()

	sup, cleanup, err := buildSupervisor(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv, err := uihttp.NewServer(sup, st, logger, &uihttp.Config{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	srv.MountMetrics(promhttp.Handler())

	// Start server in background
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// Drain the start error; ErrServerClosed is the graceful case.
	if err := <-errChan; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	logger.Info(context.Background(), "uipilot stopped")
	return nil
}
