package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"budget/internal/backend"
	"budget/internal/cli"
	apphttp "budget/internal/http"
	applog "budget/internal/log"
	"budget/internal/metrics"
	"budget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	if err := run(logger); err != nil {
		logger.Error("Server exited", applog.FieldError, err)
		os.Exit(1)
	}
}

// run returns only after its deferred cleanups have closed the backend.
func run(logger *applog.Logger) error {
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid backend configuration: %w", err)
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).
		CreateBackend(ctx, backendConfig)
	if err != nil {
		return fmt.Errorf("initialize %s backend: %w", cfg.DataBackend, err)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	m := metrics.New()
	bills := services.NewBillService(result.Store, result.Publisher, services.BillServiceConfig{
		CacheSize: cfg.ViewCacheSize,
		CacheTTL:  cfg.ViewCacheTTL,
		Metrics:   m,
	})

	srv := apphttp.NewServer(bills, apphttp.Options{
		Addr:               ":" + cfg.Port,
		Logger:             logger,
		Metrics:            m,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting budget server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"change_events", result.Publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var listenErr error
	select {
	case <-ctx.Done():
	case listenErr = <-serveErr:
	}

	shutdownCtx, shutdownCancel := cli.ShutdownContext(30 * time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", applog.FieldError, err)
	}
	if listenErr != nil {
		return fmt.Errorf("listen on port %s: %w", cfg.Port, listenErr)
	}
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
	return nil
}
