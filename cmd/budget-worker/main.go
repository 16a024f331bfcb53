package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"budget/internal/amqp"
	"budget/internal/cli"
	"budget/internal/config"
	applog "budget/internal/log"
	"budget/internal/metrics"
	"budget/internal/services"
	gsheet "budget/internal/sheets/google"
	"budget/internal/storage"
	"budget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting budget-worker", applog.FieldOperation, applog.OpStartup)
	if err := run(logger); err != nil {
		logger.Error("Worker exited", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}

func run(logger *applog.Logger) error {
	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend != config.BackendSQLite {
		return fmt.Errorf("the worker reads bills from SQLite, DATA_BACKEND is %q", cfg.DataBackend)
	}
	if !cfg.MirrorEnabled() {
		return errors.New("nothing to mirror: GOOGLE_SPREADSHEET_ID is not set")
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open SQLite repository %s: %w", cfg.SQLiteDBPath, err)
	}
	defer repo.Close()

	mirror, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	// A nil *amqp.Client must not end up inside the interface.
	var consumer worker.EventConsumer
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("initialize AMQP client: %w", err)
		}
		defer client.Close()
		consumer = client
	}

	m := metrics.New()
	if cfg.WorkerMetricsAddr != "" {
		metricsSrv := &http.Server{
			Addr:              cfg.WorkerMetricsAddr,
			Handler:           m.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics listener failed", applog.FieldError, err, "addr", cfg.WorkerMetricsAddr)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := cli.ShutdownContext(5 * time.Second)
			defer shutdownCancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	syncer := services.NewMirrorSyncer(repo, mirror, m)
	w := worker.NewSyncWorker(consumer, syncer, cfg.ResyncInterval,
		logger.WithComponent(applog.ComponentWorker).Logger)

	logger.Info("Worker running",
		"resync_interval", cfg.ResyncInterval.String(),
		"change_events", consumer != nil)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker stopped: %w", err)
	}
	return nil
}
