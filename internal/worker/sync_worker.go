// Package worker keeps the spreadsheet mirror in step with the bill store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/amqp"

	"golang.org/x/sync/errgroup"
)

// EventConsumer delivers bill change events until ctx ends. *amqp.Client
// implements it.
type EventConsumer interface {
	ConsumeBillEvents(ctx context.Context, handler func(context.Context, *amqp.BillEventMessage) error) error
}

// Syncer applies events to the mirror and repairs drift.
// *services.MirrorSyncer implements it.
type Syncer interface {
	HandleEvent(ctx context.Context, msg *amqp.BillEventMessage) error
	Resync(ctx context.Context) (bool, error)
}

var _ EventConsumer = (*amqp.Client)(nil)

// SyncWorker runs the event consumer next to a periodic full resync. The
// resync also covers events that were lost while the web process could not
// publish.
type SyncWorker struct {
	consumer EventConsumer
	syncer   Syncer
	interval time.Duration
	logger   *slog.Logger
}

// NewSyncWorker builds a worker. consumer may be nil, in which case only the
// periodic resync runs.
func NewSyncWorker(consumer EventConsumer, syncer Syncer, interval time.Duration, logger *slog.Logger) *SyncWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorker{
		consumer: consumer,
		syncer:   syncer,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled or a loop fails for good. Cancellation is
// not reported as an error.
func (w *SyncWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.consumer != nil {
		g.Go(func() error {
			err := w.consumer.ConsumeBillEvents(ctx, w.syncer.HandleEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("consume bill events: %w", err)
			}
			return nil
		})
	} else {
		w.logger.Info("No event consumer configured, relying on periodic resync")
	}

	g.Go(func() error {
		return w.resyncLoop(ctx)
	})

	return g.Wait()
}

func (w *SyncWorker) resyncLoop(ctx context.Context) error {
	// Startup resync picks up whatever changed while the worker was down.
	w.resync(ctx)
	if w.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.resync(ctx)
		}
	}
}

func (w *SyncWorker) resync(ctx context.Context) {
	start := time.Now()
	changed, err := w.syncer.Resync(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.ErrorContext(ctx, "Mirror resync failed", "error", err)
		return
	}
	w.logger.InfoContext(ctx, "Mirror resync finished",
		"changed", changed,
		"duration", time.Since(start).Round(time.Millisecond))
}
