package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"budget/internal/amqp"
)

type fakeSyncer struct {
	resyncs atomic.Int64
	mu      sync.Mutex
	handled []int64
	err     error
}

func (f *fakeSyncer) HandleEvent(_ context.Context, msg *amqp.BillEventMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handled = append(f.handled, msg.ID)
	return nil
}

func (f *fakeSyncer) Resync(context.Context) (bool, error) {
	f.resyncs.Add(1)
	return true, f.err
}

// fakeConsumer hands over its events and then waits for cancellation.
type fakeConsumer struct {
	events []*amqp.BillEventMessage
	err    error
}

func (f *fakeConsumer) ConsumeBillEvents(ctx context.Context, handler func(context.Context, *amqp.BillEventMessage) error) error {
	for _, e := range f.events {
		if err := handler(ctx, e); err != nil {
			return err
		}
	}
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunConsumesAndResyncs(t *testing.T) {
	syncer := &fakeSyncer{}
	consumer := &fakeConsumer{events: []*amqp.BillEventMessage{
		amqp.NewBillEventMessage(1, amqp.ActionCreated, 1, "2024-03-01"),
		amqp.NewBillEventMessage(2, amqp.ActionDeleted, 1, "2024-03-20"),
	}}
	w := NewSyncWorker(consumer, syncer, 10*time.Millisecond, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for syncer.resyncs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d resyncs", syncer.resyncs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run returned %v after cancel", err)
	}
	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	if len(syncer.handled) != 2 || syncer.handled[0] != 1 || syncer.handled[1] != 2 {
		t.Fatalf("handled = %v", syncer.handled)
	}
}

func TestRunWithoutConsumer(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("sheets unavailable")}
	w := NewSyncWorker(nil, syncer, 0, quietLogger())
	// With no interval the worker resyncs once and returns; resync errors are logged only.
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := syncer.resyncs.Load(); n != 1 {
		t.Fatalf("resyncs = %d, want 1", n)
	}
}

func TestRunReportsConsumerFailure(t *testing.T) {
	boom := errors.New("channel closed for good")
	w := NewSyncWorker(&fakeConsumer{err: boom}, &fakeSyncer{}, time.Hour, quietLogger())
	err := w.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected consumer failure, got %v", err)
	}
}
