package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/metrics"
	"budget/internal/sheets"
	"budget/internal/store"
)

// MirrorSyncer applies bill change events to the spreadsheet mirror and
// repairs drift with full resyncs. The store is always the source of truth.
type MirrorSyncer struct {
	store   store.BillReader
	mirror  sheets.Mirror
	metrics *metrics.Metrics
}

func NewMirrorSyncer(st store.BillReader, mirror sheets.Mirror, m *metrics.Metrics) *MirrorSyncer {
	return &MirrorSyncer{store: st, mirror: mirror, metrics: m}
}

// HandleEvent mirrors one change. Created and updated events re-read the
// bill, so a stale or reordered event still writes the latest state; a bill
// that no longer exists is removed.
func (s *MirrorSyncer) HandleEvent(ctx context.Context, msg *amqp.BillEventMessage) error {
	if msg.Action == amqp.ActionDeleted {
		return s.remove(ctx, msg.ID)
	}

	b, err := s.store.GetBill(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "Bill gone before sync, removing from mirror", "id", msg.ID, "action", msg.Action)
		return s.remove(ctx, msg.ID)
	}
	if err != nil {
		return fmt.Errorf("get bill %d: %w", msg.ID, err)
	}

	err = s.mirror.UpsertBill(ctx, b)
	s.metrics.MirrorOp("upsert", err)
	if err != nil {
		return fmt.Errorf("mirror bill %d: %w", b.ID, err)
	}
	slog.InfoContext(ctx, "Synced bill to mirror", "id", b.ID, "version", b.Version, "event_version", msg.Version)
	return nil
}

func (s *MirrorSyncer) remove(ctx context.Context, id int64) error {
	err := s.mirror.RemoveBill(ctx, id)
	s.metrics.MirrorOp("remove", err)
	if err != nil {
		return fmt.Errorf("remove bill %d from mirror: %w", id, err)
	}
	slog.InfoContext(ctx, "Removed bill from mirror", "id", id)
	return nil
}

// Resync rewrites the mirror from the store when the two differ. It reports
// whether a rewrite happened.
func (s *MirrorSyncer) Resync(ctx context.Context) (bool, error) {
	bills, err := s.store.ListBills(ctx)
	if err != nil {
		return false, fmt.Errorf("list bills: %w", err)
	}
	mirrored, err := s.mirror.ListMirrored(ctx)
	if err != nil {
		// An unreadable mirror is rewritten rather than trusted.
		slog.WarnContext(ctx, "Failed to read mirror, rewriting it", "error", err)
		mirrored = nil
	}
	drift := Drift(bills, mirrored)
	if drift == 0 && err == nil {
		slog.DebugContext(ctx, "Mirror up to date", "bills", len(bills))
		return false, nil
	}

	err = s.mirror.ReplaceAll(ctx, bills)
	s.metrics.MirrorOp("resync", err)
	if err != nil {
		return false, fmt.Errorf("replace mirror: %w", err)
	}
	slog.InfoContext(ctx, "Mirror resynced", "bills", len(bills), "drift", drift)
	return true, nil
}

// Drift counts bills that are missing, extra or different between the store
// and the mirror. Timestamps and versions are not compared.
func Drift(stored, mirrored []core.Bill) int {
	byID := make(map[int64]core.Bill, len(mirrored))
	for _, b := range mirrored {
		byID[b.ID] = b
	}
	drift := 0
	for _, b := range stored {
		m, ok := byID[b.ID]
		if !ok || m.Name != b.Name || m.DueDate.Compare(b.DueDate) != 0 || !m.AmountDue.Equal(b.AmountDue) {
			drift++
		}
		delete(byID, b.ID)
	}
	return drift + len(byID)
}
