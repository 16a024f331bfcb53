package services

import (
	"context"
	"errors"
	"testing"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/store/memory"
)

type fakeMirror struct {
	rows     map[int64]core.Bill
	replaced int
	readErr  error
	writeErr error
}

func newFakeMirror() *fakeMirror { return &fakeMirror{rows: map[int64]core.Bill{}} }

func (f *fakeMirror) UpsertBill(_ context.Context, b core.Bill) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.rows[b.ID] = b
	return nil
}

func (f *fakeMirror) RemoveBill(_ context.Context, id int64) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeMirror) ReplaceAll(_ context.Context, bills []core.Bill) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.replaced++
	f.rows = map[int64]core.Bill{}
	for _, b := range bills {
		f.rows[b.ID] = b
	}
	return nil
}

func (f *fakeMirror) ListMirrored(context.Context) ([]core.Bill, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	out := make([]core.Bill, 0, len(f.rows))
	for _, b := range f.rows {
		out = append(out, b)
	}
	return out, nil
}

func parsed(t *testing.T, date, name, amount string) core.Bill {
	t.Helper()
	b, err := form(date, name, amount).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return b
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	mirror := newFakeMirror()
	syncer := NewMirrorSyncer(st, mirror, nil)

	b, _ := st.CreateBill(ctx, parsed(t, "2024-03-01", "Rent", "1200"))
	if err := syncer.HandleEvent(ctx, amqp.NewBillEventMessage(b.ID, amqp.ActionCreated, 1, "2024-03-01")); err != nil {
		t.Fatalf("created: %v", err)
	}
	if mirror.rows[b.ID].Name != "Rent" {
		t.Fatalf("bill not mirrored")
	}

	// A stale updated event still mirrors the latest stored state.
	b.AmountDue = parsed(t, "2024-03-01", "x", "1300").AmountDue
	st.UpdateBill(ctx, b)
	if err := syncer.HandleEvent(ctx, amqp.NewBillEventMessage(b.ID, amqp.ActionUpdated, 1, "2024-03-01")); err != nil {
		t.Fatalf("updated: %v", err)
	}
	if mirror.rows[b.ID].AmountDue.String() != "1300.00" {
		t.Fatalf("mirror not updated: %+v", mirror.rows[b.ID])
	}

	// An update for a bill deleted meanwhile removes the row.
	st.DeleteBill(ctx, b.ID)
	if err := syncer.HandleEvent(ctx, amqp.NewBillEventMessage(b.ID, amqp.ActionUpdated, 2, "2024-03-01")); err != nil {
		t.Fatalf("updated after delete: %v", err)
	}
	if _, ok := mirror.rows[b.ID]; ok {
		t.Fatalf("row should be removed")
	}

	if err := syncer.HandleEvent(ctx, amqp.NewBillEventMessage(b.ID, amqp.ActionDeleted, 2, "2024-03-01")); err != nil {
		t.Fatalf("deleting an absent row: %v", err)
	}
}

func TestHandleEventMirrorFailure(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	mirror := newFakeMirror()
	mirror.writeErr = errors.New("quota exceeded")
	syncer := NewMirrorSyncer(st, mirror, nil)
	b, _ := st.CreateBill(ctx, parsed(t, "2024-03-01", "Rent", "1200"))
	if err := syncer.HandleEvent(ctx, amqp.NewBillEventMessage(b.ID, amqp.ActionCreated, 1, "")); err == nil {
		t.Fatalf("expected error so the event is requeued")
	}
}

func TestResync(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	mirror := newFakeMirror()
	syncer := NewMirrorSyncer(st, mirror, nil)

	st.CreateBill(ctx, parsed(t, "2024-03-01", "Rent", "1200"))
	st.CreateBill(ctx, parsed(t, "2024-03-20", "Internet", "60"))

	changed, err := syncer.Resync(ctx)
	if err != nil || !changed || len(mirror.rows) != 2 {
		t.Fatalf("first resync: changed=%v err=%v rows=%d", changed, err, len(mirror.rows))
	}
	changed, err = syncer.Resync(ctx)
	if err != nil || changed || mirror.replaced != 1 {
		t.Fatalf("second resync should be a no-op: changed=%v err=%v", changed, err)
	}

	mirror.rows[99] = parsed(t, "2020-01-01", "ghost", "1")
	if changed, _ := syncer.Resync(ctx); !changed {
		t.Fatalf("extra mirror row should trigger a rewrite")
	}
	if _, ok := mirror.rows[99]; ok {
		t.Fatalf("ghost row survived resync")
	}

	mirror.readErr = errors.New("unreadable")
	if changed, err := syncer.Resync(ctx); err != nil || !changed {
		t.Fatalf("unreadable mirror should be rewritten: changed=%v err=%v", changed, err)
	}
}

func TestDrift(t *testing.T) {
	a := core.Bill{ID: 1, Name: "Rent", DueDate: core.NewDate(2024, 3, 1)}
	b := core.Bill{ID: 2, Name: "Internet", DueDate: core.NewDate(2024, 3, 20)}
	changed := b
	changed.Name = "Fiber"

	tests := []struct {
		name             string
		stored, mirrored []core.Bill
		want             int
	}{
		{"equal", []core.Bill{a, b}, []core.Bill{b, a}, 0},
		{"missing", []core.Bill{a, b}, []core.Bill{a}, 1},
		{"extra", []core.Bill{a}, []core.Bill{a, b}, 1},
		{"changed", []core.Bill{a, b}, []core.Bill{a, changed}, 1},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		if got := Drift(tt.stored, tt.mirrored); got != tt.want {
			t.Errorf("%s: Drift = %d, want %d", tt.name, got, tt.want)
		}
	}
}
