// Package store declares the ports of the bill record store.
package store

import (
	"context"
	"time"

	"budget/internal/core"
)

// Ports for bill persistence. Implementations return errors matching
// core.ErrNotFound for unknown ids and wrap every other failure in a
// *core.StoreError.
type (
	BillWriter interface {
		// CreateBill assigns an id and returns the stored bill.
		CreateBill(ctx context.Context, b core.Bill) (core.Bill, error)
		// UpdateBill replaces name, due date and amount of b.ID in place.
		UpdateBill(ctx context.Context, b core.Bill) (core.Bill, error)
		// DeleteBill removes the bill and returns what was removed.
		DeleteBill(ctx context.Context, id int64) (core.Bill, error)
	}

	BillReader interface {
		GetBill(ctx context.Context, id int64) (core.Bill, error)
		// List methods order by due date, then id.
		ListBills(ctx context.Context) ([]core.Bill, error)
		ListBillsByMonth(ctx context.Context, year int, month time.Month) ([]core.Bill, error)
		ListBillsInRange(ctx context.Context, start, end core.Date) ([]core.Bill, error)
		// BillYears returns each year with at least one bill, ascending.
		BillYears(ctx context.Context) ([]int, error)
	}

	Store interface {
		BillReader
		BillWriter
		Ping(ctx context.Context) error
		Close() error
	}
)
