package sheets

import (
	"context"

	"budget/internal/core"
)

// Ports for the spreadsheet mirror of the bill store.
type (
	// BillMirror keeps one row per bill, keyed by bill id.
	BillMirror interface {
		// UpsertBill rewrites the row of b.ID, appending one if none exists.
		UpsertBill(ctx context.Context, b core.Bill) error
		// RemoveBill clears the row of id. A missing row is not an error.
		RemoveBill(ctx context.Context, id int64) error
		// ReplaceAll rewrites the whole mirror from bills.
		ReplaceAll(ctx context.Context, bills []core.Bill) error
	}

	// MirrorReader reads the mirror back, used to detect drift.
	MirrorReader interface {
		ListMirrored(ctx context.Context) ([]core.Bill, error)
	}

	Mirror interface {
		BillMirror
		MirrorReader
	}
)
