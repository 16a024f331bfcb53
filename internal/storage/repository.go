// Package storage is the SQLite-backed bill store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budget/internal/core"
	"budget/internal/store"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

var _ store.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it to the latest schema.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

// dsn enables WAL and a busy timeout so readers never block on, or observe,
// an uncommitted write.
func dsn(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return core.NewStoreError("ping", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	var row BillRow
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		row, err = q.CreateBill(ctx, CreateBillParams{
			BillName:  b.Name,
			DueDate:   b.DueDate.String(),
			AmountDue: b.AmountDue.String(),
			Now:       r.now().UTC(),
		})
		return err
	})
	if err != nil {
		return core.Bill{}, core.NewStoreError("create bill", err)
	}

	slog.InfoContext(ctx, "Bill saved to SQLite",
		"id", row.ID,
		"due_date", row.DueDate,
		"amount_due", row.AmountDue)

	return row.toBill()
}

func (r *SQLiteRepository) UpdateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	var row BillRow
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		row, err = q.UpdateBill(ctx, UpdateBillParams{
			ID:        b.ID,
			BillName:  b.Name,
			DueDate:   b.DueDate.String(),
			AmountDue: b.AmountDue.String(),
			Now:       r.now().UTC(),
		})
		return notFound(err)
	})
	if err != nil {
		return core.Bill{}, core.NewStoreError("update bill", err)
	}

	slog.InfoContext(ctx, "Bill updated in SQLite", "id", row.ID, "version", row.Version)
	return row.toBill()
}

func (r *SQLiteRepository) DeleteBill(ctx context.Context, id int64) (core.Bill, error) {
	var row BillRow
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		row, err = q.DeleteBill(ctx, id)
		return notFound(err)
	})
	if err != nil {
		return core.Bill{}, core.NewStoreError("delete bill", err)
	}

	slog.InfoContext(ctx, "Bill deleted from SQLite", "id", id)
	return row.toBill()
}

func (r *SQLiteRepository) GetBill(ctx context.Context, id int64) (core.Bill, error) {
	row, err := r.queries.GetBill(ctx, id)
	if err != nil {
		return core.Bill{}, core.NewStoreError("get bill", notFound(err))
	}
	return row.toBill()
}

func (r *SQLiteRepository) ListBills(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.queries.ListBills(ctx)
	if err != nil {
		return nil, core.NewStoreError("list bills", err)
	}
	return toBills(rows)
}

func (r *SQLiteRepository) ListBillsByMonth(ctx context.Context, year int, month time.Month) ([]core.Bill, error) {
	p := core.MonthBounds(year, month)
	return r.ListBillsInRange(ctx, p.Start, p.End)
}

func (r *SQLiteRepository) ListBillsInRange(ctx context.Context, start, end core.Date) ([]core.Bill, error) {
	rows, err := r.queries.ListBillsBetween(ctx, start.String(), end.String())
	if err != nil {
		return nil, core.NewStoreError("list bills in range", err)
	}
	return toBills(rows)
}

func (r *SQLiteRepository) BillYears(ctx context.Context) ([]int, error) {
	years, err := r.queries.ListBillYears(ctx)
	if err != nil {
		return nil, core.NewStoreError("list bill years", err)
	}
	out := make([]int, len(years))
	for i, y := range years {
		out[i] = int(y)
	}
	return out, nil
}

// withTx runs fn in a transaction that is committed only if fn succeeds.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

func (row BillRow) toBill() (core.Bill, error) {
	due, err := core.ParseDate(row.DueDate)
	if err != nil {
		return core.Bill{}, core.NewStoreError("decode bill", fmt.Errorf("id %d: due_date %q: %w", row.ID, row.DueDate, err))
	}
	amount, err := decimal.NewFromString(row.AmountDue)
	if err != nil {
		return core.Bill{}, core.NewStoreError("decode bill", fmt.Errorf("id %d: amount_due %q: %w", row.ID, row.AmountDue, err))
	}
	return core.Bill{
		ID:        row.ID,
		Name:      row.BillName,
		DueDate:   due,
		AmountDue: core.NewMoney(amount),
		Version:   row.Version,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func toBills(rows []BillRow) ([]core.Bill, error) {
	out := make([]core.Bill, 0, len(rows))
	for _, row := range rows {
		b, err := row.toBill()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
