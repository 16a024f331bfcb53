package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// BillRow mirrors one row of the bills table.
type BillRow struct {
	ID        int64
	BillName  string
	DueDate   string
	AmountDue string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

const billColumns = `id, bill_name, due_date, amount_due, version, created_at, updated_at`

const createBill = `
INSERT INTO bills (bill_name, due_date, amount_due, version, created_at, updated_at)
VALUES (?, ?, ?, 1, ?, ?)
RETURNING ` + billColumns

type CreateBillParams struct {
	BillName  string
	DueDate   string
	AmountDue string
	Now       time.Time
}

func (q *Queries) CreateBill(ctx context.Context, arg CreateBillParams) (BillRow, error) {
	row := q.db.QueryRowContext(ctx, createBill, arg.BillName, arg.DueDate, arg.AmountDue, arg.Now, arg.Now)
	return scanBill(row)
}

const updateBill = `
UPDATE bills
SET bill_name = ?, due_date = ?, amount_due = ?, version = version + 1, updated_at = ?
WHERE id = ?
RETURNING ` + billColumns

type UpdateBillParams struct {
	ID        int64
	BillName  string
	DueDate   string
	AmountDue string
	Now       time.Time
}

func (q *Queries) UpdateBill(ctx context.Context, arg UpdateBillParams) (BillRow, error) {
	row := q.db.QueryRowContext(ctx, updateBill, arg.BillName, arg.DueDate, arg.AmountDue, arg.Now, arg.ID)
	return scanBill(row)
}

const deleteBill = `DELETE FROM bills WHERE id = ? RETURNING ` + billColumns

func (q *Queries) DeleteBill(ctx context.Context, id int64) (BillRow, error) {
	return scanBill(q.db.QueryRowContext(ctx, deleteBill, id))
}

const getBill = `SELECT ` + billColumns + ` FROM bills WHERE id = ?`

func (q *Queries) GetBill(ctx context.Context, id int64) (BillRow, error) {
	return scanBill(q.db.QueryRowContext(ctx, getBill, id))
}

const listBills = `SELECT ` + billColumns + ` FROM bills ORDER BY due_date, id`

func (q *Queries) ListBills(ctx context.Context) ([]BillRow, error) {
	return q.listBills(ctx, listBills)
}

const listBillsBetween = `
SELECT ` + billColumns + `
FROM bills
WHERE due_date BETWEEN ? AND ?
ORDER BY due_date, id`

// ListBillsBetween returns bills with start <= due_date <= end. Dates are
// compared as YYYY-MM-DD text, which sorts chronologically.
func (q *Queries) ListBillsBetween(ctx context.Context, start, end string) ([]BillRow, error) {
	return q.listBills(ctx, listBillsBetween, start, end)
}

const listBillYears = `
SELECT DISTINCT CAST(substr(due_date, 1, 4) AS INTEGER) AS year
FROM bills
ORDER BY year`

func (q *Queries) ListBillYears(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, listBillYears)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []int64
	for rows.Next() {
		var year int64
		if err := rows.Scan(&year); err != nil {
			return nil, err
		}
		items = append(items, year)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) listBills(ctx context.Context, query string, args ...interface{}) ([]BillRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BillRow
	for rows.Next() {
		i, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBill(s scanner) (BillRow, error) {
	var i BillRow
	err := s.Scan(
		&i.ID,
		&i.BillName,
		&i.DueDate,
		&i.AmountDue,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
