package google

import (
	"fmt"
	"strconv"
	"strings"

	"budget/internal/core"

	"github.com/shopspring/decimal"
)

// Column layout of the mirror sheet.
var headerRow = []any{"ID", "Due date", "Bill", "Amount"}

func billRow(b core.Bill) []any {
	return []any{b.ID, b.DueDate.String(), b.Name, b.AmountDue.String()}
}

func cellString(v any) string {
	return strings.TrimSpace(fmt.Sprint(v))
}

// rowID returns the bill id in column A, or false for headers and blanks.
func rowID(row []any) (int64, bool) {
	if len(row) == 0 {
		return 0, false
	}
	s := cellString(row[0])
	if s == "" {
		return 0, false
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, true
	}
	// Numbers read back from the API arrive as float64.
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return int64(f), true
	}
	return 0, false
}

// findRow returns the 1-based sheet row holding id, or 0.
func findRow(values [][]any, id int64) int {
	for i, row := range values {
		if got, ok := rowID(row); ok && got == id {
			return i + 1
		}
	}
	return 0
}

// nextFreeRow is the row after the last non-empty one, never the header row.
func nextFreeRow(values [][]any) int {
	last := 1
	for i, row := range values {
		for _, cell := range row {
			if cellString(cell) != "" {
				last = i + 1
				break
			}
		}
	}
	return last + 1
}

// parseRow decodes one data row. Rows without an id are skipped by callers.
func parseRow(row []any) (core.Bill, error) {
	id, ok := rowID(row)
	if !ok {
		return core.Bill{}, fmt.Errorf("row has no bill id")
	}
	if len(row) < len(headerRow) {
		return core.Bill{}, fmt.Errorf("bill %d: expected %d columns, got %d", id, len(headerRow), len(row))
	}
	due, err := core.ParseDate(cellString(row[1]))
	if err != nil {
		return core.Bill{}, fmt.Errorf("bill %d: %w", id, err)
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(cellString(row[3]), ",", "."))
	if err != nil {
		return core.Bill{}, fmt.Errorf("bill %d: %w", id, core.ErrInvalidAmount)
	}
	return core.Bill{
		ID:        id,
		DueDate:   due,
		Name:      cellString(row[2]),
		AmountDue: core.NewMoney(amount),
	}, nil
}

// parseRows decodes every row carrying an id; the header and blank rows are
// ignored.
func parseRows(values [][]any) ([]core.Bill, error) {
	out := make([]core.Bill, 0, len(values))
	for _, row := range values {
		if _, ok := rowID(row); !ok {
			continue
		}
		b, err := parseRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func rowRange(sheet string, from, to int) string {
	return fmt.Sprintf("%s!A%d:D%d", sheet, from, to)
}
