package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"budget/internal/core"
)

// Form and query field names.
const (
	fieldDueDate   = "due_date"
	fieldBillName  = "bill_name"
	fieldAmountDue = "amount_due"
	fieldConfirm   = "confirm"
	fieldStartDate = "start_date"
	fieldEndDate   = "end_date"
)

// MonthParams holds the year and month taken from a /<year>/<month>/ path.
type MonthParams struct {
	Year  int
	Month time.Month
}

// ParseMonthPath reads {year} and {month}. Anything that is not a plain
// integer, or a month outside 1..12, is reported as core.ErrNotFound.
func ParseMonthPath(r *http.Request) (MonthParams, error) {
	year, err := pathInt(r, "year")
	if err != nil || year < 1 || year > 9999 {
		return MonthParams{}, fmt.Errorf("year %q: %w", r.PathValue("year"), core.ErrNotFound)
	}
	month, err := pathInt(r, "month")
	if err != nil || month < 1 || month > 12 {
		return MonthParams{}, fmt.Errorf("month %q: %w", r.PathValue("month"), core.ErrNotFound)
	}
	return MonthParams{Year: year, Month: time.Month(month)}, nil
}

// ParseBillID reads a positive {id}; anything else is core.ErrNotFound.
func ParseBillID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	if !isDigits(raw) {
		return 0, fmt.Errorf("bill id %q: %w", raw, core.ErrNotFound)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("bill id %q: %w", raw, core.ErrNotFound)
	}
	return id, nil
}

// ParseBillForm reads the create/edit form fields. Validation is left to
// core.BillForm.Parse.
func ParseBillForm(r *http.Request) (core.BillForm, error) {
	if err := r.ParseForm(); err != nil {
		return core.BillForm{}, &core.ValidationError{
			Field:   "form",
			Err:     core.ErrMissingField,
			Message: "Invalid request format",
		}
	}
	return core.BillForm{
		DueDate:   r.PostForm.Get(fieldDueDate),
		BillName:  r.PostForm.Get(fieldBillName),
		AmountDue: r.PostForm.Get(fieldAmountDue),
	}, nil
}

// Confirmed reports whether the second step of a confirm-edit was submitted.
func Confirmed(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.PostForm.Get(fieldConfirm)), "yes")
}

// ParsePeriodParams reads start_date and end_date from query. With both absent
// the pay period containing today is returned and explicit is false. A single
// missing bound, a malformed date or a reversed range is a *core.ValidationError.
func ParsePeriodParams(query url.Values, today core.Date) (p core.Period, explicit bool, err error) {
	startRaw := strings.TrimSpace(query.Get(fieldStartDate))
	endRaw := strings.TrimSpace(query.Get(fieldEndDate))

	if startRaw == "" && endRaw == "" {
		current, _ := core.PayPeriods(today)
		return current, false, nil
	}
	if startRaw == "" || endRaw == "" {
		return core.Period{}, true, &core.ValidationError{
			Field:   periodField(startRaw == ""),
			Err:     core.ErrMissingField,
			Message: "Both start and end dates are required",
		}
	}

	start, err := core.ParseDate(startRaw)
	if err != nil {
		return core.Period{}, true, &core.ValidationError{Field: fieldStartDate, Err: err, Message: "Invalid start date: use YYYY-MM-DD"}
	}
	end, err := core.ParseDate(endRaw)
	if err != nil {
		return core.Period{}, true, &core.ValidationError{Field: fieldEndDate, Err: err, Message: "Invalid end date: use YYYY-MM-DD"}
	}
	p, err = core.NewPeriod(start, end)
	if err != nil {
		return core.Period{}, true, &core.ValidationError{Field: fieldEndDate, Err: err, Message: "Start date must not be after end date"}
	}
	return p, true, nil
}

func periodField(startMissing bool) string {
	if startMissing {
		return fieldStartDate
	}
	return fieldEndDate
}

// pathInt accepts only ASCII digits, so "+3" and " 3" are rejected.
func pathInt(r *http.Request, name string) (int, error) {
	raw := r.PathValue(name)
	if !isDigits(raw) {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(raw)
}

func isDigits(s string) bool {
	return s != "" && strings.TrimLeft(s, "0123456789") == ""
}
