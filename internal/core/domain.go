package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the ISO 8601 calendar date used on the wire and in storage.
const DateLayout = "2006-01-02"

// MaxBillNameLength is counted in characters, not bytes.
const MaxBillNameLength = 80

type (
	// Date is a calendar date at UTC midnight.
	Date struct {
		time.Time
	}

	// Bill is one recurring-payment record.
	Bill struct {
		ID        int64
		Name      string
		DueDate   Date
		AmountDue Money
		Version   int64
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// BillForm holds the raw submitted fields of the create and edit forms.
	BillForm struct {
		DueDate   string
		BillName  string
		AmountDue string
	}
)

// NewDate creates a Date from year, month, day. Out-of-range values are
// normalized the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time of day from t, keeping t's calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// Compare returns -1, 0 or +1 like time.Time.Compare.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Validate checks the invariants every stored bill satisfies.
func (b Bill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return newValidationError("bill_name", ErrEmptyName, MissingFieldsMessage)
	}
	if utf8.RuneCountInString(b.Name) > MaxBillNameLength {
		return newValidationError("bill_name", ErrNameTooLong, "Bill name must be at most 80 characters")
	}
	if err := b.DueDate.Validate(); err != nil {
		return newValidationError("due_date", err, "Invalid due date: use YYYY-MM-DD")
	}
	if err := b.AmountDue.Validate(); err != nil {
		return newValidationError("amount_due", err, "Invalid amount due: must be a non-negative number")
	}
	return nil
}

// Parse validates the submitted form and returns the parsed bill (without ID).
// Create, edit and confirm-edit all go through here; on failure the error is
// a *ValidationError.
func (f BillForm) Parse() (Bill, error) {
	dueDate := strings.TrimSpace(f.DueDate)
	name := sanitizeName(f.BillName)
	amount := strings.TrimSpace(f.AmountDue)

	switch {
	case dueDate == "":
		return Bill{}, newValidationError("due_date", ErrMissingField, MissingFieldsMessage)
	case name == "":
		return Bill{}, newValidationError("bill_name", ErrMissingField, MissingFieldsMessage)
	case amount == "":
		return Bill{}, newValidationError("amount_due", ErrMissingField, MissingFieldsMessage)
	}

	d, err := ParseDate(dueDate)
	if err != nil {
		return Bill{}, newValidationError("due_date", err, "Invalid due date: use YYYY-MM-DD")
	}
	m, err := ParseMoney(amount)
	if err != nil {
		return Bill{}, newValidationError("amount_due", err, "Invalid amount due: must be a non-negative number")
	}

	b := Bill{Name: name, DueDate: d, AmountDue: m}
	if err := b.Validate(); err != nil {
		return Bill{}, err
	}
	return b, nil
}

// FormOf renders a bill back into form fields.
func FormOf(b Bill) BillForm {
	return BillForm{
		DueDate:   b.DueDate.String(),
		BillName:  b.Name,
		AmountDue: b.AmountDue.String(),
	}
}

// sanitizeName trims and drops control characters.
func sanitizeName(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}
