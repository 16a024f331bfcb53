package core

import "errors"

var (
	ErrNotFound      = errors.New("bill not found")
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyName     = errors.New("empty bill name")
	ErrNameTooLong   = errors.New("bill name too long")
	ErrInvalidPeriod = errors.New("invalid period")
)

// MissingFieldsMessage is shown to the user when a bill form is incomplete.
const MissingFieldsMessage = "All fields are required"

// ValidationError reports a rejected user input. Err is one of the sentinel
// errors above so callers can tell a missing field from a malformed one.
type ValidationError struct {
	Field   string
	Err     error
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newValidationError(field string, err error, message string) *ValidationError {
	return &ValidationError{Field: field, Err: err, Message: message}
}

// StoreError wraps a persistence failure (connection loss, constraint
// violation). Not-found conditions are reported with ErrNotFound instead.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err unless it is nil or already a not-found error.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
