// Package core provides the bill domain: dates, money, pay periods and the
// aggregation rules used by every view.
//
// This file contains the Money type. Amounts are exact decimals; binary
// floating point is never used for money.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits kept for an amount.
const MoneyPlaces = 2

// Money is a non-negative amount due. The zero value is zero.
type Money struct {
	Amount decimal.Decimal
}

// NewMoney rounds d to MoneyPlaces.
func NewMoney(d decimal.Decimal) Money {
	return Money{Amount: d.Round(MoneyPlaces)}
}

// ParseMoney converts a decimal string to Money with half-up rounding on the
// third fractional digit.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Signs, exponents
// and thousands separators are rejected.
//
// Examples:
//
//	ParseMoney("1200")   -> 1200.00
//	ParseMoney("12,34")  -> 12.34
//	ParseMoney("12.345") -> 12.35
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 || s == "." {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && (r < '0' || r > '9') {
			return Money{}, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return NewMoney(d), nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount.Add(o.Amount)}
}

// Equal compares amounts numerically (1.5 equals 1.50).
func (m Money) Equal(o Money) bool {
	return m.Amount.Equal(o.Amount)
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// Validate rejects negative amounts.
func (m Money) Validate() error {
	if m.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// String renders the amount with exactly two decimals, e.g. "1200.00".
func (m Money) String() string {
	return m.Amount.StringFixed(MoneyPlaces)
}
