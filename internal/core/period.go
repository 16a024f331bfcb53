package core

import "time"

// PayPeriodSplitDay is the last day of the first semi-monthly pay period.
const PayPeriodSplitDay = 15

// Period is a closed date interval [Start, End]. It is derived for filtering
// and never stored.
type Period struct {
	Start Date
	End   Date
}

// NewPeriod builds a period from user-supplied bounds.
func NewPeriod(start, end Date) (Period, error) {
	if start.IsZero() || end.IsZero() || start.Compare(end) > 0 {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// Validate rejects zero bounds and reversed ranges.
func (p Period) Validate() error {
	_, err := NewPeriod(p.Start, p.End)
	return err
}

// Contains reports whether Start <= d <= End.
func (p Period) Contains(d Date) bool {
	return p.Start.Compare(d) <= 0 && d.Compare(p.End) <= 0
}

func (p Period) String() string {
	return p.Start.String() + ".." + p.End.String()
}

// MonthBounds returns the first and last day of the given month.
func MonthBounds(year int, month time.Month) Period {
	return Period{
		Start: NewDate(year, month, 1),
		End:   lastDayOfMonth(year, month),
	}
}

// PayPeriods returns the pay period containing ref and the one after it.
//
// Days 1-15 form the first period of a month, days 16 to month end the second.
// The period after the second one starts on the 1st of the following month,
// rolling December over into January of the next year.
func PayPeriods(ref Date) (current, next Period) {
	year, month, day := ref.Date()
	if day <= PayPeriodSplitDay {
		current = Period{
			Start: NewDate(year, month, 1),
			End:   NewDate(year, month, PayPeriodSplitDay),
		}
		next = Period{
			Start: NewDate(year, month, PayPeriodSplitDay+1),
			End:   lastDayOfMonth(year, month),
		}
		return current, next
	}

	nextYear, nextMonth := followingMonth(year, month)
	current = Period{
		Start: NewDate(year, month, PayPeriodSplitDay+1),
		End:   lastDayOfMonth(year, month),
	}
	next = Period{
		Start: NewDate(nextYear, nextMonth, 1),
		End:   NewDate(nextYear, nextMonth, PayPeriodSplitDay),
	}
	return current, next
}

// lastDayOfMonth is the first day of the following month minus one day.
func lastDayOfMonth(year int, month time.Month) Date {
	y, m := followingMonth(year, month)
	return NewDate(y, m, 1).AddDays(-1)
}

func followingMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}
