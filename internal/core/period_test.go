package core

import (
	"testing"
	"time"
)

func TestPayPeriods(t *testing.T) {
	cases := []struct {
		name               string
		ref                Date
		curStart, curEnd   string
		nextStart, nextEnd string
	}{
		{"first half", NewDate(2024, 3, 10), "2024-03-01", "2024-03-15", "2024-03-16", "2024-03-31"},
		{"day 15 stays in first half", NewDate(2024, 3, 15), "2024-03-01", "2024-03-15", "2024-03-16", "2024-03-31"},
		{"day 1", NewDate(2024, 4, 1), "2024-04-01", "2024-04-15", "2024-04-16", "2024-04-30"},
		{"day 16", NewDate(2024, 3, 16), "2024-03-16", "2024-03-31", "2024-04-01", "2024-04-15"},
		{"30-day month", NewDate(2024, 6, 20), "2024-06-16", "2024-06-30", "2024-07-01", "2024-07-15"},
		{"leap february", NewDate(2024, 2, 29), "2024-02-16", "2024-02-29", "2024-03-01", "2024-03-15"},
		{"non-leap february", NewDate(2023, 2, 20), "2023-02-16", "2023-02-28", "2023-03-01", "2023-03-15"},
		{"february first half", NewDate(2023, 2, 3), "2023-02-01", "2023-02-15", "2023-02-16", "2023-02-28"},
		{"century non-leap", NewDate(2100, 2, 16), "2100-02-16", "2100-02-28", "2100-03-01", "2100-03-15"},
		{"december first half", NewDate(2024, 12, 5), "2024-12-01", "2024-12-15", "2024-12-16", "2024-12-31"},
		{"december rollover", NewDate(2024, 12, 20), "2024-12-16", "2024-12-31", "2025-01-01", "2025-01-15"},
		{"new year's eve", NewDate(2023, 12, 31), "2023-12-16", "2023-12-31", "2024-01-01", "2024-01-15"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cur, next := PayPeriods(tc.ref)
			if got := cur.Start.String(); got != tc.curStart {
				t.Fatalf("current start = %s, want %s", got, tc.curStart)
			}
			if got := cur.End.String(); got != tc.curEnd {
				t.Fatalf("current end = %s, want %s", got, tc.curEnd)
			}
			if got := next.Start.String(); got != tc.nextStart {
				t.Fatalf("next start = %s, want %s", got, tc.nextStart)
			}
			if got := next.End.String(); got != tc.nextEnd {
				t.Fatalf("next end = %s, want %s", got, tc.nextEnd)
			}
		})
	}
}

func TestPayPeriodsCurrentEndInvariant(t *testing.T) {
	// Every day of 2023 and 2024: current end is the 15th for days <= 15 and
	// the month's last day otherwise; the ref always lies in current.
	for d := NewDate(2023, 1, 1); d.Year() < 2025; d = d.AddDays(1) {
		cur, next := PayPeriods(d)
		if !cur.Contains(d) {
			t.Fatalf("%s not inside current period %s", d, cur)
		}
		if next.Start.Compare(cur.End.AddDays(1)) != 0 {
			t.Fatalf("%s: next period %s does not follow current %s", d, next, cur)
		}
		wantEnd := MonthBounds(d.Year(), d.Month()).End
		if d.Day() <= 15 {
			wantEnd = NewDate(d.Year(), d.Month(), 15)
		}
		if cur.End.Compare(wantEnd) != 0 {
			t.Fatalf("%s: current end %s, want %s", d, cur.End, wantEnd)
		}
	}
}

func TestMonthBounds(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		last  int
	}{
		{2024, time.January, 31},
		{2024, time.February, 29},
		{2023, time.February, 28},
		{2000, time.February, 29},
		{1900, time.February, 28},
		{2024, time.April, 30},
		{2024, time.November, 30},
		{2024, time.December, 31},
	}
	for _, tc := range cases {
		p := MonthBounds(tc.year, tc.month)
		if p.Start.Day() != 1 || p.Start.Month() != tc.month || p.Start.Year() != tc.year {
			t.Fatalf("%d-%02d start = %s", tc.year, tc.month, p.Start)
		}
		if p.End.Day() != tc.last || p.End.Month() != tc.month || p.End.Year() != tc.year {
			t.Fatalf("%d-%02d end = %s, want day %d", tc.year, tc.month, p.End, tc.last)
		}
	}
}

func TestNewPeriod(t *testing.T) {
	if _, err := NewPeriod(NewDate(2024, 3, 1), NewDate(2024, 3, 1)); err != nil {
		t.Fatalf("single-day period rejected: %v", err)
	}
	if _, err := NewPeriod(NewDate(2024, 3, 2), NewDate(2024, 3, 1)); err != ErrInvalidPeriod {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	if _, err := NewPeriod(Date{}, NewDate(2024, 3, 1)); err != ErrInvalidPeriod {
		t.Fatalf("expected ErrInvalidPeriod for zero start, got %v", err)
	}
}
