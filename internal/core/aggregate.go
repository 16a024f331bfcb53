package core

import (
	"cmp"
	"slices"
	"time"
)

// SumInRange sums AmountDue over bills due in [start, end], both inclusive.
// An empty input or a range with no bills yields zero.
func SumInRange(bills []Bill, start, end Date) Money {
	p := Period{Start: start, End: end}
	var total Money
	for _, b := range bills {
		if p.Contains(b.DueDate) {
			total = total.Add(b.AmountDue)
		}
	}
	return total
}

// Total sums AmountDue over all bills.
func Total(bills []Bill) Money {
	var total Money
	for _, b := range bills {
		total = total.Add(b.AmountDue)
	}
	return total
}

// DistinctYears returns each year present among due dates once, ascending.
func DistinctYears(bills []Bill) []int {
	seen := make(map[int]struct{}, len(bills))
	years := make([]int, 0)
	for _, b := range bills {
		y := b.DueDate.Year()
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	slices.Sort(years)
	return years
}

// FilterByYearMonth returns the bills due in the given month, ordered by due date.
func FilterByYearMonth(bills []Bill, year int, month time.Month) []Bill {
	p := MonthBounds(year, month)
	return FilterByDateRange(bills, p.Start, p.End)
}

// FilterByDateRange returns the bills due in [start, end], ordered by due date.
// The input slice is not modified.
func FilterByDateRange(bills []Bill, start, end Date) []Bill {
	p := Period{Start: start, End: end}
	out := make([]Bill, 0)
	for _, b := range bills {
		if p.Contains(b.DueDate) {
			out = append(out, b)
		}
	}
	SortByDueDate(out)
	return out
}

// SortByDueDate orders bills by due date, then by ID.
func SortByDueDate(bills []Bill) {
	slices.SortFunc(bills, func(a, b Bill) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
