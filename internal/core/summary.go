package core

import "time"

// PeriodTotal is the set of bills due in a period and their sum.
type PeriodTotal struct {
	Period Period
	Bills  []Bill
	Total  Money
}

// PayPeriodSummary groups bills around paycheck cadence relative to Reference.
type PayPeriodSummary struct {
	Reference Date
	Current   PeriodTotal
	Next      PeriodTotal
}

// MonthView is everything the month page shows.
type MonthView struct {
	Year       int
	Month      time.Month
	Bills      []Bill
	Total      Money
	Years      []int
	PayPeriods PayPeriodSummary
}

// SummarizePeriod filters bills to p and totals them.
func SummarizePeriod(bills []Bill, p Period) PeriodTotal {
	return PeriodTotal{
		Period: p,
		Bills:  FilterByDateRange(bills, p.Start, p.End),
		Total:  SumInRange(bills, p.Start, p.End),
	}
}

// SummarizePayPeriods computes the current and next pay periods for ref and
// the bills due in each.
func SummarizePayPeriods(bills []Bill, ref Date) PayPeriodSummary {
	current, next := PayPeriods(ref)
	return PayPeriodSummary{
		Reference: ref,
		Current:   SummarizePeriod(bills, current),
		Next:      SummarizePeriod(bills, next),
	}
}
