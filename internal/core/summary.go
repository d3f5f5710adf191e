package core

import (
	"sort"
	"strings"
	"time"
)

const (
	Daily   Granularity = "day"
	Monthly Granularity = "month"
	Yearly  Granularity = "year"
)

// Granularity is the bucket size used by TotalsByPeriod.
type Granularity string

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// PeriodTotal is the signed sum of the entries dated within one period.
type PeriodTotal struct {
	Start Date
	Label string
	Total Money
}

// Summary holds the headline statistics of an entry set.
type Summary struct {
	Income  Money // sum of positive amounts
	Expense Money // magnitude of negative amounts
	Balance Money
	Count   int
}

// ParseGranularity accepts day, month or year; empty defaults to month.
func ParseGranularity(s string) (Granularity, bool) {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case Daily:
		return Daily, true
	case Monthly, "":
		return Monthly, true
	case Yearly:
		return Yearly, true
	}
	return Monthly, false
}

// PeriodStart returns the first day of the period containing d.
func (g Granularity) PeriodStart(d Date) Date {
	switch g {
	case Daily:
		return DateOf(d.Time)
	case Yearly:
		return NewDate(d.Year(), 1, 1)
	default:
		return NewDate(d.Year(), int(d.Month()), 1)
	}
}

// Label formats a period start for display.
func (g Granularity) Label(start Date) string {
	switch g {
	case Daily:
		return start.Format("2006-01-02")
	case Yearly:
		return start.Format("2006")
	default:
		return start.Format("2006-01")
	}
}

// TotalsByCategory sums amounts per category in a single pass.
func TotalsByCategory(entries []Entry) map[string]Money {
	totals := make(map[string]Money)
	for _, e := range entries {
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}
	return totals
}

// TotalsByPeriod groups entries by period and returns the totals in
// chronological order.
func TotalsByPeriod(entries []Entry, g Granularity) []PeriodTotal {
	byStart := make(map[time.Time]Money)
	for _, e := range entries {
		start := g.PeriodStart(e.Date)
		byStart[start.Time] = byStart[start.Time].Add(e.Amount)
	}
	out := make([]PeriodTotal, 0, len(byStart))
	for t, total := range byStart {
		start := Date{Time: t}
		out = append(out, PeriodTotal{Start: start, Label: g.Label(start), Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Balance is the sum of all amounts: income positive, expense negative.
func Balance(entries []Entry) Money {
	var total Money
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

// Summarize computes income, expense and balance totals.
func Summarize(entries []Entry) Summary {
	var s Summary
	for _, e := range entries {
		if e.Amount.Cents > 0 {
			s.Income = s.Income.Add(e.Amount)
		} else {
			s.Expense = s.Expense.Add(e.Amount.Abs())
		}
	}
	s.Balance = Money{Cents: s.Income.Cents - s.Expense.Cents}
	s.Count = len(entries)
	return s
}

// SpendingByCategory sums expense magnitudes per category, largest first.
func SpendingByCategory(entries []Entry) []CategoryAmount {
	totals := make(map[string]Money)
	for _, e := range entries {
		if e.Amount.Cents < 0 {
			totals[e.Category] = totals[e.Category].Add(e.Amount.Abs())
		}
	}
	return SortedTotals(totals)
}

// SortedTotals orders a totals map by magnitude descending, then by name.
func SortedTotals(totals map[string]Money) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].Amount.Abs().Cents, out[j].Amount.Abs().Cents
		if ai != aj {
			return ai > aj
		}
		return out[i].Name < out[j].Name
	})
	return out
}
