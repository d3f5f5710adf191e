package http

import (
	"net/url"

	"fintrack/internal/core"
)

type filterView struct {
	From, To, Category, Kind string
	Granularity              string
}

type entryRow struct {
	ID        string
	Date      string
	Category  string
	Note      string
	Amount    string // signed, formatted
	Magnitude string // unsigned plain number for the edit form
	Kind      string
	Income    bool
}

type entriesView struct {
	Rows       []entryRow
	Count      int
	Total      string
	Filter     filterView
}

type entryEditView struct {
	Row        entryRow
	Categories []core.Category
}

type bar struct {
	Label    string
	Amount   string
	Width    int
	Negative bool
}

type statsView struct {
	Income          string
	Expense         string
	Balance         string
	BalanceNegative bool
	Count           int
	Spending        []bar
	Periods         []bar
	HasPie          bool
	IncomePct       int
	ExpensePct      int
	Filter          filterView
}

type categoryRow struct {
	Name    string
	Escaped string
	Kind    string
	Uses    int
}

type categoriesView struct {
	Expense []categoryRow
	Income  []categoryRow
	// OOB also refreshes the add-entry category select out of band.
	OOB bool
}

type indexView struct {
	Today      string
	Currency   string
	Entries    entriesView
	Stats      statsView
	Categories categoriesView
}

func newFilterView(f core.Filter, g core.Granularity) filterView {
	return filterView{
		From:        f.From.String(),
		To:          f.To.String(),
		Category:    f.Category,
		Kind:        string(f.Kind),
		Granularity: string(g),
	}
}

func (s *Server) buildEntriesView(f core.Filter) entriesView {
	entries := s.ledger.Entries(f)
	v := entriesView{
		Rows:       make([]entryRow, 0, len(entries)),
		Count:      len(entries),
		Total:      s.money.Format(core.Balance(entries)),
		Filter:     newFilterView(f, ""),
	}
	for _, e := range entries {
		v.Rows = append(v.Rows, s.newEntryRow(e))
	}
	return v
}

func (s *Server) newEntryRow(e core.Entry) entryRow {
	return entryRow{
		ID:        e.ID,
		Date:      e.Date.String(),
		Category:  e.Category,
		Note:      e.Note,
		Amount:    s.money.Format(e.Amount),
		Magnitude: e.Amount.Abs().String(),
		Kind:      string(e.Kind()),
		Income:    e.IsIncome(),
	}
}

// buildStatsView computes the dashboard statistics for one query.
func (s *Server) buildStatsView(q statsQuery) statsView {
	entries := s.ledger.Entries(q.Filter)
	sum := core.Summarize(entries)

	v := statsView{
		Income:          s.money.Format(sum.Income),
		Expense:         s.money.Format(sum.Expense),
		Balance:         s.money.Format(sum.Balance),
		BalanceNegative: sum.Balance.Cents < 0,
		Count:           sum.Count,
		Filter:          newFilterView(q.Filter, q.Granularity),
	}

	spending := core.SpendingByCategory(entries)
	var maxSpend int64
	if len(spending) > 0 {
		maxSpend = spending[0].Amount.Cents
	}
	for _, c := range spending {
		v.Spending = append(v.Spending, bar{
			Label:  c.Name,
			Amount: s.money.Format(c.Amount),
			Width:  percentOf(c.Amount.Cents, maxSpend),
		})
	}

	if flow := sum.Income.Cents + sum.Expense.Cents; flow > 0 {
		v.HasPie = true
		v.IncomePct = int((sum.Income.Cents*100 + flow/2) / flow)
		v.ExpensePct = 100 - v.IncomePct
	}

	periods := core.TotalsByPeriod(entries, q.Granularity)
	var maxPeriod int64
	for _, p := range periods {
		maxPeriod = max(maxPeriod, p.Total.Abs().Cents)
	}
	for _, p := range periods {
		v.Periods = append(v.Periods, bar{
			Label:    p.Label,
			Amount:   s.money.Format(p.Total),
			Width:    percentOf(p.Total.Cents, maxPeriod),
			Negative: p.Total.Cents < 0,
		})
	}
	return v
}

func (s *Server) buildCategoriesView() categoriesView {
	usage := s.ledger.CategoryUsage()
	var v categoriesView
	for _, c := range s.ledger.Categories("") {
		row := categoryRow{
			Name:    c.Name,
			Escaped: url.PathEscape(c.Name),
			Kind:    string(c.Kind),
			Uses:    usage[c.Name],
		}
		if c.Kind == core.Income {
			v.Income = append(v.Income, row)
		} else {
			v.Expense = append(v.Expense, row)
		}
	}
	return v
}
