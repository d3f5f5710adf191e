package http

import (
	"net/url"
	"strings"

	"fintrack/internal/core"
)

// statsQuery is a parsed /ui/stats request.
type statsQuery struct {
	Filter      core.Filter
	Granularity core.Granularity
}

// ParseFilter reads from, to, category and kind. Empty values and "all"
// leave a criterion unset.
func ParseFilter(q url.Values) (core.Filter, error) {
	var f core.Filter
	var err error

	if f.From, err = parseOptionalDate(q.Get("from"), "from"); err != nil {
		return core.Filter{}, err
	}
	if f.To, err = parseOptionalDate(q.Get("to"), "to"); err != nil {
		return core.Filter{}, err
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return core.Filter{}, &core.ValidationError{Field: "to", Err: core.ErrInvalidDate}
	}

	if c := core.SanitizeText(q.Get("category")); !isAll(c) {
		f.Category = c
	}
	if k := strings.TrimSpace(q.Get("kind")); !isAll(k) {
		kind, err := core.ParseKind(k)
		if err != nil {
			return core.Filter{}, &core.ValidationError{Field: "kind", Err: err}
		}
		f.Kind = kind
	}
	return f, nil
}

// ParseStatsQuery extends ParseFilter with the granularity of the period chart.
func ParseStatsQuery(q url.Values) (statsQuery, error) {
	f, err := ParseFilter(q)
	if err != nil {
		return statsQuery{}, err
	}
	g, ok := core.ParseGranularity(q.Get("granularity"))
	if !ok {
		return statsQuery{}, &core.ValidationError{Field: "granularity", Err: errInvalidGranularity}
	}
	return statsQuery{Filter: f, Granularity: g}, nil
}

// ParseEntryForm maps the add/edit form onto an EntryInput. An empty date is
// left zero so the store applies today.
func ParseEntryForm(form url.Values) (core.EntryInput, error) {
	date, err := parseOptionalDate(form.Get("date"), "date")
	if err != nil {
		return core.EntryInput{}, err
	}
	return core.EntryInput{
		Amount:   strings.TrimSpace(form.Get("amount")),
		Category: core.SanitizeText(form.Get("category")),
		Date:     date,
		Note:     form.Get("note"),
	}, nil
}

// ParseCategoryForm reads name and kind of a new category.
func ParseCategoryForm(form url.Values) (string, core.Kind, error) {
	kind, err := core.ParseKind(form.Get("kind"))
	if err != nil {
		return "", "", &core.ValidationError{Field: "kind", Err: err}
	}
	return form.Get("name"), kind, nil
}

func parseOptionalDate(s, field string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: field, Err: err}
	}
	return d, nil
}

func isAll(s string) bool {
	return s == "" || strings.EqualFold(s, "all")
}
