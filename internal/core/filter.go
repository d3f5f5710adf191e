package core

// Filter narrows a listing. Zero values mean "any".
type Filter struct {
	From     Date // inclusive
	To       Date // inclusive
	Category string
	Kind     Kind
}

// Match reports whether e passes every set criterion.
func (f Filter) Match(e Entry) bool {
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To) {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Kind != "" && e.Kind() != f.Kind {
		return false
	}
	return true
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Key is a stable textual form of the filter, usable as a cache key.
func (f Filter) Key() string {
	return f.From.String() + "|" + f.To.String() + "|" + f.Category + "|" + string(f.Kind)
}
