package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	maxNoteLength         = 200
	maxCategoryNameLength = 50
	dateLayout            = "2006-01-02"
)

type (
	// Kind tells whether a category collects income or expenses.
	Kind string

	Date struct {
		time.Time
	}

	// Money is a signed amount in cents.
	Money struct {
		Cents int64
	}

	Category struct {
		Name string `json:"name"`
		Kind Kind   `json:"kind"`
	}

	// Entry is a single recorded income or expense transaction.
	Entry struct {
		ID        string    `json:"id"`
		Amount    Money     `json:"amount_cents"`
		Category  string    `json:"category"`
		Date      Date      `json:"date"`
		Note      string    `json:"note,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}

	// EntryInput carries user supplied values for creating or editing an entry.
	// Amount is the raw text so parsing failures surface as validation errors.
	EntryInput struct {
		Amount   string
		Category string
		Date     Date
		Note     string
	}

	// Snapshot is the whole dataset, the unit of load and save.
	Snapshot struct {
		Categories []Category `json:"categories"`
		Entries    []Entry    `json:"entries"`
	}
)

// ParseKind accepts "income"/"expense" in any case.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", ErrInvalidKind
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

// Label returns the capitalised kind for display.
func (k Kind) Label() string {
	switch k {
	case Income:
		return "Income"
	case Expense:
		return "Expense"
	}
	return string(k)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time of day and location of t.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON overrides the promoted time.Time encoding with YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	return d.UnmarshalText([]byte(s))
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

// NormalizeCategoryName trims the name and validates its length.
func NormalizeCategoryName(name string) (string, error) {
	name = SanitizeText(name)
	if name == "" {
		return "", ErrEmptyCategory
	}
	if len([]rune(name)) > maxCategoryNameLength {
		return "", ErrCategoryNameTooLong
	}
	return name, nil
}

func (c Category) Validate() error {
	if _, err := NormalizeCategoryName(c.Name); err != nil {
		return &ValidationError{Field: "name", Err: err}
	}
	if !c.Kind.Valid() {
		return &ValidationError{Field: "kind", Err: ErrInvalidKind}
	}
	return nil
}

// IsIncome reports whether the entry adds to the balance.
func (e Entry) IsIncome() bool {
	return e.Amount.Cents > 0
}

// Kind derives the entry kind from the amount sign.
func (e Entry) Kind() Kind {
	if e.IsIncome() {
		return Income
	}
	return Expense
}

// SanitizeText trims whitespace and drops control characters other than tab and newlines.
func SanitizeText(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// NormalizeNote sanitizes a note and enforces the length limit.
func NormalizeNote(note string) (string, error) {
	note = SanitizeText(note)
	if len([]rune(note)) > maxNoteLength {
		return "", ErrNoteTooLong
	}
	return note, nil
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Categories: append([]Category(nil), s.Categories...),
		Entries:    append([]Entry(nil), s.Entries...),
	}
}

// Empty reports whether the snapshot holds neither categories nor entries.
func (s Snapshot) Empty() bool {
	return len(s.Categories) == 0 && len(s.Entries) == 0
}

// Validate checks the integrity of a loaded snapshot: category names are
// valid and unique, entry ids are unique, amounts are non-zero and every
// entry references a known category.
func (s Snapshot) Validate() error {
	names := make(map[string]struct{}, len(s.Categories))
	for _, c := range s.Categories {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("category %q: %w", c.Name, err)
		}
		if _, dup := names[c.Name]; dup {
			return fmt.Errorf("category %q: %w", c.Name, ErrDuplicateCategory)
		}
		names[c.Name] = struct{}{}
	}
	ids := make(map[string]struct{}, len(s.Entries))
	for _, e := range s.Entries {
		if e.ID == "" {
			return errors.New("entry with empty id")
		}
		if _, dup := ids[e.ID]; dup {
			return fmt.Errorf("entry %q: duplicate id", e.ID)
		}
		ids[e.ID] = struct{}{}
		if e.Amount.Cents == 0 {
			return fmt.Errorf("entry %q: %w", e.ID, ErrInvalidAmount)
		}
		if _, ok := names[e.Category]; !ok {
			return fmt.Errorf("entry %q: %w %q", e.ID, ErrUnknownCategory, e.Category)
		}
	}
	return nil
}
