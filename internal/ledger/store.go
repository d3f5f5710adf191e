// Package ledger holds the authoritative collection of entries and
// categories and persists it through a pluggable backend.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// Persister loads and saves the whole dataset.
type Persister interface {
	Load(ctx context.Context) (core.Snapshot, error)
	Save(ctx context.Context, snap core.Snapshot) error
}

// Pinger is implemented by persisters that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for default dates and CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides entry id generation.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Store) { s.newID = gen }
}

// WithSeed sets the categories stored when the backend holds none.
// Passing nil disables seeding.
func WithSeed(categories []core.Category) Option {
	return func(s *Store) { s.seed = categories }
}

// Store is safe for concurrent use. Every mutation builds the next
// snapshot, saves it, and only then makes it visible; a failed save leaves
// the store unchanged.
type Store struct {
	mu        sync.RWMutex
	snap      core.Snapshot
	persister Persister
	revision  uint64

	now   func() time.Time
	newID func() (string, error)
	seed  []core.Category
}

// Open loads the dataset from p, rejects it when it fails integrity checks
// and seeds the default categories whenever the loaded category list is
// empty. A ledger whose categories were all removed therefore gets the
// defaults back on the next start.
func Open(ctx context.Context, p Persister, opts ...Option) (*Store, error) {
	if p == nil {
		return nil, errors.New("ledger: nil persister")
	}
	s := &Store{
		persister: p,
		now:       time.Now,
		newID:     newUUID,
		seed:      core.DefaultCategories(),
	}
	for _, opt := range opts {
		opt(s)
	}

	snap, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger data: %w", err)
	}
	if len(snap.Categories) == 0 && len(s.seed) > 0 {
		snap.Categories = append([]core.Category(nil), s.seed...)
		if err := p.Save(ctx, snap.Clone()); err != nil {
			return nil, fmt.Errorf("seed categories: %w", err)
		}
	}
	s.snap = snap.Clone()
	return s, nil
}

func newUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Add validates the input, assigns a unique id and appends the entry. It
// returns the revision the change was committed at.
func (s *Store) Add(ctx context.Context, in core.EntryInput) (core.Entry, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.buildEntry(in)
	if err != nil {
		return core.Entry{}, 0, err
	}
	id, err := s.newID()
	if err != nil {
		return core.Entry{}, 0, fmt.Errorf("generate entry id: %w", err)
	}
	if s.indexOf(id) >= 0 {
		return core.Entry{}, 0, fmt.Errorf("generate entry id: duplicate id %s", id)
	}
	e.ID = id
	e.CreatedAt = s.now().UTC()

	next := s.snap.Clone()
	next.Entries = append(next.Entries, e)
	rev, err := s.commit(ctx, next)
	if err != nil {
		return core.Entry{}, 0, err
	}
	return e, rev, nil
}

// Update replaces the editable fields of an existing entry. The id and
// creation time are preserved.
func (s *Store) Update(ctx context.Context, id string, in core.EntryInput) (core.Entry, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return core.Entry{}, 0, &core.NotFoundError{Resource: "entry", Key: id}
	}
	e, err := s.buildEntry(in)
	if err != nil {
		return core.Entry{}, 0, err
	}
	e.ID = id
	e.CreatedAt = s.snap.Entries[idx].CreatedAt

	next := s.snap.Clone()
	next.Entries[idx] = e
	rev, err := s.commit(ctx, next)
	if err != nil {
		return core.Entry{}, 0, err
	}
	return e, rev, nil
}

// Remove deletes the entry with the given id and returns it.
func (s *Store) Remove(ctx context.Context, id string) (core.Entry, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return core.Entry{}, 0, &core.NotFoundError{Resource: "entry", Key: id}
	}
	removed := s.snap.Entries[idx]

	next := s.snap.Clone()
	next.Entries = slices.Delete(next.Entries, idx, idx+1)
	rev, err := s.commit(ctx, next)
	if err != nil {
		return core.Entry{}, 0, err
	}
	return removed, rev, nil
}

// Get returns a single entry.
func (s *Store) Get(id string) (core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return core.Entry{}, &core.NotFoundError{Resource: "entry", Key: id}
	}
	return s.snap.Entries[idx], nil
}

// List returns the entries matching f, newest first. The sequence is
// restartable: every iteration scans the state current at that moment.
func (s *Store) List(f core.Filter) iter.Seq[core.Entry] {
	return func(yield func(core.Entry) bool) {
		for _, e := range s.Entries(f) {
			if !yield(e) {
				return
			}
		}
	}
}

// Entries is List collected into a slice.
func (s *Store) Entries(f core.Filter) []core.Entry {
	s.mu.RLock()
	out := make([]core.Entry, 0, len(s.snap.Entries))
	for i := len(s.snap.Entries) - 1; i >= 0; i-- {
		if e := s.snap.Entries[i]; f.Match(e) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	// Ties keep the reversed insertion order, so later additions come first.
	slices.SortStableFunc(out, func(a, b core.Entry) int {
		return b.Date.Compare(a.Date.Time)
	})
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snap.Entries)
}

// Categories returns categories of the given kind in creation order; an
// empty kind returns all of them.
func (s *Store) Categories(kind core.Kind) []core.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Category, 0, len(s.snap.Categories))
	for _, c := range s.snap.Categories {
		if kind == "" || c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Category looks up a category by name.
func (s *Store) Category(name string) (core.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.category(core.SanitizeText(name))
}

// CategoryUsage counts entries per category name.
func (s *Store) CategoryUsage() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usage := make(map[string]int, len(s.snap.Categories))
	for _, e := range s.snap.Entries {
		usage[e.Category]++
	}
	return usage
}

// AddCategory creates a category. Names are unique across both kinds.
func (s *Store) AddCategory(ctx context.Context, name string, kind core.Kind) (core.Category, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized, err := core.NormalizeCategoryName(name)
	if err != nil {
		return core.Category{}, 0, &core.ValidationError{Field: "name", Err: err}
	}
	c := core.Category{Name: normalized, Kind: kind}
	if err := c.Validate(); err != nil {
		return core.Category{}, 0, err
	}
	if _, exists := s.category(normalized); exists {
		return core.Category{}, 0, &core.ValidationError{Field: "name", Err: core.ErrDuplicateCategory}
	}

	next := s.snap.Clone()
	next.Categories = append(next.Categories, c)
	rev, err := s.commit(ctx, next)
	if err != nil {
		return core.Category{}, 0, err
	}
	return c, rev, nil
}

// RemoveCategory deletes an unused category. Removal of a category still
// referenced by an entry is rejected with ErrCategoryInUse.
func (s *Store) RemoveCategory(ctx context.Context, name string) (core.Category, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = core.SanitizeText(name)
	idx := slices.IndexFunc(s.snap.Categories, func(c core.Category) bool { return c.Name == name })
	if idx < 0 {
		return core.Category{}, 0, &core.NotFoundError{Resource: "category", Key: name}
	}
	for _, e := range s.snap.Entries {
		if e.Category == name {
			return core.Category{}, 0, &core.ValidationError{Field: "category", Err: core.ErrCategoryInUse}
		}
	}
	removed := s.snap.Categories[idx]

	next := s.snap.Clone()
	next.Categories = slices.Delete(next.Categories, idx, idx+1)
	rev, err := s.commit(ctx, next)
	if err != nil {
		return core.Category{}, 0, err
	}
	return removed, rev, nil
}

// Snapshot returns a deep copy of the current dataset.
func (s *Store) Snapshot() core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Revision increases by one on every successful mutation.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Ping reports backend health when the persister supports it.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.persister.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Store) buildEntry(in core.EntryInput) (core.Entry, error) {
	name := core.SanitizeText(in.Category)
	if name == "" {
		return core.Entry{}, &core.ValidationError{Field: "category", Err: core.ErrEmptyCategory}
	}
	cat, ok := s.category(name)
	if !ok {
		return core.Entry{}, &core.ValidationError{Field: "category", Err: core.ErrUnknownCategory}
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Entry{}, &core.ValidationError{Field: "amount", Err: err}
	}
	note, err := core.NormalizeNote(in.Note)
	if err != nil {
		return core.Entry{}, &core.ValidationError{Field: "note", Err: err}
	}
	date := in.Date
	if date.IsZero() {
		date = core.DateOf(s.now())
	}
	return core.Entry{
		Amount:   amount.WithKind(cat.Kind),
		Category: cat.Name,
		Date:     date,
		Note:     note,
	}, nil
}

func (s *Store) commit(ctx context.Context, next core.Snapshot) (uint64, error) {
	if err := s.persister.Save(ctx, next.Clone()); err != nil {
		return 0, fmt.Errorf("persist ledger: %w", err)
	}
	s.snap = next
	s.revision++
	return s.revision, nil
}

func (s *Store) category(name string) (core.Category, bool) {
	for _, c := range s.snap.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return core.Category{}, false
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.snap.Entries, func(e core.Entry) bool { return e.ID == id })
}
