package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
)

type fakePersister struct {
	mu      sync.Mutex
	snap    core.Snapshot
	saves   int
	failErr error
}

func (f *fakePersister) Load(context.Context) (core.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap.Clone(), nil
}

func (f *fakePersister) Save(_ context.Context, snap core.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.snap = snap.Clone()
	f.saves++
	return nil
}

func sequentialIDs() func() (string, error) {
	var n int
	return func() (string, error) {
		n++
		return fmt.Sprintf("id-%d", n), nil
	}
}

func openTestStore(t *testing.T, p *fakePersister) *Store {
	t.Helper()
	now := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	s, err := Open(context.Background(), p,
		WithIDGenerator(sequentialIDs()),
		WithClock(func() time.Time { now = now.Add(time.Second); return now }),
	)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestOpenSeedsDefaultCategories(t *testing.T) {
	p := &fakePersister{}
	s := openTestStore(t, p)

	if got, want := len(s.Categories("")), len(core.DefaultCategories()); got != want {
		t.Fatalf("categories = %d, want %d", got, want)
	}
	if p.saves != 1 {
		t.Fatalf("seed should be saved once, saves = %d", p.saves)
	}
	if len(s.Categories(core.Income)) != 2 {
		t.Fatalf("income categories = %v", s.Categories(core.Income))
	}
}

func TestOpenKeepsExistingCategories(t *testing.T) {
	p := &fakePersister{snap: core.Snapshot{Categories: []core.Category{{Name: "Gym", Kind: core.Expense}}}}
	s := openTestStore(t, p)

	if cats := s.Categories(""); len(cats) != 1 || cats[0].Name != "Gym" {
		t.Fatalf("categories = %v", cats)
	}
	if p.saves != 0 {
		t.Fatalf("no seed expected, saves = %d", p.saves)
	}
}

func TestOpenReseedsWhenCategoriesEmpty(t *testing.T) {
	p := &fakePersister{}
	s := openTestStore(t, p)
	ctx := context.Background()
	for _, c := range s.Categories("") {
		if _, _, err := s.RemoveCategory(ctx, c.Name); err != nil {
			t.Fatalf("remove %q: %v", c.Name, err)
		}
	}

	reopened := openTestStore(t, p)
	if got, want := len(reopened.Categories("")), len(core.DefaultCategories()); got != want {
		t.Fatalf("categories after reopen = %d, want %d", got, want)
	}
}

func TestOpenRejectsInvalidSnapshots(t *testing.T) {
	gym := core.Category{Name: "Gym", Kind: core.Expense}
	entry := func(id, category string, cents int64) core.Entry {
		return core.Entry{ID: id, Amount: core.Money{Cents: cents}, Category: category, Date: core.NewDate(2024, 1, 1)}
	}
	tests := []struct {
		name string
		snap core.Snapshot
		want string
	}{
		{
			name: "duplicate category",
			snap: core.Snapshot{Categories: []core.Category{gym, gym}},
			want: "already exists",
		},
		{
			name: "invalid kind",
			snap: core.Snapshot{Categories: []core.Category{{Name: "Gym", Kind: "transfer"}}},
			want: "kind",
		},
		{
			name: "duplicate entry id",
			snap: core.Snapshot{
				Categories: []core.Category{gym},
				Entries:    []core.Entry{entry("a", "Gym", -100), entry("a", "Gym", -200)},
			},
			want: "duplicate id",
		},
		{
			name: "unknown category",
			snap: core.Snapshot{
				Categories: []core.Category{gym},
				Entries:    []core.Entry{entry("a", "Travel", -100)},
			},
			want: "unknown category",
		},
		{
			name: "zero amount",
			snap: core.Snapshot{
				Categories: []core.Category{gym},
				Entries:    []core.Entry{entry("a", "Gym", 0)},
			},
			want: "invalid amount",
		},
		{
			name: "empty id",
			snap: core.Snapshot{
				Categories: []core.Category{gym},
				Entries:    []core.Entry{entry("", "Gym", -100)},
			},
			want: "empty id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePersister{snap: tt.snap}
			_, err := Open(context.Background(), p)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "invalid ledger data") || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want %q", err, tt.want)
			}
			if p.saves != 0 {
				t.Fatalf("invalid data must not be rewritten, saves = %d", p.saves)
			}
		})
	}
}

func TestAddScenario(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, &fakePersister{})

	if _, _, err := s.Add(ctx, core.EntryInput{Amount: "1000", Category: "Salary", Date: core.NewDate(2024, 1, 5)}); err != nil {
		t.Fatalf("add salary: %v", err)
	}
	if _, _, err := s.Add(ctx, core.EntryInput{Amount: "200", Category: "Rent / Mortgage", Date: core.NewDate(2024, 1, 10)}); err != nil {
		t.Fatalf("add rent: %v", err)
	}

	entries := s.Entries(core.Filter{})
	if got := core.Balance(entries); got.Cents != 80000 {
		t.Fatalf("balance = %d, want 80000", got.Cents)
	}
	totals := core.TotalsByCategory(entries)
	if totals["Salary"].Cents != 100000 || totals["Rent / Mortgage"].Cents != -20000 {
		t.Fatalf("totals = %v", totals)
	}
	if entries[0].Category != "Rent / Mortgage" {
		t.Fatalf("newest first expected, got %v", entries[0])
	}
	if s.Revision() != 2 {
		t.Fatalf("revision = %d, want 2", s.Revision())
	}
}

func TestAddUnknownCategoryLeavesStoreUnchanged(t *testing.T) {
	s := openTestStore(t, &fakePersister{})
	before := s.Revision()

	_, _, err := s.Add(context.Background(), core.EntryInput{Amount: "5", Category: "Nope"})
	if !errors.Is(err, core.ErrUnknownCategory) || !core.IsValidation(err) {
		t.Fatalf("expected unknown category validation error, got %v", err)
	}
	if s.Len() != 0 || s.Revision() != before {
		t.Fatalf("store changed: len=%d rev=%d", s.Len(), s.Revision())
	}
}

func TestAddValidation(t *testing.T) {
	s := openTestStore(t, &fakePersister{})
	tests := []struct {
		name  string
		in    core.EntryInput
		field string
	}{
		{"empty category", core.EntryInput{Amount: "5"}, "category"},
		{"bad amount", core.EntryInput{Amount: "abc", Category: "Salary"}, "amount"},
		{"zero amount", core.EntryInput{Amount: "0", Category: "Salary"}, "amount"},
		{"long note", core.EntryInput{Amount: "1", Category: "Salary", Note: strings.Repeat("n", 201)}, "note"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Add(context.Background(), tt.in)
			var verr *core.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Fatalf("expected validation error on %s, got %v", tt.field, err)
			}
		})
	}
	if s.Len() != 0 {
		t.Fatalf("len = %d", s.Len())
	}
}

func TestAddDefaultsDateAndSignsAmount(t *testing.T) {
	s := openTestStore(t, &fakePersister{})

	e, _, err := s.Add(context.Background(), core.EntryInput{Amount: "-12.50", Category: "Groceries"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if e.Amount.Cents != -1250 {
		t.Fatalf("expense should be negative, got %d", e.Amount.Cents)
	}
	if e.Date.String() != "2024-02-01" {
		t.Fatalf("date = %s, want today", e.Date)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("id and created_at must be set: %+v", e)
	}
}

func TestUpdateAndRemove(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, &fakePersister{})

	e, _, err := s.Add(ctx, core.EntryInput{Amount: "10", Category: "Groceries", Date: core.NewDate(2024, 1, 1)})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	updated, _, err := s.Update(ctx, e.ID, core.EntryInput{Amount: "50", Category: "Salary", Date: core.NewDate(2024, 1, 2), Note: "bonus"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != e.ID || !updated.CreatedAt.Equal(e.CreatedAt) || updated.Amount.Cents != 5000 {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if got, _ := s.Get(e.ID); got.Note != "bonus" {
		t.Fatalf("get after update = %+v", got)
	}

	if _, _, err := s.Remove(ctx, e.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("len = %d after remove", s.Len())
	}
	if _, _, err := s.Remove(ctx, e.ID); !core.IsNotFound(err) {
		t.Fatalf("second remove should be not found, got %v", err)
	}
	if _, _, err := s.Update(ctx, "missing", core.EntryInput{Amount: "1", Category: "Salary"}); !core.IsNotFound(err) {
		t.Fatalf("update missing should be not found, got %v", err)
	}
}

func TestFailedSaveLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	p := &fakePersister{}
	s := openTestStore(t, p)
	e, _, err := s.Add(ctx, core.EntryInput{Amount: "10", Category: "Groceries"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	rev := s.Revision()

	p.failErr = errors.New("disk full")
	if _, _, err := s.Add(ctx, core.EntryInput{Amount: "5", Category: "Groceries"}); err == nil {
		t.Fatal("expected error from failing persister")
	}
	if _, _, err := s.Remove(ctx, e.ID); err == nil {
		t.Fatal("expected error from failing persister")
	}
	if _, _, err := s.AddCategory(ctx, "Gym", core.Expense); err == nil {
		t.Fatal("expected error from failing persister")
	}
	if s.Len() != 1 || s.Revision() != rev {
		t.Fatalf("state changed: len=%d rev=%d", s.Len(), s.Revision())
	}
	if _, ok := s.Category("Gym"); ok {
		t.Fatal("category must not exist after failed save")
	}
}

func TestCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, &fakePersister{})

	c, _, err := s.AddCategory(ctx, "  Gym ", core.Expense)
	if err != nil || c.Name != "Gym" {
		t.Fatalf("add category: %+v, %v", c, err)
	}
	if _, _, err := s.AddCategory(ctx, "Gym", core.Income); !errors.Is(err, core.ErrDuplicateCategory) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if _, _, err := s.AddCategory(ctx, "Gifts", "transfer"); !errors.Is(err, core.ErrInvalidKind) {
		t.Fatalf("expected invalid kind, got %v", err)
	}

	e, _, err := s.Add(ctx, core.EntryInput{Amount: "30", Category: "Gym"})
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}
	if _, _, err := s.RemoveCategory(ctx, "Gym"); !errors.Is(err, core.ErrCategoryInUse) {
		t.Fatalf("expected in-use error, got %v", err)
	}
	if s.CategoryUsage()["Gym"] != 1 {
		t.Fatalf("usage = %v", s.CategoryUsage())
	}

	if _, _, err := s.Remove(ctx, e.ID); err != nil {
		t.Fatalf("remove entry: %v", err)
	}
	if _, _, err := s.RemoveCategory(ctx, "Gym"); err != nil {
		t.Fatalf("remove category: %v", err)
	}
	if _, _, err := s.RemoveCategory(ctx, "Gym"); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListIsRestartableAndFiltered(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, &fakePersister{})
	for _, in := range []core.EntryInput{
		{Amount: "1", Category: "Groceries", Date: core.NewDate(2024, 1, 3)},
		{Amount: "2", Category: "Salary", Date: core.NewDate(2024, 1, 1)},
		{Amount: "3", Category: "Groceries", Date: core.NewDate(2024, 1, 2)},
	} {
		if _, _, err := s.Add(ctx, in); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	seq := s.List(core.Filter{Kind: core.Expense})
	collect := func() []string {
		var dates []string
		for e := range seq {
			dates = append(dates, e.Date.String())
		}
		return dates
	}
	if dates := collect(); len(dates) != 2 || dates[0] != "2024-01-03" || dates[1] != "2024-01-02" {
		t.Fatalf("first round: dates = %v", dates)
	}

	if _, _, err := s.Add(ctx, core.EntryInput{Amount: "4", Category: "Groceries", Date: core.NewDate(2024, 1, 4)}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if dates := collect(); len(dates) != 3 || dates[0] != "2024-01-04" {
		t.Fatalf("second round should see the new entry, dates = %v", dates)
	}

	var first core.Entry
	for e := range s.List(core.Filter{}) {
		first = e
		break
	}
	if first.Date.String() != "2024-01-04" {
		t.Fatalf("early break got %+v", first)
	}
}

func TestMutationsReturnCommittedRevision(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, &fakePersister{})
	start := s.Revision()

	c, rev, err := s.AddCategory(ctx, "Gym", core.Expense)
	if err != nil || rev != start+1 {
		t.Fatalf("AddCategory rev = %d, err = %v, want %d", rev, err, start+1)
	}
	e, rev, err := s.Add(ctx, core.EntryInput{Amount: "9", Category: c.Name})
	if err != nil || rev != start+2 {
		t.Fatalf("Add rev = %d, err = %v", rev, err)
	}
	if _, rev, err = s.Update(ctx, e.ID, core.EntryInput{Amount: "10", Category: c.Name}); err != nil || rev != start+3 {
		t.Fatalf("Update rev = %d, err = %v", rev, err)
	}
	if _, rev, err = s.Remove(ctx, e.ID); err != nil || rev != start+4 {
		t.Fatalf("Remove rev = %d, err = %v", rev, err)
	}
	if _, rev, err = s.RemoveCategory(ctx, c.Name); err != nil || rev != start+5 {
		t.Fatalf("RemoveCategory rev = %d, err = %v", rev, err)
	}
	if _, rev, err = s.Add(ctx, core.EntryInput{Amount: "1", Category: "Unknown"}); err == nil || rev != 0 {
		t.Fatalf("failed Add rev = %d, err = %v", rev, err)
	}
	if s.Revision() != start+5 {
		t.Fatalf("Revision = %d, want %d", s.Revision(), start+5)
	}
}

func TestPersistedSnapshotReopens(t *testing.T) {
	ctx := context.Background()
	p := &fakePersister{}
	s := openTestStore(t, p)
	if _, _, err := s.Add(ctx, core.EntryInput{Amount: "7.25", Category: "Transport", Note: "bus"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	reopened := openTestStore(t, p)
	entries := reopened.Entries(core.Filter{})
	if len(entries) != 1 || entries[0].Amount.Cents != -725 || entries[0].Note != "bus" {
		t.Fatalf("reopened entries = %+v", entries)
	}
}
