// Package memory is a session-only persister. Nothing survives a restart.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fintrack/internal/core"
)

const (
	expenseSeedFile = "seed_expense_categories.txt"
	incomeSeedFile  = "seed_income_categories.txt"
)

type Store struct {
	mu   sync.Mutex
	snap core.Snapshot
}

// New returns a store holding the given categories and no entries.
func New(categories []core.Category) *Store {
	return &Store{snap: core.Snapshot{Categories: dedupe(categories)}}
}

// NewFromFiles seeds categories from the text files in base. Missing or
// empty files leave the store empty so the ledger applies its defaults.
func NewFromFiles(base string) *Store {
	var cats []core.Category
	for _, name := range readLines(filepath.Join(base, expenseSeedFile)) {
		cats = append(cats, core.Category{Name: name, Kind: core.Expense})
	}
	for _, name := range readLines(filepath.Join(base, incomeSeedFile)) {
		cats = append(cats, core.Category{Name: name, Kind: core.Income})
	}
	return New(cats)
}

func (s *Store) Load(_ context.Context) (core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone(), nil
}

func (s *Store) Save(_ context.Context, snap core.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap.Clone()
	return nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// dedupe drops invalid categories and repeated names, keeping the first
// occurrence and the input order.
func dedupe(in []core.Category) []core.Category {
	seen := map[string]struct{}{}
	out := make([]core.Category, 0, len(in))
	for _, c := range in {
		name, err := core.NormalizeCategoryName(c.Name)
		if err != nil || !c.Kind.Valid() {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, core.Category{Name: name, Kind: c.Kind})
	}
	return out
}
