// Package storage holds the durable persisters: a SQLite database and a
// single JSON file.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between the save transaction and reads.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load reads every category and entry in insertion order.
func (r *SQLiteRepository) Load(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot

	rows, err := r.db.QueryContext(ctx, `SELECT name, kind FROM categories ORDER BY position`)
	if err != nil {
		return snap, fmt.Errorf("query categories: %w", err)
	}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.Name, &c.Kind); err != nil {
			rows.Close()
			return snap, fmt.Errorf("scan category: %w", err)
		}
		snap.Categories = append(snap.Categories, c)
	}
	if err := rows.Close(); err != nil {
		return snap, fmt.Errorf("close category rows: %w", err)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate categories: %w", err)
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT id, amount_cents, category, date, note, created_at FROM entries ORDER BY seq`)
	if err != nil {
		return snap, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			e               core.Entry
			date, createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Amount.Cents, &e.Category, &date, &e.Note, &createdAt); err != nil {
			return snap, fmt.Errorf("scan entry: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return snap, fmt.Errorf("entry %s: date %q: %w", e.ID, date, err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return snap, fmt.Errorf("entry %s: created_at %q: %w", e.ID, createdAt, err)
		}
		snap.Entries = append(snap.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate entries: %w", err)
	}
	return snap, nil
}

// Save replaces the stored dataset in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, snap core.Snapshot) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}

	catStmt, err := tx.PrepareContext(ctx, `INSERT INTO categories (position, name, kind) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare category insert: %w", err)
	}
	defer catStmt.Close()
	for i, c := range snap.Categories {
		if _, err = catStmt.ExecContext(ctx, i+1, c.Name, string(c.Kind)); err != nil {
			return fmt.Errorf("insert category %q: %w", c.Name, err)
		}
	}

	entryStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (seq, id, amount_cents, category, date, note, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare entry insert: %w", err)
	}
	defer entryStmt.Close()
	for i, e := range snap.Entries {
		if _, err = entryStmt.ExecContext(ctx, i+1, e.ID, e.Amount.Cents, e.Category,
			e.Date.String(), e.Note, e.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.DebugContext(ctx, "Ledger saved to SQLite",
		"categories", len(snap.Categories),
		"entries", len(snap.Entries))
	return nil
}
