package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"fintrack/internal/config"
	"fintrack/internal/core"
)

func quietFactory() Factory {
	return NewFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "file", DataFile: "x.json", DataDir: "d"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != FileBackend || cfg.DataFile != "x.json" || cfg.DataDirectory != "d" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"file without path", Config{Type: FileBackend}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sheets without id", Config{Type: SheetsBackend}, true},
		{"unknown", Config{Type: "redis"}, true},
	}
	for _, tt := range tests {
		if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
	if len(GetBackendTypes()) != 4 {
		t.Errorf("expected 4 backend types")
	}
}

func TestCreateBackend(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	tests := []struct {
		cfg         Config
		wantType    string
		wantCleanup bool
	}{
		{Config{Type: MemoryBackend, DataDirectory: dir}, "*memory.Store", false},
		{Config{Type: FileBackend, DataFile: filepath.Join(dir, "ledger.json")}, "*storage.FileStore", false},
		{Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "ledger.db")}, "*storage.SQLiteRepository", true},
	}
	for _, tt := range tests {
		t.Run(tt.cfg.Type.String(), func(t *testing.T) {
			res, err := quietFactory().CreateBackend(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer res.Close()

			if got := fmt.Sprintf("%T", res.Persister); got != tt.wantType {
				t.Fatalf("persister type = %s, want %s", got, tt.wantType)
			}
			if (res.Cleanup != nil) != tt.wantCleanup {
				t.Errorf("cleanup present = %v, want %v", res.Cleanup != nil, tt.wantCleanup)
			}

			snap := core.Snapshot{Categories: []core.Category{{Name: "Rent", Kind: core.Expense}}}
			if err := res.Persister.Save(ctx, snap); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := res.Persister.Load(ctx)
			if err != nil || len(got.Categories) != 1 {
				t.Fatalf("load = %+v, %v", got, err)
			}
		})
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	if _, err := quietFactory().CreateBackend(context.Background(), Config{Type: SQLiteBackend}); err == nil {
		t.Fatal("expected validation error")
	}
}
