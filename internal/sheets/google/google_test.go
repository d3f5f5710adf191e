package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets emulates the handful of Sheets REST calls the client makes.
type fakeSheets struct {
	mu     sync.Mutex
	id     string
	tabs   map[string][][]any
	failOn string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	base := "/v4/spreadsheets/" + f.id
	path := r.URL.Path
	body, _ := io.ReadAll(r.Body)
	if f.failOn != "" && (strings.Contains(path, f.failOn) || strings.Contains(string(body), f.failOn)) {
		http.Error(w, `{"error":{"code":400,"message":"boom"}}`, http.StatusBadRequest)
		return
	}

	switch {
	case path == base+"/values:batchUpdate":
		var req gsheet.BatchUpdateValuesRequest
		_ = json.Unmarshal(body, &req)
		for _, vr := range req.Data {
			tab := sheetOf(vr.Range)
			rows := f.tabs[tab]
			for i, row := range vr.Values {
				if i < len(rows) {
					rows[i] = row
				} else {
					rows = append(rows, row)
				}
			}
			f.tabs[tab] = rows
		}
		writeJSON(w, map[string]any{"spreadsheetId": f.id})
	case path == base+"/values:batchClear":
		var req gsheet.BatchClearValuesRequest
		_ = json.Unmarshal(body, &req)
		for _, rng := range req.Ranges {
			tab := sheetOf(rng)
			if from := firstRow(rng); from > 0 && from <= len(f.tabs[tab]) {
				f.tabs[tab] = f.tabs[tab][:from-1]
			}
		}
		writeJSON(w, map[string]any{"spreadsheetId": f.id})
	case path == base && r.Method == http.MethodGet:
		var sheets []map[string]any
		for title := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title}})
		}
		writeJSON(w, map[string]any{"spreadsheetId": f.id, "sheets": sheets})
	case path == base+":batchUpdate":
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.Unmarshal(body, &req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.tabs[rq.AddSheet.Properties.Title] = nil
			}
		}
		writeJSON(w, map[string]any{"spreadsheetId": f.id})
	case strings.HasPrefix(path, base+"/values/"):
		rng := strings.TrimPrefix(path, base+"/values/")
		if strings.HasSuffix(rng, ":clear") {
			f.tabs[sheetOf(strings.TrimSuffix(rng, ":clear"))] = nil
			writeJSON(w, map[string]any{"spreadsheetId": f.id})
			return
		}
		tab := sheetOf(rng)
		if r.Method == http.MethodPut {
			var vr struct {
				Values [][]any `json:"values"`
			}
			_ = json.Unmarshal(body, &vr)
			f.tabs[tab] = vr.Values
			writeJSON(w, map[string]any{"spreadsheetId": f.id})
			return
		}
		writeJSON(w, map[string]any{"range": rng, "values": f.tabs[tab]})
	default:
		http.NotFound(w, r)
	}
}

func sheetOf(rng string) string {
	name, _, _ := strings.Cut(rng, "!")
	return name
}

// firstRow returns the starting row of a range such as "Entries!A3:F".
func firstRow(rng string) int {
	_, cells, _ := strings.Cut(rng, "!")
	start, _, _ := strings.Cut(cells, ":")
	n, _ := strconv.Atoi(strings.TrimLeft(start, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return newWithService(svc, Config{SpreadsheetID: fake.id})
}

func TestClientEnsureTabsAndRoundTrip(t *testing.T) {
	fake := &fakeSheets{id: "sheet-1", tabs: map[string][][]any{"Sheet1": nil}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	if err := c.EnsureTabs(ctx); err != nil {
		t.Fatalf("ensure tabs: %v", err)
	}
	fake.mu.Lock()
	_, created := fake.tabs[DefaultEntriesSheet]
	fake.mu.Unlock()
	if !created {
		t.Fatalf("entries tab not created: %v", fake.tabs)
	}

	empty, err := c.Load(ctx)
	if err != nil || !empty.Empty() {
		t.Fatalf("expected empty load, got %+v, %v", empty, err)
	}

	want := core.Snapshot{
		Categories: []core.Category{{Name: "Rent", Kind: core.Expense}, {Name: "Salary", Kind: core.Income}},
		Entries: []core.Entry{
			{ID: "1", Amount: core.Money{Cents: 100000}, Category: "Salary", Date: core.NewDate(2024, 1, 5), CreatedAt: time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)},
			{ID: "2", Amount: core.Money{Cents: -20000}, Category: "Rent", Date: core.NewDate(2024, 1, 10), Note: "flat", CreatedAt: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)},
		},
	}
	if err := c.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Categories) != 2 || got.Categories[1] != want.Categories[1] {
		t.Fatalf("categories = %+v", got.Categories)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("entries = %+v", got.Entries)
	}
	for i, w := range want.Entries {
		g := got.Entries[i]
		if g.ID != w.ID || g.Amount != w.Amount || g.Note != w.Note || !g.Date.Equal(w.Date.Time) || !g.CreatedAt.Equal(w.CreatedAt) {
			t.Errorf("entry %d = %+v, want %+v", i, g, w)
		}
	}
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestClientFailedWriteKeepsPreviousData(t *testing.T) {
	fake := &fakeSheets{id: "sheet-2", tabs: map[string][][]any{}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	first := core.Snapshot{
		Categories: []core.Category{{Name: "Salary", Kind: core.Income}},
		Entries:    []core.Entry{{ID: "1", Amount: core.Money{Cents: 5000}, Category: "Salary", Date: core.NewDate(2024, 2, 1), CreatedAt: time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)}},
	}
	if err := c.Save(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	second := first.Clone()
	second.Categories = append(second.Categories, core.Category{Name: "Gym", Kind: core.Expense})
	fake.mu.Lock()
	fake.failOn = DefaultEntriesSheet + "!A1"
	fake.mu.Unlock()
	if err := c.Save(ctx, second); err == nil {
		t.Fatal("expected save to fail")
	}

	fake.mu.Lock()
	fake.failOn = ""
	fake.mu.Unlock()
	got, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Categories) != 1 || len(got.Entries) != 1 {
		t.Fatalf("failed save must leave previous data, got %d categories and %d entries", len(got.Categories), len(got.Entries))
	}
}

func TestClientSaveTrimsRemovedRows(t *testing.T) {
	fake := &fakeSheets{id: "sheet-3", tabs: map[string][][]any{}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	snap := core.Snapshot{
		Categories: []core.Category{{Name: "Rent", Kind: core.Expense}},
		Entries: []core.Entry{
			{ID: "1", Amount: core.Money{Cents: -100}, Category: "Rent", Date: core.NewDate(2024, 3, 1), CreatedAt: at},
			{ID: "2", Amount: core.Money{Cents: -200}, Category: "Rent", Date: core.NewDate(2024, 3, 2), CreatedAt: at},
		},
	}
	if err := c.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap.Entries = snap.Entries[1:]
	if err := c.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Entries) != 1 || got.Entries[0].ID != "2" {
		t.Fatalf("entries = %+v, want only id 2", got.Entries)
	}
}

func TestClientSaveSurfacesTrimErrors(t *testing.T) {
	fake := &fakeSheets{id: "sheet-4", tabs: map[string][][]any{}, failOn: "values:batchClear"}
	c := newTestClient(t, fake)

	err := c.Save(context.Background(), core.Snapshot{})
	if err == nil || !strings.Contains(err.Error(), "trim stale rows") {
		t.Fatalf("expected trim error, got %v", err)
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewSheetsServiceMissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := newSheetsService(context.Background(), "", "")
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}
