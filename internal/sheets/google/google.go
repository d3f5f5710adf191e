// Package google persists the ledger to a Google Sheets spreadsheet with
// one tab for entries and one for categories.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"fintrack/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultEntriesSheet    = "Entries"
	DefaultCategoriesSheet = "Categories"
)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID      string
	EntriesSheet       string
	CategoriesSheet    string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc             *gsheet.Service
	spreadsheetID   string
	entriesSheet    string
	categoriesSheet string
}

// New creates a Sheets client authenticated with a service account and
// makes sure both tabs exist.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg.ServiceAccountJSON, cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	c := newWithService(svc, cfg)
	if err := c.EnsureTabs(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func newWithService(svc *gsheet.Service, cfg Config) *Client {
	entries := strings.TrimSpace(cfg.EntriesSheet)
	if entries == "" {
		entries = DefaultEntriesSheet
	}
	cats := strings.TrimSpace(cfg.CategoriesSheet)
	if cats == "" {
		cats = DefaultCategoriesSheet
	}
	return &Client{
		svc:             svc,
		spreadsheetID:   strings.TrimSpace(cfg.SpreadsheetID),
		entriesSheet:    entries,
		categoriesSheet: cats,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Inline JSON wins over a file; GOOGLE_APPLICATION_CREDENTIALS is the last fallback.
func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// EnsureTabs adds the entries and categories tabs when missing.
func (c *Client) EnsureTabs(ctx context.Context) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	existing := map[string]bool{}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			existing[sh.Properties.Title] = true
		}
	}
	var reqs []*gsheet.Request
	for _, title := range []string{c.entriesSheet, c.categoriesSheet} {
		if existing[title] {
			continue
		}
		reqs = append(reqs, &gsheet.Request{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		})
	}
	if len(reqs) == 0 {
		return nil
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("create sheet tabs: %w", err)
	}
	slog.InfoContext(ctx, "Created missing sheet tabs", "count", len(reqs))
	return nil
}

// Load reads both tabs. Rows that cannot be parsed fail the load rather
// than silently dropping data.
func (c *Client) Load(ctx context.Context) (core.Snapshot, error) {
	catRows, err := c.readRange(ctx, c.categoriesSheet, categoryColumns)
	if err != nil {
		return core.Snapshot{}, err
	}
	cats, err := parseCategoryRows(catRows)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("parse %s: %w", c.categoriesSheet, err)
	}
	entryRows, err := c.readRange(ctx, c.entriesSheet, entryColumns)
	if err != nil {
		return core.Snapshot{}, err
	}
	entries, err := parseEntryRows(entryRows)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("parse %s: %w", c.entriesSheet, err)
	}
	return core.Snapshot{Categories: cats, Entries: entries}, nil
}

// Save overwrites both tabs from A1 in a single values batch, then clears
// whatever rows the previous snapshot left below the new data. A failed
// batch leaves the previous data in place; a failed trim leaves a superset.
func (c *Client) Save(ctx context.Context, snap core.Snapshot) error {
	catRows := formatCategoryRows(snap.Categories)
	entryRows := formatEntryRows(snap.Entries)

	req := &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*gsheet.ValueRange{
			{Range: c.categoriesSheet + "!A1", Values: catRows},
			{Range: c.entriesSheet + "!A1", Values: entryRows},
		},
	}
	if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s and %s: %w", c.categoriesSheet, c.entriesSheet, err)
	}

	trim := &gsheet.BatchClearValuesRequest{Ranges: []string{
		tailRange(c.categoriesSheet, categoryColumns, len(catRows)),
		tailRange(c.entriesSheet, entryColumns, len(entryRows)),
	}}
	if _, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, trim).Context(ctx).Do(); err != nil {
		return fmt.Errorf("trim stale rows: %w", err)
	}

	slog.DebugContext(ctx, "Ledger saved to Google Sheets",
		"spreadsheet_id", c.spreadsheetID,
		"categories", len(snap.Categories),
		"entries", len(snap.Entries))
	return nil
}

// tailRange addresses every row of cols after the first n, e.g. Entries!A4:F.
func tailRange(sheet, cols string, n int) string {
	first, last, _ := strings.Cut(cols, ":")
	return fmt.Sprintf("%s!%s%d:%s", sheet, first, n+1, last)
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	return err
}

func (c *Client) readRange(ctx context.Context, sheet, cols string) ([][]any, error) {
	rng := fmt.Sprintf("%s!%s", sheet, cols)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}
