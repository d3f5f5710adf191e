package google

import (
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

const (
	entryColumns    = "A:F"
	categoryColumns = "A:B"
)

var (
	entryHeader    = []any{"ID", "Date", "Category", "Amount", "Note", "Created At"}
	categoryHeader = []any{"Name", "Kind"}
)

func formatEntryRows(entries []core.Entry) [][]any {
	rows := make([][]any, 0, len(entries)+1)
	rows = append(rows, entryHeader)
	for _, e := range entries {
		rows = append(rows, []any{
			e.ID,
			e.Date.String(),
			e.Category,
			e.Amount.String(),
			e.Note,
			e.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return rows
}

func formatCategoryRows(cats []core.Category) [][]any {
	rows := make([][]any, 0, len(cats)+1)
	rows = append(rows, categoryHeader)
	for _, c := range cats {
		rows = append(rows, []any{c.Name, string(c.Kind)})
	}
	return rows
}

// parseEntryRows skips the header and blank rows. Sheets trims trailing
// empty cells, so short rows are padded.
func parseEntryRows(values [][]any) ([]core.Entry, error) {
	var out []core.Entry
	for i, row := range values {
		cols := toStrings(row)
		if (i == 0 && isHeader(cols, entryHeader)) || isBlank(cols) {
			continue
		}
		id := safeGet(cols, 0)
		if id == "" {
			return nil, fmt.Errorf("row %d: missing id", i+1)
		}
		date, err := core.ParseDate(safeGet(cols, 1))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		amount, err := core.ParseAmount(safeGet(cols, 3))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		e := core.Entry{
			ID:       id,
			Date:     date,
			Category: safeGet(cols, 2),
			Amount:   amount,
			Note:     safeGet(cols, 4),
		}
		if ts := safeGet(cols, 5); ts != "" {
			if e.CreatedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
				return nil, fmt.Errorf("row %d: created at %q: %w", i+1, ts, err)
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func parseCategoryRows(values [][]any) ([]core.Category, error) {
	var out []core.Category
	for i, row := range values {
		cols := toStrings(row)
		if (i == 0 && isHeader(cols, categoryHeader)) || isBlank(cols) {
			continue
		}
		kind, err := core.ParseKind(safeGet(cols, 1))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, core.Category{Name: safeGet(cols, 0), Kind: kind})
	}
	return out, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isHeader(cols []string, header []any) bool {
	return len(cols) > 0 && strings.EqualFold(cols[0], fmt.Sprint(header[0]))
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
