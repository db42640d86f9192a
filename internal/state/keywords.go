package state

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonathan/api-harvester/internal/csvio"
	"github.com/jonathan/api-harvester/internal/types"
)

// Keyword table columns and timestamp format.
const (
	KeywordColumn     = "Keyword"
	LastFetchedColumn = "LastDateFetched"
	LastFetchedLayout = "2006-01-02_15-04-05"
)

// legacyLayouts are accepted when reading rows written by hand.
var legacyLayouts = []string{LastFetchedLayout, "2006-01-02 15:04:05", "2006-01-02"}

// KeywordTable is a Table backed by the keywords CSV. Columns other than
// Keyword and LastDateFetched are carried through unchanged.
type KeywordTable struct {
	path string

	mu       sync.Mutex
	table    *csvio.Table
	keyCol   int
	dateCol  int
	rowIndex map[types.Subject]int
	rows     map[types.Subject]time.Time
}

// LoadKeywordTable reads the keywords CSV at path. encoding is passed to
// csvio.Read; Flush always writes UTF-8.
func LoadKeywordTable(path, encoding string) (*KeywordTable, error) {
	table, err := csvio.Read(path, encoding)
	if err != nil {
		return nil, err
	}

	keyCol := table.Column(KeywordColumn)
	if keyCol < 0 {
		return nil, fmt.Errorf("%s: missing %q column", path, KeywordColumn)
	}
	dateCol := table.Column(LastFetchedColumn)
	if dateCol < 0 {
		table.Header = append(table.Header, LastFetchedColumn)
		dateCol = len(table.Header) - 1
	}

	t := &KeywordTable{
		path:     path,
		table:    table,
		keyCol:   keyCol,
		dateCol:  dateCol,
		rowIndex: make(map[types.Subject]int),
		rows:     make(map[types.Subject]time.Time),
	}

	for i, row := range table.Rows {
		keyword := csvio.Value(row, keyCol)
		if keyword == "" {
			continue
		}
		if _, seen := t.rowIndex[keyword]; !seen {
			t.rowIndex[keyword] = i
		}
		if ts, ok := parseLastFetched(csvio.Value(row, dateCol)); ok {
			if prev, exists := t.rows[keyword]; !exists || ts.After(prev) {
				t.rows[keyword] = ts
			}
		}
	}
	return t, nil
}

func parseLastFetched(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range legacyLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Subjects returns the keywords in file order, without blanks or duplicates.
func (t *KeywordTable) Subjects() []types.Subject {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[types.Subject]bool)
	var out []types.Subject
	for _, row := range t.table.Rows {
		keyword := csvio.Value(row, t.keyCol)
		if keyword == "" || seen[keyword] {
			continue
		}
		seen[keyword] = true
		out = append(out, keyword)
	}
	return out
}

// Due returns the keywords never fetched or last fetched at least window ago.
func (t *KeywordTable) Due(now time.Time, window time.Duration) []types.Subject {
	var out []types.Subject
	for _, keyword := range t.Subjects() {
		ts, ok := t.LastFetched(keyword)
		if !ok || now.Sub(ts) >= window {
			out = append(out, keyword)
		}
	}
	return out
}

// LastFetched implements Table.
func (t *KeywordTable) LastFetched(subject types.Subject) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.rows[subject]
	return ts, ok
}

// RecordSuccess implements Table. Unknown subjects get a new row at Flush.
func (t *KeywordTable) RecordSuccess(subject types.Subject, ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.rows[subject]; ok && prev.After(ts) {
		return
	}
	t.rows[subject] = ts
}

// Flush rewrites the keywords CSV with the current timestamps.
func (t *KeywordTable) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	width := len(t.table.Header)
	for i, row := range t.table.Rows {
		for len(row) < width {
			row = append(row, "")
		}
		keyword := csvio.Value(row, t.keyCol)
		if ts, ok := t.rows[keyword]; ok {
			row[t.dateCol] = ts.Format(LastFetchedLayout)
		}
		t.table.Rows[i] = row
	}

	var added []types.Subject
	for subject := range t.rows {
		if _, ok := t.rowIndex[subject]; !ok {
			added = append(added, subject)
		}
	}
	sort.Strings(added)
	for _, subject := range added {
		ts := t.rows[subject]
		row := make([]string, width)
		row[t.keyCol] = subject
		row[t.dateCol] = ts.Format(LastFetchedLayout)
		t.table.Rows = append(t.table.Rows, row)
		t.rowIndex[subject] = len(t.table.Rows) - 1
	}

	if err := csvio.Write(t.path, t.table); err != nil {
		return fmt.Errorf("failed to write state table: %w", err)
	}
	return nil
}
