// Package ledger appends failed fetches to a CSV error report.
//
// A ledger is write-only: it creates the file with a header row on first use
// and otherwise appends one data row per record. It never reads, rewrites or
// truncates what is already there.
package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/api-harvester/internal/types"
)

// Layout maps an error record to the columns of one ledger schema.
type Layout struct {
	Name    string
	Columns []string
	Row     func(rec types.ErrorRecord) []string
}

// KeywordLayout is the schema of the keyword pipeline's error report.
var KeywordLayout = Layout{
	Name:    "keyword",
	Columns: []string{"API_Name", "Date_Added", "Error Type", "Error Description"},
	Row: func(rec types.ErrorRecord) []string {
		desc := "Keyword: " + rec.Subject
		if rec.Message != "" {
			desc += "; " + rec.Message
		}
		return []string{rec.Endpoint, rec.Time.Format("2006-01-02"), rec.Type, desc}
	},
}

// DomainLayout is the schema of the domain pipeline's error report.
var DomainLayout = Layout{
	Name:    "domain",
	Columns: []string{"timestamp", "domain", "api", "error_message"},
	Row: func(rec types.ErrorRecord) []string {
		msg := rec.Message
		if rec.Type != "" && rec.Type != types.ErrorTypeExhausted {
			msg = rec.Type + ": " + msg
		}
		return []string{rec.Time.Format("2006-01-02 15:04:05"), rec.Subject, rec.Endpoint, msg}
	},
}

// LayoutByName returns the layout registered under name.
func LayoutByName(name string) (Layout, error) {
	switch name {
	case KeywordLayout.Name:
		return KeywordLayout, nil
	case DomainLayout.Name:
		return DomainLayout, nil
	default:
		return Layout{}, fmt.Errorf("unknown error ledger layout %q", name)
	}
}

// Ledger is an append-only CSV error report.
type Ledger struct {
	path   string
	layout Layout
}

// New creates a ledger writing to path with the given layout.
func New(path string, layout Layout) *Ledger {
	return &Ledger{path: path, layout: layout}
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// Append writes one record, adding the header row when the file is new or empty.
func (l *Ledger) Append(rec types.ErrorRecord) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	needHeader := true
	if info, err := os.Stat(l.path); err == nil && info.Size() > 0 {
		needHeader = false
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open error ledger %s: %w", l.path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(l.layout.Columns); err != nil {
			return fmt.Errorf("failed to write ledger header: %w", err)
		}
	}
	if err := w.Write(l.layout.Row(rec)); err != nil {
		return fmt.Errorf("failed to write ledger row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush error ledger: %w", err)
	}
	return f.Sync()
}
