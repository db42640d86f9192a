// Package csvio reads and writes the spreadsheet-exported CSV files the
// harvester consumes (credentials, domains, keywords).
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Supported input encodings.
const (
	EncodingUTF8   = "utf-8"
	EncodingCP1252 = "cp1252"
)

// Table is a CSV file split into its header and data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of name in the header, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// Value returns row[col], or "" when the row is short or col is -1.
func Value(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// decoder returns the transformer for encoding. Both decoders drop a leading
// UTF-8 byte order mark; cp1252 input that starts with one is read as UTF-8.
func decoder(encoding string) (transform.Transformer, error) {
	switch strings.ToLower(encoding) {
	case "", EncodingUTF8, "utf8":
		return unicode.UTF8BOM.NewDecoder(), nil
	case EncodingCP1252, "windows-1252":
		return unicode.BOMOverride(charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

type decodedFile struct {
	io.Reader
	f *os.File
}

func (d *decodedFile) Close() error {
	return d.f.Close()
}

// Open returns the contents of path decoded to UTF-8.
func Open(path, encoding string) (io.ReadCloser, error) {
	t, err := decoder(encoding)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &decodedFile{Reader: transform.NewReader(f, t), f: f}, nil
}

// Read loads a CSV file with a header row.
func Read(path, encoding string) (*Table, error) {
	r, err := Open(path, encoding)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s has no header row", path)
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// Write replaces path with the table contents, UTF-8 encoded.
func Write(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}
