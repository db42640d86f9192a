// Package subjects loads the domain list for the domain pipeline.
package subjects

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/jonathan/api-harvester/internal/csvio"
	"github.com/jonathan/api-harvester/internal/types"
)

// DomainColumn is the CSV column holding domains.
const DomainColumn = "displayLink"

// LoadDomains reads domains from path. A file whose first line names the
// displayLink column is read as CSV; anything else is one domain per line,
// with blank lines and #-comments ignored. Duplicates are dropped, keeping
// the first occurrence.
func LoadDomains(path, encoding string) ([]types.Subject, error) {
	isCSV, err := hasHeader(path, encoding)
	if err != nil {
		return nil, err
	}

	var raw []string
	if isCSV {
		table, err := csvio.Read(path, encoding)
		if err != nil {
			return nil, err
		}
		col := table.Column(DomainColumn)
		for _, row := range table.Rows {
			raw = append(raw, csvio.Value(row, col))
		}
	} else {
		f, err := csvio.Open(path, encoding)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			raw = append(raw, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	return unique(raw), nil
}

func hasHeader(path, encoding string) (bool, error) {
	f, err := csvio.Open(path, encoding)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return false, scanner.Err()
	}
	return strings.Contains(scanner.Text(), DomainColumn), nil
}

func unique(raw []string) []types.Subject {
	seen := make(map[string]bool)
	var out []types.Subject
	for _, line := range raw {
		domain := strings.TrimSpace(line)
		if domain == "" || strings.HasPrefix(domain, "#") || seen[domain] {
			continue
		}
		seen[domain] = true
		out = append(out, domain)
	}
	return out
}
