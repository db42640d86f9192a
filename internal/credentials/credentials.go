// Package credentials loads API credentials from the APIFetchData.csv
// spreadsheet export and resolves them into endpoints.
package credentials

import (
	"fmt"

	"github.com/jonathan/api-harvester/internal/csvio"
)

// Column names in APIFetchData.csv.
const (
	ColName        = "API_Name"
	ColURL         = "AddAPI_URL"
	ColKey         = "AddAPI_API_Key"
	ColPassword    = "AddAPI_Password"
	ColDescription = "AddAPI_Description"
	ColUsername    = "AddAPI_Username"
	ColQuery       = "AddAPI_Query"
	ColNotes       = "AddAPI_AdditionalNotesDrop"
)

var requiredColumns = []string{ColName, ColURL, ColKey, ColPassword, ColDescription}

// Record is one row of the credentials file.
type Record struct {
	Name        string
	URL         string
	Key         string
	Password    string
	Description string
	Username    string
	Query       string
	Notes       string
}

// Load reads every credential row from path. Rows without an API_Name are
// skipped.
func Load(path, encoding string) ([]Record, error) {
	table, err := csvio.Read(path, encoding)
	if err != nil {
		return nil, &LoadError{Message: "failed to read credentials", Cause: err}
	}

	for _, col := range requiredColumns {
		if table.Column(col) < 0 {
			return nil, &LoadError{Message: fmt.Sprintf("%s is missing column %q", path, col)}
		}
	}

	cols := map[string]int{}
	for _, name := range []string{ColName, ColURL, ColKey, ColPassword, ColDescription, ColUsername, ColQuery, ColNotes} {
		cols[name] = table.Column(name)
	}

	records := make([]Record, 0, len(table.Rows))
	for _, row := range table.Rows {
		rec := Record{
			Name:        csvio.Value(row, cols[ColName]),
			URL:         csvio.Value(row, cols[ColURL]),
			Key:         csvio.Value(row, cols[ColKey]),
			Password:    csvio.Value(row, cols[ColPassword]),
			Description: csvio.Value(row, cols[ColDescription]),
			Username:    csvio.Value(row, cols[ColUsername]),
			Query:       csvio.Value(row, cols[ColQuery]),
			Notes:       csvio.Value(row, cols[ColNotes]),
		}
		if rec.Name == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Find returns the first record named name.
func Find(records []Record, name string) (Record, bool) {
	for _, rec := range records {
		if rec.Name == name {
			return rec, true
		}
	}
	return Record{}, false
}
