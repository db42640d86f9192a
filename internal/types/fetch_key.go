package types

import "time"

// Subject is a domain name or search keyword to fetch data for.
type Subject = string

// FetchKey identifies one unit of fetch work.
type FetchKey struct {
	Subject  Subject `json:"subject"`
	Endpoint string  `json:"endpoint"`
}

// String renders the key as "subject|endpoint".
func (k FetchKey) String() string {
	return k.Subject + "|" + k.Endpoint
}

// DefaultFreshnessWindow is how long an artifact suppresses a re-fetch.
const DefaultFreshnessWindow = 30 * 24 * time.Hour

// ErrorRecord is one row of an error ledger.
type ErrorRecord struct {
	Time     time.Time
	Subject  Subject
	Endpoint string
	Type     string
	Message  string
}

// Error types written to the ledger.
const (
	ErrorTypeExhausted   = "API Request Failed After Retries"
	ErrorTypePersistence = "Artifact Write Error"
)
