// Package state tracks when each subject was last fetched successfully.
//
// A Table is the per-subject Fetch-State Ledger: updated in memory on every
// success and persisted by Flush. An Index is the per-(subject, endpoint)
// record used by the index freshness mode.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/jonathan/api-harvester/internal/types"
)

// Table is the per-subject Fetch-State Ledger.
type Table interface {
	// LastFetched returns the last successful fetch time for subject.
	LastFetched(subject types.Subject) (time.Time, bool)
	// RecordSuccess sets the subject's row to ts unless it already holds a newer time.
	RecordSuccess(subject types.Subject, ts time.Time)
	// Flush persists the whole table.
	Flush(ctx context.Context) error
}

// Index maps fetch keys to their last successful fetch time.
type Index interface {
	LastSuccess(ctx context.Context, key types.FetchKey) (time.Time, bool, error)
	PutSuccess(ctx context.Context, key types.FetchKey, ts time.Time) error
}

// MemoryTable is a Table with no backing storage.
type MemoryTable struct {
	mu   sync.Mutex
	rows map[types.Subject]time.Time
}

// NewMemoryTable creates an empty in-memory table.
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{rows: make(map[types.Subject]time.Time)}
}

// LastFetched implements Table.
func (t *MemoryTable) LastFetched(subject types.Subject) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.rows[subject]
	return ts, ok
}

// RecordSuccess implements Table.
func (t *MemoryTable) RecordSuccess(subject types.Subject, ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.rows[subject]; ok && prev.After(ts) {
		return
	}
	t.rows[subject] = ts
}

// Flush is a no-op.
func (t *MemoryTable) Flush(context.Context) error {
	return nil
}
