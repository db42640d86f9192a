package fetch

// Quota bounds the number of successful fetches in one run.
// A zero Limit means unlimited. Quotas are never persisted.
type Quota struct {
	Limit int
	used  int
}

// NewQuota creates a quota allowing limit successful fetches.
func NewQuota(limit int) *Quota {
	if limit < 0 {
		limit = 0
	}
	return &Quota{Limit: limit}
}

// Exhausted reports whether no further fetches may be started.
func (q *Quota) Exhausted() bool {
	return q.Limit > 0 && q.used >= q.Limit
}

// Consume records one successful fetch.
func (q *Quota) Consume() {
	q.used++
}
