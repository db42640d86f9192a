package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/api-harvester/internal/types"
)

const createFetchIndexSQL = `CREATE TABLE IF NOT EXISTS fetch_index (
	subject     TEXT NOT NULL,
	endpoint    TEXT NOT NULL,
	fetched_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (subject, endpoint)
)`

// Migrate creates the fetch_index table if it does not exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, createFetchIndexSQL); err != nil {
		return fmt.Errorf("failed to create fetch_index: %w", err)
	}
	return nil
}

// LastSuccess returns the last successful fetch time for key.
func (db *DB) LastSuccess(ctx context.Context, key types.FetchKey) (time.Time, bool, error) {
	var fetchedAt time.Time
	err := db.pool.QueryRow(ctx,
		`SELECT fetched_at FROM fetch_index WHERE subject = $1 AND endpoint = $2`,
		key.Subject, key.Endpoint,
	).Scan(&fetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to look up %s: %w", key, err)
	}
	return fetchedAt, true, nil
}

// PutSuccess records a successful fetch. An older timestamp never replaces a
// newer one.
func (db *DB) PutSuccess(ctx context.Context, key types.FetchKey, ts time.Time) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO fetch_index (subject, endpoint, fetched_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (subject, endpoint)
		 DO UPDATE SET fetched_at = GREATEST(fetch_index.fetched_at, EXCLUDED.fetched_at)`,
		key.Subject, key.Endpoint, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", key, err)
	}
	return nil
}
