// Package freshness decides whether a fetch key was refreshed recently
// enough to be skipped.
package freshness

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonathan/api-harvester/internal/artifacts"
	"github.com/jonathan/api-harvester/internal/state"
	"github.com/jonathan/api-harvester/internal/types"
)

// Gate reports whether key is fresh. Gates never fail: an error while
// checking is logged and the key is treated as stale.
type Gate interface {
	IsFresh(ctx context.Context, key types.FetchKey) bool
}

// Clock returns the current time.
type Clock func() time.Time

func within(now, ts time.Time, window time.Duration) bool {
	return now.Sub(ts) < window
}

func normalize(window time.Duration, now Clock, logger *slog.Logger) (time.Duration, Clock, *slog.Logger) {
	if window <= 0 {
		window = types.DefaultFreshnessWindow
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return window, now, logger
}

// ScanGate finds the newest matching artifact in the artifact directory and
// compares its filename timestamp to the window.
type ScanGate struct {
	store  *artifacts.Store
	window time.Duration
	now    Clock
	logger *slog.Logger
}

// NewScanGate creates a directory-scan gate.
func NewScanGate(store *artifacts.Store, window time.Duration, now Clock, logger *slog.Logger) *ScanGate {
	window, now, logger = normalize(window, now, logger)
	return &ScanGate{store: store, window: window, now: now, logger: logger}
}

// IsFresh implements Gate.
func (g *ScanGate) IsFresh(_ context.Context, key types.FetchKey) bool {
	name, ts, ok, err := g.store.Latest(key.Subject, key.Endpoint)
	if err != nil {
		g.logger.Warn("freshness scan failed", "key", key.String(), "error", err)
		return false
	}
	if !ok {
		return false
	}
	fresh := within(g.now(), ts, g.window)
	g.logger.Debug("freshness scan", "key", key.String(), "latest", name, "fresh", fresh)
	return fresh
}

// IndexGate looks the key up in an explicit fetch index.
type IndexGate struct {
	index  state.Index
	window time.Duration
	now    Clock
	logger *slog.Logger
}

// NewIndexGate creates an index-backed gate.
func NewIndexGate(index state.Index, window time.Duration, now Clock, logger *slog.Logger) *IndexGate {
	window, now, logger = normalize(window, now, logger)
	return &IndexGate{index: index, window: window, now: now, logger: logger}
}

// IsFresh implements Gate.
func (g *IndexGate) IsFresh(ctx context.Context, key types.FetchKey) bool {
	ts, ok, err := g.index.LastSuccess(ctx, key)
	if err != nil {
		g.logger.Warn("fetch index lookup failed", "key", key.String(), "error", err)
		return false
	}
	return ok && within(g.now(), ts, g.window)
}

// LedgerGate uses the per-subject Fetch-State Ledger, ignoring the endpoint.
type LedgerGate struct {
	table  state.Table
	window time.Duration
	now    Clock
}

// NewLedgerGate creates a gate over a state table.
func NewLedgerGate(table state.Table, window time.Duration, now Clock) *LedgerGate {
	window, now, _ = normalize(window, now, nil)
	return &LedgerGate{table: table, window: window, now: now}
}

// IsFresh implements Gate.
func (g *LedgerGate) IsFresh(_ context.Context, key types.FetchKey) bool {
	ts, ok := g.table.LastFetched(key.Subject)
	return ok && within(g.now(), ts, g.window)
}

type anyGate []Gate

// Any returns a gate that is fresh when any of gates is.
func Any(gates ...Gate) Gate {
	return anyGate(gates)
}

func (a anyGate) IsFresh(ctx context.Context, key types.FetchKey) bool {
	for _, g := range a {
		if g != nil && g.IsFresh(ctx, key) {
			return true
		}
	}
	return false
}

// Never treats every key as stale.
var Never Gate = anyGate(nil)
