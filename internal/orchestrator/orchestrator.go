// Package orchestrator walks subjects × endpoints, skipping fresh keys,
// fetching the rest and routing each outcome to the artifact store, the
// error ledger and the fetch-state table.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/api-harvester/internal/artifacts"
	"github.com/jonathan/api-harvester/internal/fetch"
	"github.com/jonathan/api-harvester/internal/freshness"
	"github.com/jonathan/api-harvester/internal/state"
	"github.com/jonathan/api-harvester/internal/types"
)

// KeyStatus is the state of one fetch key within a run.
type KeyStatus string

// Fetch key states.
const (
	StatusPending   KeyStatus = "PENDING"
	StatusSkipped   KeyStatus = "SKIPPED"
	StatusFetching  KeyStatus = "FETCHING"
	StatusSucceeded KeyStatus = "SUCCEEDED"
	StatusFailed    KeyStatus = "FAILED"
)

// Fetcher performs a bounded-retry fetch. *fetch.Executor implements it.
type Fetcher interface {
	Fetch(ctx context.Context, subject types.Subject, endpoint types.Endpoint) (any, int, error)
}

// ErrorSink receives error records. *ledger.Ledger implements it.
type ErrorSink interface {
	Append(rec types.ErrorRecord) error
}

// Config holds the run policy.
type Config struct {
	// DailyLimit caps successful fetches per run; zero means unlimited.
	DailyLimit int
	// LedgerPersistenceErrors also ledgers artifact write failures.
	LedgerPersistenceErrors bool
	// FlushEachSuccess persists the state table after every success instead
	// of once at the end of the run.
	FlushEachSuccess bool
}

// ProgressEvent is emitted whenever a fetch key changes state.
type ProgressEvent struct {
	RunID  string
	Key    types.FetchKey
	Status KeyStatus
}

// ProgressCallback is called on every state change.
type ProgressCallback func(event ProgressEvent)

// Deps are the collaborators of one run. Index, Logger, Now and OnProgress
// are optional.
type Deps struct {
	Gate       freshness.Gate
	Fetcher    Fetcher
	Store      *artifacts.Store
	Errors     ErrorSink
	Table      state.Table
	Index      state.Index
	Logger     *slog.Logger
	Now        func() time.Time
	OnProgress ProgressCallback
}

// Result is the outcome for one fetch key.
type Result struct {
	Key      types.FetchKey
	Status   KeyStatus
	Attempts int
	Artifact string
	Err      error
}

// Summary reports the counts of a run.
type Summary struct {
	RunID        uuid.UUID
	StartedAt    time.Time
	FinishedAt   time.Time
	Succeeded    int
	Skipped      int
	Failed       int
	Pending      int
	QuotaReached bool
	Results      []Result
}

// Orchestrator runs one pass over subjects × endpoints.
type Orchestrator struct {
	config Config
	deps   Deps
}

// New validates deps and creates an orchestrator.
func New(config Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, errors.New("orchestrator requires a fetcher")
	case deps.Store == nil:
		return nil, errors.New("orchestrator requires an artifact store")
	case deps.Errors == nil:
		return nil, errors.New("orchestrator requires an error ledger")
	case deps.Table == nil:
		return nil, errors.New("orchestrator requires a state table")
	}
	if deps.Gate == nil {
		deps.Gate = freshness.Never
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{config: config, deps: deps}, nil
}

// Run processes every (subject, endpoint) pair in subject-major order.
// Per-key failures are ledgered, never returned. The returned error is
// either context cancellation or a failure to flush the state table; the
// summary is valid in both cases.
func (o *Orchestrator) Run(ctx context.Context, subjects []types.Subject, endpoints []types.Endpoint) (*Summary, error) {
	summary := &Summary{RunID: uuid.New(), StartedAt: o.deps.Now()}
	logger := o.deps.Logger.With("run_id", summary.RunID.String())
	quota := fetch.NewQuota(o.config.DailyLimit)
	pass := &run{id: summary.RunID.String(), logger: logger, quota: quota}

	for _, subject := range subjects {
		for _, endpoint := range endpoints {
			key := types.FetchKey{Subject: subject, Endpoint: endpoint.Name}
			summary.Results = append(summary.Results, Result{Key: key, Status: StatusPending})
		}
	}

	var runErr error
	for i := range summary.Results {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if quota.Exhausted() {
			summary.QuotaReached = true
			logger.Info("quota reached, leaving remaining keys pending", "limit", quota.Limit)
			break
		}

		result := &summary.Results[i]
		endpoint := endpoints[i%len(endpoints)]
		if err := o.process(ctx, pass, endpoint, result); err != nil {
			runErr = err
			break
		}
	}

	for _, r := range summary.Results {
		switch r.Status {
		case StatusSucceeded:
			summary.Succeeded++
		case StatusSkipped:
			summary.Skipped++
		case StatusFailed:
			summary.Failed++
		default:
			summary.Pending++
		}
	}

	// Flush on a cancelled run too; artifacts already written are real.
	if err := o.deps.Table.Flush(context.WithoutCancel(ctx)); err != nil {
		logger.Error("failed to persist fetch state", "error", err)
		runErr = errors.Join(runErr, fmt.Errorf("failed to persist fetch state: %w", err))
	}

	summary.FinishedAt = o.deps.Now()
	logger.Info("run complete",
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"pending", summary.Pending)
	return summary, runErr
}

// run is the per-pass state shared by process calls.
type run struct {
	id     string
	logger *slog.Logger
	quota  *fetch.Quota
}

func (o *Orchestrator) emit(r *run, result *Result) {
	if o.deps.OnProgress == nil {
		return
	}
	o.deps.OnProgress(ProgressEvent{RunID: r.id, Key: result.Key, Status: result.Status})
}

// process runs one key. It returns a non-nil error only when the fetch was
// cut short by ctx; the key is then left PENDING.
func (o *Orchestrator) process(ctx context.Context, r *run, endpoint types.Endpoint, result *Result) error {
	key := result.Key
	log := r.logger.With("subject", key.Subject, "endpoint", key.Endpoint)

	if o.deps.Gate.IsFresh(ctx, key) {
		result.Status = StatusSkipped
		log.Debug("skipping fresh key")
		o.emit(r, result)
		return nil
	}

	result.Status = StatusFetching
	o.emit(r, result)

	payload, attempts, err := o.deps.Fetcher.Fetch(ctx, key.Subject, endpoint)
	result.Attempts = attempts
	if err != nil {
		if interrupted(ctx, err) {
			result.Status = StatusPending
			o.emit(r, result)
			return ctx.Err()
		}
		result.Status = StatusFailed
		result.Err = err
		log.Warn("fetch failed", "attempts", attempts, "error", err)
		o.ledger(log, key, types.ErrorTypeExhausted, lastCause(err))
		o.emit(r, result)
		return nil
	}

	r.quota.Consume()

	name, err := o.deps.Store.Write(key.Subject, key.Endpoint, payload)
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		log.Error("failed to write artifact", "error", err)
		if o.config.LedgerPersistenceErrors {
			o.ledger(log, key, types.ErrorTypePersistence, err.Error())
		}
		o.emit(r, result)
		return nil
	}

	result.Status = StatusSucceeded
	result.Artifact = name
	now := o.deps.Now()
	log.Info("saved artifact", "artifact", name, "attempts", attempts)

	o.deps.Table.RecordSuccess(key.Subject, now)
	if o.deps.Index != nil {
		if err := o.deps.Index.PutSuccess(ctx, key, now); err != nil {
			log.Warn("failed to update fetch index", "error", err)
		}
	}
	if o.config.FlushEachSuccess {
		if err := o.deps.Table.Flush(ctx); err != nil {
			log.Warn("failed to persist fetch state", "error", err)
		}
	}
	o.emit(r, result)
	return nil
}

func (o *Orchestrator) ledger(log *slog.Logger, key types.FetchKey, errType, message string) {
	rec := types.ErrorRecord{
		Time:     o.deps.Now(),
		Subject:  key.Subject,
		Endpoint: key.Endpoint,
		Type:     errType,
		Message:  message,
	}
	if err := o.deps.Errors.Append(rec); err != nil {
		log.Error("failed to append error record", "error", err)
	}
}

// interrupted reports whether err comes from ctx being cancelled or timing
// out, as opposed to a failure the endpoint itself produced.
func interrupted(ctx context.Context, err error) bool {
	if ctx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// lastCause returns the message of the final attempt's error.
func lastCause(err error) string {
	var exhausted *fetch.ExhaustedError
	if errors.As(err, &exhausted) && exhausted.Last != nil {
		return exhausted.Last.Error()
	}
	return err.Error()
}
