package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonathan/api-harvester/internal/types"
	"golang.org/x/time/rate"
)

// DefaultMaxAttempts is the retry bound used when none is configured.
const DefaultMaxAttempts = 5

// TransientError is one failed attempt. It is retried and never surfaced on
// its own; the last one is carried by ExhaustedError.
type TransientError struct {
	Attempt int
	Cause   error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("attempt %d failed: %v", e.Attempt, e.Cause)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// ExhaustedError reports that every attempt for a fetch key failed.
type ExhaustedError struct {
	Subject  types.Subject
	Endpoint string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("fetch %s/%s exhausted after %d attempts: %v", e.Subject, e.Endpoint, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// ExecutorConfig holds the retry and pacing settings.
type ExecutorConfig struct {
	MaxAttempts int
	// Backoff is reset at the start of every Fetch.
	Backoff backoff.BackOff
	// MinInterval spaces consecutive requests; zero disables pacing.
	MinInterval time.Duration
	// AugmentPayload adds endpoint identification fields to object payloads.
	AugmentPayload bool
}

// Executor runs a requester with bounded, immediate-or-backed-off retries.
type Executor struct {
	requester Requester
	config    ExecutorConfig
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewExecutor creates an executor. A nil backoff retries immediately.
func NewExecutor(requester Requester, config ExecutorConfig, logger *slog.Logger) *Executor {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.Backoff == nil {
		config.Backoff = &backoff.ZeroBackOff{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{
		requester: requester,
		config:    config,
		logger:    logger,
	}
	if config.MinInterval > 0 {
		e.limiter = rate.NewLimiter(rate.Every(config.MinInterval), 1)
	}
	return e
}

// Fetch requests subject from endpoint, retrying up to MaxAttempts times.
// It returns the payload of the first successful attempt or an *ExhaustedError.
// Cancellation of ctx is returned as the context error, never as exhaustion.
func (e *Executor) Fetch(ctx context.Context, subject types.Subject, endpoint types.Endpoint) (any, int, error) {
	var (
		attempts int
		last     error
	)
	operation := func() (any, error) {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, backoff.Permanent(err)
			}
		}

		attempts++
		payload, err := e.requester.Request(ctx, subject, endpoint)
		if err == nil {
			return payload, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}

		last = &TransientError{Attempt: attempts, Cause: err}
		e.logger.Debug("fetch attempt failed",
			"subject", subject,
			"endpoint", endpoint.Name,
			"attempt", attempts,
			"error", err,
		)
		return nil, last
	}

	payload, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(e.config.Backoff),
		backoff.WithMaxTries(uint(e.config.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
	)
	if err == nil {
		if e.config.AugmentPayload {
			payload = Augment(payload, endpoint)
		}
		return payload, attempts, nil
	}
	if ctx.Err() != nil {
		return nil, attempts, ctx.Err()
	}
	if last == nil {
		// The limiter refused before any request was sent.
		return nil, attempts, err
	}

	return nil, attempts, &ExhaustedError{
		Subject:  subject,
		Endpoint: endpoint.Name,
		Attempts: attempts,
		Last:     last,
	}
}
