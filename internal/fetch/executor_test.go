package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonathan/api-harvester/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRequester fails the first `failures` calls and then succeeds.
type scriptedRequester struct {
	failures int
	calls    int
	payload  any
}

func (r *scriptedRequester) Request(_ context.Context, _ types.Subject, _ types.Endpoint) (any, error) {
	r.calls++
	if r.calls <= r.failures {
		return nil, errors.New("connection refused")
	}
	return r.payload, nil
}

var searchEndpoint = types.Endpoint{
	Name:        "Google_Search",
	URLTemplate: "https://www.googleapis.com/customsearch/v1",
	Style:       types.ParamQuery,
	Description: "Google Search text",
}

func TestExecutor_AlwaysFailingStopsAtBound(t *testing.T) {
	req := &scriptedRequester{failures: 1000}
	exec := NewExecutor(req, ExecutorConfig{MaxAttempts: 5}, nil)

	payload, attempts, err := exec.Fetch(context.Background(), "widgets", searchEndpoint)
	require.Error(t, err)
	assert.Nil(t, payload)
	assert.Equal(t, 5, req.calls)
	assert.Equal(t, 5, attempts)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "widgets", exhausted.Subject)
	assert.Equal(t, "Google_Search", exhausted.Endpoint)
	assert.Equal(t, 5, exhausted.Attempts)

	var transient *TransientError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, 5, transient.Attempt)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestExecutor_StopsAtFirstSuccess(t *testing.T) {
	req := &scriptedRequester{failures: 2, payload: map[string]any{"items": []any{}}}
	exec := NewExecutor(req, ExecutorConfig{MaxAttempts: 5}, nil)

	payload, attempts, err := exec.Fetch(context.Background(), "widgets", searchEndpoint)
	require.NoError(t, err)
	assert.Equal(t, 3, req.calls)
	assert.Equal(t, 3, attempts)
	assert.NotNil(t, payload)
}

func TestExecutor_DefaultMaxAttempts(t *testing.T) {
	req := &scriptedRequester{failures: 1000}
	exec := NewExecutor(req, ExecutorConfig{}, nil)

	_, attempts, err := exec.Fetch(context.Background(), "widgets", searchEndpoint)
	require.Error(t, err)
	assert.Equal(t, DefaultMaxAttempts, attempts)
	assert.Equal(t, DefaultMaxAttempts, req.calls)
}

// countingBackOff never waits and records how often the retry loop asked.
type countingBackOff struct {
	resets int
	waits  int
}

func (b *countingBackOff) Reset() { b.resets++ }

func (b *countingBackOff) NextBackOff() time.Duration {
	b.waits++
	return 0
}

func TestExecutor_BackoffBetweenAttempts(t *testing.T) {
	policy := &countingBackOff{}
	req := &scriptedRequester{failures: 3, payload: map[string]any{}}
	exec := NewExecutor(req, ExecutorConfig{MaxAttempts: 4, Backoff: policy}, nil)

	_, attempts, err := exec.Fetch(context.Background(), "widgets", searchEndpoint)
	require.NoError(t, err)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, 3, policy.waits)
	assert.Equal(t, 1, policy.resets)

	// A new key starts a fresh schedule and the last failure never waits.
	req = &scriptedRequester{failures: 1000}
	exec = NewExecutor(req, ExecutorConfig{MaxAttempts: 2, Backoff: policy}, nil)
	_, _, err = exec.Fetch(context.Background(), "gadgets", searchEndpoint)
	require.Error(t, err)
	assert.Equal(t, 4, policy.waits)
	assert.Equal(t, 2, policy.resets)
}

func TestExecutor_ContextCanceledBeforeFetch(t *testing.T) {
	req := &scriptedRequester{failures: 10}
	exec := NewExecutor(req, ExecutorConfig{MaxAttempts: 5}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := exec.Fetch(ctx, "widgets", searchEndpoint)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.LessOrEqual(t, req.calls, 1)

	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

// cancelOnFailure cancels the fetch context after its first failed request.
type cancelOnFailure struct {
	cancel context.CancelFunc
	calls  int
}

func (r *cancelOnFailure) Request(context.Context, types.Subject, types.Endpoint) (any, error) {
	r.calls++
	r.cancel()
	return nil, errors.New("503 service unavailable")
}

func TestExecutor_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policy, err := ParseBackoff(BackoffFixed, time.Hour, 0)
	require.NoError(t, err)
	req := &cancelOnFailure{cancel: cancel}
	exec := NewExecutor(req, ExecutorConfig{MaxAttempts: 5, Backoff: policy}, nil)

	start := time.Now()
	_, attempts, err := exec.Fetch(ctx, "widgets", searchEndpoint)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, req.calls)
	assert.Less(t, time.Since(start), time.Minute)

	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestExecutor_AugmentsPayload(t *testing.T) {
	req := &scriptedRequester{payload: map[string]any{"kind": "customsearch#search"}}
	exec := NewExecutor(req, ExecutorConfig{MaxAttempts: 1, AugmentPayload: true}, nil)

	payload, _, err := exec.Fetch(context.Background(), "widgets", searchEndpoint)
	require.NoError(t, err)
	obj := payload.(map[string]any)
	assert.Equal(t, "Google_Search", obj["Original_API_Name"])
	assert.Equal(t, "Google Search text", obj["API_Description"])
}

func TestExecutor_MinIntervalPacesRequests(t *testing.T) {
	req := &scriptedRequester{payload: map[string]any{}}
	exec := NewExecutor(req, ExecutorConfig{MaxAttempts: 1, MinInterval: 30 * time.Millisecond}, nil)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, _, err := exec.Fetch(context.Background(), "widgets", searchEndpoint)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}
