package fetch

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextIntervals(b backoff.BackOff, n int) []time.Duration {
	b.Reset()
	out := make([]time.Duration, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, b.NextBackOff())
	}
	return out
}

func TestParseBackoff_Intervals(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		name     string
		expected []time.Duration
	}{
		{"", []time.Duration{0, 0, 0}},
		{"none", []time.Duration{0, 0, 0}},
		{"fixed", []time.Duration{100 * ms, 100 * ms, 100 * ms}},
		{"exponential", []time.Duration{100 * ms, 200 * ms, 400 * ms, 800 * ms, time.Second, time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseBackoff(tt.name, 100*ms, time.Second)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, nextIntervals(b, len(tt.expected)))
		})
	}
}

func TestParseBackoff_ResetRestartsSchedule(t *testing.T) {
	b, err := ParseBackoff(BackoffExponential, 10*time.Millisecond, 0)
	require.NoError(t, err)

	first := nextIntervals(b, 3)
	second := nextIntervals(b, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, 40*time.Millisecond, second[2])
}

func TestParseBackoff_JitterStaysWithinFactor(t *testing.T) {
	b, err := ParseBackoff(BackoffJitter, 100*time.Millisecond, time.Second)
	require.NoError(t, err)

	ceilings := []time.Duration{100, 200, 400, 800, 1000}
	for round := 0; round < 20; round++ {
		for i, d := range nextIntervals(b, len(ceilings)) {
			base := ceilings[i] * time.Millisecond
			assert.GreaterOrEqual(t, d, base/2, "retry %d", i+1)
			assert.LessOrEqual(t, d, base*3/2, "retry %d", i+1)
		}
	}
}

func TestParseBackoff_Unknown(t *testing.T) {
	b, err := ParseBackoff("linear", time.Second, time.Minute)
	assert.Error(t, err)
	assert.Nil(t, b)
}

func TestQuota(t *testing.T) {
	q := NewQuota(2)
	assert.False(t, q.Exhausted())
	q.Consume()
	assert.False(t, q.Exhausted())
	q.Consume()
	assert.True(t, q.Exhausted())

	unlimited := NewQuota(0)
	for i := 0; i < 100; i++ {
		unlimited.Consume()
	}
	assert.False(t, unlimited.Exhausted())

	assert.Equal(t, 0, NewQuota(-3).Limit)
}
