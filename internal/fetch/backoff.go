package fetch

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Backoff strategy names accepted by ParseBackoff.
const (
	BackoffNone        = "none"
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
	BackoffJitter      = "jitter"
)

// JitterFactor is the randomization applied by the jitter strategy: each
// wait is drawn from [0.5, 1.5] times the exponential interval.
const JitterFactor = 0.5

// ParseBackoff builds a wait policy from its configuration name. Exponential
// strategies double from base and are capped at max when max is positive.
func ParseBackoff(name string, base, max time.Duration) (backoff.BackOff, error) {
	switch name {
	case "", BackoffNone:
		return &backoff.ZeroBackOff{}, nil
	case BackoffFixed:
		return backoff.NewConstantBackOff(base), nil
	case BackoffExponential:
		return exponential(base, max, 0), nil
	case BackoffJitter:
		return exponential(base, max, JitterFactor), nil
	default:
		return nil, fmt.Errorf("unknown backoff strategy %q", name)
	}
}

func exponential(base, max time.Duration, randomization float64) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.RandomizationFactor = randomization
	if max > 0 {
		b.MaxInterval = max
	}
	b.Reset()
	return b
}
