package webhook

import (
	"time"
)

// BackoffPolicy maps an attempt number to the wait before the next retry.
// The policy is pluggable: the dispatcher and scheduler only see this struct.
type BackoffPolicy struct {
	MaxAttempts int
	// Backoff returns the delay before the retry following the given attempt
	// number (1-based: the delay after the first failed attempt is Backoff(1)).
	Backoff func(attempt int) time.Duration
}

// Delay returns the backoff for an attempt, guarding against a nil function
// and non-positive attempts.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if p.Backoff == nil || attempt < 1 {
		return 0
	}
	return p.Backoff(attempt)
}

// ExponentialBackoff grows the delay by multiplier per attempt, capped at max.
func ExponentialBackoff(maxAttempts int, initial time.Duration, multiplier float64, max time.Duration) BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts: maxAttempts,
		Backoff: func(attempt int) time.Duration {
			d := initial
			for i := 1; i < attempt; i++ {
				d = time.Duration(float64(d) * multiplier)
				if d >= max {
					return max
				}
			}
			if d > max {
				return max
			}
			return d
		},
	}
}

// FixedBackoff waits the same interval between every retry.
func FixedBackoff(maxAttempts int, interval time.Duration) BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts: maxAttempts,
		Backoff: func(int) time.Duration {
			return interval
		},
	}
}

// DefaultBackoffPolicy mirrors the platform default: 5 attempts, 15s initial
// delay doubling up to 10m.
func DefaultBackoffPolicy() BackoffPolicy {
	return ExponentialBackoff(5, 15*time.Second, 2.0, 10*time.Minute)
}
