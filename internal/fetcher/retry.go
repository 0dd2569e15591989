package fetcher

import (
	"context"
	"time"
)

// RetryStrategy defines the backoff intervals between attempts. Attempts beyond the list reuse its last
// interval.
type RetryStrategy struct {
	Intervals  []time.Duration
	MaxRetries int
}

func DefaultRetryStrategy() *RetryStrategy {
	return &RetryStrategy{
		Intervals: []time.Duration{
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
		},
		MaxRetries: 3,
	}
}

// NoRetry makes a single attempt.
func NoRetry() *RetryStrategy {
	return &RetryStrategy{}
}

// Backoff returns the wait before retry number attempt (1-based).
func (s *RetryStrategy) Backoff(attempt int) time.Duration {
	if len(s.Intervals) == 0 || attempt < 1 {
		return 0
	}
	if attempt > len(s.Intervals) {
		return s.Intervals[len(s.Intervals)-1]
	}
	return s.Intervals[attempt-1]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
