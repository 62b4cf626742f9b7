// Package ratelimit throttles compile service callers. Bucket keeps
// per-process token buckets; Window shares a sliding window between
// replicas through redis.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Limiter admits or rejects one request counted against key
type Limiter interface {
	Allow(ctx context.Context, key string) (*Decision, error)
}

// Decision is the limiter state after a request was counted
type Decision struct {
	// Limit is the number of requests admitted per window
	Limit int
	// Remaining is the number of requests still admitted right now
	Remaining int
	// ResetAt is when the allowance recovers: a full bucket for Bucket, the
	// oldest request leaving the window for Window
	ResetAt time.Time
	// RetryAfter is how long a rejected caller has to wait; zero when allowed
	RetryAfter time.Duration
	Allowed    bool
}

var (
	errLimit  = errors.New("limit must be greater than 0")
	errWindow = errors.New("window must be greater than 0")
)

func validate(limit int, window time.Duration) error {
	if limit <= 0 {
		return errLimit
	}
	if window <= 0 {
		return errWindow
	}
	return nil
}
