package ratelimit

import (
	"context"
	"sync"
	"time"
)

// BucketConfig configures a Bucket
type BucketConfig struct {
	// Limit requests are admitted per Window; an idle caller may burst up
	// to Limit at once
	Limit  int
	Window time.Duration
	// SweepInterval drops buckets that have refilled completely. Zero
	// disables the sweeper.
	SweepInterval time.Duration
}

// Bucket is an in-memory token bucket limiter. Tokens refill continuously
// at Limit per Window.
type Bucket struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	now     func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

type bucket struct {
	tokens  float64
	updated time.Time
}

// NewBucket creates a token bucket limiter
func NewBucket(cfg BucketConfig) (*Bucket, error) {
	if err := validate(cfg.Limit, cfg.Window); err != nil {
		return nil, err
	}
	b := &Bucket{
		buckets: make(map[string]*bucket),
		limit:   cfg.Limit,
		window:  cfg.Window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if cfg.SweepInterval > 0 {
		go b.sweepLoop(cfg.SweepInterval)
	}
	return b, nil
}

// Allow takes one token from key's bucket
func (b *Bucket) Allow(_ context.Context, key string) (*Decision, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	s, ok := b.buckets[key]
	if !ok {
		s = &bucket{tokens: float64(b.limit), updated: now}
		b.buckets[key] = s
	} else if elapsed := now.Sub(s.updated); elapsed > 0 {
		s.tokens = min(float64(b.limit), s.tokens+float64(elapsed)/float64(b.perToken()))
		s.updated = now
	}

	d := &Decision{Limit: b.limit}
	if s.tokens >= 1 {
		s.tokens--
		d.Allowed = true
	} else {
		d.RetryAfter = b.refill(1 - s.tokens)
	}
	d.Remaining = int(s.tokens)
	d.ResetAt = now.Add(b.refill(float64(b.limit) - s.tokens))
	return d, nil
}

// perToken is the time one token takes to refill
func (b *Bucket) perToken() time.Duration {
	return b.window / time.Duration(b.limit)
}

func (b *Bucket) refill(tokens float64) time.Duration {
	return time.Duration(tokens * float64(b.perToken()))
}

func (b *Bucket) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.sweep()
		case <-b.stop:
			return
		}
	}
}

// sweep drops buckets idle for a whole window; they are full again and
// indistinguishable from a new bucket
func (b *Bucket) sweep() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for key, s := range b.buckets {
		if now.Sub(s.updated) >= b.window {
			delete(b.buckets, key)
		}
	}
}

// Len returns the number of tracked keys
func (b *Bucket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buckets)
}

// Close stops the sweeper
func (b *Bucket) Close() error {
	b.closeOnce.Do(func() { close(b.stop) })
	return nil
}
