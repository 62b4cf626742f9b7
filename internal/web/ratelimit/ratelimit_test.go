package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func newClock() *clock { return &clock{t: time.Unix(1_700_000_000, 0)} }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func allow(t *testing.T, l Limiter, key string) *Decision {
	t.Helper()
	d, err := l.Allow(context.Background(), key)
	require.NoError(t, err)
	return d
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		limit  int
		window time.Duration
		err    error
	}{
		{"zero limit", 0, time.Minute, errLimit},
		{"negative limit", -1, time.Minute, errLimit},
		{"zero window", 10, 0, errWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBucket(BucketConfig{Limit: tt.limit, Window: tt.window})
			assert.ErrorIs(t, err, tt.err)

			_, err = NewWindow(WindowConfig{Client: &redis.Client{}, Limit: tt.limit, Window: tt.window})
			assert.ErrorIs(t, err, tt.err)
		})
	}

	_, err := NewWindow(WindowConfig{Limit: 1, Window: time.Second})
	assert.EqualError(t, err, "redis client is required")
}

func TestBucketBurstAndRefill(t *testing.T) {
	b, err := NewBucket(BucketConfig{Limit: 3, Window: 3 * time.Second})
	require.NoError(t, err)
	defer b.Close()
	c := newClock()
	b.now = c.now

	for i := 2; i >= 0; i-- {
		d := allow(t, b, "a")
		assert.True(t, d.Allowed)
		assert.Equal(t, 3, d.Limit)
		assert.Equal(t, i, d.Remaining)
	}

	d := allow(t, b, "a")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, time.Second, d.RetryAfter)
	assert.Equal(t, c.t.Add(3*time.Second), d.ResetAt)

	// other keys are unaffected
	assert.True(t, allow(t, b, "b").Allowed)

	c.advance(500 * time.Millisecond)
	d = allow(t, b, "a")
	assert.False(t, d.Allowed)
	assert.Equal(t, 500*time.Millisecond, d.RetryAfter)

	c.advance(500 * time.Millisecond)
	d = allow(t, b, "a")
	assert.True(t, d.Allowed)
	assert.Zero(t, d.RetryAfter)

	// refill never exceeds the limit
	c.advance(time.Hour)
	d = allow(t, b, "a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)
}

func TestBucketSweep(t *testing.T) {
	b, err := NewBucket(BucketConfig{Limit: 1, Window: time.Minute})
	require.NoError(t, err)
	defer b.Close()
	c := newClock()
	b.now = c.now

	allow(t, b, "old")
	c.advance(30 * time.Second)
	allow(t, b, "new")
	require.Equal(t, 2, b.Len())

	c.advance(30 * time.Second)
	b.sweep()
	assert.Equal(t, 1, b.Len())

	assert.True(t, allow(t, b, "old").Allowed)
	assert.False(t, allow(t, b, "new").Allowed)
}

func TestBucketCloseTwice(t *testing.T) {
	b, err := NewBucket(BucketConfig{Limit: 1, Window: time.Minute, SweepInterval: time.Millisecond})
	require.NoError(t, err)
	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())
}

func newWindow(t *testing.T, limit int, window time.Duration) (*Window, *miniredis.Miniredis, *clock) {
	t.Helper()
	mr := miniredis.RunT(t)
	w, err := NewWindow(WindowConfig{
		Client: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		Limit:  limit,
		Window: window,
		Prefix: "rl:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	c := newClock()
	w.now = c.now
	return w, mr, c
}

func TestWindowSlides(t *testing.T) {
	w, mr, c := newWindow(t, 2, time.Minute)
	start := c.t

	d := allow(t, w, "a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, start.Add(time.Minute), d.ResetAt)

	c.advance(20 * time.Second)
	d = allow(t, w, "a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	c.advance(10 * time.Second)
	d = allow(t, w, "a")
	assert.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.RetryAfter)
	assert.Equal(t, start.Add(time.Minute), d.ResetAt)

	assert.True(t, mr.Exists("rl:a"))
	assert.True(t, allow(t, w, "b").Allowed)

	// the first request leaves the window
	c.advance(31 * time.Second)
	d = allow(t, w, "a")
	assert.True(t, d.Allowed)
	assert.Equal(t, start.Add(20*time.Second+time.Minute), d.ResetAt)
}

func TestWindowReset(t *testing.T) {
	w, mr, _ := newWindow(t, 1, time.Minute)

	assert.True(t, allow(t, w, "a").Allowed)
	assert.False(t, allow(t, w, "a").Allowed)

	require.NoError(t, w.Reset(context.Background(), "a"))
	assert.False(t, mr.Exists("rl:a"))
	assert.True(t, allow(t, w, "a").Allowed)
}

func TestWindowRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	w, err := NewWindow(WindowConfig{
		Client: redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}),
		Limit:  1,
		Window: time.Minute,
	})
	require.NoError(t, err)
	defer w.Close()
	mr.Close()

	_, err = w.Allow(context.Background(), "a")
	assert.ErrorContains(t, err, "rate limit check failed")
}
