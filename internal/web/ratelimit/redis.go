package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow keeps one sorted-set member per admitted request, scored
// in microseconds. Scores travel as strings so Lua never rounds them.
// Returns {allowed, count, oldest score}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', ARGV[2])

local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
	redis.call('ZADD', key, ARGV[1], ARGV[4])
	count = count + 1
	allowed = 1
end
redis.call('PEXPIRE', key, ARGV[5])

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] == nil then
	return {allowed, count, ARGV[1]}
end
return {allowed, count, oldest[2]}
`)

// WindowConfig configures a Window
type WindowConfig struct {
	Client *redis.Client
	Limit  int
	Window time.Duration
	// Prefix namespaces the redis keys
	Prefix string
}

// Window is a redis sliding window limiter. Every replica of the compile
// service pointed at the same redis shares the allowance.
type Window struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewWindow creates a sliding window limiter. The window owns client.
func NewWindow(cfg WindowConfig) (*Window, error) {
	if cfg.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if err := validate(cfg.Limit, cfg.Window); err != nil {
		return nil, err
	}
	return &Window{
		client: cfg.Client,
		limit:  cfg.Limit,
		window: cfg.Window,
		prefix: cfg.Prefix,
		now:    time.Now,
	}, nil
}

// Allow records a request for key if the window has room
func (w *Window) Allow(ctx context.Context, key string) (*Decision, error) {
	now := w.now()
	raw, err := slidingWindow.Run(ctx, w.client, []string{w.prefix + key},
		strconv.FormatInt(now.UnixMicro(), 10),
		strconv.FormatInt(now.Add(-w.window).UnixMicro(), 10),
		w.limit,
		uuid.NewString(),
		w.window.Milliseconds(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(raw) != 3 {
		return nil, fmt.Errorf("unexpected rate limit reply: %v", raw)
	}

	allowed, ok1 := raw[0].(int64)
	count, ok2 := raw[1].(int64)
	oldestRaw, ok3 := raw[2].(string)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("unexpected rate limit reply: %v", raw)
	}
	oldest, err := strconv.ParseFloat(oldestRaw, 64)
	if err != nil {
		return nil, fmt.Errorf("unexpected rate limit reply: %w", err)
	}

	resetAt := time.UnixMicro(int64(oldest)).Add(w.window)
	d := &Decision{
		Limit:     w.limit,
		Remaining: max(w.limit-int(count), 0),
		ResetAt:   resetAt,
		Allowed:   allowed == 1,
	}
	if !d.Allowed {
		d.RetryAfter = max(resetAt.Sub(now), 0)
	}
	return d, nil
}

// Reset forgets every request recorded for key
func (w *Window) Reset(ctx context.Context, key string) error {
	return w.client.Del(ctx, w.prefix+key).Err()
}

// Close closes the redis client
func (w *Window) Close() error {
	return w.client.Close()
}
