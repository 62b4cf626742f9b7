package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Metrics tracks cache effectiveness across builds
type Metrics struct {
	Requests      int
	CacheHits     int
	CacheMisses   int
	Builds        int
	BackendErrors int
	BuildDuration time.Duration
}

// CacheHitRate returns the cache hit rate as a percentage
func (m *Metrics) CacheHitRate() float64 {
	if m.Requests == 0 {
		return 0.0
	}
	return float64(m.CacheHits) / float64(m.Requests) * 100.0
}

// Request identifies one plan build
type Request struct {
	// Path is the plan location; empty for documents that did not come
	// from disk
	Path        string
	Source      []byte
	Fingerprint string
}

// ProduceFunc builds the artifact on a cache miss
type ProduceFunc func(ctx context.Context) (*Artifact, error)

// CoordinatorOptions configures a Coordinator
type CoordinatorOptions struct {
	// Backend may be nil, which disables caching
	Backend Backend
	TTL     time.Duration
	Logger  *zap.Logger
}

// Coordinator serves plan builds from the backend and records what each
// plan path last produced
type Coordinator struct {
	backend Backend
	ttl     time.Duration
	hasher  *Hasher
	index   *Index
	logger  *zap.Logger
	metrics *Metrics
	mu      sync.Mutex
}

// NewCoordinator creates a coordinator
func NewCoordinator(opts CoordinatorOptions) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		backend: opts.Backend,
		ttl:     opts.TTL,
		hasher:  NewHasher(),
		index:   NewIndex(),
		logger:  logger,
		metrics: &Metrics{},
	}
}

// Enabled reports whether a backend is configured
func (c *Coordinator) Enabled() bool {
	return c.backend != nil
}

// Build returns the cached artifact for req, or runs produce and stores
// its result. Backend failures are logged and never fail the build.
func (c *Coordinator) Build(ctx context.Context, req Request, produce ProduceFunc) (*Artifact, bool, error) {
	key := c.hasher.Key(req.Source, req.Fingerprint)
	log := c.logger.With(zap.String("key", key[:16]), zap.String("file", req.Path))

	c.count(func(m *Metrics) { m.Requests++ })

	if c.backend != nil {
		if req.Path != "" {
			if prev, ok := c.index.Get(req.Path); ok && prev.Key != key {
				log.Debug("plan changed, dropping previous artifact", zap.String("previous", prev.Key[:16]))
				c.drop(ctx, prev.Key)
			}
		}

		art, err := c.lookup(ctx, key)
		switch {
		case err == nil:
			c.count(func(m *Metrics) { m.CacheHits++ })
			if req.Path != "" {
				c.index.Set(req.Path, key)
			}
			log.Debug("cache hit")
			return art, true, nil
		case IsMiss(err):
			log.Debug("cache miss")
		default:
			c.count(func(m *Metrics) { m.BackendErrors++ })
			log.Warn("cache read failed", zap.Error(err))
		}
	}

	c.count(func(m *Metrics) { m.CacheMisses++ })

	start := time.Now()
	art, err := produce(ctx)
	elapsed := time.Since(start)
	if err != nil {
		return nil, false, err
	}
	art.Key = key
	c.count(func(m *Metrics) {
		m.Builds++
		m.BuildDuration += elapsed
	})
	log.Info("plan built", zap.Duration("duration", elapsed), zap.Int("files", len(art.Files)))

	if c.backend != nil {
		if err := c.store(ctx, key, art); err != nil {
			c.count(func(m *Metrics) { m.BackendErrors++ })
			log.Warn("cache write failed", zap.Error(err))
		} else if req.Path != "" {
			c.index.Set(req.Path, key)
		}
	}
	return art, false, nil
}

func (c *Coordinator) lookup(ctx context.Context, key string) (*Artifact, error) {
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	art, err := DecodeArtifact(data)
	if err != nil {
		// a corrupt entry is as good as a miss
		c.drop(ctx, key)
		return nil, ErrMiss{Key: key}
	}
	return art, nil
}

func (c *Coordinator) store(ctx context.Context, key string, art *Artifact) error {
	data, err := art.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	return c.backend.Set(ctx, key, data, c.ttl)
}

func (c *Coordinator) drop(ctx context.Context, key string) {
	if err := c.backend.Delete(ctx, key); err != nil {
		c.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops the artifact last built for path
func (c *Coordinator) Invalidate(ctx context.Context, path string) bool {
	key, ok := c.index.Invalidate(path)
	if ok && c.backend != nil {
		c.drop(ctx, key)
	}
	return ok
}

// Clear empties the backend and the index
func (c *Coordinator) Clear(ctx context.Context) error {
	c.index.InvalidateAll()
	c.mu.Lock()
	c.metrics = &Metrics{}
	c.mu.Unlock()
	if c.backend == nil {
		return nil
	}
	return c.backend.Clear(ctx)
}

// GetMetrics returns a copy of the current metrics
func (c *Coordinator) GetMetrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.metrics
}

// GetCacheStats returns cache statistics
func (c *Coordinator) GetCacheStats() map[string]interface{} {
	m := c.GetMetrics()
	return map[string]interface{}{
		"enabled":    c.Enabled(),
		"index_size": c.index.Size(),
		"hits":       m.CacheHits,
		"misses":     m.CacheMisses,
		"hit_rate":   m.CacheHitRate(),
	}
}

// Close releases the backend
func (c *Coordinator) Close() error {
	if c.backend == nil {
		return nil
	}
	return c.backend.Close()
}

func (c *Coordinator) count(update func(*Metrics)) {
	c.mu.Lock()
	update(c.metrics)
	c.mu.Unlock()
}
