package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryBackend keeps artifacts in a bounded, expiring LRU. Entries share
// the TTL of the config; the ttl passed to Set is ignored.
type MemoryBackend struct {
	lru    *expirable.LRU[string, []byte]
	config Config
}

// NewMemoryBackend creates an in-process backend
func NewMemoryBackend(config Config) *MemoryBackend {
	if config.Size <= 0 {
		config.Size = DefaultConfig().Size
	}
	return &MemoryBackend{
		lru:    expirable.NewLRU[string, []byte](config.Size, nil, config.TTL),
		config: config,
	}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, ok := m.lru.Get(m.config.Prefix + key)
	if !ok {
		return nil, ErrMiss{Key: key}
	}
	return value, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// callers may reuse their buffer
	stored := make([]byte, len(value))
	copy(stored, value)
	m.lru.Add(m.config.Prefix+key, stored)
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.lru.Remove(m.config.Prefix + key)
	return nil
}

func (m *MemoryBackend) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.lru.Purge()
	return nil
}

// Len returns the number of live entries
func (m *MemoryBackend) Len() int {
	return m.lru.Len()
}

func (m *MemoryBackend) Close() error {
	m.lru.Purge()
	return nil
}
