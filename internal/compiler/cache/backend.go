package cache

import (
	"context"
	"errors"
	"time"
)

// Backend is a byte store for encoded artifacts
type Backend interface {
	// Get retrieves a value, returning ErrMiss when the key is absent
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A zero ttl uses the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// Clear removes every value stored under the backend prefix
	Clear(ctx context.Context) error

	Close() error
}

// Config holds settings shared by all backends
type Config struct {
	// TTL is the default time-to-live of an artifact
	TTL time.Duration
	// Prefix is prepended to all keys
	Prefix string
	// Size bounds the number of artifacts kept in memory
	Size int
}

// DefaultConfig returns the default backend configuration
func DefaultConfig() Config {
	return Config{
		TTL:    24 * time.Hour,
		Prefix: "wpkgen:",
		Size:   128,
	}
}

// ErrMiss is returned when a key is not in the cache
type ErrMiss struct {
	Key string
}

func (e ErrMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsMiss reports whether err is (or wraps) a cache miss
func IsMiss(err error) bool {
	var miss ErrMiss
	return errors.As(err, &miss)
}
