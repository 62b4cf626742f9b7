package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wpkernel/wpkgen/internal/build"
	"github.com/wpkernel/wpkgen/internal/compiler/cache"
	"github.com/wpkernel/wpkgen/internal/compiler/codegen"
	"github.com/wpkernel/wpkgen/internal/ledger"
	"github.com/wpkernel/wpkgen/internal/web/ratelimit"
)

// cacheBackend opens the configured artifact cache; nil means disabled
func (a *app) cacheBackend(ctx context.Context) (cache.Backend, error) {
	cc := a.cfg.Cache
	settings := cache.Config{TTL: cc.TTL, Prefix: cc.Prefix, Size: cc.Size}

	switch cc.Backend {
	case "memory":
		return cache.NewMemoryBackend(settings), nil
	case "redis":
		backend, err := cache.NewRedisBackend(ctx, cache.RedisConfig{
			Addr:     cc.Redis.Addr,
			Password: cc.Redis.Password,
			DB:       cc.Redis.DB,
			Config:   settings,
		})
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return nil, nil
	}
}

// openLedger opens and migrates the build ledger; nil when disabled
func (a *app) openLedger(ctx context.Context) (*ledger.Store, error) {
	lc := a.cfg.Ledger
	if !lc.Enabled {
		return nil, nil
	}
	if lc.Driver == ledger.DriverSQLite {
		if dir := sqliteDir(lc.DSN); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create ledger directory: %w", err)
			}
		}
	}

	store, err := ledger.Open(lc.Driver, lc.DSN, a.logger)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// sqliteDir is the directory holding a sqlite database file, or "" for
// in-memory and URI databases
func sqliteDir(dsn string) string {
	if dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return ""
	}
	path, _, _ := strings.Cut(dsn, "?")
	if dir := filepath.Dir(path); dir != "." {
		return dir
	}
	return ""
}

// pipeline wires a build pipeline from the configuration. The returned
// close func releases the cache and the ledger.
func (a *app) pipeline(ctx context.Context) (*build.Pipeline, *ledger.Store, func(), error) {
	backend, err := a.cacheBackend(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open cache: %w", err)
	}
	coordinator := cache.NewCoordinator(cache.CoordinatorOptions{
		Backend: backend,
		TTL:     a.cfg.Cache.TTL,
		Logger:  a.logger,
	})

	store, err := a.openLedger(ctx)
	if err != nil {
		coordinator.Close()
		return nil, nil, nil, fmt.Errorf("failed to open build ledger: %w", err)
	}

	p := &build.Pipeline{
		Generator:   codegen.NewGenerator(codegen.Options{Logger: a.logger, Workers: a.cfg.Build.Workers}),
		Coordinator: coordinator,
		Logger:      a.logger,
	}
	if store != nil {
		p.Recorder = store
	}

	closeFn := func() {
		if err := coordinator.Close(); err != nil {
			a.logger.Warn("cache close failed", zap.Error(err))
		}
		if store != nil {
			if err := store.Close(); err != nil {
				a.logger.Warn("ledger close failed", zap.Error(err))
			}
		}
	}
	return p, store, closeFn, nil
}

type closingLimiter interface {
	ratelimit.Limiter
	io.Closer
}

// rateLimiter builds the compile endpoint limiter; nil when throttling is
// off. Replicas sharing a redis cache share the allowance too.
func (a *app) rateLimiter(ctx context.Context) (closingLimiter, error) {
	rl := a.cfg.Server.RateLimit
	if rl.Requests == 0 {
		return nil, nil
	}

	if a.cfg.Cache.Backend != "redis" {
		bucket, err := ratelimit.NewBucket(ratelimit.BucketConfig{
			Limit:         rl.Requests,
			Window:        rl.Window,
			SweepInterval: rl.Window,
		})
		if err != nil {
			return nil, err
		}
		return bucket, nil
	}

	rc := a.cfg.Cache.Redis
	client := redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", rc.Addr, err)
	}
	window, err := ratelimit.NewWindow(ratelimit.WindowConfig{
		Client: client,
		Limit:  rl.Requests,
		Window: rl.Window,
		// kept outside the cache prefix so "cache clear" leaves it alone
		Prefix: "ratelimit:" + a.cfg.Cache.Prefix,
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return window, nil
}
