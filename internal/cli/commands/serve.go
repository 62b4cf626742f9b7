package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wpkernel/wpkgen/internal/cli/ui"
	"github.com/wpkernel/wpkgen/internal/web/api"
	"github.com/wpkernel/wpkgen/internal/web/auth"
	"github.com/wpkernel/wpkgen/internal/web/server"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the compile service",
		Long: `Serve plan builds over HTTP.

Endpoints:
  POST /v1/compile          build a plan posted as YAML or JSON
  GET  /v1/compile/stream   websocket; warnings stream before the result
  GET  /v1/builds           recent builds from the ledger
  GET  /v1/builds/{id}      one recorded build
  GET  /metrics             prometheus metrics
  GET  /healthz             liveness
  GET  /debug/pprof/*       profiles, with server.pprof
  GET  /debug/stats         runtime statistics, with server.pprof

When server.jwt_secret is set every /v1 and /debug endpoint needs a
bearer token; mint one with "wpkgen token". The compile endpoints admit
server.rate_limit.requests per caller and window.`,
		Example: `  wpkgen serve --addr :9000
  WPKGEN_SERVER_JWT_SECRET=s3cret wpkgen serve --cache redis`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, a)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default: :8080)")
	cmd.Flags().String("secret", "", "JWT secret; empty leaves the service open")
	cmd.Flags().String("cache", "", "Cache backend: memory, redis or none")
	cmd.Flags().Int("workers", 0, "Controllers built concurrently per request")
	cmd.Flags().Int("rate-limit", 0, "Compile requests per caller and window; 0 disables")
	cmd.Flags().Bool("pprof", false, "Mount /debug/pprof and /debug/stats")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, a *app) error {
	pipeline, store, release, err := a.pipeline(ctx)
	if err != nil {
		return err
	}
	limiter, err := a.rateLimiter(ctx)
	if err != nil {
		release()
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}

	// released by the shutdown hook, or here when Run fails to listen
	var once sync.Once
	closeFn := func() {
		once.Do(func() {
			release()
			if limiter != nil {
				if err := limiter.Close(); err != nil {
					a.logger.Warn("rate limiter close failed", zap.Error(err))
				}
			}
		})
	}
	defer closeFn()

	opts := api.Options{Pipeline: pipeline, Profiling: a.cfg.Server.Pprof, Logger: a.logger}
	if store != nil {
		opts.History = store
	}
	if limiter != nil {
		opts.RateLimiter = limiter
	}
	if secret := a.cfg.Server.JWTSecret; secret != "" {
		opts.Auth = auth.NewAuthService(secret, a.cfg.Server.TokenTTL)
	} else {
		ui.Message{
			Level:   ui.LevelWarning,
			Problem: "server.jwt_secret is not set; the compile service accepts anonymous requests",
			NoColor: a.noColor,
		}.Write(cmd.ErrOrStderr())
	}

	cfg := server.DefaultConfig(api.New(opts).Handler())
	cfg.Address = a.cfg.Server.Addr
	srv, err := server.New(cfg, a.logger)
	if err != nil {
		return err
	}
	srv.RegisterHook(func(context.Context) error {
		closeFn()
		return nil
	})

	a.logger.Info("compile service configured",
		zap.String("cache", a.cfg.Cache.Backend),
		zap.Bool("ledger", store != nil),
		zap.Bool("auth", opts.Auth != nil),
		zap.Int("rate_limit", a.cfg.Server.RateLimit.Requests),
		zap.Bool("pprof", opts.Profiling),
	)
	return srv.Run(ctx)
}
