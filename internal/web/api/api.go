// Package api exposes plan builds over HTTP and websocket
package api

import (
	"context"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wpkernel/wpkgen/internal/build"
	"github.com/wpkernel/wpkgen/internal/compiler/plan"
	"github.com/wpkernel/wpkgen/internal/ledger"
	"github.com/wpkernel/wpkgen/internal/web/auth"
	"github.com/wpkernel/wpkgen/internal/web/etag"
	"github.com/wpkernel/wpkgen/internal/web/middleware"
	"github.com/wpkernel/wpkgen/internal/web/profiling"
	"github.com/wpkernel/wpkgen/internal/web/ratelimit"
	"github.com/wpkernel/wpkgen/internal/web/response"
)

// MaxPlanBytes bounds the size of a posted plan
const MaxPlanBytes = 4 << 20

// CacheHeader reports whether a build was served from the cache
const CacheHeader = "X-Wpkgen-Cache"

// History lists recorded builds
type History interface {
	List(ctx context.Context, limit int) ([]ledger.Entry, error)
	Get(ctx context.Context, id uuid.UUID) (ledger.Entry, error)
}

// Options configures the service
type Options struct {
	Pipeline *build.Pipeline
	// Auth may be nil, which leaves every endpoint open
	Auth *auth.AuthService
	// History may be nil when the ledger is disabled
	History History
	// RateLimiter throttles the compile endpoints; nil disables throttling
	RateLimiter ratelimit.Limiter
	// Profiling mounts pprof and runtime stats under /debug
	Profiling bool
	Metrics   *Metrics
	Logger    *zap.Logger
}

// Service is the compile service
type Service struct {
	pipeline *build.Pipeline
	auth     *auth.AuthService
	history  History
	limiter  ratelimit.Limiter
	profile  bool
	metrics  *Metrics
	logger   *zap.Logger
}

// New creates a service. The pipeline reports to the service metrics.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	pipeline := opts.Pipeline
	if pipeline == nil {
		pipeline = &build.Pipeline{Logger: logger}
	}
	if pipeline.Observer == nil {
		pipeline.Observer = metrics
	}
	return &Service{
		pipeline: pipeline,
		auth:     opts.Auth,
		history:  opts.History,
		limiter:  opts.RateLimiter,
		profile:  opts.Profiling,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handler returns the routed service
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(),
		middleware.LoggingWithConfig(middleware.LoggingConfig{Logger: s.logger, SkipPaths: []string{"/healthz", "/metrics"}}),
		middleware.Recovery(s.logger),
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.require(auth.ScopeCompile))
			if s.limiter != nil {
				r.Use(middleware.RateLimit(s.limiter, middleware.ClientKey, s.logger))
			}
			r.Post("/compile", s.handleCompile)
			r.Get("/compile/stream", s.handleStream)
		})
		r.Group(func(r chi.Router) {
			r.Use(s.require(auth.ScopeHistory))
			r.Get("/builds", s.handleListBuilds)
			r.Get("/builds/{id}", s.handleGetBuild)
		})
	})

	if s.profile {
		r.Group(func(r chi.Router) {
			r.Use(s.require(auth.ScopeDebug))
			profiling.Register(r)
		})
	}
	return r
}

func (s *Service) require(scope string) func(http.Handler) http.Handler {
	if s.auth == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.Auth(s.auth, scope)
}

func (s *Service) handleCompile(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxPlanBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			response.RenderError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		response.RenderError(w, http.StatusBadRequest, err)
		return
	}

	in := build.Input{Source: body, Format: formatOf(r.Header.Get("Content-Type"))}
	if v := r.URL.Query().Get("includeBaseController"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			response.RenderError(w, http.StatusBadRequest, stderrors.New("includeBaseController must be a boolean"))
			return
		}
		in.IncludeBaseController = &include
	}

	res, err := s.pipeline.Run(r.Context(), in)
	if err != nil {
		s.metrics.failed()
		response.RenderError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set(CacheHeader, cacheState(res.Cached))
	if res.Artifact.Key != "" {
		w.Header().Set("ETag", etag.Strong(res.Artifact.Key))
	}
	response.JSON(w, http.StatusOK, res.Artifact)
}

func (s *Service) handleListBuilds(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		response.RenderError(w, http.StatusServiceUnavailable, stderrors.New("build ledger is disabled"))
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.RenderError(w, http.StatusBadRequest, stderrors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		response.RenderError(w, http.StatusInternalServerError, err)
		return
	}
	response.JSON(w, http.StatusOK, entries)
}

func (s *Service) handleGetBuild(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		response.RenderError(w, http.StatusServiceUnavailable, stderrors.New("build ledger is disabled"))
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.RenderError(w, http.StatusBadRequest, err)
		return
	}

	entry, err := s.history.Get(r.Context(), id)
	switch {
	case ledger.IsNotFound(err):
		response.RenderError(w, http.StatusNotFound, err)
	case err != nil:
		response.RenderError(w, http.StatusInternalServerError, err)
	default:
		// recorded builds never change
		if etag.NotModified(w, r, etag.Strong(entry.ID.String()), entry.CreatedAt, "private, max-age=3600") {
			return
		}
		response.JSON(w, http.StatusOK, entry)
	}
}

// formatOf maps a request content type onto a plan format; YAML is the
// default
func formatOf(contentType string) plan.Format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && (mediaType == "application/json" || mediaType == "text/json") {
		return plan.FormatJSON
	}
	return plan.FormatYAML
}

func cacheState(cached bool) string {
	if cached {
		return "hit"
	}
	return "miss"
}
