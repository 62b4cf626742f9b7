package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	webcontext "github.com/wpkernel/wpkgen/internal/web/context"
	"github.com/wpkernel/wpkgen/internal/web/ratelimit"
)

// Rate limit response headers
const (
	RateLimitLimitHeader     = "X-RateLimit-Limit"
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
	RateLimitResetHeader     = "X-RateLimit-Reset"
)

// KeyFunc names the allowance a request is counted against
type KeyFunc func(*http.Request) string

// ClientKey counts authenticated callers by token subject and anonymous
// callers by remote address. It must run after Auth to see the subject.
func ClientKey(r *http.Request) string {
	if sub := webcontext.GetSubject(r.Context()); sub != "" {
		return "sub:" + sub
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// RateLimit rejects requests over the limiter's allowance with 429. When
// the limiter itself fails the request is admitted and the failure logged.
func RateLimit(limiter ratelimit.Limiter, key KeyFunc, logger *zap.Logger) Middleware {
	if key == nil {
		key = ClientKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			d, err := limiter.Allow(r.Context(), k)
			if err != nil {
				logger.Warn("rate limiter unavailable, admitting request",
					zap.String("key", k),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set(RateLimitLimitHeader, strconv.Itoa(d.Limit))
			h.Set(RateLimitRemainingHeader, strconv.Itoa(d.Remaining))
			h.Set(RateLimitResetHeader, strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
				logger.Debug("rate limited", zap.String("key", k))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
