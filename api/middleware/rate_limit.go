package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/jerrybuks/agentic-ecommerce/api/responses"
	"github.com/jerrybuks/agentic-ecommerce/pkg/config"
	pkgerrors "github.com/jerrybuks/agentic-ecommerce/pkg/errors"
	"github.com/jerrybuks/agentic-ecommerce/pkg/logger"
)

// Limiter is the slice of the redis client the rate limiter needs.
type Limiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit applies a per-user fixed window to the wrapped routes. A broken
// limiter fails open: throttling is protection, not a correctness gate.
func RateLimit(cfg config.RateLimitConfig, limiter Limiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || cfg.PerUserLimit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			userID := UserIDFromContext(ctx)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, count, err := limiter.FixedWindowAllow(ctx, "agent:query:"+userID, int64(cfg.PerUserLimit), cfg.Window)
			if err != nil {
				if logg != nil {
					logg.Error(ctx, "rate limit check failed", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "count", count), "rate limit exceeded")
				}
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests, slow down"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
