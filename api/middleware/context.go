package middleware

import (
	"context"
	"net/http"

	"github.com/jerrybuks/agentic-ecommerce/api/responses"
	pkgerrors "github.com/jerrybuks/agentic-ecommerce/pkg/errors"
	"github.com/jerrybuks/agentic-ecommerce/pkg/logger"
)

type contextKey string

const ctxUserID contextKey = "user_id"

const userIDHeader = "X-User-Id"

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// UserContext requires the caller to identify themselves through the
// X-User-Id header. Identity verification is handled upstream; this layer
// only threads the id through.
func UserContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get(userIDHeader)
			if userID == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "missing X-User-Id header"))
				return
			}

			ctx := WithUserID(r.Context(), userID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
