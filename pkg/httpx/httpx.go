// Package httpx carries the small HTTP plumbing shared by handlers:
// JSON responses, middleware chaining and token-bucket rate limiting.
package httpx

import (
	"context"
	"net/http"
)

// Middleware wraps an http.Handler with extra behaviour.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to h so the first listed runs outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type ctxKey string

// CtxKeyUserID holds the authenticated user id (decimal string) once the
// authentication middleware has run. Used for per-user rate limiting.
const CtxKeyUserID ctxKey = "user_id"

func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxKeyUserID, userID)
}
