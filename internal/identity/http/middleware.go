package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/arcwell/identity/internal/identity/domain"
	"github.com/arcwell/identity/internal/identity/service"
	"github.com/arcwell/identity/pkg/httpx"
)

type authCtxKey struct{}

type authInfo struct {
	user  domain.User
	token string
}

// userFromContext returns the authenticated user placed by requireAuth.
func userFromContext(ctx context.Context) (domain.User, bool) {
	info, ok := ctx.Value(authCtxKey{}).(authInfo)
	return info.user, ok
}

// tokenFromContext returns the bearer token that authenticated the request.
func tokenFromContext(ctx context.Context) string {
	info, _ := ctx.Value(authCtxKey{}).(authInfo)
	return info.token
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// requireAuth authenticates the bearer token and enforces scopes. The
// resolved user lands in the request context, along with the user id the
// per-user rate limiter keys on.
func requireAuth(tokens *service.TokenService, scopes ...string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeServiceError(w, r, service.UnauthorizedError("missing bearer token"))
				return
			}

			user, err := tokens.Authenticate(r.Context(), token, scopes...)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), authCtxKey{}, authInfo{user: user, token: token})
			ctx = httpx.ContextWithUserID(ctx, strconv.FormatInt(user.ID, 10))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
