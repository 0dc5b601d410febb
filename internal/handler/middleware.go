package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/oumalord/DIGIPESA/internal/auth"
	"github.com/oumalord/DIGIPESA/internal/models"
	u "github.com/oumalord/DIGIPESA/internal/utils"
)

type contextKey string

const claimsKey contextKey = "claims"

// ClaimsFromContext returns the token claims injected by Authenticate.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// Authenticate enforces a Bearer token and injects the parsed claims
// into the request context.
func Authenticate(tokens *auth.TokenManager) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				u.WriteError(w, http.StatusUnauthorized, "missing authorization", "")
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				u.WriteError(w, http.StatusUnauthorized, "invalid authorization header", "")
				return
			}
			claims, err := tokens.Parse(parts[1])
			if err != nil {
				u.WriteError(w, http.StatusUnauthorized, "invalid token", "")
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose token role is not in the allowed
// set.
func RequireRole(roles ...models.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				u.WriteError(w, http.StatusUnauthorized, "missing authorization", "")
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			u.WriteError(w, http.StatusForbidden, "insufficient role", "")
		})
	}
}
