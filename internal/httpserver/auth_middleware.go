package httpserver

import (
	"context"
	"net/http"
	"strings"

	"worklink/internal/domain"
	"worklink/internal/security"
)

type contextKey string

const principalContextKey contextKey = "currentPrincipal"

// WithPrincipal returns a new context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// CurrentPrincipal extracts the authenticated principal from the request, if
// any.
func CurrentPrincipal(r *http.Request) (domain.Principal, bool) {
	p, ok := r.Context().Value(principalContextKey).(domain.Principal)
	return p, ok
}

// AuthMiddleware validates the Bearer token and attaches the principal to
// the request context. Identity is resolved upstream; the token's signed
// claims are trusted as-is.
func AuthMiddleware(tokens *security.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimSpace(authHeader[len("Bearer "):])

			claims, err := tokens.Parse(tokenStr)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			principal, err := security.PrincipalFromClaims(claims)
			if err != nil {
				http.Error(w, "invalid token subject", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
