package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/giftwish/giftwish/auth"
	"github.com/giftwish/giftwish/permissions"
	"github.com/giftwish/giftwish/token"
)

type contextKey string

const claimsContextKey contextKey = "accessClaims"

// ClaimsFromContext returns the verified access claims stored by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*token.Claims)
	return claims, ok
}

// callerEmail returns the authenticated caller's email, or "" when the
// request is anonymous.
func callerEmail(ctx context.Context) string {
	if claims, ok := ClaimsFromContext(ctx); ok {
		return claims.Email
	}
	return ""
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// RequireAuth gates a route behind a valid access token carrying every
// required permission. A missing or invalid token is a 401; a valid token
// lacking scopes is a 403.
func (s *Server) RequireAuth(required ...permissions.Permission) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				s.writeError(w, r, auth.ErrNoCredentials)
				return
			}

			claims, err := s.services.Auth.VerifyAccess(raw)
			if err != nil {
				s.writeError(w, r, auth.ErrUnauthorized)
				return
			}

			if !permissions.Satisfies(claims.Permissions, required) {
				s.writeError(w, r, auth.ErrInsufficientPermissions)
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), claimsContextKey, claims)))
		}
	}
}

// OptionalAuth lets anonymous requests through, attaching claims only when a
// valid access token is presented. A bad token is treated as no token.
func (s *Server) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			next(w, r)
			return
		}
		claims, err := s.services.Auth.VerifyAccess(raw)
		if err != nil {
			next(w, r)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsContextKey, claims)))
	}
}
