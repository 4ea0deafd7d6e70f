// Package middleware authenticates requests and enforces roles.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/minehubyt/Anand-Pandey/internal/identity"
)

// SessionCookie carries the session token for page loads.
const SessionCookie = "akp_session"

// ContextKey is a typed key for context values.
type ContextKey string

const identityKey ContextKey = "identity"

// TokenValidator validates session tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*identity.Claims, error)
}

// TokenFromRequest returns the bearer token, falling back to the session
// cookie. Empty means no credentials were sent.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// Authenticate attaches the identity of a valid token to the request and
// lets anonymous requests through unchanged.
func Authenticate(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := TokenFromRequest(r); raw != "" {
				if claims, err := tokens.ValidateToken(raw); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), claims.Identity()))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests without a valid token.
func RequireAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := TokenFromRequest(r)
			if raw == "" {
				unauthorized(w, http.StatusUnauthorized, "authentication required")
				return
			}
			claims, err := tokens.ValidateToken(raw)
			if err != nil {
				unauthorized(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims.Identity())))
		})
	}
}

// RequireAdmin rejects requests whose identity is not an admin. It must run
// after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetIdentity(r).IsAdmin() {
			unauthorized(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity stores id on ctx.
func WithIdentity(ctx context.Context, id *identity.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the authenticated identity, or nil.
func GetIdentity(r *http.Request) *identity.Identity {
	id, _ := r.Context().Value(identityKey).(*identity.Identity)
	return id
}

func unauthorized(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
