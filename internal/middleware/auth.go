package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/kibslabs/labstock/internal/utils"
)

type contextKey string

// WorkerContextKey holds the authenticated worker's claims
const WorkerContextKey contextKey = "worker"

// Claims carries the identity extracted from a verified token
type Claims struct {
	WorkerID string
	Email    string
	IsAdmin  bool
}

// Auth verifies JWT tokens and attaches the worker claims to the context
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			// Bearer token
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			mapClaims, err := utils.ValidateToken(parts[1], secret)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			claims := Claims{}
			if id, ok := mapClaims["id"].(string); ok {
				claims.WorkerID = id
			}
			if email, ok := mapClaims["email"].(string); ok {
				claims.Email = email
			}
			if isAdmin, ok := mapClaims["isAdmin"].(bool); ok {
				claims.IsAdmin = isAdmin
			}

			ctx := context.WithValue(r.Context(), WorkerContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly rejects requests whose token does not carry the admin flag.
// Must be chained after Auth.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || !claims.IsAdmin {
			http.Error(w, "Admin privileges required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClaimsFromContext extracts worker claims placed by Auth
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(WorkerContextKey).(Claims)
	return claims, ok
}
