// middleware/auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/models"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/utils"
)

// contextKey keeps request-context values private to this package.
type contextKey string

const (
	ctxUserID   contextKey = "userID"
	ctxUserName contextKey = "userName"
	ctxUserRole contextKey = "userRole"
)

// Auth verifies the Bearer token and stashes the caller's identity in
// the request context. The websocket endpoint is not mounted behind
// this middleware; it authenticates its own token query parameter.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondWithError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}

		claims, err := utils.ValidateJWT(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxUserName, claims.Name)
		ctx = context.WithValue(ctx, ctxUserRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin gates mutating routes behind the admin role. Must run
// after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value(ctxUserRole).(string)
		if role != models.RoleAdmin {
			utils.RespondWithError(w, http.StatusForbidden, "Admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
