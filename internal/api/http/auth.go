package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"musicclub-backend/internal/security"
)

type contextKey string

const reviewerKey contextKey = "reviewer-id"

// RequireAdmin rejects requests without a valid ADMIN bearer token and puts
// the token subject into the request context as the reviewer ID.
func RequireAdmin(tm security.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authorization token is not provided"})
				return
			}

			claims, err := tm.ValidateToken(token)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, security.ErrWrongTokenType) {
					status = http.StatusForbidden
				}
				writeJSON(w, status, errorResponse{Error: err.Error()})
				return
			}
			if !claims.HasRole(security.RoleAdmin) {
				writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin role required"})
				return
			}

			ctx := context.WithValue(r.Context(), reviewerKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}
	return strings.TrimSpace(token)
}

// ReviewerFromContext returns the reviewer ID set by RequireAdmin.
func ReviewerFromContext(ctx context.Context) string {
	id, _ := ctx.Value(reviewerKey).(string)
	return id
}
