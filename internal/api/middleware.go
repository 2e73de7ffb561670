// Package api implements the loaderd REST API using chi.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/starford/loaderd/internal/models"
	"github.com/starford/loaderd/internal/store"
)

type contextKey string

const userContextKey contextKey = "user"

// RequireAuth returns middleware that resolves "Authorization: Bearer
// <api key>" to a registered user and stores it on the request context.
func RequireAuth(db *store.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			user, err := db.GetUserByAPIKey(strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// userFrom returns the authenticated user attached by RequireAuth.
func userFrom(r *http.Request) *models.User {
	u, _ := r.Context().Value(userContextKey).(*models.User)
	return u
}
