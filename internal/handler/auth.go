package handler

import (
	"context"
	"net/http"
)

type userKey struct{}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// requireUser writes 401 and returns "" when the request is anonymous.
func requireUser(w http.ResponseWriter, r *http.Request) string {
	id := UserID(r.Context())
	if id == "" {
		respondError(w, http.StatusUnauthorized, "authentication required")
	}
	return id
}
