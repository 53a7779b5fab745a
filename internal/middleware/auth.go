package middleware

import (
	"context"
	"net/http"
)

type ctxKey struct{}

// SessionResolver maps a request to the logged-in user id. It returns 0 and
// a nil error when the request carries no live session.
type SessionResolver interface {
	Resolve(r *http.Request) (int64, error)
}

// RequireAuth rejects requests without a live session and injects the user
// id into the request context.
func RequireAuth(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := sessions.Resolve(r)
			if err != nil || userID == 0 {
				http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the id stored by RequireAuth.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok && id != 0
}
