package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

// WithUserID stores the authenticated user id in the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Middleware resolves the bearer token, if any, into a user id on the
// request context. Requests without an Authorization header pass through
// anonymously; a malformed or invalid token is rejected with 401.
func Middleware(ts *TokenService, onReject func(w http.ResponseWriter, r *http.Request)) func(http.Handler) http.Handler {
	if onReject == nil {
		onReject = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(tokenStr) == "" {
				onReject(w, r)
				return
			}
			userID, err := ts.ParseToken(strings.TrimSpace(tokenStr))
			if err != nil {
				onReject(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
