package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/jackknife/charsheet/internal/auth"
)

// RequireAuth is middleware that validates the session cookie and
// injects the username into the request context.
func RequireAuth(sessions auth.SessionStore, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, ok := lookup(sessions, log, r)
			if !ok {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUsername(r.Context(), username)))
		})
	}
}

// OptionalAuth injects the username when a valid session exists and lets
// anonymous requests through untouched.
func OptionalAuth(sessions auth.SessionStore, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if username, ok := lookup(sessions, log, r); ok {
				r = r.WithContext(auth.WithUsername(r.Context(), username))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func lookup(sessions auth.SessionStore, log *zap.Logger, r *http.Request) (string, bool) {
	cookie, err := r.Cookie(auth.SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	username, err := sessions.Get(r.Context(), cookie.Value)
	if err != nil {
		log.Error("session lookup failed", zap.Error(err))
		return "", false
	}
	return username, username != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"error":"not authenticated"}`))
}
