// Package middleware provides HTTP middlewares for the back-office session
// gate, request logging and response headers.
package middleware

import (
	"context"
	"net/http"

	"github.com/atinyakov/fasogadget/internal/session"
)

type ctxKey string

const userKey ctxKey = "user"

// SessionChecker resolves a session token.
type SessionChecker interface {
	IsAuthenticated(ctx context.Context, token string) (*session.Session, bool)
}

// SessionAuth lets a request through only when the cookie named cookieName
// carries a live session token. Other requests are redirected to loginPath
// with 302 Found. Paths listed in public bypass the check.
//
// On success the session username is stored in the request context and can
// be read with GetUserFromContext.
func SessionAuth(checker SessionChecker, cookieName, loginPath string, public ...string) func(http.Handler) http.Handler {
	open := make(map[string]bool, len(public))
	for _, p := range public {
		open[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if open[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			c, err := r.Cookie(cookieName)
			if err != nil || c.Value == "" {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			sess, ok := checker.IsAuthenticated(r.Context(), c.Value)
			if !ok {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, sess.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext returns the authenticated admin username, or an empty
// string if the request did not pass SessionAuth.
func GetUserFromContext(ctx context.Context) string {
	val := ctx.Value(userKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
