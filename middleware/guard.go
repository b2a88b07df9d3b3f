package middleware

import (
	"context"
	"net/http"
	"net/url"

	goAuthSync "github.com/MrEthical07/goAuthSync"
)

// SessionSource exposes the current session. [goAuthSync.Synchronizer]
// implements it.
type SessionSource interface {
	Snapshot() goAuthSync.Session
}

type sessionContextKey struct{}

// SessionFromContext returns the session injected by [Guard].
func SessionFromContext(ctx context.Context) (goAuthSync.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(goAuthSync.Session)
	return s, ok
}

// Guard admits requests only while source holds an authenticated session.
// Other requests are redirected to loginPath with the original request URI
// in the "redirect" query parameter, which the login page can pass to
// [goAuthSync.Synchronizer.Login].
func Guard(source SessionSource, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if source == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			sess := source.Snapshot()
			if !sess.Authenticated {
				http.Redirect(w, r, loginTarget(loginPath, r.URL.RequestURI()), http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole is like [Guard] but also rejects authenticated users whose
// profile role differs from role with 403.
func RequireRole(source SessionSource, loginPath, role string) func(http.Handler) http.Handler {
	guard := Guard(source, loginPath)
	return func(next http.Handler) http.Handler {
		return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := SessionFromContext(r.Context())
			if sess.User == nil || sess.User.Role != role {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func loginTarget(loginPath, original string) string {
	if original == "" || original == loginPath {
		return loginPath
	}
	return loginPath + "?redirect=" + url.QueryEscape(original)
}
