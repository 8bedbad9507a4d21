package middleware

import (
	"net/http"
	"strings"
)

// UserIDHeader carries the authenticated viewer identity. It is set by the
// authenticating proxy in front of this service; the ranking core itself
// performs no authentication.
const UserIDHeader = "X-User-ID"

// Identity reads the viewer identity from the request headers and stores it
// on the request context for handlers and the logging middleware.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID := strings.TrimSpace(r.Header.Get(UserIDHeader)); userID != "" {
			r = r.WithContext(SetUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}
