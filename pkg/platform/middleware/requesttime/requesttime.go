// Package requesttime pins one "now" per request so the settlement log line,
// the broadcast and the response all agree on the timestamp.
package requesttime

import (
	"net/http"
	"time"

	"crewauction/pkg/requestcontext"
)

// Middleware stores the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
