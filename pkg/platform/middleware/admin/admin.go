package admin

import (
	"log/slog"
	"net/http"
	"strings"

	"crewauction/pkg/platform/middleware/request"
)

// TokenVerifier checks an admin pseudo-token.
type TokenVerifier interface {
	Verify(token string) error
}

// BearerToken returns the token from an "Authorization: Bearer" header, or "".
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// RequireAdminToken rejects requests whose bearer token the verifier refuses.
func RequireAdminToken(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := verifier.Verify(BearerToken(r)); err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token rejected",
					"request_id", request.GetRequestID(ctx),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"success":false,"error":"admin token required","code":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
