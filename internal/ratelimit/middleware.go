package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"crewauction/pkg/platform/httputil"
	"crewauction/pkg/platform/middleware/metadata"
	"crewauction/pkg/platform/middleware/request"
)

// BucketStore is the counting backend behind the middleware.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

type Middleware struct {
	store  BucketStore
	logger *slog.Logger
	limit  int
	window time.Duration
	now    func() time.Time
}

// New returns a limiter admitting limit attempts per client per window. A
// limit of zero disables it.
func New(store BucketStore, logger *slog.Logger, limit int, window time.Duration) *Middleware {
	return &Middleware{store: store, logger: logger, limit: limit, window: window, now: time.Now}
}

// RateLimitAuth limits the wrapped routes by client IP. Store errors let the
// request through.
func (m *Middleware) RateLimitAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := metadata.GetClientIP(ctx)
			if ip == "" {
				ip = metadata.ClientIPFromRequest(r)
			}

			result, err := m.store.Allow(ctx, "auth:"+ip, m.limit, m.window)
			if err != nil {
				m.logger.ErrorContext(ctx, "auth rate limit check failed", "request_id", request.GetRequestID(ctx), "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				m.logger.WarnContext(ctx, "auth attempts throttled",
					"request_id", request.GetRequestID(ctx),
					"client_ip", ip,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter(m.now())))
				httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.ErrorResponse{
					Success: false,
					Error:   "Too many authentication attempts. Please try again later.",
					Code:    "rate_limited",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RunSweeper periodically drops idle buckets until ctx is done.
func RunSweeper(ctx context.Context, store *InMemoryBucketStore, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			store.Sweep()
		}
	}
}
