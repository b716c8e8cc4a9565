package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

// New builds the server. No write timeout is set because /ws connections are
// long-lived; their liveness is governed by the session reaper and per-frame
// write deadlines instead. Server-internal errors (TLS handshakes, hijack
// failures) go to logger at warn level.
func New(addr string, handler http.Handler, logger *slog.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	if logger != nil {
		srv.ErrorLog = slog.NewLogLogger(logger.Handler(), slog.LevelWarn)
	}
	return srv
}
