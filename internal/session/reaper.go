package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"crewauction/internal/platform/logger"
	"crewauction/internal/platform/metrics"
)

// Reaper periodically evicts sessions idle longer than staleAfter and closes
// their connections.
type Reaper struct {
	registry   *Registry
	interval   time.Duration
	staleAfter time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type ReaperOption func(*Reaper)

func WithReaperLogger(l *slog.Logger) ReaperOption {
	return func(r *Reaper) {
		r.logger = l
	}
}

func WithReaperMetrics(m *metrics.Metrics) ReaperOption {
	return func(r *Reaper) {
		r.metrics = m
	}
}

func NewReaper(registry *Registry, interval, staleAfter time.Duration, opts ...ReaperOption) (*Reaper, error) {
	if registry == nil {
		return nil, errors.New("session registry is required")
	}
	if interval <= 0 || staleAfter <= 0 {
		return nil, errors.New("reaper interval and stale window must be positive")
	}
	r := &Reaper{registry: registry, interval: interval, staleAfter: staleAfter}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Discard()
	}
	return r, nil
}

// Run sweeps every interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep evicts idle sessions once and returns how many were removed. The
// registry lock covers only the removal; connections close afterwards.
func (r *Reaper) Sweep(ctx context.Context) int {
	cutoff := r.registry.now().Add(-r.staleAfter)
	evicted, remaining := r.registry.evictIdle(cutoff)
	if len(evicted) == 0 {
		return 0
	}

	for _, e := range evicted {
		if e.peer != nil {
			if err := e.peer.Close(); err != nil {
				r.logger.DebugContext(ctx, "closing reaped connection", "connection_id", e.ID, "error", err)
			}
		}
		r.logger.InfoContext(ctx, "session reaped",
			"connection_id", e.ID, "idle", r.registry.now().Sub(e.LastActivity).Round(time.Second))
	}
	r.metrics.AddSessionsReaped(len(evicted))
	r.metrics.SetLiveSessions(remaining)
	return len(evicted)
}
