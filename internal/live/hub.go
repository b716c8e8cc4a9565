package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"crewauction/internal/live/events"
	"crewauction/internal/platform/logger"
	"crewauction/internal/platform/metrics"
	"crewauction/internal/session"
)

// PeerSource snapshots the connections a broadcast goes to.
type PeerSource interface {
	Peers() []session.Peer
}

// Mirror receives a copy of every broadcast frame.
type Mirror interface {
	Publish(ctx context.Context, frame []byte) error
}

const (
	mirrorTimeout      = time.Second
	defaultMirrorQueue = 256
)

// Hub fans events out to every live session, authenticated or not.
type Hub struct {
	peers       PeerSource
	mirror      Mirror
	mirrorQueue int
	mirrorQ     chan []byte
	now         func() time.Time
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type HubOption func(*Hub)

func WithHubLogger(l *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = l
	}
}

func WithHubMetrics(m *metrics.Metrics) HubOption {
	return func(h *Hub) {
		h.metrics = m
	}
}

// WithMirror publishes every frame to m as well, from the RunMirror loop.
// Mirror failures are logged and otherwise ignored.
func WithMirror(m Mirror) HubOption {
	return func(h *Hub) {
		h.mirror = m
	}
}

// WithMirrorQueue bounds the frames waiting for the mirror. Frames beyond it
// are dropped.
func WithMirrorQueue(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.mirrorQueue = n
		}
	}
}

func WithHubClock(now func() time.Time) HubOption {
	return func(h *Hub) {
		h.now = now
	}
}

func NewHub(peers PeerSource, opts ...HubOption) *Hub {
	h := &Hub{peers: peers, now: time.Now, mirrorQueue: defaultMirrorQueue}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Discard()
	}
	if h.mirror != nil {
		h.mirrorQ = make(chan []byte, h.mirrorQueue)
	}
	return h
}

// Broadcast encodes the frame once and queues it on a snapshot of the live
// sessions. It returns once every queue has accepted or refused the frame.
func (h *Hub) Broadcast(ctx context.Context, event string, payload any) {
	frame, err := json.Marshal(events.Frame{Type: event, Payload: payload})
	if err != nil {
		h.logger.ErrorContext(ctx, "encode broadcast frame", "event", event, "error", err)
		return
	}

	delivered, dropped := 0, 0
	for _, p := range h.peers.Peers() {
		if p.Send(frame) {
			delivered++
			h.metrics.IncrementBroadcast("queued")
			continue
		}
		dropped++
		h.metrics.IncrementBroadcast("dropped")
	}
	if dropped > 0 {
		h.logger.DebugContext(ctx, "broadcast dropped for some sessions",
			"event", event, "delivered", delivered, "dropped", dropped)
	}

	if h.mirrorQ == nil {
		return
	}
	select {
	case h.mirrorQ <- frame:
	default:
		h.metrics.IncrementBroadcast("mirror_dropped")
		h.logger.DebugContext(ctx, "broadcast mirror queue full", "event", event)
	}
}

// RunMirror publishes queued frames to the mirror until ctx is done. It
// returns at once when no mirror is configured.
func (h *Hub) RunMirror(ctx context.Context) error {
	if h.mirrorQ == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-h.mirrorQ:
			h.publish(ctx, frame)
		}
	}
}

func (h *Hub) publish(ctx context.Context, frame []byte) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mirrorTimeout)
	defer cancel()
	if err := h.mirror.Publish(pctx, frame); err != nil {
		h.metrics.IncrementBroadcast("mirror_failed")
		h.logger.DebugContext(ctx, "broadcast mirror publish failed", "error", err)
	}
}

// RunHeartbeat broadcasts a heartbeat every interval until ctx is done.
func (h *Hub) RunHeartbeat(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.Heartbeat(ctx)
		}
	}
}

func (h *Hub) Heartbeat(ctx context.Context) {
	h.Broadcast(ctx, events.Heartbeat, events.HeartbeatPayload{Timestamp: h.now().UnixMilli()})
}
