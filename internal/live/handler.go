package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"crewauction/internal/ledger/models"
	"crewauction/internal/live/events"
	"crewauction/internal/platform/logger"
	"crewauction/internal/session"
	dErrors "crewauction/pkg/domain-errors"
	"crewauction/pkg/platform/middleware/metadata"
	"crewauction/pkg/requestcontext"
)

// Engine is the slice of the settlement engine the live protocol drives.
type Engine interface {
	UpdateBid(ctx context.Context, lotID models.LotID, newBid int64) error
	RefreshBudget(ctx context.Context, houseID models.HouseID) (int64, error)
}

// Registry is the session bookkeeping the handler needs.
type Registry interface {
	Register(id string, peer session.Peer, userAgent string) session.Session
	Authenticate(ctx context.Context, id, secret string) (*models.House, int, error)
	Touch(id string) bool
	Release(id string) (models.HouseID, int, bool)
}

var errMissingBid = errors.New("lotId and newBid are required")

const (
	defaultWriteWait = 10 * time.Second
	defaultBuffer    = 64
	maxFrameBytes    = 64 << 10
)

// Handler upgrades requests to websockets and runs the live protocol for
// each connection.
type Handler struct {
	engine    Engine
	registry  Registry
	upgrader  websocket.Upgrader
	buffer    int
	writeWait time.Duration
	logger    *slog.Logger
}

type HandlerOption func(*Handler)

func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = l
	}
}

// WithSendBuffer sets the per-connection outbound queue length.
func WithSendBuffer(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.buffer = n
		}
	}
}

func WithWriteWait(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.writeWait = d
		}
	}
}

// WithAllowedOrigins restricts browser origins. Requests without an Origin
// header are always accepted.
func WithAllowedOrigins(origins []string) HandlerOption {
	return func(h *Handler) {
		h.upgrader.CheckOrigin = originChecker(origins)
	}
}

func NewHandler(engine Engine, registry Registry, opts ...HandlerOption) (*Handler, error) {
	if engine == nil {
		return nil, errors.New("settlement engine is required")
	}
	if registry == nil {
		return nil, errors.New("session registry is required")
	}
	h := &Handler{
		engine:   engine,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(nil),
		},
		buffer:    defaultBuffer,
		writeWait: defaultWriteWait,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Discard()
	}
	return h, nil
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		return slices.ContainsFunc(allowed, func(a string) bool {
			return strings.EqualFold(a, origin)
		})
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.DebugContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	ctx := requestcontext.WithConnectionID(context.WithoutCancel(r.Context()), id)
	conn := newConn(ws, h.buffer, h.writeWait)
	ua := metadata.GetUserAgent(r.Context())
	if ua == "" {
		ua = r.UserAgent()
	}
	h.registry.Register(id, conn, ua)
	go conn.writePump()

	defer func() {
		h.registry.Release(id)
		_ = conn.Close()
	}()

	ws.SetReadLimit(maxFrameBytes)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.DebugContext(ctx, "websocket read failed", "connection_id", id, "error", err)
			}
			return
		}
		h.registry.Touch(id)

		var msg events.Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.DebugContext(ctx, "malformed frame", "connection_id", id, "error", err)
			continue
		}
		h.dispatch(ctx, id, conn, msg)
	}
}

func (h *Handler) dispatch(ctx context.Context, id string, conn *Conn, msg events.Inbound) {
	switch msg.Type {
	case events.Authenticate:
		h.authenticate(ctx, id, conn, msg.Payload)
	case events.BudgetUpdate:
		houseID, err := decodeHouseID(msg.Payload)
		if err != nil {
			h.logger.DebugContext(ctx, "bad budget_update payload", "connection_id", id, "error", err)
			return
		}
		if _, err := h.engine.RefreshBudget(ctx, houseID); err != nil {
			h.logger.InfoContext(ctx, "budget refresh failed", "connection_id", id, "house_id", houseID, "error", err)
		}
	case events.BidUpdate:
		bid, err := decodeBid(msg.Payload)
		if err != nil {
			h.logger.DebugContext(ctx, "bad bid_update payload", "connection_id", id, "error", err)
			return
		}
		// The engine logs rejections; nothing is sent back to the bidder.
		if err := h.engine.UpdateBid(ctx, bid.LotID, bid.NewBid); err != nil {
			return
		}
	default:
		h.logger.DebugContext(ctx, "unknown frame type", "connection_id", id, "type", msg.Type)
	}
}

func (h *Handler) authenticate(ctx context.Context, id string, conn *Conn, payload json.RawMessage) {
	secret, err := decodeAccessCode(payload)
	if err != nil {
		h.reply(ctx, conn, events.AuthError, "Invalid access code")
		return
	}
	house, count, err := h.registry.Authenticate(ctx, id, secret)
	if err != nil {
		msg := "Invalid access code"
		if !dErrors.HasCode(err, dErrors.CodeAuthFailure) {
			msg = "Authentication failed"
		}
		h.reply(ctx, conn, events.AuthError, msg)
		return
	}
	h.reply(ctx, conn, events.AuthSuccess, events.AuthSuccessPayload{
		HouseID:           house.ID,
		HouseName:         house.Name,
		ActiveConnections: count,
	})
}

func (h *Handler) reply(ctx context.Context, conn *Conn, event string, payload any) {
	frame, err := json.Marshal(events.Frame{Type: event, Payload: payload})
	if err != nil {
		h.logger.ErrorContext(ctx, "encode reply frame", "event", event, "error", err)
		return
	}
	if !conn.Send(frame) {
		h.logger.DebugContext(ctx, "reply dropped", "event", event)
	}
}

// decodeAccessCode accepts "CODE" or {"accessCode": "CODE"}.
func decodeAccessCode(raw json.RawMessage) (string, error) {
	var code string
	if err := json.Unmarshal(raw, &code); err == nil {
		return code, nil
	}
	var obj struct {
		AccessCode string `json:"accessCode"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	return obj.AccessCode, nil
}

// decodeHouseID accepts 3 or {"houseId": 3}.
func decodeHouseID(raw json.RawMessage) (models.HouseID, error) {
	var id models.HouseID
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var obj struct {
		HouseID models.HouseID `json:"houseId"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, err
	}
	return obj.HouseID, nil
}

// decodeBid requires both lotId and newBid; a missing bid must not reset the
// lot to zero.
func decodeBid(raw json.RawMessage) (events.BidPayload, error) {
	var in struct {
		LotID  models.LotID `json:"lotId"`
		NewBid *int64       `json:"newBid"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return events.BidPayload{}, err
	}
	if in.LotID <= 0 || in.NewBid == nil {
		return events.BidPayload{}, errMissingBid
	}
	return events.BidPayload{LotID: in.LotID, NewBid: *in.NewBid}, nil
}
