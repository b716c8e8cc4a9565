// Package session tracks live connections and the house each one
// authenticated as.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"crewauction/internal/ledger/models"
	"crewauction/internal/platform/logger"
	"crewauction/internal/platform/metrics"
	dErrors "crewauction/pkg/domain-errors"
	"crewauction/pkg/platform/sentinel"
)

// Peer is the outbound side of a live connection.
type Peer interface {
	// Send queues a frame without blocking and reports whether it was accepted.
	Send(frame []byte) bool
	Close() error
}

// HouseLookup resolves an access code to a house.
type HouseLookup interface {
	FindHouseBySecret(ctx context.Context, secret string) (*models.House, error)
}

// Session is a point-in-time copy of a registry entry.
type Session struct {
	ID            string
	HouseID       models.HouseID
	Authenticated bool
	Device        string
	ConnectedAt   time.Time
	LastActivity  time.Time
}

type entry struct {
	Session
	peer Peer
}

// Registry maps connection ids to sessions. All bookkeeping happens under one
// mutex; ledger lookups and network calls happen outside it.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry

	houses  HouseLookup
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Registry)

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithClock replaces time.Now for activity timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(houses HouseLookup, opts ...Option) (*Registry, error) {
	if houses == nil {
		return nil, errors.New("house lookup is required")
	}
	r := &Registry{
		sessions: make(map[string]*entry),
		houses:   houses,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Discard()
	}
	return r, nil
}

// Register adds an unauthenticated session for a new connection.
func (r *Registry) Register(id string, peer Peer, userAgent string) Session {
	now := r.now()
	e := &entry{
		Session: Session{
			ID:           id,
			Device:       DeviceLabel(userAgent),
			ConnectedAt:  now,
			LastActivity: now,
		},
		peer: peer,
	}

	r.mu.Lock()
	r.sessions[id] = e
	count := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetLiveSessions(count)
	r.logger.Info("session registered", "connection_id", id, "device", e.Device)
	return e.Session
}

// Authenticate binds the connection to the house owning secret and returns the
// house with the number of live sessions now bound to it, this one included.
func (r *Registry) Authenticate(ctx context.Context, id, secret string) (*models.House, int, error) {
	house, err := r.houses.FindHouseBySecret(ctx, secret)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, 0, dErrors.New(dErrors.CodeAuthFailure, "invalid access code")
	}
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeTransactionFailure, "failed to look up access code")
	}

	r.mu.Lock()
	e, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return nil, 0, dErrors.New(dErrors.CodeNotFound, "session is not registered")
	}
	e.HouseID = house.ID
	e.Authenticated = true
	e.LastActivity = r.now()
	count := r.countLocked(house.ID)
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "session authenticated",
		"connection_id", id, "house_id", house.ID, "active_connections", count)
	return house, count, nil
}

// Touch refreshes the session's last activity. Unknown ids are ignored.
func (r *Registry) Touch(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return false
	}
	e.LastActivity = r.now()
	return true
}

// Release removes the session. It returns the house the session was bound to
// and how many sessions that house still has; releasing an unknown id is a
// no-op reported by ok == false.
func (r *Registry) Release(id string) (houseID models.HouseID, remaining int, ok bool) {
	r.mu.Lock()
	e, found := r.sessions[id]
	if !found {
		r.mu.Unlock()
		return 0, 0, false
	}
	delete(r.sessions, id)
	if e.Authenticated {
		houseID = e.HouseID
		remaining = r.countLocked(houseID)
	}
	total := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetLiveSessions(total)
	if e.Authenticated {
		r.logger.Info("session released",
			"connection_id", id, "house_id", houseID, "remaining_connections", remaining)
	} else {
		r.logger.Info("session released", "connection_id", id)
	}
	return houseID, remaining, true
}

func (r *Registry) LiveSessionCountFor(houseID models.HouseID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countLocked(houseID)
}

func (r *Registry) countLocked(houseID models.HouseID) int {
	n := 0
	for _, e := range r.sessions {
		if e.Authenticated && e.HouseID == houseID {
			n++
		}
	}
	return n
}

// Lookup returns a copy of the session for id.
func (r *Registry) Lookup(id string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return e.Session, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Peers snapshots every live peer. Callers deliver to the snapshot without
// holding the registry lock.
func (r *Registry) Peers() []Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	peers := make([]Peer, 0, len(r.sessions))
	for _, e := range r.sessions {
		peers = append(peers, e.peer)
	}
	return peers
}

// evictIdle removes every session idle since before cutoff and returns them.
func (r *Registry) evictIdle(cutoff time.Time) ([]entry, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var evicted []entry
	for id, e := range r.sessions {
		if e.LastActivity.Before(cutoff) {
			evicted = append(evicted, *e)
			delete(r.sessions, id)
		}
	}
	return evicted, len(r.sessions)
}
