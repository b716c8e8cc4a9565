package live

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"crewauction/pkg/platform/circuit"
)

// ErrMirrorOpen is returned while the mirror's breaker is skipping Redis.
var ErrMirrorOpen = errors.New("broadcast mirror circuit open")

// RedisMirror publishes broadcast frames on a Redis channel so processes
// outside this server can follow the auction. After repeated failures it
// stops calling Redis and probes once per cooldown, so a dead Redis does not
// cost every broadcast a timeout.
type RedisMirror struct {
	client  redis.UniversalClient
	channel string
	breaker *circuit.Breaker
}

func NewRedisMirror(client redis.UniversalClient, channel string, opts ...circuit.Option) *RedisMirror {
	return &RedisMirror{
		client:  client,
		channel: channel,
		breaker: circuit.New("redis-mirror", opts...),
	}
}

func (m *RedisMirror) Publish(ctx context.Context, frame []byte) error {
	if !m.breaker.Allow() {
		return ErrMirrorOpen
	}
	if err := m.client.Publish(ctx, m.channel, frame).Err(); err != nil {
		m.breaker.RecordFailure()
		return err
	}
	m.breaker.RecordSuccess()
	return nil
}
