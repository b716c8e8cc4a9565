package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *clock { return &clock{now: time.Unix(1_700_000_000, 0)} }

func TestAllowWithinLimit(t *testing.T) {
	c := newClock()
	s := NewInMemoryBucketStore(WithClock(c.Now))
	ctx := context.Background()

	for i := range 3 {
		res, err := s.Allow(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := s.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 60, res.RetryAfter(c.Now()))

	other, err := s.Allow(ctx, "other", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are independent")
}

func TestWindowSlides(t *testing.T) {
	c := newClock()
	s := NewInMemoryBucketStore(WithClock(c.Now))
	ctx := context.Background()

	_, _ = s.Allow(ctx, "k", 2, time.Minute)
	c.Advance(30 * time.Second)
	_, _ = s.Allow(ctx, "k", 2, time.Minute)

	res, _ := s.Allow(ctx, "k", 2, time.Minute)
	assert.False(t, res.Allowed)

	c.Advance(31 * time.Second)
	res, _ = s.Allow(ctx, "k", 2, time.Minute)
	assert.True(t, res.Allowed, "first attempt has left the window")
}

func TestSweepDropsIdleBuckets(t *testing.T) {
	c := newClock()
	s := NewInMemoryBucketStore(WithClock(c.Now))
	_, _ = s.Allow(context.Background(), "a", 5, time.Minute)
	_, _ = s.Allow(context.Background(), "b", 5, time.Hour)

	c.Advance(2 * time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 0, s.Sweep())
}
