package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewauction/internal/platform/config"
)

func TestNewDisabledWithoutURL(t *testing.T) {
	c, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{URL: "http://not-redis"})
	assert.Error(t, err)
}

func TestApplyPoolKeepsURLValuesForZeroConfig(t *testing.T) {
	opts, err := redis.ParseURL("redis://localhost:6379/0?pool_size=7&dial_timeout=2s")
	require.NoError(t, err)

	applyPool(opts, config.RedisConfig{ReadTimeout: time.Second})
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)
	assert.Equal(t, time.Second, opts.ReadTimeout)

	applyPool(opts, config.RedisConfig{PoolSize: 3})
	assert.Equal(t, 3, opts.PoolSize)
}
