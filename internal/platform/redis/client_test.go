package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitmatch/internal/platform/config"
)

func TestNewWithoutURL(t *testing.T) {
	c, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestOptions(t *testing.T) {
	t.Run("config overrides the url defaults", func(t *testing.T) {
		opts, err := options(config.RedisConfig{
			URL:          "redis://:secret@cache.internal:6380/2",
			PoolSize:     20,
			MinIdleConns: 4,
			DialTimeout:  3 * time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, "cache.internal:6380", opts.Addr)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, "secret", opts.Password)
		assert.Equal(t, 20, opts.PoolSize)
		assert.Equal(t, 4, opts.MinIdleConns)
		assert.Equal(t, 3*time.Second, opts.DialTimeout)
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := options(config.RedisConfig{URL: "http://localhost"})
		assert.ErrorContains(t, err, "REDIS_URL")
	})
}
