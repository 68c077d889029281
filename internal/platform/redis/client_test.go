package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provenant/internal/platform/config"
)

func TestOptions(t *testing.T) {
	t.Run("overrides only what is set", func(t *testing.T) {
		opts, err := Options(config.RedisConfig{
			URL:         "redis://:secret@cache:6380/2",
			PoolSize:    32,
			ReadTimeout: 250 * time.Millisecond,
		})
		require.NoError(t, err)
		assert.Equal(t, "cache:6380", opts.Addr)
		assert.Equal(t, "secret", opts.Password)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, 32, opts.PoolSize)
		assert.Equal(t, 250*time.Millisecond, opts.ReadTimeout)
		assert.Zero(t, opts.MinIdleConns)
	})

	t.Run("url is required", func(t *testing.T) {
		_, err := Options(config.RedisConfig{})
		assert.Error(t, err)
	})

	t.Run("malformed url", func(t *testing.T) {
		_, err := Options(config.RedisConfig{URL: "http://cache:6379"})
		assert.Error(t, err)
	})
}
