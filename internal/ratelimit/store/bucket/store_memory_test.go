package bucket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provenant/internal/ratelimit/models"
	"provenant/pkg/testutil"
)

func TestInMemoryBucketStore(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New()
	s.now = func() time.Time { return clock }
	limit := models.Limit{Requests: 2, Window: time.Minute}

	testutil.Given(t, "a caller that used its budget", func(t *testing.T) {
		first, err := s.Allow(ctx, "k", limit)
		require.NoError(t, err)
		assert.True(t, first.Allowed)
		assert.Equal(t, 1, first.Remaining)

		clock = clock.Add(10 * time.Second)
		second, err := s.Allow(ctx, "k", limit)
		require.NoError(t, err)
		assert.True(t, second.Allowed)
		assert.Equal(t, 0, second.Remaining)
	})

	testutil.When(t, "it sends another request inside the window", func(t *testing.T) {
		denied, err := s.Allow(ctx, "k", limit)
		require.NoError(t, err)
		testutil.Then(t, "the request is denied until the oldest one expires", func(t *testing.T) {
			assert.False(t, denied.Allowed)
			assert.Equal(t, 50, denied.RetryAfter)
		})
		testutil.Then(t, "other buckets are unaffected", func(t *testing.T) {
			other, err := s.Allow(ctx, "other", limit)
			require.NoError(t, err)
			assert.True(t, other.Allowed)
		})
	})

	testutil.When(t, "the window slides past the first request", func(t *testing.T) {
		clock = clock.Add(51 * time.Second)
		again, err := s.Allow(ctx, "k", limit)
		require.NoError(t, err)
		assert.True(t, again.Allowed)
	})

	testutil.When(t, "the bucket is reset", func(t *testing.T) {
		require.NoError(t, s.Reset(ctx, "k"))
		fresh, err := s.Allow(ctx, "k", limit)
		require.NoError(t, err)
		assert.Equal(t, 1, fresh.Remaining)
	})
}

func TestInMemoryBucketStoreConcurrent(t *testing.T) {
	ctx := context.Background()
	s := New()
	limit := models.Limit{Requests: 10, Window: time.Hour}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Allow(ctx, "shared", limit)
			if err == nil && res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}
