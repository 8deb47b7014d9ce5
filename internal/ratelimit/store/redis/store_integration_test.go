//go:build integration

package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitmatch/pkg/testutil/containers"
)

func TestStore_FixedWindow(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	s := New(rc.Client.Client)
	ctx := context.Background()
	require.NoError(t, rc.Client.Health(ctx))

	count, ttl, err := s.Increment(ctx, "rl:form_donor:203.0.113.1", time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.LessOrEqual(t, ttl, time.Second)
	assert.Greater(t, ttl, time.Duration(0))

	count, _, err = s.Increment(ctx, "rl:form_donor:203.0.113.1", time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.Eventually(t, func() bool {
		n, _, err := s.Increment(ctx, "rl:form_donor:203.0.113.1", time.Second)
		return err == nil && n == 1
	}, 5*time.Second, 200*time.Millisecond, "window expires and restarts")
}

func TestStore_ConcurrentIncrementsAreAtomic(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	s := New(rc.Client.Client)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = s.Increment(ctx, "rl:pickup_confirm:x", time.Minute)
		}()
	}
	wg.Wait()

	count, _, err := s.Increment(ctx, "rl:pickup_confirm:x", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(51), count)
}
