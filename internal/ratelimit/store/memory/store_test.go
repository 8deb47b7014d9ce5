package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestIncrement_FixedWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	s := New(WithClock(clock.Now))
	ctx := context.Background()

	count, ttl, err := s.Increment(ctx, "rl:form_donor:a", 300*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 300*time.Second, ttl)

	clock.Advance(100 * time.Second)
	count, ttl, err = s.Increment(ctx, "rl:form_donor:a", 300*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 200*time.Second, ttl, "later hits do not extend the window")

	clock.Advance(200 * time.Second)
	count, _, err = s.Increment(ctx, "rl:form_donor:a", 300*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "expired window restarts")
}

func TestIncrement_KeysAreIndependent(t *testing.T) {
	s := New()
	ctx := context.Background()
	for range 3 {
		_, _, err := s.Increment(ctx, "a", time.Minute)
		require.NoError(t, err)
	}
	count, _, err := s.Increment(ctx, "b", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, _, err = s.Increment(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestIncrement_SweepsExpiredWindows(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	s := New(WithClock(clock.Now))
	ctx := context.Background()
	for i := range sweepEvery - 1 {
		_, _, err := s.Increment(ctx, fmt.Sprintf("k%d", i), time.Second)
		require.NoError(t, err)
	}
	clock.Advance(2 * time.Second)
	_, _, err := s.Increment(ctx, "fresh", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, s.tracked())
}

func TestIncrement_Concurrent(t *testing.T) {
	s := New()
	ctx := context.Background()
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = s.Increment(ctx, "shared", time.Minute)
		}()
	}
	wg.Wait()
	count, _, err := s.Increment(ctx, "shared", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(101), count)
}
