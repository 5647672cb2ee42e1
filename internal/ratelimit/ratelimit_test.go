package ratelimit_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"shopgate/internal/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := ratelimit.NewMemoryLimiter(func() time.Time { return now })
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := limiter.Allow(ctx, "10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "hit %d", i)
		assert.Equal(t, 3-i, d.Remaining)
		assert.Zero(t, d.RetryAfter)
	}

	now = now.Add(20 * time.Second)
	d, err := limiter.Allow(ctx, "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 40*time.Second, d.RetryAfter)

	d, err = limiter.Allow(ctx, "10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "keys are counted separately")

	now = now.Add(41 * time.Second)
	d, err = limiter.Allow(ctx, "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "a new window starts after reset")
	assert.Equal(t, 2, d.Remaining)
}

func TestMemoryLimiter_Disabled(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(nil)
	for i := 0; i < 100; i++ {
		d, err := limiter.Allow(context.Background(), "k", 0, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(nil)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := limiter.Allow(context.Background(), "shared", 10, time.Hour)
			if err == nil && d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

func ExampleMemoryLimiter() {
	limiter := ratelimit.NewMemoryLimiter(nil)
	for i := 0; i < 3; i++ {
		d, _ := limiter.Allow(context.Background(), "192.0.2.1", 2, time.Minute)
		fmt.Println(d.Allowed, d.Remaining)
	}
	// Output:
	// true 1
	// true 0
	// false 0
}
