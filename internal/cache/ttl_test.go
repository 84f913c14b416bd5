package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trendtruth/trendtruth/internal/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestTTLMissingKey(t *testing.T) {
	c := cache.NewTTL[string](time.Minute)
	_, ok := c.Get("alpha")
	require.False(t, ok)
}

func TestTTLHitWithinWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := cache.NewTTL[string](180 * time.Second).WithClock(clock.Now)

	c.Set("all:20:", "payload")
	clock.Advance(180 * time.Second)

	got, ok := c.Get("all:20:")
	require.True(t, ok, "entry is valid while now - storedAt <= ttl")
	require.Equal(t, "payload", got)
}

func TestTTLExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := cache.NewTTL[int](time.Second).WithClock(clock.Now)

	c.Set("beta", 1)
	clock.Advance(1001 * time.Millisecond)

	_, ok := c.Get("beta")
	require.False(t, ok)
	require.Equal(t, 1, c.Len(), "stale entries stay until overwritten")

	c.Set("beta", 2)
	got, ok := c.Get("beta")
	require.True(t, ok)
	require.Equal(t, 2, got)
}

func TestTTLConcurrentAccess(t *testing.T) {
	c := cache.NewTTL[int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set("shared", i)
			_, _ = c.Get("shared")
		}(i)
	}
	wg.Wait()

	_, ok := c.Get("shared")
	require.True(t, ok)
}
