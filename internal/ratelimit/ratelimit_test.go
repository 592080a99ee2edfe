package ratelimit

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAllowsUpToCapacity(t *testing.T) {
	l := NewLimiter(5, 0, time.Minute, nil)
	defer l.Close()

	for i := 0; i < 5; i++ {
		result := l.Check("user-1")
		assert.True(t, result.Allowed, "request %d should be allowed", i)
	}

	result := l.Check("user-1")
	assert.False(t, result.Allowed)
	assert.NotEmpty(t, result.RetryAfter)
}

func TestLimiterRefillsOverTime(t *testing.T) {
	l := NewLimiter(1, 1000, time.Minute, nil)
	defer l.Close()

	require.True(t, l.Check("user-1").Allowed)
	assert.False(t, l.Check("user-1").Allowed)

	time.Sleep(5 * time.Millisecond)
	assert.True(t, l.Check("user-1").Allowed, "bucket should have refilled at 1000 tokens/sec")
}

func TestLimiterIdentitiesAreIndependent(t *testing.T) {
	l := NewLimiter(1, 0, time.Minute, nil)
	defer l.Close()

	assert.True(t, l.Check("user-1").Allowed)
	assert.True(t, l.Check("user-2").Allowed)
	assert.False(t, l.Check("user-1").Allowed)
}

func TestLimiterNeverExceedsCapacityUnderConcurrency(t *testing.T) {
	const capacity = 20
	l := NewLimiter(capacity, 0, time.Minute, nil)
	defer l.Close()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check("shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, capacity, allowed)
}

func TestLimiterSweepEvictsExpiredBuckets(t *testing.T) {
	l := NewLimiter(1, 0, 5*time.Millisecond, nil)
	defer l.Close()

	l.Check("stale-user")
	assert.Eventually(t, func() bool {
		l.mu.Lock()
		_, ok := l.buckets["stale-user"]
		l.mu.Unlock()
		return !ok
	}, time.Second, time.Millisecond)
}

func TestLimiterResetAtIsUnixSeconds(t *testing.T) {
	l := NewLimiter(5, 1, time.Minute, nil)
	defer l.Close()

	result := l.Check("user-1")
	require.True(t, result.Allowed)
	_, err := strconv.ParseInt(strconv.FormatInt(result.ResetAt, 10), 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.ResetAt, time.Now().Unix())
}
