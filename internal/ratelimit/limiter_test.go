package ratelimit

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundflow-core/internal/domain/shared"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// memCounterStore is a deterministic in-memory CounterStore for tests
type memCounterStore struct {
	mu       sync.Mutex
	counters map[string]int64
	err      error
}

func newMemCounterStore() *memCounterStore {
	return &memCounterStore{counters: make(map[string]int64)}
}

func (s *memCounterStore) IncrBy(_ context.Context, key string, n int64, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.counters[key] += n
	return s.counters[key], nil
}

func (s *memCounterStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	return s.counters[key], nil
}

func (s *memCounterStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.counters, key)
	return nil
}

func (s *memCounterStore) set(key string, v int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key] = v
}

func TestLimiter_FixedWindowMonotonicity(t *testing.T) {
	ctx := context.Background()
	store := newMemCounterStore()
	limiter := NewLimiter(testLogger(), store)
	limiter.now = func() time.Time { return time.Unix(1_000_020, 0) }

	limiter.Register(ContextWithdrawal, "create", Config{
		Limit:         5,
		WindowSeconds: 60,
		Strategy:      StrategyFixedWindow,
		Cost:          1,
	})

	action := Action{Context: ContextWithdrawal, Name: "create", Entity: "acct-1"}

	for i := 1; i <= 5; i++ {
		res, err := limiter.Check(ctx, action)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "call %d should be allowed", i)
		assert.Equal(t, int64(5-i), res.Remaining)
	}

	res, err := limiter.Check(ctx, action)
	require.NoError(t, err)
	assert.False(t, res.Allowed, "6th call in the window must be denied")
	assert.Equal(t, int64(0), res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	// A new window starts counting from scratch.
	limiter.now = func() time.Time { return time.Unix(1_000_080, 0) }
	res, err = limiter.Check(ctx, action)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLimiter_SlidingWindowWeighting(t *testing.T) {
	ctx := context.Background()
	store := newMemCounterStore()
	limiter := NewLimiter(testLogger(), store)
	// 15s into a 60s window: 75% of the previous window still overlaps.
	limiter.now = func() time.Time { return time.Unix(1_000_215, 0) }

	limiter.Register(ContextWithdrawal, "create", Config{
		Limit:         10,
		WindowSeconds: 60,
		Strategy:      StrategySlidingWindow,
		Cost:          1,
	})

	// 8 hits in the previous window weigh in as floor(8 * 0.75) = 6.
	store.set("rl:WITHDRAWAL:create:acct-1:1000140", 8)

	action := Action{Context: ContextWithdrawal, Name: "create", Entity: "acct-1"}

	// 6 weighted + 4 current = 10 <= limit.
	for i := 1; i <= 4; i++ {
		res, err := limiter.Check(ctx, action)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "call %d should be allowed", i)
	}

	// 6 weighted + 5 current = 11 > limit.
	res, err := limiter.Check(ctx, action)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestLimiter_TokenBucketBurst(t *testing.T) {
	ctx := context.Background()
	store := newMemCounterStore()
	limiter := NewLimiter(testLogger(), store)

	limiter.Register(ContextAuth, "login", Config{
		Limit:         3,
		WindowSeconds: 60,
		Strategy:      StrategyTokenBucket,
		Cost:          1,
		BurstLimit:    2,
	})

	action := Action{Context: ContextAuth, Name: "login", Entity: "user-1"}

	// Capacity is limit + burst = 5.
	for i := 1; i <= 5; i++ {
		res, err := limiter.Check(ctx, action)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "call %d should be allowed", i)
	}

	res, err := limiter.Check(ctx, action)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestLimiter_CostClamp(t *testing.T) {
	ctx := context.Background()
	store := newMemCounterStore()
	limiter := NewLimiter(testLogger(), store)

	limiter.Register(ContextQuery, "history", Config{
		Limit:         10_000,
		WindowSeconds: 60,
		Strategy:      StrategyTokenBucket,
		Cost:          1,
	})

	action := Action{Context: ContextQuery, Name: "history", Entity: "acct-1", Cost: 50_000}
	_, err := limiter.Check(ctx, action)
	require.NoError(t, err)

	count, err := store.Get(ctx, "rl:QUERY:history:acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), count, "cost must be clamped to 1000")
}

func TestLimiter_FailurePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("critical context fails closed", func(t *testing.T) {
		store := newMemCounterStore()
		store.err = shared.ErrStoreUnavailable
		limiter := NewLimiter(testLogger(), store)
		limiter.Register(ContextWithdrawal, "create", Config{Limit: 5, WindowSeconds: 60})

		res, err := limiter.Check(ctx, Action{Context: ContextWithdrawal, Name: "create", Entity: "acct-1"})
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.NotEmpty(t, res.Reason)
	})

	t.Run("non-critical context fails open", func(t *testing.T) {
		store := newMemCounterStore()
		store.err = shared.ErrStoreUnavailable
		limiter := NewLimiter(testLogger(), store)
		limiter.Register(ContextQuery, "history", Config{Limit: 5, WindowSeconds: 60})

		res, err := limiter.Check(ctx, Action{Context: ContextQuery, Name: "history", Entity: "acct-1"})
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})
}

func TestLimiter_UnregisteredActionAllowed(t *testing.T) {
	limiter := NewLimiter(testLogger(), newMemCounterStore())
	res, err := limiter.Check(context.Background(), Action{Context: ContextQuery, Name: "nothing", Entity: "x"})
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
