// Package ratelimit gates entry into the fund-movement core. Three
// strategies share one atomic counter primitive; contexts on the money path
// fail closed when the counter store is unreachable, everything else fails
// open.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Context classifies what an action protects. Critical contexts deny on
// store error because money-movement abuse costs more than a dropped check.
type Context string

const (
	ContextWithdrawal Context = "WITHDRAWAL"
	ContextAuth       Context = "AUTH"
	ContextPooledOp   Context = "POOLED_OPERATION"
	ContextQuery      Context = "QUERY"
)

// IsCritical reports whether the context fails closed on store errors
func (c Context) IsCritical() bool {
	switch c {
	case ContextWithdrawal, ContextAuth, ContextPooledOp:
		return true
	}
	return false
}

// Strategy selects the counting algorithm for a config
type Strategy string

const (
	StrategyFixedWindow   Strategy = "fixed_window"
	StrategySlidingWindow Strategy = "sliding_window"
	StrategyTokenBucket   Strategy = "token_bucket"
)

// Cost bounds per check. Clamping keeps a single caller from exhausting a
// shared counter in one call.
const (
	minCost = 1
	maxCost = 1000
)

// Config describes one registered limit
type Config struct {
	Limit         int
	WindowSeconds int
	Strategy      Strategy
	Cost          int
	BurstLimit    int
	BlockOnExceed bool
}

// Action is one request to be checked against a registered config
type Action struct {
	Context Context
	Name    string // Registered action name, e.g. "create"
	Entity  string // The account, member or caller being limited
	Cost    int    // Optional override of the config cost
}

// Result reports the outcome of a check
type Result struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
	Reason     string
}

// Limiter evaluates actions against registered configs using an atomic
// counter store
type Limiter struct {
	store  CounterStore
	logger *slog.Logger

	mu      sync.RWMutex
	configs map[string]Config

	now func() time.Time
}

// NewLimiter creates a limiter with an empty config registry
func NewLimiter(logger *slog.Logger, store CounterStore) *Limiter {
	return &Limiter{
		store:   store,
		logger:  logger,
		configs: make(map[string]Config),
		now:     time.Now,
	}
}

// Register adds or replaces the config for (context, action)
func (l *Limiter) Register(ctx Context, action string, cfg Config) {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyFixedWindow
	}
	if cfg.Cost <= 0 {
		cfg.Cost = 1
	}
	l.mu.Lock()
	l.configs[configKey(ctx, action)] = cfg
	l.mu.Unlock()
}

func configKey(ctx Context, action string) string {
	return string(ctx) + ":" + action
}

func clampCost(cost int) int64 {
	if cost < minCost {
		return minCost
	}
	if cost > maxCost {
		return maxCost
	}
	return int64(cost)
}

// Check evaluates the action. The counter increment happens atomically with
// the comparison; there is no separate record step.
func (l *Limiter) Check(ctx context.Context, action Action) (Result, error) {
	l.mu.RLock()
	cfg, ok := l.configs[configKey(action.Context, action.Name)]
	l.mu.RUnlock()
	if !ok {
		// Unregistered actions are unlimited, by registry omission not by
		// store failure.
		return Result{Allowed: true, Remaining: -1}, nil
	}

	cost := cfg.Cost
	if action.Cost > 0 {
		cost = action.Cost
	}

	now := l.now()
	var (
		res Result
		err error
	)
	switch cfg.Strategy {
	case StrategySlidingWindow:
		res, err = l.checkSlidingWindow(ctx, action, cfg, clampCost(cost), now)
	case StrategyTokenBucket:
		res, err = l.checkTokenBucket(ctx, action, cfg, clampCost(cost), now)
	default:
		res, err = l.checkFixedWindow(ctx, action, cfg, clampCost(cost), now)
	}
	if err != nil {
		return l.failurePolicy(action, err)
	}

	if !res.Allowed {
		res.RetryAfter = time.Until(res.ResetAt)
		if res.RetryAfter < 0 {
			res.RetryAfter = 0
		}
		res.Reason = "limit exceeded"
	}
	return res, nil
}

// failurePolicy applies the fail-closed/fail-open asymmetry on store errors
func (l *Limiter) failurePolicy(action Action, err error) (Result, error) {
	if action.Context.IsCritical() {
		l.logger.Error("Counter store error on critical context, denying",
			"context", string(action.Context),
			"action", action.Name,
			"error", err)
		return Result{Allowed: false, Reason: "rate limit store unavailable", RetryAfter: time.Second}, nil
	}
	l.logger.Warn("Counter store error on non-critical context, allowing",
		"context", string(action.Context),
		"action", action.Name,
		"error", err)
	return Result{Allowed: true, Remaining: -1}, nil
}

func (l *Limiter) counterKey(action Action) string {
	return fmt.Sprintf("rl:%s:%s:%s", action.Context, action.Name, action.Entity)
}

func windowStart(now time.Time, windowSeconds int) int64 {
	w := int64(windowSeconds)
	return now.Unix() - now.Unix()%w
}

// checkFixedWindow counts hits in the current window only. Allowed iff the
// post-increment count fits the limit.
func (l *Limiter) checkFixedWindow(ctx context.Context, action Action, cfg Config, cost int64, now time.Time) (Result, error) {
	start := windowStart(now, cfg.WindowSeconds)
	key := fmt.Sprintf("%s:%d", l.counterKey(action), start)
	ttl := time.Duration(cfg.WindowSeconds) * time.Second

	count, err := l.store.IncrBy(ctx, key, cost, ttl)
	if err != nil {
		return Result{}, err
	}

	resetAt := time.Unix(start+int64(cfg.WindowSeconds), 0)
	remaining := int64(cfg.Limit) - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= int64(cfg.Limit),
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// checkSlidingWindow approximates a sliding log by weighting the previous
// fixed window's count with the fractional overlap remaining in the current
// window. Assumes uniform distribution within the previous window; that
// accuracy/cost tradeoff is deliberate.
func (l *Limiter) checkSlidingWindow(ctx context.Context, action Action, cfg Config, cost int64, now time.Time) (Result, error) {
	window := int64(cfg.WindowSeconds)
	start := windowStart(now, cfg.WindowSeconds)
	base := l.counterKey(action)
	curKey := fmt.Sprintf("%s:%d", base, start)
	prevKey := fmt.Sprintf("%s:%d", base, start-window)

	// Previous window keys must outlive their own window by one more window
	// so the overlap weighting can still read them.
	ttl := 2 * time.Duration(cfg.WindowSeconds) * time.Second

	current, err := l.store.IncrBy(ctx, curKey, cost, ttl)
	if err != nil {
		return Result{}, err
	}
	previous, err := l.store.Get(ctx, prevKey)
	if err != nil {
		return Result{}, err
	}

	elapsed := float64(now.Unix()-start) / float64(window)
	overlap := 1.0 - elapsed
	approx := int64(float64(previous)*overlap) + current

	resetAt := time.Unix(start+window, 0)
	remaining := int64(cfg.Limit) - approx
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   approx <= int64(cfg.Limit),
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// checkTokenBucket treats limit+burst as bucket capacity. Usage counters
// expire with the window TTL, which is what refills the bucket.
func (l *Limiter) checkTokenBucket(ctx context.Context, action Action, cfg Config, cost int64, now time.Time) (Result, error) {
	key := l.counterKey(action)
	ttl := time.Duration(cfg.WindowSeconds) * time.Second
	capacity := int64(cfg.Limit + cfg.BurstLimit)

	usage, err := l.store.IncrBy(ctx, key, cost, ttl)
	if err != nil {
		return Result{}, err
	}

	remaining := capacity - usage
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   usage <= capacity,
		Remaining: remaining,
		ResetAt:   now.Add(ttl),
	}, nil
}

// Reset clears all counters an action could currently be using
func (l *Limiter) Reset(ctx context.Context, action Action) error {
	l.mu.RLock()
	cfg, ok := l.configs[configKey(action.Context, action.Name)]
	l.mu.RUnlock()
	if !ok {
		return nil
	}

	base := l.counterKey(action)
	if cfg.Strategy == StrategyTokenBucket {
		return l.store.Reset(ctx, base)
	}

	now := l.now()
	start := windowStart(now, cfg.WindowSeconds)
	if err := l.store.Reset(ctx, fmt.Sprintf("%s:%d", base, start)); err != nil {
		return err
	}
	return l.store.Reset(ctx, fmt.Sprintf("%s:%d", base, start-int64(cfg.WindowSeconds)))
}
