package ratelimit

import (
	"fmt"
	"snaptrade/pkg/cache"
	"snaptrade/pkg/common"
	"time"
)

// Result describes the state of a key's window after a hit.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// FixedWindow counts hits per key inside aligned windows of a fixed length.
// Counters live in the shared expiring cache, so idle keys disappear on their own.
type FixedWindow struct {
	store  cache.Cache
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewFixedWindow(store cache.Cache, limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		store:  store,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Hit records one request for key and reports whether it fits in the current window.
func (f *FixedWindow) Hit(key string) Result {
	now := f.now()
	start := now.Truncate(f.window)
	resetAt := start.Add(f.window)
	counterKey := fmt.Sprintf(common.KEY_RATE_LIMIT_WINDOW, key, start.UnixNano())

	count := f.increment(counterKey, resetAt.Sub(now))

	remaining := f.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:   int(count) <= f.limit,
		Limit:     f.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !res.Allowed {
		res.RetryAfter = resetAt.Sub(now)
	}
	return res
}

func (f *FixedWindow) increment(key string, ttl time.Duration) int64 {
	for {
		if err := f.store.Add(key, int64(1), ttl); err == nil {
			return 1
		}
		count, err := f.store.IncrementInt64(key, 1)
		if err == nil {
			return count
		}
		// The counter expired between Add and Increment; start it again.
	}
}
