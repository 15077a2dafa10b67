package dispatch

import (
	"sync"
	"time"

	"github.com/DartonStaker/appapost/internal/policy"
)

// DelayBefore computes the advisory spacing before the next post to a
// platform is allowed. A nil lastPost means no prior history, so the
// first post goes out immediately. The dispatcher does not block on
// this; deferred work goes through the queue.
func DelayBefore(p policy.Platform, lastPost *time.Time) time.Duration {
	return delayBeforeAt(p, lastPost, time.Now())
}

func delayBeforeAt(p policy.Platform, lastPost *time.Time, now time.Time) time.Duration {
	if lastPost == nil {
		return 0
	}
	minInterval := policy.MinInterval(p)
	elapsed := now.Sub(*lastPost)
	if elapsed >= minInterval {
		return 0
	}
	return minInterval - elapsed
}

// RateTracker tracks posting volume per (account, platform) against
// the platform's hourly and daily budgets. Advisory spacing handles
// pacing; this is the hard admission check the handlers consult.
type RateTracker struct {
	mu    sync.Mutex
	posts map[string][]time.Time
}

func NewRateTracker() *RateTracker {
	return &RateTracker{posts: make(map[string][]time.Time)}
}

// Allow reports whether another post fits the platform's budgets and,
// when it does not, the wait until the oldest counted post ages out.
func (rt *RateTracker) Allow(accountID string, p policy.Platform) (bool, time.Duration) {
	return rt.allowAt(accountID, p, time.Now())
}

func (rt *RateTracker) allowAt(accountID string, p policy.Platform, now time.Time) (bool, time.Duration) {
	rl := policy.RateLimitFor(p)
	key := accountID + ":" + string(p)

	rt.mu.Lock()
	defer rt.mu.Unlock()

	kept := rt.posts[key][:0]
	for _, ts := range rt.posts[key] {
		if now.Sub(ts) < 24*time.Hour {
			kept = append(kept, ts)
		}
	}
	rt.posts[key] = kept

	if rl.PerDay > 0 && len(kept) >= rl.PerDay {
		return false, kept[0].Add(24 * time.Hour).Sub(now)
	}

	hourly := 0
	var oldestInHour time.Time
	for _, ts := range kept {
		if now.Sub(ts) < time.Hour {
			if hourly == 0 {
				oldestInHour = ts
			}
			hourly++
		}
	}
	if rl.PerHour > 0 && hourly >= rl.PerHour {
		return false, oldestInHour.Add(time.Hour).Sub(now)
	}
	return true, 0
}

// Record notes a successful post for future admission checks.
func (rt *RateTracker) Record(accountID string, p policy.Platform) {
	rt.recordAt(accountID, p, time.Now())
}

func (rt *RateTracker) recordAt(accountID string, p policy.Platform, now time.Time) {
	key := accountID + ":" + string(p)
	rt.mu.Lock()
	rt.posts[key] = append(rt.posts[key], now)
	rt.mu.Unlock()
}
