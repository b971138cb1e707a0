// Package traffic keeps sliding windows of request outcomes for the health endpoint.
package traffic

import (
	"sync"
	"time"
)

// retention bounds how long outcomes are kept regardless of the windows queried.
const retention = 5 * time.Minute

// Outcome classifies a finished request.
type Outcome int

const (
	Success Outcome = iota
	Failure         // upstream error, timeout, database error
	Denied          // rejected by the rate limiter
)

var defaultTracker = NewTracker()

// Record adds an outcome to the process-wide tracker.
func Record(o Outcome) {
	defaultTracker.Record(o)
}

// ErrorRate returns failures and successes+failures recorded within window.
func ErrorRate(window time.Duration) (failures, total int) {
	return defaultTracker.ErrorRate(window)
}

// DenialCount returns rate-limit denials recorded within window.
func DenialCount(window time.Duration) int {
	return defaultTracker.Count(Denied, window)
}

// Degraded reports whether the process-wide failure share within window reached pct percent.
func Degraded(window time.Duration, pct int) bool {
	return defaultTracker.Degraded(window, pct)
}

// Reset clears the process-wide tracker. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	times map[Outcome][]time.Time
	now   func() time.Time
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{times: make(map[Outcome][]time.Time), now: time.Now}
}

// Record stamps o with the current time.
func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.times[o] = append(t.times[o], now)
	t.pruneLocked(now)
}

// Count returns how many o outcomes fall within window.
func (t *Tracker) Count(o Outcome, window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countSince(t.times[o], t.now().Add(-window))
}

// ErrorRate returns (failures, successes+failures) within window. Denials are not counted.
func (t *Tracker) ErrorRate(window time.Duration) (failures, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	failures = countSince(t.times[Failure], cutoff)
	return failures, failures + countSince(t.times[Success], cutoff)
}

// Degraded reports whether failures make up at least pct percent of outcomes in window.
// An empty window or a non-positive pct is never degraded.
func (t *Tracker) Degraded(window time.Duration, pct int) bool {
	if window <= 0 || pct <= 0 {
		return false
	}
	failures, total := t.ErrorRate(window)
	if total == 0 {
		return false
	}
	return failures*100 >= pct*total
}

// Reset drops every recorded outcome.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.times = make(map[Outcome][]time.Time)
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops outcomes older than retention. Timestamps are appended in order,
// so the stale ones form a prefix.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	for o, times := range t.times {
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			t.times[o] = append(times[:0], times[i:]...)
		}
	}
}
