package service

import "sync"

// stampedeTracker counts cache misses in progress per report key. A count above one means
// several requests missed the same city and unit system at once.
type stampedeTracker struct {
	mu           sync.Mutex
	activeMisses map[string]int // key -> misses currently fetching upstream
}

func newStampedeTracker() *stampedeTracker {
	return &stampedeTracker{activeMisses: make(map[string]int)}
}

// RecordMiss registers a miss for key and returns how many are now in progress.
// Pair every call with RecordHit once the fetch completes.
func (st *stampedeTracker) RecordMiss(key string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.activeMisses[key]++
	return st.activeMisses[key]
}

// RecordHit marks one miss for key as resolved.
func (st *stampedeTracker) RecordHit(key string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	count, ok := st.activeMisses[key]
	if !ok {
		return
	}
	if count <= 1 {
		delete(st.activeMisses, key)
		return
	}
	st.activeMisses[key] = count - 1
}

// Active returns the number of misses in progress for key.
func (st *stampedeTracker) Active(key string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.activeMisses[key]
}
