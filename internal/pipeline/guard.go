package pipeline

import (
	"sync"
	"time"
)

// UserGuard serializes pipeline runs per user. Two independent gates are
// checked atomically: a busy gate (a run is already in flight) and a
// cooldown gate (the last run started less than the cooldown window ago).
// Rejected callers skip the run; there is no queueing.
type UserGuard struct {
	mu       sync.Mutex
	cooldown time.Duration
	busy     map[string]bool
	lastRun  map[string]time.Time
	now      func() time.Time
}

func NewUserGuard(cooldown time.Duration) *UserGuard {
	return &UserGuard{
		cooldown: cooldown,
		busy:     make(map[string]bool),
		lastRun:  make(map[string]time.Time),
		now:      time.Now,
	}
}

// Acquire admits at most one run per user, no sooner than the cooldown after
// the previous admission. On success the start timestamp is recorded.
func (g *UserGuard) Acquire(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy[userID] {
		return false
	}
	if last, ok := g.lastRun[userID]; ok && g.now().Sub(last) < g.cooldown {
		return false
	}
	g.busy[userID] = true
	g.lastRun[userID] = g.now()
	return true
}

// Release clears the busy flag. The last-run timestamp is kept so the
// cooldown still applies to the next attempt.
func (g *UserGuard) Release(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, userID)
}

// GuardState is a read-only snapshot for the debug endpoint.
type GuardState struct {
	Processing        bool
	CooldownRemaining time.Duration
}

func (g *UserGuard) State(userID string) GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := GuardState{Processing: g.busy[userID]}
	if last, ok := g.lastRun[userID]; ok {
		if remaining := g.cooldown - g.now().Sub(last); remaining > 0 {
			st.CooldownRemaining = remaining
		}
	}
	return st
}
