package memory

import (
	"sync"
	"time"
)

// recentWrites is a time-bounded set of paths the agent wrote itself.
// Entries expire after the TTL so the set cannot grow unbounded.
type recentWrites struct {
	mu  sync.Mutex
	ttl time.Duration
	set map[string]time.Time
}

func newRecentWrites(ttl time.Duration) *recentWrites {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &recentWrites{
		ttl: ttl,
		set: make(map[string]time.Time),
	}
}

func (r *recentWrites) mark(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune()
	r.set[path] = time.Now()
}

func (r *recentWrites) contains(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune()
	_, ok := r.set[path]
	return ok
}

// prune is called with the lock held.
func (r *recentWrites) prune() {
	cutoff := time.Now().Add(-r.ttl)
	for path, at := range r.set {
		if at.Before(cutoff) {
			delete(r.set, path)
		}
	}
}
