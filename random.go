package respondersdk

import (
	"math/rand"
	"sync"
	"time"
)

// ──────────────────────────────────────────────
// Random Source — concurrency-safe seedable randomness for the pipeline
// ──────────────────────────────────────────────

// lockedSource guards a rand source with a mutex so one *rand.Rand can be
// shared across concurrent requests, the same way math/rand protects its
// global source.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// newLockedRand returns a rand.Rand safe for concurrent use.
// A zero seed falls back to the clock.
func newLockedRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(&lockedSource{src: rand.NewSource(seed).(rand.Source64)})
}
