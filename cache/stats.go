package cache

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Stats is a point-in-time snapshot of a Manager's counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Writes      uint64
	Deletes     uint64
	EntryCount  int
	HitRate     float64
	AvgLatency  time.Duration
}

// statsTracker holds the hot counters (atomics, per the teacher's
// concurrency idiom for frequently-touched fields) plus a mutex-guarded
// cumulative latency aggregate.
type statsTracker struct {
	hits    atomic.Uint64
	misses  atomic.Uint64
	writes  atomic.Uint64
	deletes atomic.Uint64

	mu          sync.RWMutex
	latencySum  time.Duration
	latencyCnt  uint64
}

func (s *statsTracker) recordHit()    { s.hits.Inc() }
func (s *statsTracker) recordMiss()   { s.misses.Inc() }
func (s *statsTracker) recordWrite()  { s.writes.Inc() }
func (s *statsTracker) recordDelete() { s.deletes.Inc() }

func (s *statsTracker) recordLatency(d time.Duration) {
	s.mu.Lock()
	s.latencySum += d
	s.latencyCnt++
	s.mu.Unlock()
}

func (s *statsTracker) snapshot(entryCount int) Stats {
	hits := s.hits.Load()
	misses := s.misses.Load()
	total := hits + misses

	s.mu.RLock()
	sum, cnt := s.latencySum, s.latencyCnt
	s.mu.RUnlock()

	var avg time.Duration
	if cnt > 0 {
		avg = sum / time.Duration(cnt)
	}
	var rate float64
	if total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Hits:       hits,
		Misses:     misses,
		Writes:     s.writes.Load(),
		Deletes:    s.deletes.Load(),
		EntryCount: entryCount,
		HitRate:    rate,
		AvgLatency: avg,
	}
}
