package batch

import (
	"sync"
	"sync/atomic"
	"time"

	"batch-archiver/internal/domain"
)

// Stats aggregates per-item outcomes for one batch run. Counters are
// incremented atomically by worker completions; snapshots tolerate
// concurrent writers.
type Stats struct {
	total   atomic.Int64
	success atomic.Int64
	failed  atomic.Int64
	skipped atomic.Int64

	mu        sync.Mutex
	startedAt time.Time
}

// NewStats creates zeroed counters with the clock started now.
func NewStats() *Stats {
	s := &Stats{}
	s.Reset(0)
	return s
}

// Reset zeroes all counters, sets the expected total and restarts the
// elapsed clock. Called once at the start of each run.
func (s *Stats) Reset(total int) {
	s.total.Store(int64(total))
	s.success.Store(0)
	s.failed.Store(0)
	s.skipped.Store(0)

	s.mu.Lock()
	s.startedAt = time.Now()
	s.mu.Unlock()
}

// Add records one completed item by outcome.
func (s *Stats) Add(outcome domain.Outcome) {
	switch outcome {
	case domain.OutcomeSuccess:
		s.success.Add(1)
	case domain.OutcomeFailed:
		s.failed.Add(1)
	case domain.OutcomeSkipped:
		s.skipped.Add(1)
	}
}

// Completed returns how many items have finished so far.
func (s *Stats) Completed() int {
	return int(s.success.Load() + s.failed.Load() + s.skipped.Load())
}

// Snapshot returns a consistent point-in-time view of the counters.
func (s *Stats) Snapshot() domain.StatsSnapshot {
	s.mu.Lock()
	started := s.startedAt
	s.mu.Unlock()

	return domain.StatsSnapshot{
		Total:   int(s.total.Load()),
		Success: int(s.success.Load()),
		Failed:  int(s.failed.Load()),
		Skipped: int(s.skipped.Load()),
		Elapsed: time.Since(started),
	}
}
