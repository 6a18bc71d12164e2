package batch

import (
	"os"
	"sync"
	"time"
)

// DefaultSampleInterval is the tick period for throughput measurement.
const DefaultSampleInterval = time.Second

// ThroughputSampler periodically polls the size of the most recently
// written output artifact and reports an instantaneous write rate in
// MB/s. It runs independently of task completions; a single mutex guards
// the target path and byte baseline shared with writers.
type ThroughputSampler struct {
	interval time.Duration
	emit     func(mbPerSecond float64)
	stat     func(name string) (os.FileInfo, error)

	mu         sync.Mutex
	targetPath string
	lastBytes  int64
	lastTick   time.Time

	started  bool
	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
}

// NewThroughputSampler creates a sampler reporting to emit. A
// non-positive interval falls back to the default one-second tick.
func NewThroughputSampler(interval time.Duration, emit func(mbPerSecond float64)) *ThroughputSampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &ThroughputSampler{
		interval: interval,
		emit:     emit,
		stat:     os.Stat,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// SetTarget points the sampler at a new output artifact and resets the
// byte baseline. Safe to call from any worker.
func (s *ThroughputSampler) SetTarget(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.targetPath == path {
		return
	}
	s.targetPath = path
	s.lastBytes = 0
}

// Start launches the sampling loop. Call Stop exactly once afterwards.
func (s *ThroughputSampler) Start() {
	s.mu.Lock()
	s.started = true
	s.lastTick = time.Now()
	s.mu.Unlock()

	go s.loop()
}

// Stop ends sampling and emits a final zero rate.
func (s *ThroughputSampler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()

		close(s.done)
		if started {
			<-s.finished
		}
		if s.emit != nil {
			s.emit(0)
		}
	})
}

// loop ticks until stopped, computing the rate from the size delta.
func (s *ThroughputSampler) loop() {
	defer close(s.finished)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sample()
		case <-s.done:
			return
		}
	}
}

// sample reads the current target size and reports the delta as MB/s.
func (s *ThroughputSampler) sample() {
	s.mu.Lock()
	path := s.targetPath
	last := s.lastBytes
	prevTick := s.lastTick
	s.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(prevTick).Seconds()
	if elapsed <= 0 {
		elapsed = s.interval.Seconds()
	}

	var current int64
	if path != "" {
		if info, err := s.stat(path); err == nil {
			current = info.Size()
		}
	}

	delta := current - last
	if delta < 0 {
		// Target was replaced or truncated since the last tick.
		delta = 0
	}

	s.mu.Lock()
	s.lastBytes = current
	s.lastTick = now
	s.mu.Unlock()

	if s.emit != nil {
		s.emit(float64(delta) / elapsed / (1024 * 1024))
	}
}

// NewThroughputSamplerForTests creates a sampler with an injectable stat.
func NewThroughputSamplerForTests(
	interval time.Duration,
	emit func(mbPerSecond float64),
	stat func(name string) (os.FileInfo, error),
) *ThroughputSampler {
	s := NewThroughputSampler(interval, emit)
	s.stat = stat
	return s
}
