package pipeline

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Sampler fires a callback at a fixed period while running. It knows
// nothing about frames or dispatch: the callback is expected to be
// quick and non-blocking, so tick timing stays independent of
// inference latency.
//
// Start and Stop are idempotent. After Stop returns, the callback is
// guaranteed not to fire again: an in-progress tick holds the same
// lock Stop takes.
type Sampler struct {
	clk  clock.Clock
	tick func()

	mu      sync.Mutex
	ticker  *clock.Ticker
	done    chan struct{}
	running bool
}

// NewSampler creates a sampler firing tick on each period boundary.
// The clock is injected so tests can drive time deterministically.
func NewSampler(clk clock.Clock, tick func()) *Sampler {
	return &Sampler{clk: clk, tick: tick}
}

// Start begins ticking at the given period. Periods outside
// [MinSamplePeriod, MaxSamplePeriod] are rejected with
// ErrInvalidPeriod and any running cadence is left untouched.
// Starting a running sampler restarts it at the new period.
func (s *Sampler) Start(period time.Duration) error {
	if !ValidPeriod(period) {
		return ErrInvalidPeriod
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	s.ticker = s.clk.Ticker(period)
	s.done = make(chan struct{})
	s.running = true

	go s.loop(s.ticker, s.done)
	return nil
}

// Stop cancels the pending tick. Safe to call when not running.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Running reports whether the sampler is ticking.
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// stopLocked stops the current cadence. Caller holds mu.
func (s *Sampler) stopLocked() {
	if !s.running {
		return
	}
	s.running = false
	s.ticker.Stop()
	close(s.done)
	s.ticker = nil
	s.done = nil
}

// loop forwards ticks to the callback until stopped. The callback is
// invoked under mu so that Stop cannot return while a tick is mid
// flight.
func (s *Sampler) loop(ticker *clock.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.running && s.done == done {
				s.tick()
			}
			s.mu.Unlock()
		}
	}
}
