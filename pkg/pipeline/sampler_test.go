package pipeline

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestSampler_TicksAtPeriod(t *testing.T) {
	clk := clock.NewMock()
	var ticks atomic.Int64
	s := NewSampler(clk, func() { ticks.Add(1) })

	if err := s.Start(time.Second); err != nil {
		t.Fatalf("Start() err = %v", err)
	}
	defer s.Stop()

	// One period at a time: the mock clock drops a tick when the
	// consumer has not caught up yet.
	for i := int64(1); i <= 3; i++ {
		clk.Add(time.Second)
		waitTicks(t, &ticks, i)
	}
}

func TestSampler_InvalidPeriod(t *testing.T) {
	clk := clock.NewMock()
	s := NewSampler(clk, func() {})

	if err := s.Start(100 * time.Millisecond); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("Start(100ms) err = %v, want ErrInvalidPeriod", err)
	}
	if err := s.Start(time.Minute); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("Start(1m) err = %v, want ErrInvalidPeriod", err)
	}
	if s.Running() {
		t.Error("Running() = true after rejected starts")
	}

	// A rejected restart leaves the current cadence untouched.
	var ticks atomic.Int64
	s = NewSampler(clk, func() { ticks.Add(1) })
	if err := s.Start(time.Second); err != nil {
		t.Fatalf("Start() err = %v", err)
	}
	defer s.Stop()
	if err := s.Start(10 * time.Millisecond); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("Start(10ms) err = %v, want ErrInvalidPeriod", err)
	}
	clk.Add(time.Second)
	waitTicks(t, &ticks, 1)
}

func TestSampler_StopBeforeFirstTick(t *testing.T) {
	clk := clock.NewMock()
	var ticks atomic.Int64
	s := NewSampler(clk, func() { ticks.Add(1) })

	if err := s.Start(time.Second); err != nil {
		t.Fatalf("Start() err = %v", err)
	}
	s.Stop()

	clk.Add(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if got := ticks.Load(); got != 0 {
		t.Errorf("ticks = %d, want 0 after Stop", got)
	}
}

func TestSampler_StopIdempotent(t *testing.T) {
	clk := clock.NewMock()
	s := NewSampler(clk, func() {})

	s.Stop() // never started
	if err := s.Start(time.Second); err != nil {
		t.Fatalf("Start() err = %v", err)
	}
	s.Stop()
	s.Stop()
	if s.Running() {
		t.Error("Running() = true after Stop")
	}
}

func TestSampler_RestartChangesCadence(t *testing.T) {
	clk := clock.NewMock()
	var ticks atomic.Int64
	s := NewSampler(clk, func() { ticks.Add(1) })

	if err := s.Start(2 * time.Second); err != nil {
		t.Fatalf("Start() err = %v", err)
	}
	defer s.Stop()

	clk.Add(2 * time.Second)
	waitTicks(t, &ticks, 1)

	// Restart at half the period; the old ticker must not fire again.
	if err := s.Start(time.Second); err != nil {
		t.Fatalf("restart err = %v", err)
	}
	clk.Add(time.Second)
	waitTicks(t, &ticks, 2)
	clk.Add(time.Second)
	waitTicks(t, &ticks, 3)
}

// waitTicks polls until the counter reaches want or the deadline hits.
func waitTicks(t *testing.T, ticks *atomic.Int64, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := ticks.Load(); got >= want {
			if got > want {
				t.Fatalf("ticks = %d, want exactly %d", got, want)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("ticks = %d, want %d", ticks.Load(), want)
}
