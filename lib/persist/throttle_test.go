package persist

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestSchedulerCoalesces(t *testing.T) {
	clock := newFakeClock()
	var runs atomic.Int32
	s := NewScheduler(5*time.Second, clock, func() { runs.Add(1) })

	for range 10 {
		s.Schedule()
	}
	if !s.Pending() {
		t.Fatal("expected a pending call")
	}

	clock.Advance(5*time.Second - time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Fatalf("ran %d times before the window ended", got)
	}

	clock.Advance(time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Fatalf("expected 1 run at the end of the window, got %d", got)
	}
	if s.Pending() {
		t.Error("nothing should be pending after the run")
	}
	if !s.LastFire().Equal(clock.Now()) {
		t.Errorf("LastFire = %v, want %v", s.LastFire(), clock.Now())
	}

	clock.Advance(time.Minute)
	if got := runs.Load(); got != 1 {
		t.Errorf("no further run expected without Schedule, got %d", got)
	}
}

func TestSchedulerTrailingOnly(t *testing.T) {
	clock := newFakeClock()
	var runs atomic.Int32
	s := NewScheduler(time.Second, clock, func() { runs.Add(1) })

	// a call scheduled right after a run waits for a full window again
	s.Schedule()
	clock.Advance(time.Second)
	s.Schedule()
	if got := runs.Load(); got != 1 {
		t.Fatalf("leading edge call detected, runs=%d", got)
	}
	clock.Advance(time.Second)
	if got := runs.Load(); got != 2 {
		t.Errorf("expected 2 runs, got %d", got)
	}
}

func TestSchedulerFlush(t *testing.T) {
	clock := newFakeClock()
	var runs atomic.Int32
	s := NewScheduler(5*time.Second, clock, func() { runs.Add(1) })

	if s.Flush() {
		t.Error("Flush without pending call must report false")
	}

	s.Schedule()
	if !s.Flush() {
		t.Error("Flush with pending call must report true")
	}
	if got := runs.Load(); got != 1 {
		t.Fatalf("expected Flush to run the call, runs=%d", got)
	}

	// the timer of the flushed call must not fire again
	clock.Advance(10 * time.Second)
	if got := runs.Load(); got != 1 {
		t.Errorf("flushed call ran twice, runs=%d", got)
	}
}

func TestSchedulerFlushWaitsForRunningCall(t *testing.T) {
	clock := newFakeClock()
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	s := NewScheduler(time.Second, clock, func() {
		close(started)
		<-release
		finished.Store(true)
	})

	s.Schedule()
	go clock.Advance(time.Second)
	<-started

	flushed := make(chan bool)
	go func() { flushed <- s.Flush() }()
	select {
	case <-flushed:
		t.Fatal("Flush returned while the timer call was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	if pending := <-flushed; pending {
		t.Error("Flush must report false when the call was already running")
	}
	if !finished.Load() {
		t.Error("Flush returned before the running call finished")
	}
}

func TestSchedulerCancel(t *testing.T) {
	clock := newFakeClock()
	var runs atomic.Int32
	s := NewScheduler(5*time.Second, clock, func() { runs.Add(1) })

	s.Schedule()
	if !s.Cancel() {
		t.Error("Cancel with pending call must report true")
	}
	clock.Advance(10 * time.Second)
	if got := runs.Load(); got != 0 {
		t.Errorf("cancelled call ran, runs=%d", got)
	}
	if s.Cancel() {
		t.Error("second Cancel must report false")
	}
	if !s.LastFire().IsZero() {
		t.Error("LastFire must be zero before the first run")
	}
}

func TestSchedulerRunsNeverOverlap(t *testing.T) {
	clock := newFakeClock()
	var active, maxActive, runs atomic.Int32
	s := NewScheduler(time.Second, clock, func() {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		runs.Add(1)
		active.Add(-1)
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				s.Schedule()
				s.Flush()
			}
		}()
	}
	wg.Wait()

	if got := maxActive.Load(); got != 1 {
		t.Errorf("runs overlapped, max concurrent runs = %d", got)
	}
	if runs.Load() == 0 {
		t.Error("expected at least one run")
	}
}

func TestSchedulerRealClockLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	done := make(chan struct{})
	s := NewScheduler(10*time.Millisecond, RealClock(), func() {
		select {
		case <-done:
		default:
			close(done)
		}
	})
	s.Schedule()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled call never ran")
	}

	// a cancelled timer must not leave anything behind either
	s.Schedule()
	s.Cancel()
}
