package persist

import (
	"sync"
	"time"
)

// --------------------------------------------------------------------------
// Clock
// --------------------------------------------------------------------------

// Clock is the time source of the persistence layer. Tests replace it to
// control the throttle window and blob ages.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine once d has elapsed
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call
type Timer interface {
	// Stop prevents the call, it reports false if the call already started
	Stop() bool
}

type realClock struct{}

// RealClock returns the wall clock backed by the time package.
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// --------------------------------------------------------------------------
// Scheduler
// --------------------------------------------------------------------------

// Scheduler is a trailing-edge throttle: any number of Schedule calls within
// one window collapse into a single call of fn at the end of that window.
//
// Runs of fn never overlap. Flush runs a pending call immediately on the
// calling goroutine and returns only once no call is running, Cancel drops it.
type Scheduler struct {
	mu     sync.Mutex
	runMu  sync.Mutex
	clock  Clock
	window time.Duration
	fn     func()

	pending  bool
	timer    Timer
	gen      uint64
	lastFire time.Time
}

// NewScheduler creates a scheduler calling fn at most once per window.
func NewScheduler(window time.Duration, clock Clock, fn func()) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	return &Scheduler{
		clock:  clock,
		window: window,
		fn:     fn,
	}
}

// Schedule arms the timer unless a call is already pending.
func (s *Scheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending {
		return
	}
	s.pending = true
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.window, func() { s.fire(gen) })
}

// Flush runs the pending call now. Without a pending call it waits for a
// call the timer already started. It reports whether a call was pending.
func (s *Scheduler) Flush() bool {
	if !s.disarm() {
		s.runMu.Lock()
		s.runMu.Unlock()
		return false
	}
	s.run()
	return true
}

// Cancel drops the pending call. It reports whether a call was pending.
func (s *Scheduler) Cancel() bool {
	return s.disarm()
}

// Pending reports whether a call is scheduled.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// LastFire returns the start time of the last call, zero if fn never ran.
func (s *Scheduler) LastFire() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFire
}

func (s *Scheduler) disarm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pending {
		return false
	}
	s.pending = false
	// a timer callback already on its way sees a stale generation and returns
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return true
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if !s.pending || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.timer = nil
	s.mu.Unlock()

	s.run()
}

func (s *Scheduler) run() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.mu.Lock()
	s.lastFire = s.clock.Now()
	s.mu.Unlock()

	s.fn()
}
