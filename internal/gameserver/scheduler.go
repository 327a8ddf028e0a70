package gameserver

import (
	"sync"
	"time"
)

// Scheduler runs at most one pending tick callback at a time.
type Scheduler interface {
	// Schedule arranges for fn to run after d, replacing any pending callback.
	Schedule(d time.Duration, fn func())
	// Cancel drops the pending callback, if any. Safe to call multiple times.
	Cancel()
}

// TimerScheduler fires callbacks from time.AfterFunc goroutines.
// It is safe for concurrent use.
type TimerScheduler struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewTimerScheduler returns a TimerScheduler with nothing pending.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{}
}

// Schedule stops the pending timer and starts a new one.
//
// Precondition: d > 0; fn must not be nil.
// Postcondition: fn runs after d unless Cancel or Schedule is called first.
func (s *TimerScheduler) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		current := s.gen == gen
		if current {
			s.timer = nil
		}
		s.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Cancel prevents the pending callback from firing.
//
// Postcondition: no callback scheduled before Cancel will run after it returns,
// except one already past its staleness check.
func (s *TimerScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// ManualScheduler holds the pending callback until Fire is called. It lets
// tests drive an orchestrator tick by tick.
type ManualScheduler struct {
	mu      sync.Mutex
	pending func()
	delay   time.Duration
}

// Schedule records fn as the pending callback.
func (s *ManualScheduler) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = fn
	s.delay = d
}

// Cancel drops the pending callback.
func (s *ManualScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// Pending reports whether a callback is waiting.
func (s *ManualScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Delay returns the delay passed to the last Schedule call.
func (s *ManualScheduler) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}

// Fire runs the pending callback on the caller's goroutine.
//
// Postcondition: Returns false when nothing was pending.
func (s *ManualScheduler) Fire() bool {
	s.mu.Lock()
	fn := s.pending
	s.pending = nil
	s.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}
