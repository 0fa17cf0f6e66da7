package quoter

import (
	"sync"
	"time"
)

// PollCountLimit caps consecutive background re-fetch cycles when the
// polling limit is enabled. The first fetch is not counted against it,
// so callers see limit+1 total cycles before expiry.
const PollCountLimit = 3

// PollScheduler owns the one re-fetch timer and the poll counter. At
// most one timer is ever armed; starting a new cycle cancels any
// pending one.
type PollScheduler struct {
	clock Clock

	mu        sync.Mutex
	pollCount int
	timer     Timer
}

func NewPollScheduler(clock Clock) *PollScheduler {
	return &PollScheduler{clock: clock}
}

// BeginCycle cancels any pending timer before a fetch starts. A manual
// fetch also resets the poll counter, giving the user a fresh polling
// window.
func (s *PollScheduler) BeginCycle(manual bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	if manual {
		s.pollCount = 0
	}
}

// FinishCycle runs after a fetch commits. It counts the cycle when the
// limit applies, and either arms the timer to run refetch after
// interval or reports that polling has expired.
func (s *PollScheduler) FinishCycle(limitEnabled bool, interval time.Duration, refetch func()) (expired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limitEnabled {
		s.pollCount++
	}
	if !limitEnabled || s.pollCount < PollCountLimit+1 {
		s.cancelLocked()
		s.timer = s.clock.AfterFunc(interval, refetch)
		return false
	}
	return true
}

// Stop cancels any pending timer and resets the counter. Safe to call
// repeatedly.
func (s *PollScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.pollCount = 0
}

// TimerArmed reports whether a background re-fetch is pending. Used to
// decide whether an opportunistic refresh is needed at all.
func (s *PollScheduler) TimerArmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// PollCount returns the number of counted cycles in the current window.
func (s *PollScheduler) PollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pollCount
}

func (s *PollScheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
