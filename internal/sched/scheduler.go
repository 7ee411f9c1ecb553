// internal/sched/scheduler.go
package sched

import (
	"sync"
	"time"
)

// Scheduler holds at most one pending delayed callback per room. Scheduling
// a new callback for a room stops the previous one rather than letting it
// fire into an already-advanced phase.
//
// time.Timer.Stop cannot interrupt a callback that has already begun
// running, so consumers must still re-check a phase token inside the
// callback before mutating anything. The scheduler narrows the race; the
// token closes it.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New returns an empty scheduler.
func New() *Scheduler {
	return &Scheduler{timers: make(map[string]*time.Timer)}
}

// Schedule registers fn to run after d, replacing any callback still pending
// for the room.
func (s *Scheduler) Schedule(roomID string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[roomID]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		// Only clear the slot if it still belongs to this timer; a
		// replacement scheduled after we fired must not be dropped.
		if s.timers[roomID] == timer {
			delete(s.timers, roomID)
		}
		s.mu.Unlock()
		fn()
	})
	s.timers[roomID] = timer
}

// Cancel stops and forgets any pending callback for the room. Called on
// leave and room destruction so a timer never fires against absent state.
func (s *Scheduler) Cancel(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[roomID]; ok {
		t.Stop()
		delete(s.timers, roomID)
	}
}

// Pending reports whether the room has a callback scheduled.
func (s *Scheduler) Pending(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[roomID]
	return ok
}
