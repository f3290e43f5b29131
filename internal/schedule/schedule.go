// Package schedule runs delayed actions that are invalidated as a group.
//
// Every action is keyed to the generation that was current when it was
// scheduled. Advancing the generation makes all pending actions stale, so a
// timer left over from a torn down owner can never fire into its successor.
package schedule

import (
	"sync"
	"time"
)

type Scheduler struct {
	mu         sync.Mutex
	generation uint64
	timers     map[uint64]*time.Timer
	nextID     uint64
}

func New() *Scheduler {
	return &Scheduler{timers: map[uint64]*time.Timer{}}
}

// Generation returns the current generation.
func (s *Scheduler) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// IsCurrent reports whether generation is still the current one.
func (s *Scheduler) IsCurrent(generation uint64) bool {
	return s.Generation() == generation
}

// Advance stops every pending action and returns the new generation.
func (s *Scheduler) Advance() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAllLocked()
	s.generation++
	return s.generation
}

// After runs action after delay unless the generation moves on first. The
// returned function cancels the action.
func (s *Scheduler) After(delay time.Duration, action func()) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	generation := s.generation
	s.nextID++
	id := s.nextID
	s.timers[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		_, pending := s.timers[id]
		delete(s.timers, id)
		current := s.generation == generation
		s.mu.Unlock()

		if pending && current {
			action()
		}
	})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if timer, ok := s.timers[id]; ok {
			timer.Stop()
			delete(s.timers, id)
		}
	}
}

// Pending returns the number of actions that have not fired yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending action without advancing the generation.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAllLocked()
}

func (s *Scheduler) stopAllLocked() {
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
