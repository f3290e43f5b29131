package schedule

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestAfterRunsAction(t *testing.T) {
	s := New()
	fired := make(chan struct{}, 1)
	s.After(5*time.Millisecond, func() { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for action")
	}
	if got := s.Pending(); got != 0 {
		t.Fatalf("expected no pending actions, got %d", got)
	}
}

func TestAdvanceDropsPendingActions(t *testing.T) {
	s := New()
	fired := atomic.Int32{}
	s.After(10*time.Millisecond, func() { fired.Add(1) })
	s.After(10*time.Millisecond, func() { fired.Add(1) })

	if generation := s.Advance(); generation != 1 {
		t.Fatalf("expected generation 1, got %d", generation)
	}

	time.Sleep(40 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("expected stale actions not to fire, got %d", got)
	}
}

func TestCancelStopsSingleAction(t *testing.T) {
	s := New()
	cancelled := atomic.Bool{}
	kept := make(chan struct{}, 1)

	cancel := s.After(10*time.Millisecond, func() { cancelled.Store(true) })
	s.After(10*time.Millisecond, func() { kept <- struct{}{} })
	cancel()

	select {
	case <-kept:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for remaining action")
	}
	if cancelled.Load() {
		t.Fatalf("expected cancelled action not to fire")
	}
}

func TestIsCurrent(t *testing.T) {
	s := New()
	generation := s.Generation()
	if !s.IsCurrent(generation) {
		t.Fatalf("expected generation %d to be current", generation)
	}
	s.Advance()
	if s.IsCurrent(generation) {
		t.Fatalf("expected generation %d to be stale", generation)
	}
}
