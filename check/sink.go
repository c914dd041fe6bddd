package check

import (
	"sync"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

// Sink collects the events of one test in emission order.
// It is safe for concurrent use by goroutines the body spawns.
type Sink struct {
	mu      sync.Mutex
	events  []types.FailureEvent
	sealed  bool
	dropped int
}

// NewSink creates an empty, open sink.
func NewSink() *Sink {
	return &Sink{}
}

// Append records ev. It returns false once the sink has been sealed.
func (s *Sink) Append(ev types.FailureEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		s.dropped++
		return false
	}
	s.events = append(s.events, ev)
	return true
}

// Seal closes the sink and returns the events recorded so far.
// Later appends, for example from a body the watchdog abandoned, are dropped.
func (s *Sink) Seal() []types.FailureEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
	return append([]types.FailureEvent(nil), s.events...)
}

// Events returns a snapshot of the recorded events.
func (s *Sink) Events() []types.FailureEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.FailureEvent(nil), s.events...)
}

// Dropped returns how many events arrived after Seal.
func (s *Sink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
