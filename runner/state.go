package runner

import (
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

// stateTracker follows one test through the scheduler and logs illegal moves.
type stateTracker struct {
	id  string
	log log.Logger

	mu    sync.Mutex
	state types.TestState
}

func newStateTracker(id string, logger log.Logger) *stateTracker {
	return &stateTracker{id: id, log: logger, state: types.StatePending}
}

// transition moves to next and reports whether the move was legal.
// An illegal move is logged and ignored.
func (t *stateTracker) transition(next types.TestState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !types.CanTransition(t.state, next) {
		t.log.Error("Invalid test state transition", "test", t.id, "from", t.state, "to", next)
		return false
	}
	t.log.Trace("Test state transition", "test", t.id, "from", t.state, "to", next)
	t.state = next
	return true
}

func (t *stateTracker) current() types.TestState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
