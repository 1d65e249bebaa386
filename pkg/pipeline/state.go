package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is a step of the deduplication run.
type State string

const (
	StateIdle               State = "idle"
	StateValidating         State = "validating"
	StatePartitioning       State = "partitioning"
	StateProcessingSegments State = "processing_segments"
	StateMergingSegments    State = "merging_segments"
	StateRemuxing           State = "remuxing"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// ErrInvalidTransition is returned when a state change is not allowed.
var ErrInvalidTransition = errors.New("pipeline: invalid state transition")

// forward lists the single successor of each non-terminal state.
var forward = map[State]State{
	StateIdle:               StateValidating,
	StateValidating:         StatePartitioning,
	StatePartitioning:       StateProcessingSegments,
	StateProcessingSegments: StateMergingSegments,
	StateMergingSegments:    StateRemuxing,
	StateRemuxing:           StateDone,
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Transition records one state change.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// StateMachine tracks a single-pass run. The zero value is not usable; use NewStateMachine.
type StateMachine struct {
	mu      sync.Mutex
	current State
	history []Transition
	now     func() time.Time
}

// NewStateMachine returns a machine in StateIdle.
func NewStateMachine() *StateMachine {
	return &StateMachine{current: StateIdle, now: time.Now}
}

// Current returns the current state.
func (m *StateMachine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Advance moves to the next state. to must be the direct successor of the
// current state, or StateFailed from any non-terminal state.
func (m *StateMachine) Advance(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.current
	if from.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, from)
	}
	if to != StateFailed && forward[from] != to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	m.current = to
	m.history = append(m.history, Transition{From: from, To: to, At: m.now()})
	return nil
}

// Fail moves to StateFailed unless the machine already reached a terminal state.
func (m *StateMachine) Fail() {
	_ = m.Advance(StateFailed)
}

// History returns a copy of the recorded transitions.
func (m *StateMachine) History() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}
