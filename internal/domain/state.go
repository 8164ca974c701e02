package domain

import "fmt"

type State string

const (
	StateQuote      State = "quote"
	StateWorkOrder  State = "work_order"
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateFinished   State = "finished"
	StateCompleted  State = "completed"
	StateDelivered  State = "delivered"
	StatePaid       State = "paid"
	StateCancelled  State = "cancelled"
)

// DefaultInitialState is used when an order is created without an explicit state.
const DefaultInitialState = StatePending

var states = []State{
	StateQuote,
	StateWorkOrder,
	StatePending,
	StateInProgress,
	StateFinished,
	StateCompleted,
	StateDelivered,
	StatePaid,
	StateCancelled,
}

// States returns every lifecycle state in flow order.
func States() []State {
	out := make([]State, len(states))
	copy(out, states)
	return out
}

func (s State) Valid() bool {
	for _, known := range states {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is expected.
func (s State) Terminal() bool {
	return s == StateCancelled
}

// CanStart reports whether an order may be created in s. Orders never start
// delivered, completed, paid or cancelled.
func (s State) CanStart() bool {
	switch s {
	case StateQuote, StateWorkOrder, StatePending, StateInProgress, StateFinished:
		return true
	}
	return false
}

// ParseState validates a raw state name.
func ParseState(raw string) (State, error) {
	s := State(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidState, raw)
	}
	return s, nil
}

// RevenueStates are the states whose totals count as realised revenue.
func RevenueStates() []State {
	return []State{StateCompleted, StatePaid, StateDelivered}
}
