package domain

import "fmt"

// TransitionPolicy decides whether an order may move between two states.
type TransitionPolicy interface {
	Allow(from, to State) bool
	Name() string
}

const (
	PolicyLenient = "lenient"
	PolicyStrict  = "strict"
)

// LenientPolicy accepts any enumerated target except leaving cancelled.
type LenientPolicy struct{}

func (LenientPolicy) Allow(from, to State) bool {
	if !to.Valid() {
		return false
	}
	return !from.Terminal()
}

func (LenientPolicy) Name() string { return PolicyLenient }

// StrictPolicy only follows the forward adjacency table below.
type StrictPolicy struct{}

var strictTransitions = map[State][]State{
	StateQuote:      {StateWorkOrder, StatePending, StateCancelled},
	StateWorkOrder:  {StatePending, StateInProgress, StateCancelled},
	StatePending:    {StateInProgress, StateCancelled},
	StateInProgress: {StateFinished, StateCancelled},
	StateFinished:   {StateCompleted, StateDelivered, StateCancelled},
	StateCompleted:  {StateDelivered, StatePaid, StateCancelled},
	StateDelivered:  {StatePaid},
	StatePaid:       nil,
	StateCancelled:  nil,
}

func (StrictPolicy) Allow(from, to State) bool {
	for _, next := range strictTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (StrictPolicy) Name() string { return PolicyStrict }

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (TransitionPolicy, error) {
	switch name {
	case "", PolicyLenient:
		return LenientPolicy{}, nil
	case PolicyStrict:
		return StrictPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown transition policy %q", name)
	}
}

// CheckTransition returns ErrInvalidTransition when policy rejects from -> to.
func CheckTransition(policy TransitionPolicy, from, to State) error {
	if !to.Valid() {
		return ErrInvalidState
	}
	if !policy.Allow(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
