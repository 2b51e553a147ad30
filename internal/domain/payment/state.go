package payment

import (
	"github.com/rentflow/checkout/internal/domain/errors"
)

// AttemptState is a phase of the checkout launcher state machine.
type AttemptState string

const (
	StateIdle          AttemptState = "idle"
	StateScriptLoading AttemptState = "script_loading"
	StateOrderCreating AttemptState = "order_creating"
	StateWidgetOpen    AttemptState = "widget_open"
	StateVerifying     AttemptState = "verifying"
	StateSucceeded     AttemptState = "succeeded"
	StateFailed        AttemptState = "failed"
	StateCancelled     AttemptState = "cancelled"
)

var attemptTransitions = map[AttemptState][]AttemptState{
	StateIdle:          {StateScriptLoading},
	StateScriptLoading: {StateOrderCreating, StateFailed},
	StateOrderCreating: {StateWidgetOpen, StateFailed},
	StateWidgetOpen:    {StateVerifying, StateCancelled, StateFailed},
	StateVerifying:     {StateSucceeded, StateFailed},
	StateSucceeded:     {}, // Terminal state
	StateFailed:        {}, // Terminal state
	StateCancelled:     {}, // Terminal state
}

// CanTransitionTo checks if the attempt can move to the given state.
func (s AttemptState) CanTransitionTo(next AttemptState) bool {
	for _, allowed := range attemptTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state admits no further transitions.
func (s AttemptState) IsTerminal() bool {
	return len(attemptTransitions[s]) == 0
}

// Transition moves to the next state, enforcing legality.
func (s *AttemptState) Transition(next AttemptState) error {
	if !s.CanTransitionTo(next) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(*s)+" to "+string(next),
			errors.ErrInvalidStateTransition,
		)
	}
	*s = next
	return nil
}
