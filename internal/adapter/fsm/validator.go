package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/grainvault/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// events converts domain.Transitions into looplab/fsm EventDesc format,
// folding transitions that share an event and destination into one
// EventDesc with several sources (stock from "empty" and from
// "partially-filled" both land in "partially-filled").
var events = buildEvents()

func buildEvents() []loopfsm.EventDesc {
	type key struct {
		event string
		dst   string
	}
	grouped := make(map[key][]string)
	var order []key

	for _, t := range domain.Transitions {
		k := key{event: string(t.Event), dst: string(t.Dst)}
		if _, seen := grouped[k]; !seen {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{Name: k.event, Src: grouped[k], Dst: k.dst})
	}
	return out
}

// Validator checks slot status changes with a short-lived looplab/fsm
// machine per Apply call, seeded with the slot's current status.
type Validator struct{}

// New creates a new FSM-backed transition validator.
func New() *Validator {
	return &Validator{}
}

// Apply returns the status event leads to from current, or a
// domain.TransitionError if the event is not allowed there.
func (v *Validator) Apply(ctx context.Context, current domain.Status, event domain.Event) (domain.Status, error) {
	machine := loopfsm.NewFSM(string(current), events, nil)

	err := machine.Event(ctx, string(event))
	if err == nil {
		return domain.Status(machine.Current()), nil
	}

	// looplab/fsm reports a self-loop (stock into a partially filled slot)
	// as NoTransitionError with no cause.
	var noTransition loopfsm.NoTransitionError
	if errors.As(err, &noTransition) && noTransition.Err == nil {
		return current, nil
	}

	var invalidEvent loopfsm.InvalidEventError
	var unknownEvent loopfsm.UnknownEventError
	if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) || errors.As(err, &noTransition) {
		return "", &domain.TransitionError{Event: event, Current: current}
	}
	return "", err
}
