package fsm_test

import (
	"context"
	"errors"
	"testing"

	adapter "github.com/neomorfeo/grainvault/internal/adapter/fsm"
	"github.com/neomorfeo/grainvault/internal/domain"
)

func TestValidator_AllTransitions(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	for _, tr := range domain.Transitions {
		dst, err := v.Apply(ctx, tr.Src, tr.Event)
		if err != nil {
			t.Errorf("Apply(%q, %q) unexpected error: %v", tr.Src, tr.Event, err)
			continue
		}
		if dst != tr.Dst {
			t.Errorf("Apply(%q, %q) = %q, want %q", tr.Src, tr.Event, dst, tr.Dst)
		}
	}
}

func TestValidator_InvalidTransition(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	tests := []struct {
		from  domain.Status
		event domain.Event
	}{
		{domain.StatusFull, domain.EventStock},
		{domain.StatusFull, domain.EventFill},
		{domain.StatusEmpty, domain.EventRelease},
		{domain.StatusEmpty, domain.EventClear},
		{domain.StatusEmpty, domain.Event("teleport")},
	}

	for _, tt := range tests {
		_, err := v.Apply(ctx, tt.from, tt.event)
		var trErr *domain.TransitionError
		if !errors.As(err, &trErr) {
			t.Errorf("Apply(%q, %q): expected TransitionError, got %v", tt.from, tt.event, err)
			continue
		}
		if trErr.Event != tt.event || trErr.Current != tt.from {
			t.Errorf("error = %+v, want event %q from %q", trErr, tt.event, tt.from)
		}
	}
}

func TestValidator_SlotLifecycle(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	steps := []struct {
		from  domain.Status
		event domain.Event
		want  domain.Status
	}{
		{domain.StatusEmpty, domain.EventStock, domain.StatusPartiallyFilled},
		{domain.StatusPartiallyFilled, domain.EventStock, domain.StatusPartiallyFilled},
		{domain.StatusPartiallyFilled, domain.EventFill, domain.StatusFull},
		{domain.StatusFull, domain.EventRelease, domain.StatusPartiallyFilled},
		{domain.StatusPartiallyFilled, domain.EventClear, domain.StatusEmpty},
	}

	for _, step := range steps {
		got, err := v.Apply(ctx, step.from, step.event)
		if err != nil {
			t.Fatalf("Apply(%q, %q) error: %v", step.from, step.event, err)
		}
		if got != step.want {
			t.Errorf("Apply(%q, %q) = %q, want %q", step.from, step.event, got, step.want)
		}
	}
}

func TestValidator_EventForMatchesTransitions(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	// Every status an allocate or deallocate can produce must be reachable
	// through the event EventFor names for it.
	cases := []struct {
		before, after domain.Status
		delta         int
	}{
		{domain.StatusEmpty, domain.StatusPartiallyFilled, 10},
		{domain.StatusEmpty, domain.StatusFull, 2000},
		{domain.StatusPartiallyFilled, domain.StatusPartiallyFilled, 10},
		{domain.StatusPartiallyFilled, domain.StatusFull, 10},
		{domain.StatusFull, domain.StatusPartiallyFilled, -10},
		{domain.StatusFull, domain.StatusEmpty, -2000},
		{domain.StatusPartiallyFilled, domain.StatusPartiallyFilled, -10},
		{domain.StatusPartiallyFilled, domain.StatusEmpty, -10},
	}
	for _, c := range cases {
		got, err := v.Apply(ctx, c.before, domain.EventFor(c.delta, c.after))
		if err != nil {
			t.Errorf("%s → %s: unexpected error %v", c.before, c.after, err)
			continue
		}
		if got != c.after {
			t.Errorf("%s → %s: got %q", c.before, c.after, got)
		}
	}
}
