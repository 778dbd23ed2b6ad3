package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/grainvault/internal/domain"
)

// maxSaveAttempts bounds optimistic retries when another process wrote the
// same slot between our read and our save.
const maxSaveAttempts = 5

// AllocationEngine is the only writer of slot occupancy. Every call is an
// atomic read-modify-write of a single slot.
//
// The event is derived from the same bag delta and resulting status that
// domain.Transitions encodes, and capacity is checked before it, so with
// the fsm validator a real mutation is never rejected. The validator is a
// guard against the table and the slot arithmetic drifting apart: a
// rejection, or a destination that disagrees with the computed status,
// aborts the write with *domain.TransitionError.
type AllocationEngine struct {
	slots     domain.SlotRepository
	publisher domain.EventPublisher
	validator domain.TransitionValidator
	locks     *slotLocks
	now       func() time.Time
}

// NewAllocationEngine creates an engine with the given adapters.
func NewAllocationEngine(slots domain.SlotRepository, publisher domain.EventPublisher, validator domain.TransitionValidator) *AllocationEngine {
	return &AllocationEngine{
		slots:     slots,
		publisher: publisher,
		validator: validator,
		locks:     newSlotLocks(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AllocateRequest places bags of one customer's grain into a slot.
type AllocateRequest struct {
	Slot       domain.SlotRef
	CustomerID string
	Bags       int
	GrainType  string
	// WeightKg is the weighbridge reading; nil means bags × nominal weight.
	WeightKg  *decimal.Decimal
	Notes     string
	EntryDate time.Time
}

// DeallocateRequest removes bags of one customer's grain from a slot.
type DeallocateRequest struct {
	Slot       domain.SlotRef
	CustomerID string
	Bags       int
}

// AllocationResult is the committed slot state and the event describing it.
type AllocationResult struct {
	Slot  domain.Slot
	Event domain.SlotEvent
}

// Allocate adds bags to the customer's allocation in the slot, creating it
// if needed. The call is rejected whole if the slot lacks capacity.
func (e *AllocationEngine) Allocate(ctx context.Context, req AllocateRequest) (AllocationResult, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return AllocationResult{}, &domain.InvalidRequestError{Field: "customerId", Reason: "must not be empty"}
	}
	if req.Bags <= 0 {
		return AllocationResult{}, &domain.InvalidRequestError{Field: "bags", Reason: "must be a positive integer"}
	}

	alloc := domain.Allocation{
		CustomerID: req.CustomerID,
		Bags:       req.Bags,
		GrainType:  strings.ToLower(strings.TrimSpace(req.GrainType)),
		EntryDate:  req.EntryDate,
		Notes:      req.Notes,
	}
	if req.WeightKg != nil {
		if !req.WeightKg.IsPositive() {
			return AllocationResult{}, &domain.InvalidRequestError{Field: "weightKg", Reason: "must be positive"}
		}
		alloc.WeightKg = decimal.NewNullDecimal(*req.WeightKg)
	}
	if alloc.EntryDate.IsZero() {
		alloc.EntryDate = e.now()
	}

	return e.mutate(ctx, req.Slot, req.CustomerID, req.Bags, func(s domain.Slot) (domain.Slot, error) {
		return s.WithAllocation(alloc)
	})
}

// Deallocate takes bags from the customer's allocation in the slot and
// removes the allocation when none remain. Asking for more bags than the
// customer holds is an error, never clamped.
func (e *AllocationEngine) Deallocate(ctx context.Context, req DeallocateRequest) (AllocationResult, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return AllocationResult{}, &domain.InvalidRequestError{Field: "customerId", Reason: "must not be empty"}
	}
	if req.Bags <= 0 {
		return AllocationResult{}, &domain.InvalidRequestError{Field: "bags", Reason: "must be a positive integer"}
	}

	return e.mutate(ctx, req.Slot, req.CustomerID, -req.Bags, func(s domain.Slot) (domain.Slot, error) {
		return s.WithoutBags(req.CustomerID, req.Bags)
	})
}

func (e *AllocationEngine) mutate(ctx context.Context, ref domain.SlotRef, customerID string, delta int, change func(domain.Slot) (domain.Slot, error)) (AllocationResult, error) {
	unlock := e.locks.lock(ref)
	defer unlock()

	var after domain.Slot
	var event domain.Event
	for attempt := 1; ; attempt++ {
		before, err := e.slots.GetSlot(ctx, ref)
		if err != nil {
			return AllocationResult{}, err
		}

		after, err = change(before)
		if err != nil {
			return AllocationResult{}, err
		}

		event = domain.EventFor(delta, after.Status())
		status, err := e.validator.Apply(ctx, before.Status(), event)
		if err != nil {
			return AllocationResult{}, err
		}
		if status != after.Status() {
			return AllocationResult{}, &domain.TransitionError{Event: event, Current: before.Status()}
		}

		version, err := e.slots.SaveSlot(ctx, after)
		if err == nil {
			after.Version = version
			break
		}
		if !errors.Is(err, domain.ErrVersionConflict) || attempt == maxSaveAttempts {
			return AllocationResult{}, fmt.Errorf("saving slot %s: %w", ref, err)
		}
		slog.DebugContext(ctx, "retrying slot update after version conflict",
			"slot", ref.String(),
			"attempt", attempt,
		)
	}

	ev := domain.SlotEvent{
		Event:      event,
		Slot:       ref,
		CustomerID: customerID,
		BagsDelta:  delta,
		Status:     after.Status(),
		FilledBags: after.FilledBags(),
		OccurredAt: e.now(),
	}

	// The slot is committed; a failed notification must not report the
	// mutation as failed.
	if err := e.publisher.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "publishing slot event failed",
			"event", string(ev.Event),
			"slot", ref.String(),
			"error", err,
		)
	}

	slog.InfoContext(ctx, "slot updated",
		"event", string(ev.Event),
		"slot", ref.String(),
		"customer_id", customerID,
		"bags_delta", delta,
		"filled_bags", ev.FilledBags,
		"status", string(ev.Status),
	)

	return AllocationResult{Slot: after, Event: ev}, nil
}
