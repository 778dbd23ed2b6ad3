package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrWarehouseNotFound  = errors.New("warehouse not found")
	ErrSlotNotFound       = errors.New("slot not found")
	ErrAllocationNotFound = errors.New("allocation not found")

	// ErrVersionConflict is returned by SaveSlot when the stored slot changed
	// since it was read.
	ErrVersionConflict = errors.New("slot was modified concurrently")

	// ErrArchiveUnavailable is returned when no layout archive is configured.
	ErrArchiveUnavailable = errors.New("layout archive is not configured")
)

// ConfigurationError is returned when a warehouse cannot be created from
// the given configuration.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// NotFoundError is returned when a warehouse, slot or allocation reference
// does not resolve. errors.Is matches it against its Kind sentinel.
type NotFoundError struct {
	Kind error
	Ref  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Ref)
}

func (e *NotFoundError) Is(target error) bool {
	return target == e.Kind
}

// CapacityExceededError is returned when an allocation would overfill a slot.
type CapacityExceededError struct {
	Slot      SlotRef
	Requested int
	Remaining int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("slot %s has %d bags of capacity remaining, %d requested", e.Slot, e.Remaining, e.Requested)
}

// InsufficientAllocationError is returned when a deallocation asks for more
// bags than the customer holds in the slot.
type InsufficientAllocationError struct {
	Slot       SlotRef
	CustomerID string
	Requested  int
	Held       int
}

func (e *InsufficientAllocationError) Error() string {
	return fmt.Sprintf("customer %q holds %d bags in slot %s, %d requested", e.CustomerID, e.Held, e.Slot, e.Requested)
}

// InvalidRequestError is returned for malformed allocation input.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// WarehouseInUseError is returned when deactivating a warehouse that still
// stores grain.
type WarehouseInUseError struct {
	WarehouseID   string
	OccupiedSlots int
}

func (e *WarehouseInUseError) Error() string {
	return fmt.Sprintf("warehouse %s still has %d occupied slots", e.WarehouseID, e.OccupiedSlots)
}

// PriceNotFoundError is a valuation failure: no market price is known for
// the grain type.
type PriceNotFoundError struct {
	GrainType string
}

func (e *PriceNotFoundError) Error() string {
	return fmt.Sprintf("no market price for grain type %q", e.GrainType)
}

// TransitionError is returned when a slot status change does not match the
// event that caused it.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}
