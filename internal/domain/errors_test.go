package domain_test

import (
	"errors"
	"testing"

	"github.com/neomorfeo/grainvault/internal/domain"
)

var testRef = domain.SlotRef{WarehouseID: "w-1", Building: 1, Block: "A", Row: 2, Col: 3}

func TestCapacityExceededError_Error(t *testing.T) {
	err := &domain.CapacityExceededError{Slot: testRef, Requested: 1600, Remaining: 1500}
	want := "slot w-1/1/A/R2C3 has 1500 bags of capacity remaining, 1600 requested"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestInsufficientAllocationError_Error(t *testing.T) {
	err := &domain.InsufficientAllocationError{Slot: testRef, CustomerID: "c-1", Requested: 10, Held: 5}
	want := `customer "c-1" holds 5 bags in slot w-1/1/A/R2C3, 10 requested`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestConfigurationError_Error(t *testing.T) {
	err := &domain.ConfigurationError{Field: "rowsPerBlock", Reason: "must be between 1 and 20, got 21"}
	want := "invalid configuration: rowsPerBlock must be between 1 and 20, got 21"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNotFoundError_Is(t *testing.T) {
	err := error(&domain.NotFoundError{Kind: domain.ErrSlotNotFound, Ref: testRef.String()})

	if !errors.Is(err, domain.ErrSlotNotFound) {
		t.Error("expected errors.Is to match ErrSlotNotFound")
	}
	if errors.Is(err, domain.ErrWarehouseNotFound) {
		t.Error("did not expect errors.Is to match ErrWarehouseNotFound")
	}
	want := "slot not found: w-1/1/A/R2C3"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestTransitionError_Error(t *testing.T) {
	err := &domain.TransitionError{
		Event:   domain.EventRelease,
		Current: domain.StatusEmpty,
	}
	want := `event "release" is not valid from state "empty"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
