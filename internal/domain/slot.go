package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultSlotCapacity is the bag capacity of a freshly generated slot.
	DefaultSlotCapacity = 2000

	// NominalBagWeightKg is assumed for allocations recorded without a weight.
	NominalBagWeightKg = 50
)

// Status is derived from a slot's fill level and never stored.
type Status string

const (
	StatusEmpty           Status = "empty"
	StatusPartiallyFilled Status = "partially-filled"
	StatusFull            Status = "full"
)

// DeriveStatus maps a fill level onto a slot status.
func DeriveStatus(filledBags, capacityBags int) Status {
	switch {
	case filledBags == 0:
		return StatusEmpty
	case filledBags >= capacityBags:
		return StatusFull
	default:
		return StatusPartiallyFilled
	}
}

// SlotRef identifies a slot within the grid.
type SlotRef struct {
	WarehouseID string
	Building    int
	Block       string
	Row         int
	Col         int
}

func (r SlotRef) String() string {
	return fmt.Sprintf("%s/%d/%s/R%dC%d", r.WarehouseID, r.Building, r.Block, r.Row, r.Col)
}

// Allocation records one customer's bags held in one slot.
type Allocation struct {
	CustomerID string
	Bags       int
	GrainType  string
	WeightKg   decimal.NullDecimal
	EntryDate  time.Time
	Notes      string
}

// EffectiveWeightKg returns the recorded weight, or the nominal weight of
// the bags when none was recorded.
func (a Allocation) EffectiveWeightKg() decimal.Decimal {
	if a.WeightKg.Valid {
		return a.WeightKg.Decimal
	}
	return decimal.NewFromInt(int64(a.Bags) * NominalBagWeightKg)
}

// Slot is the smallest storage unit. Filled bags and status are computed
// from the allocation list on every read.
type Slot struct {
	Ref          SlotRef
	Label        string
	Mnemonic     string
	CapacityBags int
	Allocations  []Allocation
	Version      int64
}

// FilledBags sums the bags of all allocations in the slot.
func (s Slot) FilledBags() int {
	total := 0
	for _, a := range s.Allocations {
		total += a.Bags
	}
	return total
}

// RemainingBags is the capacity still free.
func (s Slot) RemainingBags() int {
	return s.CapacityBags - s.FilledBags()
}

func (s Slot) Status() Status {
	return DeriveStatus(s.FilledBags(), s.CapacityBags)
}

// WeightKg sums the effective weight of all allocations.
func (s Slot) WeightKg() decimal.Decimal {
	total := decimal.Zero
	for _, a := range s.Allocations {
		total = total.Add(a.EffectiveWeightKg())
	}
	return total
}

// Allocation returns the customer's allocation in this slot, if any.
func (s Slot) Allocation(customerID string) (Allocation, bool) {
	if i := s.indexOf(customerID); i >= 0 {
		return s.Allocations[i], true
	}
	return Allocation{}, false
}

func (s Slot) indexOf(customerID string) int {
	for i, a := range s.Allocations {
		if a.CustomerID == customerID {
			return i
		}
	}
	return -1
}

// Clone returns a copy whose allocation list can be mutated independently.
func (s Slot) Clone() Slot {
	out := s
	out.Allocations = append([]Allocation(nil), s.Allocations...)
	return out
}

// WithAllocation returns a copy of the slot with the allocation added,
// merging into the customer's existing allocation if present. The receiver
// is never modified.
func (s Slot) WithAllocation(in Allocation) (Slot, error) {
	if in.Bags <= 0 {
		return Slot{}, &InvalidRequestError{Field: "bags", Reason: "must be a positive integer"}
	}
	if remaining := s.RemainingBags(); in.Bags > remaining {
		return Slot{}, &CapacityExceededError{Slot: s.Ref, Requested: in.Bags, Remaining: remaining}
	}

	out := s.Clone()
	i := out.indexOf(in.CustomerID)
	if i < 0 {
		out.Allocations = append(out.Allocations, in)
		return out, nil
	}

	cur := out.Allocations[i]
	if cur.WeightKg.Valid || in.WeightKg.Valid {
		cur.WeightKg = decimal.NewNullDecimal(cur.EffectiveWeightKg().Add(in.EffectiveWeightKg()))
	}
	cur.Bags += in.Bags
	if !in.EntryDate.IsZero() && (cur.EntryDate.IsZero() || in.EntryDate.Before(cur.EntryDate)) {
		cur.EntryDate = in.EntryDate
	}
	if in.Notes != "" {
		cur.Notes = in.Notes
	}
	if cur.GrainType == "" {
		cur.GrainType = in.GrainType
	}
	out.Allocations[i] = cur
	return out, nil
}

// WithoutBags returns a copy of the slot with bags taken from the customer's
// allocation. An allocation reduced to zero is removed.
func (s Slot) WithoutBags(customerID string, bags int) (Slot, error) {
	if bags <= 0 {
		return Slot{}, &InvalidRequestError{Field: "bags", Reason: "must be a positive integer"}
	}
	i := s.indexOf(customerID)
	if i < 0 {
		return Slot{}, &NotFoundError{Kind: ErrAllocationNotFound, Ref: s.Ref.String() + " customer " + customerID}
	}
	cur := s.Allocations[i]
	if bags > cur.Bags {
		return Slot{}, &InsufficientAllocationError{Slot: s.Ref, CustomerID: customerID, Requested: bags, Held: cur.Bags}
	}

	out := s.Clone()
	if bags == cur.Bags {
		out.Allocations = append(out.Allocations[:i], out.Allocations[i+1:]...)
		if len(out.Allocations) == 0 {
			out.Allocations = nil
		}
		return out, nil
	}

	remaining := cur.Bags - bags
	if cur.WeightKg.Valid {
		w := cur.WeightKg.Decimal.Mul(decimal.NewFromInt(int64(remaining))).Div(decimal.NewFromInt(int64(cur.Bags)))
		cur.WeightKg = decimal.NewNullDecimal(w)
	}
	cur.Bags = remaining
	out.Allocations[i] = cur
	return out, nil
}

func itoa(n int) string { return strconv.Itoa(n) }
