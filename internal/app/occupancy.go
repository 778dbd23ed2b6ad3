package app

import (
	"context"
	"fmt"

	"github.com/neomorfeo/grainvault/internal/domain"
)

// OccupancyAggregator answers read-only questions about how full a
// warehouse is.
type OccupancyAggregator struct {
	warehouses domain.WarehouseRepository
	slots      domain.SlotRepository
}

func NewOccupancyAggregator(warehouses domain.WarehouseRepository, slots domain.SlotRepository) *OccupancyAggregator {
	return &OccupancyAggregator{warehouses: warehouses, slots: slots}
}

// Warehouse rolls up occupancy overall, per building and per block.
func (a *OccupancyAggregator) Warehouse(ctx context.Context, id string) (domain.WarehouseOccupancy, error) {
	w, err := a.warehouses.GetByID(ctx, id)
	if err != nil {
		return domain.WarehouseOccupancy{}, err
	}
	return domain.Occupancy(w), nil
}

// AvailableSlots lists every slot with capacity left, in grid order.
func (a *OccupancyAggregator) AvailableSlots(ctx context.Context, id string) ([]domain.Slot, error) {
	w, err := a.warehouses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var out []domain.Slot
	w.EachSlot(func(s domain.Slot) {
		if s.RemainingBags() > 0 {
			out = append(out, s)
		}
	})
	return out, nil
}

// FirstAvailable returns the first slot in grid order that can take bags
// more bags.
func (a *OccupancyAggregator) FirstAvailable(ctx context.Context, id string, bags int) (domain.Slot, error) {
	if bags <= 0 {
		return domain.Slot{}, &domain.InvalidRequestError{Field: "bags", Reason: "must be a positive integer"}
	}

	w, err := a.warehouses.GetByID(ctx, id)
	if err != nil {
		return domain.Slot{}, err
	}

	var found *domain.Slot
	w.EachSlot(func(s domain.Slot) {
		if found == nil && s.RemainingBags() >= bags {
			found = &s
		}
	})
	if found == nil {
		return domain.Slot{}, &domain.NotFoundError{Kind: domain.ErrSlotNotFound, Ref: fmt.Sprintf("no slot in %s can take %d bags", id, bags)}
	}
	return *found, nil
}

// SlotDetails returns one slot's current snapshot.
func (a *OccupancyAggregator) SlotDetails(ctx context.Context, ref domain.SlotRef) (domain.Slot, error) {
	return a.slots.GetSlot(ctx, ref)
}
