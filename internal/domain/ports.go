package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// WarehouseRepository defines the persistence contract for warehouses and
// their generated grids.
type WarehouseRepository interface {
	// Create persists the warehouse header together with every slot.
	Create(ctx context.Context, w Warehouse) error
	// GetByID returns the full aggregate; each slot is an internally
	// consistent snapshot.
	GetByID(ctx context.Context, id string) (Warehouse, error)
	GetByName(ctx context.Context, name string) (Warehouse, error)
	// List returns warehouse headers without their grids.
	List(ctx context.Context, filter ListFilter) ([]Warehouse, error)
	// Update persists name, description and pricing. The grid shape and
	// the active flag never change through it.
	Update(ctx context.Context, w Warehouse) error
	// Deactivate clears the active flag only if no slot holds an
	// allocation, checked in the same atomic step. It returns
	// *WarehouseInUseError otherwise. Deactivating an inactive warehouse
	// is a no-op.
	Deactivate(ctx context.Context, id string, at time.Time) error
}

// SlotRepository is the canonical owner of occupancy state.
type SlotRepository interface {
	GetSlot(ctx context.Context, ref SlotRef) (Slot, error)
	// SaveSlot replaces the slot's allocations if the stored version still
	// equals slot.Version and the warehouse is active, and returns the new
	// version. Otherwise it returns ErrVersionConflict or
	// ErrWarehouseNotFound and changes nothing.
	SaveSlot(ctx context.Context, slot Slot) (int64, error)
	// CustomerHoldings returns the customer's allocations in active
	// warehouses, in grid order.
	CustomerHoldings(ctx context.Context, customerID string) ([]Holding, error)
}

// Holding is one allocation together with where it is stored.
type Holding struct {
	WarehouseName string
	Slot          Slot
	Allocation    Allocation
	Pricing       Pricing
}

// EventPublisher defines the contract for emitting slot events.
type EventPublisher interface {
	Publish(ctx context.Context, event SlotEvent) error
}

// TransitionValidator checks that an event is valid from the current status
// and returns the status it leads to.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}

// PriceBook supplies market prices in rupees per quintal.
type PriceBook interface {
	PricePerQuintal(ctx context.Context, grainType string) (decimal.Decimal, error)
}

// LayoutArchive stores exported layout documents and returns their key.
type LayoutArchive interface {
	Store(ctx context.Context, warehouseID string, document []byte) (string, error)
}
