package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Grid limits accepted by GenerateGrid.
const (
	MaxBuildings         = 10
	MaxBlocksPerBuilding = 26
	MaxRowsPerBlock      = 20
	MaxColsPerBlock      = 20
)

// Configuration is the immutable grid shape of a warehouse.
type Configuration struct {
	BuildingCount     int
	BlocksPerBuilding int
	RowsPerBlock      int
	ColsPerBlock      int
}

// TotalSlots returns the number of slots the configuration materializes.
func (c Configuration) TotalSlots() int {
	return c.BuildingCount * c.BlocksPerBuilding * c.RowsPerBlock * c.ColsPerBlock
}

// Pricing holds the storage tariff of a warehouse, in rupees.
type Pricing struct {
	RentPerQuintalPerMonth decimal.Decimal
	MaintenancePerMonth    decimal.Decimal
	InsurancePerYear       decimal.Decimal
}

// DefaultPricing returns the tariff applied when an owner does not set one.
func DefaultPricing() Pricing {
	return Pricing{
		RentPerQuintalPerMonth: decimal.NewFromInt(7),
		MaintenancePerMonth:    decimal.NewFromInt(6),
		InsurancePerYear:       decimal.NewFromInt(5),
	}
}

// Warehouse is the aggregate root of the storage grid. Buildings is nil on
// list results, which carry only the header fields.
type Warehouse struct {
	ID            string
	Name          string
	Description   string
	OwnerID       string
	Configuration Configuration
	Pricing       Pricing
	Active        bool
	TotalSlots    int
	Buildings     []Building
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Building is one numbered structure of a warehouse.
type Building struct {
	Index  int
	Blocks []Block
}

// Name returns the display name used by the original layout documents.
func (b Building) Name() string {
	return "Building " + itoa(b.Index)
}

// Block is a labeled rows × cols matrix of slots, stored row-major.
type Block struct {
	Label string
	Rows  int
	Cols  int
	Slots []Slot
}

// Slot returns the slot at the given 1-based row and column.
func (b Block) Slot(row, col int) (Slot, bool) {
	if row < 1 || row > b.Rows || col < 1 || col > b.Cols {
		return Slot{}, false
	}
	return b.Slots[(row-1)*b.Cols+(col-1)], true
}

// EachSlot calls fn for every slot of the warehouse in grid order:
// building, block, row, column.
func (w Warehouse) EachSlot(fn func(Slot)) {
	for _, b := range w.Buildings {
		for _, bl := range b.Blocks {
			for _, s := range bl.Slots {
				fn(s)
			}
		}
	}
}

// ListFilter holds optional criteria for listing warehouses.
type ListFilter struct {
	OwnerID string
	Active  *bool
	Limit   int
	Offset  int
}
