package domain

import (
	"fmt"
	"strings"
	"time"
)

const blockLabels = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// WarehouseSpec is the owner's input for creating a warehouse.
type WarehouseSpec struct {
	ID            string
	Name          string
	Description   string
	OwnerID       string
	Configuration Configuration
	Pricing       Pricing
}

// GenerateGrid validates the configuration and materializes every building,
// block and slot with empty allocations and default capacity. The returned
// warehouse carries TotalSlots so callers need not re-derive it.
func GenerateGrid(spec WarehouseSpec) (Warehouse, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return Warehouse{}, &ConfigurationError{Field: "name", Reason: "must not be empty"}
	}
	cfg := spec.Configuration
	if err := checkDimension("buildingCount", cfg.BuildingCount, MaxBuildings); err != nil {
		return Warehouse{}, err
	}
	if err := checkDimension("blocksPerBuilding", cfg.BlocksPerBuilding, MaxBlocksPerBuilding); err != nil {
		return Warehouse{}, err
	}
	if err := checkDimension("rowsPerBlock", cfg.RowsPerBlock, MaxRowsPerBlock); err != nil {
		return Warehouse{}, err
	}
	if err := checkDimension("colsPerBlock", cfg.ColsPerBlock, MaxColsPerBlock); err != nil {
		return Warehouse{}, err
	}

	buildings := make([]Building, cfg.BuildingCount)
	for b := range buildings {
		blocks := make([]Block, cfg.BlocksPerBuilding)
		for bl := range blocks {
			label := string(blockLabels[bl])
			slots := make([]Slot, 0, cfg.RowsPerBlock*cfg.ColsPerBlock)
			n := 1
			for r := 1; r <= cfg.RowsPerBlock; r++ {
				for c := 1; c <= cfg.ColsPerBlock; c++ {
					slots = append(slots, Slot{
						Ref: SlotRef{
							WarehouseID: spec.ID,
							Building:    b + 1,
							Block:       label,
							Row:         r,
							Col:         c,
						},
						Label:        fmt.Sprintf("R%dC%d", r, c),
						Mnemonic:     fmt.Sprintf("%s%d", label, n),
						CapacityBags: DefaultSlotCapacity,
					})
					n++
				}
			}
			blocks[bl] = Block{Label: label, Rows: cfg.RowsPerBlock, Cols: cfg.ColsPerBlock, Slots: slots}
		}
		buildings[b] = Building{Index: b + 1, Blocks: blocks}
	}

	pricing := spec.Pricing
	if pricing == (Pricing{}) {
		pricing = DefaultPricing()
	}

	now := time.Now().UTC()
	return Warehouse{
		ID:            spec.ID,
		Name:          strings.TrimSpace(spec.Name),
		Description:   spec.Description,
		OwnerID:       spec.OwnerID,
		Configuration: cfg,
		Pricing:       pricing,
		Active:        true,
		TotalSlots:    cfg.TotalSlots(),
		Buildings:     buildings,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func checkDimension(field string, v, maxValue int) error {
	if v <= 0 || v > maxValue {
		return &ConfigurationError{Field: field, Reason: fmt.Sprintf("must be between 1 and %d, got %d", maxValue, v)}
	}
	return nil
}
