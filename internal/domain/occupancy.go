package domain

import "github.com/shopspring/decimal"

// OccupancyStats is a rollup over a set of slots.
type OccupancyStats struct {
	TotalSlots    int
	OccupiedSlots int
	PartialSlots  int
	FullSlots     int
	TotalBags     int
	CapacityBags  int
	TotalWeightKg decimal.Decimal
	CustomerCount int
}

// EmptySlots counts slots holding no bags.
func (s OccupancyStats) EmptySlots() int {
	return s.TotalSlots - s.OccupiedSlots
}

// Rate is occupiedSlots / totalSlots × 100, rounded to two places.
func (s OccupancyStats) Rate() decimal.Decimal {
	if s.TotalSlots == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.OccupiedSlots)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(s.TotalSlots))).
		Round(2)
}

// BlockOccupancy is the rollup of one block.
type BlockOccupancy struct {
	Building int
	Block    string
	OccupancyStats
}

// BuildingOccupancy is the rollup of one building and its blocks.
type BuildingOccupancy struct {
	Building int
	OccupancyStats
	Blocks []BlockOccupancy
}

// WarehouseOccupancy is the rollup of a whole warehouse.
type WarehouseOccupancy struct {
	WarehouseID string
	OccupancyStats
	Buildings []BuildingOccupancy
}

type tally struct {
	stats     OccupancyStats
	customers map[string]struct{}
}

func newTally() *tally {
	return &tally{
		stats:     OccupancyStats{TotalWeightKg: decimal.Zero},
		customers: make(map[string]struct{}),
	}
}

func (t *tally) add(s Slot) {
	t.stats.TotalSlots++
	t.stats.CapacityBags += s.CapacityBags
	switch s.Status() {
	case StatusPartiallyFilled:
		t.stats.OccupiedSlots++
		t.stats.PartialSlots++
	case StatusFull:
		t.stats.OccupiedSlots++
		t.stats.FullSlots++
	}
	for _, a := range s.Allocations {
		t.stats.TotalBags += a.Bags
		t.stats.TotalWeightKg = t.stats.TotalWeightKg.Add(a.EffectiveWeightKg())
		t.customers[a.CustomerID] = struct{}{}
	}
}

func (t *tally) result() OccupancyStats {
	out := t.stats
	out.CustomerCount = len(t.customers)
	return out
}

// SummarizeSlots rolls up an arbitrary set of slots.
func SummarizeSlots(slots []Slot) OccupancyStats {
	t := newTally()
	for _, s := range slots {
		t.add(s)
	}
	return t.result()
}

// Occupancy rolls up a materialized warehouse per block, per building and
// overall.
func Occupancy(w Warehouse) WarehouseOccupancy {
	whole := newTally()
	out := WarehouseOccupancy{WarehouseID: w.ID}

	for _, b := range w.Buildings {
		building := newTally()
		bo := BuildingOccupancy{Building: b.Index}
		for _, bl := range b.Blocks {
			block := newTally()
			for _, s := range bl.Slots {
				block.add(s)
				building.add(s)
				whole.add(s)
			}
			bo.Blocks = append(bo.Blocks, BlockOccupancy{
				Building:       b.Index,
				Block:          bl.Label,
				OccupancyStats: block.result(),
			})
		}
		bo.OccupancyStats = building.result()
		out.Buildings = append(out.Buildings, bo)
	}

	out.OccupancyStats = whole.result()
	return out
}
