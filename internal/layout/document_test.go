package layout_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/grainvault/internal/domain"
	"github.com/neomorfeo/grainvault/internal/layout"
)

func testWarehouse(t *testing.T) domain.Warehouse {
	t.Helper()

	w, err := domain.GenerateGrid(domain.WarehouseSpec{
		ID:   "wh-1",
		Name: "North Depot",
		Configuration: domain.Configuration{
			BuildingCount:     2,
			BlocksPerBuilding: 2,
			RowsPerBlock:      2,
			ColsPerBlock:      3,
		},
	})
	if err != nil {
		t.Fatalf("GenerateGrid() error = %v", err)
	}

	slot := w.Buildings[0].Blocks[1].Slots[4]
	slot, err = slot.WithAllocation(domain.Allocation{
		CustomerID: "c1",
		Bags:       300,
		GrainType:  "rice",
		WeightKg:   decimal.NewNullDecimal(decimal.RequireFromString("15125.5")),
		EntryDate:  time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("WithAllocation() error = %v", err)
	}
	w.Buildings[0].Blocks[1].Slots[4] = slot
	return w
}

func TestBuild(t *testing.T) {
	w := testWarehouse(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	doc := layout.Build(w, now)

	if doc.WarehouseID != "wh-1" {
		t.Errorf("WarehouseID = %q, want %q", doc.WarehouseID, "wh-1")
	}
	if doc.TotalSlots != 24 {
		t.Errorf("TotalSlots = %d, want 24", doc.TotalSlots)
	}
	if doc.OccupiedSlots != 1 {
		t.Errorf("OccupiedSlots = %d, want 1", doc.OccupiedSlots)
	}
	if !doc.GeneratedAt.Equal(now) {
		t.Errorf("GeneratedAt = %v, want %v", doc.GeneratedAt, now)
	}
	if len(doc.Layout) != 2 {
		t.Fatalf("len(Layout) = %d, want 2", len(doc.Layout))
	}
	if doc.Layout[1].Name != "Building 2" {
		t.Errorf("Layout[1].Name = %q, want %q", doc.Layout[1].Name, "Building 2")
	}

	s := doc.Layout[0].Blocks[1].Slots[4]
	if s.Label != "R2C2" || s.Mnemonic != "B5" {
		t.Errorf("slot = %s/%s, want R2C2/B5", s.Label, s.Mnemonic)
	}
	if s.Status != "partially-filled" {
		t.Errorf("Status = %q, want %q", s.Status, "partially-filled")
	}
	if len(s.Allocations) != 1 || s.Allocations[0].WeightKg != "15125.5" {
		t.Errorf("Allocations = %+v, want one with weight 15125.5", s.Allocations)
	}
	if doc.Occupancy.OccupancyRate != "4.17" {
		t.Errorf("OccupancyRate = %q, want %q", doc.Occupancy.OccupancyRate, "4.17")
	}
	if doc.Pricing.RentPerQuintalPerMonth != "7" {
		t.Errorf("RentPerQuintalPerMonth = %q, want %q", doc.Pricing.RentPerQuintalPerMonth, "7")
	}
}

func TestMarshal_UsesCamelCaseKeys(t *testing.T) {
	doc := layout.Build(testWarehouse(t), time.Now())

	data, err := layout.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"warehouseId", "name", "configuration", "totalSlots", "occupiedSlots", "layout", "occupancy", "generatedAt"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("document is missing key %q", key)
		}
	}
}

func TestSchema(t *testing.T) {
	schema := layout.Schema()
	if schema == nil || schema.Properties == nil {
		t.Fatal("Schema() returned no properties")
	}
	for _, key := range []string{"warehouseId", "layout", "occupancy"} {
		if _, ok := schema.Properties.Get(key); !ok {
			t.Errorf("schema is missing property %q", key)
		}
	}

	data, err := json.Marshal(schema)
	if err != nil {
		t.Fatalf("json.Marshal(schema) error = %v", err)
	}
	if len(data) == 0 {
		t.Error("schema marshals to empty output")
	}
}
