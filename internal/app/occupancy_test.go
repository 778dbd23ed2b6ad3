package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/neomorfeo/grainvault/internal/app"
	"github.com/neomorfeo/grainvault/internal/domain"
)

func TestOccupancyAggregator_Warehouse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	allocs := []app.AllocateRequest{
		{Slot: f.ref(1, 1), CustomerID: "c1", Bags: 2000},
		{Slot: f.ref(1, 2), CustomerID: "c1", Bags: 100},
		{Slot: f.ref(1, 2), CustomerID: "c2", Bags: 100},
	}
	for _, req := range allocs {
		if _, err := f.engine.Allocate(ctx, req); err != nil {
			t.Fatalf("Allocate() error = %v", err)
		}
	}

	agg := app.NewOccupancyAggregator(f.store, f.store)
	occ, err := agg.Warehouse(ctx, f.warehouse.ID)
	if err != nil {
		t.Fatalf("Warehouse() error = %v", err)
	}

	if occ.TotalSlots != 4 || occ.OccupiedSlots != 2 || occ.FullSlots != 1 || occ.PartialSlots != 1 {
		t.Errorf("stats = %+v, want 4 total, 2 occupied, 1 full, 1 partial", occ.OccupancyStats)
	}
	if occ.EmptySlots() != 2 {
		t.Errorf("EmptySlots = %d, want 2", occ.EmptySlots())
	}
	if got := occ.Rate().StringFixed(2); got != "50.00" {
		t.Errorf("Rate = %s, want 50.00", got)
	}
	if occ.TotalBags != 2200 {
		t.Errorf("TotalBags = %d, want 2200", occ.TotalBags)
	}
	if occ.CustomerCount != 2 {
		t.Errorf("CustomerCount = %d, want 2", occ.CustomerCount)
	}
	if len(occ.Buildings) != 1 || len(occ.Buildings[0].Blocks) != 1 {
		t.Fatalf("breakdown = %+v, want one building with one block", occ.Buildings)
	}
	if occ.Buildings[0].Blocks[0].OccupiedSlots != 2 {
		t.Errorf("block OccupiedSlots = %d, want 2", occ.Buildings[0].Blocks[0].OccupiedSlots)
	}
}

func TestOccupancyAggregator_AvailableSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Allocate(ctx, app.AllocateRequest{Slot: f.ref(1, 1), CustomerID: "c1", Bags: 2000}); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if _, err := f.engine.Allocate(ctx, app.AllocateRequest{Slot: f.ref(1, 2), CustomerID: "c1", Bags: 1990}); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	agg := app.NewOccupancyAggregator(f.store, f.store)

	slots, err := agg.AvailableSlots(ctx, f.warehouse.ID)
	if err != nil {
		t.Fatalf("AvailableSlots() error = %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("len(slots) = %d, want 3", len(slots))
	}
	if slots[0].Label != "R1C2" {
		t.Errorf("first available = %q, want %q", slots[0].Label, "R1C2")
	}

	first, err := agg.FirstAvailable(ctx, f.warehouse.ID, 10)
	if err != nil {
		t.Fatalf("FirstAvailable() error = %v", err)
	}
	if first.Label != "R1C2" {
		t.Errorf("FirstAvailable(10) = %q, want %q", first.Label, "R1C2")
	}

	first, err = agg.FirstAvailable(ctx, f.warehouse.ID, 11)
	if err != nil {
		t.Fatalf("FirstAvailable() error = %v", err)
	}
	if first.Label != "R2C1" {
		t.Errorf("FirstAvailable(11) = %q, want %q", first.Label, "R2C1")
	}

	_, err = agg.FirstAvailable(ctx, f.warehouse.ID, 2001)
	if !errors.Is(err, domain.ErrSlotNotFound) {
		t.Errorf("expected ErrSlotNotFound, got %v", err)
	}
}

func TestOccupancyAggregator_SlotDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Allocate(ctx, app.AllocateRequest{Slot: f.ref(2, 1), CustomerID: "c1", Bags: 250}); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	agg := app.NewOccupancyAggregator(f.store, f.store)
	s, err := agg.SlotDetails(ctx, f.ref(2, 1))
	if err != nil {
		t.Fatalf("SlotDetails() error = %v", err)
	}
	if s.RemainingBags() != 1750 {
		t.Errorf("RemainingBags = %d, want 1750", s.RemainingBags())
	}
	if s.Mnemonic != "A3" {
		t.Errorf("Mnemonic = %q, want %q", s.Mnemonic, "A3")
	}
}
