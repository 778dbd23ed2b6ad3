package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/grainvault/internal/app"
	"github.com/neomorfeo/grainvault/internal/domain"
)

func depotSpec(name string) domain.WarehouseSpec {
	return domain.WarehouseSpec{
		Name:    name,
		OwnerID: "owner-1",
		Configuration: domain.Configuration{
			BuildingCount:     2,
			BlocksPerBuilding: 3,
			RowsPerBlock:      4,
			ColsPerBlock:      5,
		},
	}
}

func TestCreate_Success(t *testing.T) {
	repo := newMockStore()
	svc := app.NewWarehouseService(repo, nil)

	w, err := svc.Create(context.Background(), depotSpec("North Depot"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if w.ID == "" {
		t.Error("ID should not be empty")
	}
	if w.TotalSlots != 120 {
		t.Errorf("TotalSlots = %d, want 120", w.TotalSlots)
	}
	if !w.Active {
		t.Error("new warehouse should be active")
	}
	if !w.Pricing.RentPerQuintalPerMonth.Equal(decimal.NewFromInt(7)) {
		t.Errorf("Rent = %s, want 7", w.Pricing.RentPerQuintalPerMonth)
	}

	stored, err := repo.GetByID(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("warehouse not found in repo: %v", err)
	}
	if stored.Buildings[1].Blocks[2].Slots[19].Label != "R4C5" {
		t.Errorf("last slot label = %q, want %q", stored.Buildings[1].Blocks[2].Slots[19].Label, "R4C5")
	}
}

func TestCreate_DuplicateName(t *testing.T) {
	svc := app.NewWarehouseService(newMockStore(), nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, depotSpec("North Depot")); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := svc.Create(ctx, depotSpec("North Depot"))
	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Field != "name" {
		t.Errorf("Field = %q, want %q", cfgErr.Field, "name")
	}
}

func TestCreate_InvalidConfiguration(t *testing.T) {
	repo := newMockStore()
	svc := app.NewWarehouseService(repo, nil)

	spec := depotSpec("Too Tall")
	spec.Configuration.RowsPerBlock = 21

	_, err := svc.Create(context.Background(), spec)
	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Field != "rowsPerBlock" {
		t.Errorf("Field = %q, want %q", cfgErr.Field, "rowsPerBlock")
	}
	if len(repo.warehouses) != 0 {
		t.Errorf("repo holds %d warehouses, want 0", len(repo.warehouses))
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := app.NewWarehouseService(newMockStore(), nil)

	_, err := svc.Get(context.Background(), "nope")
	if !errors.Is(err, domain.ErrWarehouseNotFound) {
		t.Errorf("expected ErrWarehouseNotFound, got %v", err)
	}
}

func TestUpdateDetails(t *testing.T) {
	svc := app.NewWarehouseService(newMockStore(), nil)
	ctx := context.Background()

	w, err := svc.Create(ctx, depotSpec("North Depot"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, depotSpec("South Depot")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	name := "East Depot"
	desc := "by the river"
	pricing := domain.Pricing{
		RentPerQuintalPerMonth: decimal.NewFromInt(9),
		MaintenancePerMonth:    decimal.NewFromInt(4),
		InsurancePerYear:       decimal.NewFromInt(3),
	}
	updated, err := svc.UpdateDetails(ctx, w.ID, app.WarehouseUpdate{Name: &name, Description: &desc, Pricing: &pricing})
	if err != nil {
		t.Fatalf("UpdateDetails() error = %v", err)
	}
	if updated.Name != name || updated.Description != desc {
		t.Errorf("header = %q/%q, want %q/%q", updated.Name, updated.Description, name, desc)
	}
	if !updated.Pricing.RentPerQuintalPerMonth.Equal(decimal.NewFromInt(9)) {
		t.Errorf("Rent = %s, want 9", updated.Pricing.RentPerQuintalPerMonth)
	}
	if updated.Configuration != w.Configuration {
		t.Errorf("Configuration changed to %+v", updated.Configuration)
	}

	taken := "South Depot"
	_, err = svc.UpdateDetails(ctx, w.ID, app.WarehouseUpdate{Name: &taken})
	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError for taken name, got %v", err)
	}

	// Renaming to its own name is not a conflict.
	if _, err := svc.UpdateDetails(ctx, w.ID, app.WarehouseUpdate{Name: &name}); err != nil {
		t.Errorf("UpdateDetails() to same name error = %v", err)
	}

	negative := domain.Pricing{RentPerQuintalPerMonth: decimal.NewFromInt(-1)}
	if _, err := svc.UpdateDetails(ctx, w.ID, app.WarehouseUpdate{Pricing: &negative}); !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError for negative pricing, got %v", err)
	}
}

func TestDeactivate(t *testing.T) {
	f := newFixture(t)
	svc := app.NewWarehouseService(f.store, nil)
	ctx := context.Background()

	if _, err := f.engine.Allocate(ctx, app.AllocateRequest{Slot: f.ref(1, 1), CustomerID: "c1", Bags: 10}); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	_, err := svc.Deactivate(ctx, f.warehouse.ID)
	var inUse *domain.WarehouseInUseError
	if !errors.As(err, &inUse) {
		t.Fatalf("expected WarehouseInUseError, got %v", err)
	}
	if inUse.OccupiedSlots != 1 {
		t.Errorf("OccupiedSlots = %d, want 1", inUse.OccupiedSlots)
	}

	if _, err := f.engine.Deallocate(ctx, app.DeallocateRequest{Slot: f.ref(1, 1), CustomerID: "c1", Bags: 10}); err != nil {
		t.Fatalf("Deallocate() error = %v", err)
	}
	w, err := svc.Deactivate(ctx, f.warehouse.ID)
	if err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if w.Active {
		t.Error("warehouse should be inactive")
	}

	// An inactive warehouse no longer accepts grain.
	_, err = f.engine.Allocate(ctx, app.AllocateRequest{Slot: f.ref(1, 1), CustomerID: "c1", Bags: 10})
	if !errors.Is(err, domain.ErrWarehouseNotFound) {
		t.Errorf("expected ErrWarehouseNotFound, got %v", err)
	}
}

func TestArchiveLayout(t *testing.T) {
	store := newMockStore()
	archive := &mockArchive{}
	svc := app.NewWarehouseService(store, archive)
	ctx := context.Background()

	w, err := svc.Create(ctx, depotSpec("North Depot"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	key, err := svc.ArchiveLayout(ctx, w.ID)
	if err != nil {
		t.Fatalf("ArchiveLayout() error = %v", err)
	}
	data, ok := archive.stored[key]
	if !ok {
		t.Fatalf("no document stored under %q", key)
	}

	var doc struct {
		WarehouseID string `json:"warehouseId"`
		TotalSlots  int    `json:"totalSlots"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("stored document is not JSON: %v", err)
	}
	if doc.WarehouseID != w.ID || doc.TotalSlots != 120 {
		t.Errorf("document = %+v, want id %s with 120 slots", doc, w.ID)
	}
}

func TestArchiveLayout_Errors(t *testing.T) {
	ctx := context.Background()

	svc := app.NewWarehouseService(newMockStore(), nil)
	if _, err := svc.ArchiveLayout(ctx, "any"); !errors.Is(err, domain.ErrArchiveUnavailable) {
		t.Errorf("expected ErrArchiveUnavailable, got %v", err)
	}

	store := newMockStore()
	svc = app.NewWarehouseService(store, &mockArchive{err: errBoom})
	w, err := svc.Create(ctx, depotSpec("North Depot"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.ArchiveLayout(ctx, w.ID); !errors.Is(err, errBoom) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}
