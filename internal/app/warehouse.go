package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neomorfeo/grainvault/internal/domain"
	"github.com/neomorfeo/grainvault/internal/layout"
)

// WarehouseService orchestrates warehouse lifecycle operations.
type WarehouseService struct {
	repo    domain.WarehouseRepository
	archive domain.LayoutArchive
	now     func() time.Time
}

// NewWarehouseService creates a service with the given repository. archive
// may be nil when no object store is configured.
func NewWarehouseService(repo domain.WarehouseRepository, archive domain.LayoutArchive) *WarehouseService {
	return &WarehouseService{
		repo:    repo,
		archive: archive,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create generates the grid for a new warehouse and persists it.
func (s *WarehouseService) Create(ctx context.Context, spec domain.WarehouseSpec) (domain.Warehouse, error) {
	if err := s.ensureNameFree(ctx, spec.Name, ""); err != nil {
		return domain.Warehouse{}, err
	}

	id, err := generateID()
	if err != nil {
		return domain.Warehouse{}, fmt.Errorf("generating id: %w", err)
	}
	spec.ID = id

	w, err := domain.GenerateGrid(spec)
	if err != nil {
		return domain.Warehouse{}, err
	}

	if err := s.repo.Create(ctx, w); err != nil {
		return domain.Warehouse{}, fmt.Errorf("creating warehouse: %w", err)
	}

	slog.InfoContext(ctx, "warehouse created",
		"warehouse_id", w.ID,
		"name", w.Name,
		"total_slots", w.TotalSlots,
	)
	return w, nil
}

// Get returns the full warehouse including its grid.
func (s *WarehouseService) Get(ctx context.Context, id string) (domain.Warehouse, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns warehouse headers matching the filter.
func (s *WarehouseService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Warehouse, error) {
	return s.repo.List(ctx, filter)
}

// WarehouseUpdate carries the header fields an owner may change. Nil fields
// are left as they are; the grid configuration is immutable.
type WarehouseUpdate struct {
	Name        *string
	Description *string
	Pricing     *domain.Pricing
}

// UpdateDetails changes the name, description or pricing of a warehouse.
func (s *WarehouseService) UpdateDetails(ctx context.Context, id string, upd WarehouseUpdate) (domain.Warehouse, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Warehouse{}, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return domain.Warehouse{}, &domain.ConfigurationError{Field: "name", Reason: "must not be empty"}
		}
		if err := s.ensureNameFree(ctx, name, w.ID); err != nil {
			return domain.Warehouse{}, err
		}
		w.Name = name
	}
	if upd.Description != nil {
		w.Description = *upd.Description
	}
	if upd.Pricing != nil {
		p := *upd.Pricing
		if p.RentPerQuintalPerMonth.IsNegative() || p.MaintenancePerMonth.IsNegative() || p.InsurancePerYear.IsNegative() {
			return domain.Warehouse{}, &domain.ConfigurationError{Field: "pricing", Reason: "must not be negative"}
		}
		w.Pricing = p
	}
	w.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, w); err != nil {
		return domain.Warehouse{}, fmt.Errorf("updating warehouse: %w", err)
	}
	return w, nil
}

// Deactivate soft-deletes a warehouse. A warehouse still storing grain
// cannot be deactivated; the repository re-checks that atomically with the
// write, so an allocation racing this call either blocks it or fails.
func (s *WarehouseService) Deactivate(ctx context.Context, id string) (domain.Warehouse, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Warehouse{}, err
	}
	if !w.Active {
		return w, nil
	}

	if occ := domain.Occupancy(w); occ.OccupiedSlots > 0 {
		return domain.Warehouse{}, &domain.WarehouseInUseError{WarehouseID: w.ID, OccupiedSlots: occ.OccupiedSlots}
	}

	at := s.now()
	if err := s.repo.Deactivate(ctx, id, at); err != nil {
		return domain.Warehouse{}, fmt.Errorf("deactivating warehouse: %w", err)
	}
	w.Active = false
	w.UpdatedAt = at

	slog.InfoContext(ctx, "warehouse deactivated", "warehouse_id", w.ID)
	return w, nil
}

// Layout renders the warehouse grid as an exportable document.
func (s *WarehouseService) Layout(ctx context.Context, id string) (layout.Document, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return layout.Document{}, err
	}
	return layout.Build(w, s.now()), nil
}

// ArchiveLayout stores the layout document in the configured archive and
// returns its object key.
func (s *WarehouseService) ArchiveLayout(ctx context.Context, id string) (string, error) {
	if s.archive == nil {
		return "", domain.ErrArchiveUnavailable
	}

	doc, err := s.Layout(ctx, id)
	if err != nil {
		return "", err
	}
	data, err := layout.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding layout: %w", err)
	}

	key, err := s.archive.Store(ctx, id, data)
	if err != nil {
		return "", fmt.Errorf("archiving layout: %w", err)
	}

	slog.InfoContext(ctx, "layout archived", "warehouse_id", id, "key", key)
	return key, nil
}

func (s *WarehouseService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.repo.GetByName(ctx, strings.TrimSpace(name))
	switch {
	case errors.Is(err, domain.ErrWarehouseNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("checking name uniqueness: %w", err)
	case existing.ID == selfID:
		return nil
	default:
		return &domain.ConfigurationError{Field: "name", Reason: fmt.Sprintf("%q is already taken", name)}
	}
}
