// Package memory keeps warehouses in process memory. It backs tests and
// single-process deployments that do not need durability.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/neomorfeo/grainvault/internal/domain"
)

var (
	_ domain.WarehouseRepository = (*Store)(nil)
	_ domain.SlotRepository      = (*Store)(nil)
)

// Store is safe for concurrent use. Readers get deep copies, so a returned
// warehouse never changes underneath its caller.
type Store struct {
	mu         sync.RWMutex
	warehouses map[string]*domain.Warehouse
}

func New() *Store {
	return &Store{warehouses: make(map[string]*domain.Warehouse)}
}

func (s *Store) Create(_ context.Context, w domain.Warehouse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.warehouses[w.ID]; ok {
		return fmt.Errorf("warehouse %s already exists", w.ID)
	}
	for _, other := range s.warehouses {
		if other.Name == w.Name {
			return &domain.ConfigurationError{Field: "name", Reason: fmt.Sprintf("%q is already taken", w.Name)}
		}
	}

	stored := cloneWarehouse(w)
	s.warehouses[w.ID] = &stored
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (domain.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.warehouses[id]
	if !ok {
		return domain.Warehouse{}, &domain.NotFoundError{Kind: domain.ErrWarehouseNotFound, Ref: id}
	}
	return cloneWarehouse(*w), nil
}

func (s *Store) GetByName(_ context.Context, name string) (domain.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.warehouses {
		if w.Name == name {
			return header(*w), nil
		}
	}
	return domain.Warehouse{}, &domain.NotFoundError{Kind: domain.ErrWarehouseNotFound, Ref: name}
}

// List returns headers newest first, matching the SQLite store.
func (s *Store) List(_ context.Context, filter domain.ListFilter) ([]domain.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Warehouse
	for _, w := range s.warehouses {
		if filter.OwnerID != "" && w.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Active != nil && w.Active != *filter.Active {
			continue
		}
		out = append(out, header(*w))
	}

	slices.SortFunc(out, func(a, b domain.Warehouse) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) Update(_ context.Context, w domain.Warehouse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.warehouses[w.ID]
	if !ok {
		return &domain.NotFoundError{Kind: domain.ErrWarehouseNotFound, Ref: w.ID}
	}
	for id, other := range s.warehouses {
		if id != w.ID && other.Name == w.Name {
			return &domain.ConfigurationError{Field: "name", Reason: fmt.Sprintf("%q is already taken", w.Name)}
		}
	}

	cur.Name = w.Name
	cur.Description = w.Description
	cur.Pricing = w.Pricing
	cur.UpdatedAt = w.UpdatedAt
	return nil
}

func (s *Store) Deactivate(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.warehouses[id]
	if !ok {
		return &domain.NotFoundError{Kind: domain.ErrWarehouseNotFound, Ref: id}
	}
	if !w.Active {
		return nil
	}
	if occ := domain.Occupancy(*w); occ.OccupiedSlots > 0 {
		return &domain.WarehouseInUseError{WarehouseID: id, OccupiedSlots: occ.OccupiedSlots}
	}

	w.Active = false
	w.UpdatedAt = at
	return nil
}

func (s *Store) GetSlot(_ context.Context, ref domain.SlotRef) (domain.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.slot(ref)
	if err != nil {
		return domain.Slot{}, err
	}
	return p.Clone(), nil
}

func (s *Store) SaveSlot(_ context.Context, slot domain.Slot) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.slot(slot.Ref)
	if err != nil {
		return 0, err
	}
	if p.Version != slot.Version {
		return 0, domain.ErrVersionConflict
	}

	p.Allocations = slot.Clone().Allocations
	p.Version++
	return p.Version, nil
}

func (s *Store) CustomerHoldings(_ context.Context, customerID string) ([]domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]*domain.Warehouse, 0, len(s.warehouses))
	for _, w := range s.warehouses {
		if w.Active {
			active = append(active, w)
		}
	}
	slices.SortFunc(active, func(a, b *domain.Warehouse) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	var out []domain.Holding
	for _, w := range active {
		w.EachSlot(func(sl domain.Slot) {
			if a, ok := sl.Allocation(customerID); ok {
				out = append(out, domain.Holding{
					WarehouseName: w.Name,
					Slot:          sl.Clone(),
					Allocation:    a,
					Pricing:       w.Pricing,
				})
			}
		})
	}
	return out, nil
}

// slot resolves ref to the stored slot of an active warehouse. Caller must
// hold s.mu.
func (s *Store) slot(ref domain.SlotRef) (*domain.Slot, error) {
	w, ok := s.warehouses[ref.WarehouseID]
	if !ok || !w.Active {
		return nil, &domain.NotFoundError{Kind: domain.ErrWarehouseNotFound, Ref: ref.WarehouseID}
	}

	notFound := &domain.NotFoundError{Kind: domain.ErrSlotNotFound, Ref: ref.String()}
	if ref.Building < 1 || ref.Building > len(w.Buildings) {
		return nil, notFound
	}
	blocks := w.Buildings[ref.Building-1].Blocks
	i := slices.IndexFunc(blocks, func(b domain.Block) bool { return b.Label == ref.Block })
	if i < 0 {
		return nil, notFound
	}
	block := blocks[i]
	if ref.Row < 1 || ref.Row > block.Rows || ref.Col < 1 || ref.Col > block.Cols {
		return nil, notFound
	}
	return &block.Slots[(ref.Row-1)*block.Cols+(ref.Col-1)], nil
}

func header(w domain.Warehouse) domain.Warehouse {
	w.Buildings = nil
	return w
}

func cloneWarehouse(w domain.Warehouse) domain.Warehouse {
	out := w
	out.Buildings = make([]domain.Building, len(w.Buildings))
	for i, b := range w.Buildings {
		blocks := make([]domain.Block, len(b.Blocks))
		for j, bl := range b.Blocks {
			slots := make([]domain.Slot, len(bl.Slots))
			for k, sl := range bl.Slots {
				slots[k] = sl.Clone()
			}
			bl.Slots = slots
			blocks[j] = bl
		}
		out.Buildings[i] = domain.Building{Index: b.Index, Blocks: blocks}
	}
	return out
}
