package app_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/neomorfeo/grainvault/internal/domain"
)

// --- Mocks ---

// mockStore is a thread-safe WarehouseRepository and SlotRepository.
type mockStore struct {
	mu         sync.Mutex
	warehouses map[string]domain.Warehouse

	// conflicts makes the next n SaveSlot calls fail as if another process
	// had written the slot first.
	conflicts int
	saves     int

	// beforeSave runs once, outside the lock, ahead of the next SaveSlot.
	beforeSave func()
}

func newMockStore() *mockStore {
	return &mockStore{warehouses: make(map[string]domain.Warehouse)}
}

func (m *mockStore) Create(_ context.Context, w domain.Warehouse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warehouses[w.ID] = copyWarehouse(w)
	return nil
}

func (m *mockStore) GetByID(_ context.Context, id string) (domain.Warehouse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.warehouses[id]
	if !ok {
		return domain.Warehouse{}, &domain.NotFoundError{Kind: domain.ErrWarehouseNotFound, Ref: id}
	}
	return copyWarehouse(w), nil
}

func (m *mockStore) GetByName(_ context.Context, name string) (domain.Warehouse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.warehouses {
		if w.Name == name {
			return copyWarehouse(w), nil
		}
	}
	return domain.Warehouse{}, &domain.NotFoundError{Kind: domain.ErrWarehouseNotFound, Ref: name}
}

func (m *mockStore) List(_ context.Context, filter domain.ListFilter) ([]domain.Warehouse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Warehouse, 0, len(m.warehouses))
	for _, w := range m.warehouses {
		if filter.OwnerID != "" && w.OwnerID != filter.OwnerID {
			continue
		}
		w.Buildings = nil
		out = append(out, w)
	}
	return out, nil
}

func (m *mockStore) Update(_ context.Context, w domain.Warehouse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.warehouses[w.ID]
	if !ok {
		return &domain.NotFoundError{Kind: domain.ErrWarehouseNotFound, Ref: w.ID}
	}
	w.Buildings = cur.Buildings
	w.Active = cur.Active
	m.warehouses[w.ID] = w
	return nil
}

func (m *mockStore) Deactivate(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.warehouses[id]
	if !ok {
		return &domain.NotFoundError{Kind: domain.ErrWarehouseNotFound, Ref: id}
	}
	if !w.Active {
		return nil
	}
	if occ := domain.Occupancy(w); occ.OccupiedSlots > 0 {
		return &domain.WarehouseInUseError{WarehouseID: id, OccupiedSlots: occ.OccupiedSlots}
	}
	w.Active = false
	w.UpdatedAt = at
	m.warehouses[id] = w
	return nil
}

func (m *mockStore) GetSlot(_ context.Context, ref domain.SlotRef) (domain.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.slot(ref)
	if err != nil {
		return domain.Slot{}, err
	}
	return s.Clone(), nil
}

func (m *mockStore) SaveSlot(_ context.Context, slot domain.Slot) (int64, error) {
	m.mu.Lock()
	hook := m.beforeSave
	m.beforeSave = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.conflicts > 0 {
		m.conflicts--
		return 0, domain.ErrVersionConflict
	}

	cur, err := m.slot(slot.Ref)
	if err != nil {
		return 0, err
	}
	if cur.Version != slot.Version {
		return 0, domain.ErrVersionConflict
	}

	slot = slot.Clone()
	slot.Version++
	w := m.warehouses[slot.Ref.WarehouseID]
	block := w.Buildings[slot.Ref.Building-1].Blocks[int(slot.Ref.Block[0]-'A')]
	block.Slots[(slot.Ref.Row-1)*block.Cols+(slot.Ref.Col-1)] = slot
	return slot.Version, nil
}

func (m *mockStore) CustomerHoldings(_ context.Context, customerID string) ([]domain.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.warehouses))
	for id := range m.warehouses {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var out []domain.Holding
	for _, id := range ids {
		w := m.warehouses[id]
		if !w.Active {
			continue
		}
		w.EachSlot(func(s domain.Slot) {
			if a, ok := s.Allocation(customerID); ok {
				out = append(out, domain.Holding{WarehouseName: w.Name, Slot: s.Clone(), Allocation: a, Pricing: w.Pricing})
			}
		})
	}
	return out, nil
}

func (m *mockStore) slot(ref domain.SlotRef) (domain.Slot, error) {
	w, ok := m.warehouses[ref.WarehouseID]
	if !ok || !w.Active {
		return domain.Slot{}, &domain.NotFoundError{Kind: domain.ErrWarehouseNotFound, Ref: ref.WarehouseID}
	}
	if ref.Building < 1 || ref.Building > len(w.Buildings) || len(ref.Block) != 1 {
		return domain.Slot{}, &domain.NotFoundError{Kind: domain.ErrSlotNotFound, Ref: ref.String()}
	}
	blocks := w.Buildings[ref.Building-1].Blocks
	i := int(ref.Block[0] - 'A')
	if i < 0 || i >= len(blocks) {
		return domain.Slot{}, &domain.NotFoundError{Kind: domain.ErrSlotNotFound, Ref: ref.String()}
	}
	s, ok := blocks[i].Slot(ref.Row, ref.Col)
	if !ok {
		return domain.Slot{}, &domain.NotFoundError{Kind: domain.ErrSlotNotFound, Ref: ref.String()}
	}
	return s, nil
}

func copyWarehouse(w domain.Warehouse) domain.Warehouse {
	out := w
	out.Buildings = make([]domain.Building, len(w.Buildings))
	for i, b := range w.Buildings {
		nb := domain.Building{Index: b.Index, Blocks: make([]domain.Block, len(b.Blocks))}
		for j, bl := range b.Blocks {
			nbl := bl
			nbl.Slots = make([]domain.Slot, len(bl.Slots))
			for k, s := range bl.Slots {
				nbl.Slots[k] = s.Clone()
			}
			nb.Blocks[j] = nbl
		}
		out.Buildings[i] = nb
	}
	return out
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.SlotEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, e domain.SlotEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockPublisher) published() []domain.SlotEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events)
}

// tableValidator walks domain.Transitions directly.
type tableValidator struct{}

func (tableValidator) Apply(_ context.Context, current domain.Status, event domain.Event) (domain.Status, error) {
	for _, tr := range domain.Transitions {
		if tr.Event == event && tr.Src == current {
			return tr.Dst, nil
		}
	}
	return "", &domain.TransitionError{Event: event, Current: current}
}

// stuckValidator accepts every event but reports the slot as unchanged.
type stuckValidator struct{}

func (stuckValidator) Apply(_ context.Context, current domain.Status, _ domain.Event) (domain.Status, error) {
	return current, nil
}

type mockArchive struct {
	stored map[string][]byte
	err    error
}

func (m *mockArchive) Store(_ context.Context, warehouseID string, document []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.stored == nil {
		m.stored = make(map[string][]byte)
	}
	key := "layouts/" + warehouseID + ".json"
	m.stored[key] = document
	return key, nil
}

var errBoom = errors.New("boom")
