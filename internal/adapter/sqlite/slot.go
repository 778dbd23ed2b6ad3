package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neomorfeo/grainvault/internal/domain"
)

const allocationColumns = `customer_id, bags, grain_type, weight_kg, entry_date, notes`

const slotKey = `warehouse_id = ? AND building = ? AND block = ? AND row_no = ? AND col_no = ?`

func slotKeyArgs(ref domain.SlotRef) []any {
	return []any{ref.WarehouseID, ref.Building, ref.Block, ref.Row, ref.Col}
}

// GetSlot reads one slot and its allocations in a single transaction. Slots
// of an inactive warehouse are reported as a missing warehouse.
func (s *Store) GetSlot(ctx context.Context, ref domain.SlotRef) (domain.Slot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Slot{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var active bool
	var label, mnemonic sql.NullString
	var capacity, version sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT w.active, s.label, s.mnemonic, s.capacity_bags, s.version
		 FROM warehouses w
		 LEFT JOIN slots s ON s.warehouse_id = w.id
		     AND s.building = ? AND s.block = ? AND s.row_no = ? AND s.col_no = ?
		 WHERE w.id = ?`,
		ref.Building, ref.Block, ref.Row, ref.Col, ref.WarehouseID,
	).Scan(&active, &label, &mnemonic, &capacity, &version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.Slot{}, &domain.NotFoundError{Kind: domain.ErrWarehouseNotFound, Ref: ref.WarehouseID}
	case err != nil:
		return domain.Slot{}, fmt.Errorf("reading slot %s: %w", ref, err)
	case !active:
		return domain.Slot{}, &domain.NotFoundError{Kind: domain.ErrWarehouseNotFound, Ref: ref.WarehouseID}
	case !label.Valid:
		return domain.Slot{}, &domain.NotFoundError{Kind: domain.ErrSlotNotFound, Ref: ref.String()}
	}

	slot := domain.Slot{
		Ref:          ref,
		Label:        label.String,
		Mnemonic:     mnemonic.String,
		CapacityBags: int(capacity.Int64),
		Version:      version.Int64,
	}
	if slot.Allocations, err = loadAllocations(ctx, tx, ref); err != nil {
		return domain.Slot{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Slot{}, fmt.Errorf("committing read: %w", err)
	}
	return slot, nil
}

// SaveSlot replaces the slot's allocations if nobody saved it since it was
// read and its warehouse is still active, and bumps its version.
func (s *Store) SaveSlot(ctx context.Context, slot domain.Slot) (int64, error) {
	ref := slot.Ref

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	args := append(slotKeyArgs(ref), slot.Version, ref.WarehouseID)
	result, err := tx.ExecContext(ctx,
		`UPDATE slots SET version = version + 1
		 WHERE `+slotKey+` AND version = ?
		   AND EXISTS (SELECT 1 FROM warehouses WHERE id = ? AND active = 1)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("bumping slot version: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return 0, saveRejection(ctx, tx, ref)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM allocations WHERE `+slotKey, slotKeyArgs(ref)...); err != nil {
		return 0, fmt.Errorf("clearing allocations: %w", err)
	}
	if err := insertAllocations(ctx, tx, slot); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing slot: %w", err)
	}
	return slot.Version + 1, nil
}

// saveRejection explains why a version bump matched no row.
func saveRejection(ctx context.Context, q querier, ref domain.SlotRef) error {
	var active bool
	var version sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT w.active, s.version
		 FROM warehouses w
		 LEFT JOIN slots s ON s.warehouse_id = w.id
		     AND s.building = ? AND s.block = ? AND s.row_no = ? AND s.col_no = ?
		 WHERE w.id = ?`,
		ref.Building, ref.Block, ref.Row, ref.Col, ref.WarehouseID,
	).Scan(&active, &version)
	switch {
	case errors.Is(err, sql.ErrNoRows), err == nil && !active:
		return &domain.NotFoundError{Kind: domain.ErrWarehouseNotFound, Ref: ref.WarehouseID}
	case err != nil:
		return fmt.Errorf("reading slot %s: %w", ref, err)
	case !version.Valid:
		return &domain.NotFoundError{Kind: domain.ErrSlotNotFound, Ref: ref.String()}
	}
	return domain.ErrVersionConflict
}

// CustomerHoldings returns the customer's allocations across active
// warehouses, oldest warehouse first and then in grid order.
func (s *Store) CustomerHoldings(ctx context.Context, customerID string) ([]domain.Holding, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT w.id, w.name, w.rent_per_quintal_per_month, w.maintenance_per_month, w.insurance_per_year,
		        s.building, s.block, s.row_no, s.col_no, s.label, s.mnemonic, s.capacity_bags, s.version
		 FROM allocations a
		 JOIN slots s ON s.warehouse_id = a.warehouse_id AND s.building = a.building
		     AND s.block = a.block AND s.row_no = a.row_no AND s.col_no = a.col_no
		 JOIN warehouses w ON w.id = a.warehouse_id
		 WHERE a.customer_id = ? AND w.active = 1
		 ORDER BY w.created_at, w.id, s.building, s.block, s.row_no, s.col_no`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing holdings: %w", err)
	}

	var out []domain.Holding
	for rows.Next() {
		var h domain.Holding
		sl := &h.Slot
		if err := rows.Scan(&sl.Ref.WarehouseID, &h.WarehouseName,
			&h.Pricing.RentPerQuintalPerMonth, &h.Pricing.MaintenancePerMonth, &h.Pricing.InsurancePerYear,
			&sl.Ref.Building, &sl.Ref.Block, &sl.Ref.Row, &sl.Ref.Col,
			&sl.Label, &sl.Mnemonic, &sl.CapacityBags, &sl.Version); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning holding: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("listing holdings: %w", err)
	}
	rows.Close()

	for i := range out {
		h := &out[i]
		if h.Slot.Allocations, err = loadAllocations(ctx, tx, h.Slot.Ref); err != nil {
			return nil, err
		}
		a, ok := h.Slot.Allocation(customerID)
		if !ok {
			return nil, fmt.Errorf("allocation for %q vanished from slot %s", customerID, h.Slot.Ref)
		}
		h.Allocation = a
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing read: %w", err)
	}
	return out, nil
}

func loadAllocations(ctx context.Context, q querier, ref domain.SlotRef) ([]domain.Allocation, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+allocationColumns+` FROM allocations WHERE `+slotKey+` ORDER BY position`,
		slotKeyArgs(ref)...,
	)
	if err != nil {
		return nil, fmt.Errorf("loading allocations of %s: %w", ref, err)
	}
	defer rows.Close()

	var out []domain.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func insertAllocations(ctx context.Context, q querier, slot domain.Slot) error {
	r := slot.Ref
	for i, a := range slot.Allocations {
		_, err := q.ExecContext(ctx,
			`INSERT INTO allocations (warehouse_id, building, block, row_no, col_no, position, `+allocationColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.WarehouseID, r.Building, r.Block, r.Row, r.Col, i,
			a.CustomerID, a.Bags, a.GrainType, a.WeightKg, formatTime(a.EntryDate), a.Notes,
		)
		if err != nil {
			return fmt.Errorf("inserting allocation of %q in %s: %w", a.CustomerID, r, err)
		}
	}
	return nil
}

// scanAllocation reads allocationColumns, preceded by any extra leading
// destinations the query selected.
func scanAllocation(row scanner, lead ...any) (domain.Allocation, error) {
	var a domain.Allocation
	var entry string

	dest := append(lead, &a.CustomerID, &a.Bags, &a.GrainType, &a.WeightKg, &entry, &a.Notes)
	if err := row.Scan(dest...); err != nil {
		return domain.Allocation{}, fmt.Errorf("scanning allocation: %w", err)
	}

	t, err := parseTime(entry)
	if err != nil {
		return domain.Allocation{}, err
	}
	a.EntryDate = t
	return a, nil
}
