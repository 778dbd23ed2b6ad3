package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/grainvault/internal/domain"
)

const warehouseColumns = `id, name, description, owner_id,
	building_count, blocks_per_building, rows_per_block, cols_per_block,
	rent_per_quintal_per_month, maintenance_per_month, insurance_per_year,
	active, total_slots, created_at, updated_at`

// Create inserts the warehouse header and every slot of its grid in one
// transaction.
func (s *Store) Create(ctx context.Context, w domain.Warehouse) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO warehouses (`+warehouseColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.Description, w.OwnerID,
		w.Configuration.BuildingCount, w.Configuration.BlocksPerBuilding,
		w.Configuration.RowsPerBlock, w.Configuration.ColsPerBlock,
		w.Pricing.RentPerQuintalPerMonth, w.Pricing.MaintenancePerMonth, w.Pricing.InsurancePerYear,
		boolToInt(w.Active), w.TotalSlots,
		formatTime(w.CreatedAt), formatTime(w.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConfigurationError{Field: "name", Reason: fmt.Sprintf("%q is already taken", w.Name)}
		}
		return fmt.Errorf("inserting warehouse: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO slots (warehouse_id, building, block, row_no, col_no, label, mnemonic, capacity_bags, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing slot insert: %w", err)
	}
	defer stmt.Close()

	var slotErr error
	w.EachSlot(func(sl domain.Slot) {
		if slotErr != nil {
			return
		}
		r := sl.Ref
		if _, err := stmt.ExecContext(ctx, w.ID, r.Building, r.Block, r.Row, r.Col,
			sl.Label, sl.Mnemonic, sl.CapacityBags, sl.Version); err != nil {
			slotErr = fmt.Errorf("inserting slot %s: %w", r, err)
			return
		}
		slotErr = insertAllocations(ctx, tx, sl)
	})
	if slotErr != nil {
		return slotErr
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing warehouse: %w", err)
	}
	return nil
}

// GetByID returns the warehouse with its full grid, read in one
// transaction.
func (s *Store) GetByID(ctx context.Context, id string) (domain.Warehouse, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Warehouse{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	w, err := scanWarehouse(tx.QueryRowContext(ctx,
		`SELECT `+warehouseColumns+` FROM warehouses WHERE id = ?`, id), id)
	if err != nil {
		return domain.Warehouse{}, err
	}

	if err := loadGrid(ctx, tx, &w); err != nil {
		return domain.Warehouse{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Warehouse{}, fmt.Errorf("committing read: %w", err)
	}
	return w, nil
}

// GetByName returns the warehouse header only.
func (s *Store) GetByName(ctx context.Context, name string) (domain.Warehouse, error) {
	return scanWarehouse(s.db.QueryRowContext(ctx,
		`SELECT `+warehouseColumns+` FROM warehouses WHERE name = ?`, name), name)
}

func (s *Store) List(ctx context.Context, filter domain.ListFilter) ([]domain.Warehouse, error) {
	query := `SELECT ` + warehouseColumns + ` FROM warehouses WHERE 1 = 1`
	var args []any

	if filter.OwnerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, filter.OwnerID)
	}

	if filter.Active != nil {
		query += ` AND active = ?`
		args = append(args, boolToInt(*filter.Active))
	}

	query += ` ORDER BY created_at DESC, id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing warehouses: %w", err)
	}
	defer rows.Close()

	var out []domain.Warehouse
	for rows.Next() {
		w, err := scanWarehouse(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}

	return out, rows.Err()
}

// Update persists the editable header fields. The grid and the active flag
// are never touched.
func (s *Store) Update(ctx context.Context, w domain.Warehouse) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE warehouses SET name = ?, description = ?,
		     rent_per_quintal_per_month = ?, maintenance_per_month = ?, insurance_per_year = ?,
		     updated_at = ?
		 WHERE id = ?`,
		w.Name, w.Description,
		w.Pricing.RentPerQuintalPerMonth, w.Pricing.MaintenancePerMonth, w.Pricing.InsurancePerYear,
		formatTime(w.UpdatedAt), w.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConfigurationError{Field: "name", Reason: fmt.Sprintf("%q is already taken", w.Name)}
		}
		return fmt.Errorf("updating warehouse: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Kind: domain.ErrWarehouseNotFound, Ref: w.ID}
	}

	return nil
}

// Deactivate clears the active flag in one statement that also requires
// the warehouse to hold no allocations, so a concurrent slot save either
// lands first and blocks it or finds the warehouse inactive.
func (s *Store) Deactivate(ctx context.Context, id string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE warehouses SET active = 0, updated_at = ?
		 WHERE id = ? AND active = 1
		   AND NOT EXISTS (SELECT 1 FROM allocations WHERE warehouse_id = ?)`,
		formatTime(at), id, id,
	)
	if err != nil {
		return fmt.Errorf("deactivating warehouse: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}

	if n == 0 {
		var active bool
		err := tx.QueryRowContext(ctx, `SELECT active FROM warehouses WHERE id = ?`, id).Scan(&active)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return &domain.NotFoundError{Kind: domain.ErrWarehouseNotFound, Ref: id}
		case err != nil:
			return fmt.Errorf("reading warehouse %s: %w", id, err)
		case active:
			var occupied int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM (SELECT DISTINCT building, block, row_no, col_no
				 FROM allocations WHERE warehouse_id = ?)`, id).Scan(&occupied); err != nil {
				return fmt.Errorf("counting occupied slots: %w", err)
			}
			return &domain.WarehouseInUseError{WarehouseID: id, OccupiedSlots: occupied}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing deactivation: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanWarehouse reads one header row. ref names the lookup key in the
// not-found error.
func scanWarehouse(row scanner, ref string) (domain.Warehouse, error) {
	var w domain.Warehouse
	var createdAt, updatedAt string

	err := row.Scan(&w.ID, &w.Name, &w.Description, &w.OwnerID,
		&w.Configuration.BuildingCount, &w.Configuration.BlocksPerBuilding,
		&w.Configuration.RowsPerBlock, &w.Configuration.ColsPerBlock,
		&w.Pricing.RentPerQuintalPerMonth, &w.Pricing.MaintenancePerMonth, &w.Pricing.InsurancePerYear,
		&w.Active, &w.TotalSlots, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Warehouse{}, &domain.NotFoundError{Kind: domain.ErrWarehouseNotFound, Ref: ref}
		}
		return domain.Warehouse{}, fmt.Errorf("scanning warehouse: %w", err)
	}

	if w.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Warehouse{}, err
	}
	if w.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Warehouse{}, err
	}
	return w, nil
}

// loadGrid rebuilds the building/block skeleton from the configuration and
// fills it from the slots and allocations tables.
func loadGrid(ctx context.Context, q querier, w *domain.Warehouse) error {
	cfg := w.Configuration
	w.Buildings = make([]domain.Building, cfg.BuildingCount)
	for b := range w.Buildings {
		blocks := make([]domain.Block, cfg.BlocksPerBuilding)
		for bl := range blocks {
			blocks[bl] = domain.Block{
				Label: blockLabel(bl),
				Rows:  cfg.RowsPerBlock,
				Cols:  cfg.ColsPerBlock,
				Slots: make([]domain.Slot, cfg.RowsPerBlock*cfg.ColsPerBlock),
			}
		}
		w.Buildings[b] = domain.Building{Index: b + 1, Blocks: blocks}
	}

	rows, err := q.QueryContext(ctx,
		`SELECT building, block, row_no, col_no, label, mnemonic, capacity_bags, version
		 FROM slots WHERE warehouse_id = ?`, w.ID)
	if err != nil {
		return fmt.Errorf("loading slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		sl := domain.Slot{Ref: domain.SlotRef{WarehouseID: w.ID}}
		if err := rows.Scan(&sl.Ref.Building, &sl.Ref.Block, &sl.Ref.Row, &sl.Ref.Col,
			&sl.Label, &sl.Mnemonic, &sl.CapacityBags, &sl.Version); err != nil {
			return fmt.Errorf("scanning slot: %w", err)
		}
		p, ok := gridSlot(w, sl.Ref)
		if !ok {
			return fmt.Errorf("slot %s lies outside the configured grid", sl.Ref)
		}
		*p = sl
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading slots: %w", err)
	}
	rows.Close()

	arows, err := q.QueryContext(ctx,
		`SELECT building, block, row_no, col_no, `+allocationColumns+`
		 FROM allocations WHERE warehouse_id = ?
		 ORDER BY building, block, row_no, col_no, position`, w.ID)
	if err != nil {
		return fmt.Errorf("loading allocations: %w", err)
	}
	defer arows.Close()

	for arows.Next() {
		ref := domain.SlotRef{WarehouseID: w.ID}
		a, err := scanAllocation(arows, &ref.Building, &ref.Block, &ref.Row, &ref.Col)
		if err != nil {
			return err
		}
		p, ok := gridSlot(w, ref)
		if !ok {
			return fmt.Errorf("allocation for %s lies outside the configured grid", ref)
		}
		p.Allocations = append(p.Allocations, a)
	}
	return arows.Err()
}

func gridSlot(w *domain.Warehouse, ref domain.SlotRef) (*domain.Slot, bool) {
	if ref.Building < 1 || ref.Building > len(w.Buildings) || len(ref.Block) != 1 {
		return nil, false
	}
	blocks := w.Buildings[ref.Building-1].Blocks
	bl := int(ref.Block[0] - 'A')
	if bl < 0 || bl >= len(blocks) {
		return nil, false
	}
	block := blocks[bl]
	if ref.Row < 1 || ref.Row > block.Rows || ref.Col < 1 || ref.Col > block.Cols {
		return nil, false
	}
	return &block.Slots[(ref.Row-1)*block.Cols+(ref.Col-1)], true
}

func blockLabel(i int) string {
	return string(rune('A' + i))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
