package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/itparc/inventory/types"
)

// The assignee username is joined on every read rather than cached on the row.
const equipmentSelect = `
		SELECT e.id, e.name, e.type, e.serial_number, e.manufacturer, e.model,
		       e.purchase_date, e.warranty_end_date, e.status, e.assigned_to,
		       COALESCE(u.username, ''), e.location, e.notes, e.created_by, e.updated_by,
		       e.created_at, e.updated_at
		FROM equipment e
		LEFT JOIN users u ON u.id = e.assigned_to`

// EquipmentRepository handles persistence for equipment.
type EquipmentRepository struct {
	db *sql.DB
}

func NewEquipmentRepository(db *sql.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

func scanEquipment(row rowScanner) (types.Equipment, error) {
	var equipment types.Equipment
	var purchaseDate, warrantyEnd sql.NullTime
	var assignedTo, updatedBy sql.NullInt64
	err := row.Scan(
		&equipment.ID,
		&equipment.Name,
		&equipment.Type,
		&equipment.SerialNumber,
		&equipment.Manufacturer,
		&equipment.Model,
		&purchaseDate,
		&warrantyEnd,
		&equipment.Status,
		&assignedTo,
		&equipment.AssignedToUsername,
		&equipment.Location,
		&equipment.Notes,
		&equipment.CreatedBy,
		&updatedBy,
		&equipment.CreatedAt,
		&equipment.UpdatedAt,
	)
	if err != nil {
		return types.Equipment{}, err
	}
	equipment.PurchaseDate = timePtr(purchaseDate)
	equipment.WarrantyEndDate = timePtr(warrantyEnd)
	equipment.AssignedTo = intPtr(assignedTo)
	equipment.UpdatedBy = intPtr(updatedBy)
	return equipment, nil
}

func (r *EquipmentRepository) list(ctx context.Context, query string, args ...any) ([]types.Equipment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	items := make([]types.Equipment, 0)
	for rows.Next() {
		equipment, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		items = append(items, equipment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}

func (r *EquipmentRepository) getOne(ctx context.Context, query string, args ...any) (types.Equipment, error) {
	equipment, err := scanEquipment(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Equipment{}, ErrNotFound
		}
		return types.Equipment{}, fmt.Errorf("db error: %w", err)
	}
	return equipment, nil
}

// List returns all equipment.
func (r *EquipmentRepository) List(ctx context.Context) ([]types.Equipment, error) {
	return r.list(ctx, equipmentSelect+` ORDER BY e.id`)
}

// ListAssignedTo returns the equipment currently assigned to userID.
func (r *EquipmentRepository) ListAssignedTo(ctx context.Context, userID int) ([]types.Equipment, error) {
	return r.list(ctx, equipmentSelect+` WHERE e.assigned_to = $1 ORDER BY e.id`, userID)
}

func (r *EquipmentRepository) Get(ctx context.Context, id int) (types.Equipment, error) {
	return r.getOne(ctx, equipmentSelect+` WHERE e.id = $1`, id)
}

func (r *EquipmentRepository) GetBySerial(ctx context.Context, serial string) (types.Equipment, error) {
	return r.getOne(ctx, equipmentSelect+` WHERE e.serial_number = $1`, serial)
}

func (r *EquipmentRepository) Create(ctx context.Context, equipment types.Equipment) (types.Equipment, error) {
	now := time.Now()

	const query = `
		INSERT INTO equipment (name, type, serial_number, manufacturer, model, purchase_date,
			warranty_end_date, status, assigned_to, location, notes, created_by, updated_by,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`
	var id int
	if err := r.db.QueryRowContext(
		ctx,
		query,
		equipment.Name,
		equipment.Type,
		equipment.SerialNumber,
		equipment.Manufacturer,
		equipment.Model,
		nullableTime(equipment.PurchaseDate),
		nullableTime(equipment.WarrantyEndDate),
		equipment.Status,
		nullableInt(equipment.AssignedTo),
		equipment.Location,
		equipment.Notes,
		equipment.CreatedBy,
		nullableInt(equipment.UpdatedBy),
		now,
		now,
	).Scan(&id); err != nil {
		return types.Equipment{}, fmt.Errorf("db error: %w", translate(err))
	}

	return r.Get(ctx, id)
}

func (r *EquipmentRepository) Update(ctx context.Context, equipment types.Equipment) (types.Equipment, error) {
	const query = `
		UPDATE equipment
		SET name = $1,
			type = $2,
			serial_number = $3,
			manufacturer = $4,
			model = $5,
			purchase_date = $6,
			warranty_end_date = $7,
			status = $8,
			assigned_to = $9,
			location = $10,
			notes = $11,
			updated_by = $12,
			updated_at = $13
		WHERE id = $14`
	result, err := r.db.ExecContext(
		ctx,
		query,
		equipment.Name,
		equipment.Type,
		equipment.SerialNumber,
		equipment.Manufacturer,
		equipment.Model,
		nullableTime(equipment.PurchaseDate),
		nullableTime(equipment.WarrantyEndDate),
		equipment.Status,
		nullableInt(equipment.AssignedTo),
		equipment.Location,
		equipment.Notes,
		nullableInt(equipment.UpdatedBy),
		time.Now(),
		equipment.ID,
	)
	if err != nil {
		return types.Equipment{}, fmt.Errorf("db error: %w", translate(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Equipment{}, fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return types.Equipment{}, ErrNotFound
	}

	return r.Get(ctx, equipment.ID)
}

func (r *EquipmentRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM equipment WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
