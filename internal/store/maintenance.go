package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/itparc/inventory/types"
)

const maintenanceSelect = `
		SELECT m.id, m.equipment_id, m.maintenance_date, m.description, m.performed_by,
		       m.cost, m.notes, m.created_at, m.updated_at,
		       u.id, u.username, u.email,
		       e.id, e.name, e.serial_number
		FROM maintenance_records m
		LEFT JOIN users u ON u.id = m.performed_by
		LEFT JOIN equipment e ON e.id = m.equipment_id`

// MaintenanceRepository handles persistence for maintenance records.
type MaintenanceRepository struct {
	db *sql.DB
}

func NewMaintenanceRepository(db *sql.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

func scanMaintenance(row rowScanner) (types.MaintenanceRecord, error) {
	var record types.MaintenanceRecord
	var performerID, equipmentID sql.NullInt64
	var performerName, performerEmail, equipmentName, equipmentSerial sql.NullString
	err := row.Scan(
		&record.ID,
		&record.EquipmentID,
		&record.MaintenanceDate,
		&record.Description,
		&record.PerformedByID,
		&record.Cost,
		&record.Notes,
		&record.CreatedAt,
		&record.UpdatedAt,
		&performerID,
		&performerName,
		&performerEmail,
		&equipmentID,
		&equipmentName,
		&equipmentSerial,
	)
	if err != nil {
		return types.MaintenanceRecord{}, err
	}
	if performerID.Valid {
		record.PerformedBy = &types.UserRef{
			ID:       int(performerID.Int64),
			Username: performerName.String,
			Email:    performerEmail.String,
		}
	}
	if equipmentID.Valid {
		record.Equipment = &types.EquipmentRef{
			ID:           int(equipmentID.Int64),
			Name:         equipmentName.String,
			SerialNumber: equipmentSerial.String,
		}
	}
	return record, nil
}

// ListByEquipment returns the records of equipmentID, newest maintenance first.
func (r *MaintenanceRepository) ListByEquipment(ctx context.Context, equipmentID int) ([]types.MaintenanceRecord, error) {
	const query = maintenanceSelect + `
		WHERE m.equipment_id = $1
		ORDER BY m.maintenance_date DESC, m.id DESC`
	rows, err := r.db.QueryContext(ctx, query, equipmentID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	records := make([]types.MaintenanceRecord, 0)
	for rows.Next() {
		record, err := scanMaintenance(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return records, nil
}

func (r *MaintenanceRepository) Get(ctx context.Context, id int) (types.MaintenanceRecord, error) {
	record, err := scanMaintenance(r.db.QueryRowContext(ctx, maintenanceSelect+` WHERE m.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.MaintenanceRecord{}, ErrNotFound
		}
		return types.MaintenanceRecord{}, fmt.Errorf("db error: %w", err)
	}
	return record, nil
}

func (r *MaintenanceRepository) Create(ctx context.Context, record types.MaintenanceRecord) (types.MaintenanceRecord, error) {
	now := time.Now()

	const query = `
		INSERT INTO maintenance_records (equipment_id, maintenance_date, description, performed_by,
			cost, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	var id int
	if err := r.db.QueryRowContext(
		ctx,
		query,
		record.EquipmentID,
		record.MaintenanceDate,
		record.Description,
		record.PerformedByID,
		record.Cost,
		record.Notes,
		now,
		now,
	).Scan(&id); err != nil {
		return types.MaintenanceRecord{}, fmt.Errorf("db error: %w", err)
	}

	return r.Get(ctx, id)
}

func (r *MaintenanceRepository) Update(ctx context.Context, record types.MaintenanceRecord) (types.MaintenanceRecord, error) {
	const query = `
		UPDATE maintenance_records
		SET maintenance_date = $1,
			description = $2,
			cost = $3,
			notes = $4,
			updated_at = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		record.MaintenanceDate,
		record.Description,
		record.Cost,
		record.Notes,
		time.Now(),
		record.ID,
	)
	if err != nil {
		return types.MaintenanceRecord{}, fmt.Errorf("db error: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.MaintenanceRecord{}, fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return types.MaintenanceRecord{}, ErrNotFound
	}

	return r.Get(ctx, record.ID)
}

func (r *MaintenanceRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM maintenance_records WHERE id = $1`
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
