package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/itparc/inventory/types"
)

const attachmentColumns = `id, record_id, object_key, filename, content_type, size, uploaded_by, created_at`

// AttachmentRepository handles metadata for maintenance attachments.
type AttachmentRepository struct {
	db *sql.DB
}

func NewAttachmentRepository(db *sql.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func scanAttachment(row rowScanner) (types.MaintenanceAttachment, error) {
	var a types.MaintenanceAttachment
	err := row.Scan(&a.ID, &a.RecordID, &a.ObjectKey, &a.Filename, &a.ContentType, &a.Size, &a.UploadedBy, &a.CreatedAt)
	return a, err
}

func (r *AttachmentRepository) ListByRecord(ctx context.Context, recordID int) ([]types.MaintenanceAttachment, error) {
	const query = `SELECT ` + attachmentColumns + ` FROM maintenance_attachments WHERE record_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	attachments := make([]types.MaintenanceAttachment, 0)
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return attachments, nil
}

func (r *AttachmentRepository) Get(ctx context.Context, id int) (types.MaintenanceAttachment, error) {
	const query = `SELECT ` + attachmentColumns + ` FROM maintenance_attachments WHERE id = $1`
	a, err := scanAttachment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.MaintenanceAttachment{}, ErrNotFound
		}
		return types.MaintenanceAttachment{}, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *AttachmentRepository) Create(ctx context.Context, a types.MaintenanceAttachment) (types.MaintenanceAttachment, error) {
	a.CreatedAt = time.Now()

	const query = `
		INSERT INTO maintenance_attachments (record_id, object_key, filename, content_type, size, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		a.RecordID,
		a.ObjectKey,
		a.Filename,
		a.ContentType,
		a.Size,
		a.UploadedBy,
		a.CreatedAt,
	).Scan(&a.ID); err != nil {
		return types.MaintenanceAttachment{}, fmt.Errorf("db error: %w", translate(err))
	}
	return a, nil
}

func (r *AttachmentRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM maintenance_attachments WHERE id = $1`
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
