package services

import (
	"context"
	"io"

	"github.com/itparc/inventory/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	List(ctx context.Context) ([]types.User, error)
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (types.User, error)
	CountByRole(ctx context.Context, role types.Role) (int, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int) error
}

// EquipmentRepository defines persistence operations for equipment.
type EquipmentRepository interface {
	List(ctx context.Context) ([]types.Equipment, error)
	ListAssignedTo(ctx context.Context, userID int) ([]types.Equipment, error)
	Get(ctx context.Context, id int) (types.Equipment, error)
	GetBySerial(ctx context.Context, serial string) (types.Equipment, error)
	Create(ctx context.Context, equipment types.Equipment) (types.Equipment, error)
	Update(ctx context.Context, equipment types.Equipment) (types.Equipment, error)
	Delete(ctx context.Context, id int) error
}

// MaintenanceRepository defines persistence operations for maintenance records.
type MaintenanceRepository interface {
	ListByEquipment(ctx context.Context, equipmentID int) ([]types.MaintenanceRecord, error)
	Get(ctx context.Context, id int) (types.MaintenanceRecord, error)
	Create(ctx context.Context, record types.MaintenanceRecord) (types.MaintenanceRecord, error)
	Update(ctx context.Context, record types.MaintenanceRecord) (types.MaintenanceRecord, error)
	Delete(ctx context.Context, id int) error
}

// AttachmentRepository defines persistence operations for attachment metadata.
type AttachmentRepository interface {
	ListByRecord(ctx context.Context, recordID int) ([]types.MaintenanceAttachment, error)
	Get(ctx context.Context, id int) (types.MaintenanceAttachment, error)
	Create(ctx context.Context, attachment types.MaintenanceAttachment) (types.MaintenanceAttachment, error)
	Delete(ctx context.Context, id int) error
}

// BlobStore keeps attachment bytes. *storage.Storage implements it.
type BlobStore interface {
	PutAttachment(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	OpenAttachment(ctx context.Context, key string) (io.ReadCloser, error)
	RemoveAttachment(ctx context.Context, key string) error
}

// EventPublisher announces committed changes. *events.Publisher implements it.
type EventPublisher interface {
	Publish(ctx context.Context, eventType types.EventType, actorID, subjectID int, data any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, types.EventType, int, int, any) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
