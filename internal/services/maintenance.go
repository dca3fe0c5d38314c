package services

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/itparc/inventory/internal/logging"
	"github.com/itparc/inventory/internal/storage"
	"github.com/itparc/inventory/internal/store"
	"github.com/itparc/inventory/types"
)

// MaxAttachmentSize bounds a single uploaded document.
const MaxAttachmentSize = 20 << 20

// MaintenanceInput files a maintenance record. The performer is always the
// caller. A zero MaintenanceDate means now and a nil Cost means 0.
type MaintenanceInput struct {
	EquipmentID     int        `json:"equipmentId"`
	MaintenanceDate types.Date `json:"maintenanceDate"`
	Description     string     `json:"description"`
	Cost            *float64   `json:"cost"`
	Notes           string     `json:"notes"`
}

// MaintenanceUpdate replaces the fields that are present.
type MaintenanceUpdate struct {
	MaintenanceDate *types.Date `json:"maintenanceDate"`
	Description     *string     `json:"description"`
	Cost            *float64    `json:"cost"`
	Notes           *string     `json:"notes"`
}

// AttachmentUpload is a document to store alongside a maintenance record.
type AttachmentUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// MaintenanceService encapsulates maintenance-log use-cases.
type MaintenanceService struct {
	repo        MaintenanceRepository
	equipment   EquipmentRepository
	attachments AttachmentRepository
	blobs       BlobStore
	events      EventPublisher
	log         logging.Logger
	now         func() time.Time
}

func NewMaintenanceService(
	repo MaintenanceRepository,
	equipment EquipmentRepository,
	attachments AttachmentRepository,
	blobs BlobStore,
	events EventPublisher,
	log logging.Logger,
) *MaintenanceService {
	if log == nil {
		log = logging.Discard()
	}
	return &MaintenanceService{
		repo:        repo,
		equipment:   equipment,
		attachments: attachments,
		blobs:       blobs,
		events:      publisherOrNop(events),
		log:         log,
		now:         time.Now,
	}
}

// ListByEquipment returns the maintenance history of equipmentID, newest first.
func (s *MaintenanceService) ListByEquipment(ctx context.Context, actor types.User, equipmentID int) ([]types.MaintenanceRecord, error) {
	if _, err := s.visibleEquipment(ctx, actor, equipmentID); err != nil {
		return nil, err
	}
	return s.repo.ListByEquipment(ctx, equipmentID)
}

func (s *MaintenanceService) Create(ctx context.Context, actor types.User, in MaintenanceInput) (types.MaintenanceRecord, error) {
	if in.EquipmentID < 1 {
		return types.MaintenanceRecord{}, invalid("equipmentId is required")
	}
	if _, err := s.visibleEquipment(ctx, actor, in.EquipmentID); err != nil {
		return types.MaintenanceRecord{}, err
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		return types.MaintenanceRecord{}, invalid("description is required")
	}
	var cost float64
	if in.Cost != nil {
		cost = *in.Cost
	}
	if cost < 0 {
		return types.MaintenanceRecord{}, invalid("cost cannot be negative")
	}
	date := in.MaintenanceDate.Time
	if date.IsZero() {
		date = s.now()
	}

	record, err := s.repo.Create(ctx, types.MaintenanceRecord{
		EquipmentID:     in.EquipmentID,
		MaintenanceDate: date,
		Description:     description,
		PerformedByID:   actor.ID,
		Cost:            cost,
		Notes:           strings.TrimSpace(in.Notes),
	})
	if err != nil {
		return types.MaintenanceRecord{}, err
	}

	s.events.Publish(ctx, types.EventMaintenanceCreated, actor.ID, record.ID, record)
	return record, nil
}

func (s *MaintenanceService) Update(ctx context.Context, actor types.User, id int, in MaintenanceUpdate) (types.MaintenanceRecord, error) {
	if err := requireAdmin(actor); err != nil {
		return types.MaintenanceRecord{}, err
	}

	record, err := s.lookup(ctx, id)
	if err != nil {
		return types.MaintenanceRecord{}, err
	}

	if in.MaintenanceDate != nil && !in.MaintenanceDate.IsZero() {
		record.MaintenanceDate = in.MaintenanceDate.Time
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if description == "" {
			return types.MaintenanceRecord{}, invalid("description is required")
		}
		record.Description = description
	}
	if in.Cost != nil {
		if *in.Cost < 0 {
			return types.MaintenanceRecord{}, invalid("cost cannot be negative")
		}
		record.Cost = *in.Cost
	}
	if in.Notes != nil {
		record.Notes = strings.TrimSpace(*in.Notes)
	}

	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.MaintenanceRecord{}, notFound("maintenance record")
		}
		return types.MaintenanceRecord{}, err
	}

	s.events.Publish(ctx, types.EventMaintenanceUpdated, actor.ID, updated.ID, updated)
	return updated, nil
}

// Delete removes a record together with its attachments.
func (s *MaintenanceService) Delete(ctx context.Context, actor types.User, id int) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	attachments, err := s.attachments.ListByRecord(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("maintenance record")
		}
		return err
	}
	for _, a := range attachments {
		s.removeBlob(ctx, a.ObjectKey)
	}

	s.events.Publish(ctx, types.EventMaintenanceDeleted, actor.ID, id, nil)
	return nil
}

// AddAttachment stores a document for recordID. The caller must be able to
// see the record's equipment.
func (s *MaintenanceService) AddAttachment(ctx context.Context, actor types.User, recordID int, upload AttachmentUpload) (types.MaintenanceAttachment, error) {
	if s.blobs == nil {
		return types.MaintenanceAttachment{}, ErrStorageDisabled
	}
	if _, err := s.visibleRecord(ctx, actor, recordID); err != nil {
		return types.MaintenanceAttachment{}, err
	}

	filename := path.Base(strings.ReplaceAll(strings.TrimSpace(upload.Filename), "\\", "/"))
	if filename == "" || filename == "." || filename == "/" {
		return types.MaintenanceAttachment{}, invalid("file name is required")
	}
	if upload.Size <= 0 {
		return types.MaintenanceAttachment{}, invalid("file is empty")
	}
	if upload.Size > MaxAttachmentSize {
		return types.MaintenanceAttachment{}, invalid("file exceeds %d MiB", MaxAttachmentSize>>20)
	}
	contentType := strings.TrimSpace(upload.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := storage.AttachmentKey(recordID, filename)
	if err := s.blobs.PutAttachment(ctx, key, upload.Body, upload.Size, contentType); err != nil {
		return types.MaintenanceAttachment{}, err
	}

	attachment, err := s.attachments.Create(ctx, types.MaintenanceAttachment{
		RecordID:    recordID,
		ObjectKey:   key,
		Filename:    filename,
		ContentType: contentType,
		Size:        upload.Size,
		UploadedBy:  actor.ID,
	})
	if err != nil {
		s.removeBlob(ctx, key)
		return types.MaintenanceAttachment{}, err
	}
	return attachment, nil
}

func (s *MaintenanceService) ListAttachments(ctx context.Context, actor types.User, recordID int) ([]types.MaintenanceAttachment, error) {
	if _, err := s.visibleRecord(ctx, actor, recordID); err != nil {
		return nil, err
	}
	return s.attachments.ListByRecord(ctx, recordID)
}

// OpenAttachment returns the metadata and content of one attachment. The
// caller closes the reader.
func (s *MaintenanceService) OpenAttachment(ctx context.Context, actor types.User, recordID, attachmentID int) (types.MaintenanceAttachment, io.ReadCloser, error) {
	if s.blobs == nil {
		return types.MaintenanceAttachment{}, nil, ErrStorageDisabled
	}
	if _, err := s.visibleRecord(ctx, actor, recordID); err != nil {
		return types.MaintenanceAttachment{}, nil, err
	}
	attachment, err := s.attachment(ctx, recordID, attachmentID)
	if err != nil {
		return types.MaintenanceAttachment{}, nil, err
	}

	body, err := s.blobs.OpenAttachment(ctx, attachment.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return types.MaintenanceAttachment{}, nil, notFound("attachment content")
		}
		return types.MaintenanceAttachment{}, nil, err
	}
	return attachment, body, nil
}

func (s *MaintenanceService) DeleteAttachment(ctx context.Context, actor types.User, recordID, attachmentID int) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if s.blobs == nil {
		return ErrStorageDisabled
	}
	attachment, err := s.attachment(ctx, recordID, attachmentID)
	if err != nil {
		return err
	}
	if err := s.attachments.Delete(ctx, attachment.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("attachment")
		}
		return err
	}
	s.removeBlob(ctx, attachment.ObjectKey)
	return nil
}

func (s *MaintenanceService) lookup(ctx context.Context, id int) (types.MaintenanceRecord, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.MaintenanceRecord{}, notFound("maintenance record")
		}
		return types.MaintenanceRecord{}, err
	}
	return record, nil
}

// visibleEquipment loads equipmentID and checks the caller may act on its
// maintenance history.
func (s *MaintenanceService) visibleEquipment(ctx context.Context, actor types.User, equipmentID int) (types.Equipment, error) {
	equipment, err := s.equipment.Get(ctx, equipmentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Equipment{}, notFound("equipment")
		}
		return types.Equipment{}, err
	}
	if !canSee(actor, equipment) {
		return types.Equipment{}, withMessage(ErrForbidden, "access denied to the maintenance history of this equipment")
	}
	return equipment, nil
}

// visibleRecord loads recordID and applies the visibility of its equipment.
// Records whose equipment no longer exists are visible to administrators only.
func (s *MaintenanceService) visibleRecord(ctx context.Context, actor types.User, recordID int) (types.MaintenanceRecord, error) {
	record, err := s.lookup(ctx, recordID)
	if err != nil {
		return types.MaintenanceRecord{}, err
	}
	if actor.IsAdmin() {
		return record, nil
	}
	if _, err := s.visibleEquipment(ctx, actor, record.EquipmentID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return types.MaintenanceRecord{}, ErrForbidden
		}
		return types.MaintenanceRecord{}, err
	}
	return record, nil
}

func (s *MaintenanceService) attachment(ctx context.Context, recordID, attachmentID int) (types.MaintenanceAttachment, error) {
	attachment, err := s.attachments.Get(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.MaintenanceAttachment{}, notFound("attachment")
		}
		return types.MaintenanceAttachment{}, err
	}
	if attachment.RecordID != recordID {
		return types.MaintenanceAttachment{}, notFound("attachment")
	}
	return attachment, nil
}

func (s *MaintenanceService) removeBlob(ctx context.Context, key string) {
	if s.blobs == nil {
		return
	}
	if err := s.blobs.RemoveAttachment(ctx, key); err != nil {
		s.log.Warn(ctx, "remove attachment blob", "key", key, "error", err)
	}
}
