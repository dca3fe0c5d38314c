package services

import (
	"context"
	"errors"
	"strings"

	"github.com/itparc/inventory/internal/store"
	"github.com/itparc/inventory/types"
)

// EquipmentInput creates a piece of equipment. AssignedTo is a username; an
// empty value leaves the equipment unassigned.
type EquipmentInput struct {
	Name            string                `json:"name"`
	Type            types.EquipmentType   `json:"type"`
	SerialNumber    string                `json:"serialNumber"`
	Manufacturer    string                `json:"manufacturer"`
	Model           string                `json:"model"`
	PurchaseDate    types.Date            `json:"purchaseDate"`
	WarrantyEndDate types.Date            `json:"warrantyEndDate"`
	Status          types.EquipmentStatus `json:"status"`
	AssignedTo      string                `json:"assignedTo"`
	Location        string                `json:"location"`
	Notes           string                `json:"notes"`
}

// EquipmentUpdate is a partial update: empty values keep what is stored.
// Notes distinguishes absent (nil, unchanged) from empty (cleared). An
// absent AssignedTo keeps the assignment, null or empty unassigns, and any
// other value is a username.
type EquipmentUpdate struct {
	Name            string                 `json:"name"`
	Type            types.EquipmentType    `json:"type"`
	SerialNumber    string                 `json:"serialNumber"`
	Manufacturer    string                 `json:"manufacturer"`
	Model           string                 `json:"model"`
	PurchaseDate    types.Date             `json:"purchaseDate"`
	WarrantyEndDate types.Date             `json:"warrantyEndDate"`
	Status          types.EquipmentStatus  `json:"status"`
	AssignedTo      types.Optional[string] `json:"assignedTo"`
	Location        string                 `json:"location"`
	Notes           *string                `json:"notes"`
}

// EquipmentService encapsulates equipment use-cases.
type EquipmentService struct {
	repo   EquipmentRepository
	users  UserRepository
	events EventPublisher
}

func NewEquipmentService(repo EquipmentRepository, users UserRepository, events EventPublisher) *EquipmentService {
	return &EquipmentService{repo: repo, users: users, events: publisherOrNop(events)}
}

func canSee(actor types.User, equipment types.Equipment) bool {
	return actor.IsAdmin() || equipment.IsAssignedTo(actor.ID)
}

func requireAdmin(actor types.User) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// List returns all equipment to administrators and only the caller's
// assigned equipment to everyone else.
func (s *EquipmentService) List(ctx context.Context, actor types.User) ([]types.Equipment, error) {
	if actor.IsAdmin() {
		return s.repo.List(ctx)
	}
	return s.repo.ListAssignedTo(ctx, actor.ID)
}

func (s *EquipmentService) Get(ctx context.Context, actor types.User, id int) (types.Equipment, error) {
	equipment, err := s.lookup(ctx, id)
	if err != nil {
		return types.Equipment{}, err
	}
	if !canSee(actor, equipment) {
		return types.Equipment{}, withMessage(ErrForbidden, "access denied to this equipment")
	}
	return equipment, nil
}

func (s *EquipmentService) Create(ctx context.Context, actor types.User, in EquipmentInput) (types.Equipment, error) {
	if err := requireAdmin(actor); err != nil {
		return types.Equipment{}, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.SerialNumber = strings.TrimSpace(in.SerialNumber)
	if in.Name == "" || in.Type == "" || in.SerialNumber == "" {
		return types.Equipment{}, invalid("name, type and serialNumber are required")
	}
	if !in.Type.Valid() {
		return types.Equipment{}, invalid("unknown equipment type %q", in.Type)
	}
	if in.Status == "" {
		in.Status = types.StatusInService
	}
	if !in.Status.Valid() {
		return types.Equipment{}, invalid("unknown equipment status %q", in.Status)
	}

	if err := s.ensureSerialFree(ctx, in.SerialNumber, 0); err != nil {
		return types.Equipment{}, err
	}

	assignee, err := s.resolveAssignee(ctx, in.AssignedTo)
	if err != nil {
		return types.Equipment{}, err
	}

	actorID := actor.ID
	equipment, err := s.repo.Create(ctx, types.Equipment{
		Name:            in.Name,
		Type:            in.Type,
		SerialNumber:    in.SerialNumber,
		Manufacturer:    strings.TrimSpace(in.Manufacturer),
		Model:           strings.TrimSpace(in.Model),
		PurchaseDate:    in.PurchaseDate.Ptr(),
		WarrantyEndDate: in.WarrantyEndDate.Ptr(),
		Status:          in.Status,
		AssignedTo:      assignee,
		Location:        strings.TrimSpace(in.Location),
		Notes:           strings.TrimSpace(in.Notes),
		CreatedBy:       actor.ID,
		UpdatedBy:       &actorID,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.Equipment{}, ErrDuplicateSerial
		}
		return types.Equipment{}, err
	}

	s.events.Publish(ctx, types.EventEquipmentCreated, actor.ID, equipment.ID, equipment)
	return equipment, nil
}

func (s *EquipmentService) Update(ctx context.Context, actor types.User, id int, in EquipmentUpdate) (types.Equipment, error) {
	if err := requireAdmin(actor); err != nil {
		return types.Equipment{}, err
	}

	equipment, err := s.lookup(ctx, id)
	if err != nil {
		return types.Equipment{}, err
	}

	if serial := strings.TrimSpace(in.SerialNumber); serial != "" && serial != equipment.SerialNumber {
		if err := s.ensureSerialFree(ctx, serial, equipment.ID); err != nil {
			return types.Equipment{}, err
		}
		equipment.SerialNumber = serial
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		equipment.Name = name
	}
	if in.Type != "" {
		if !in.Type.Valid() {
			return types.Equipment{}, invalid("unknown equipment type %q", in.Type)
		}
		equipment.Type = in.Type
	}
	if in.Status != "" {
		if !in.Status.Valid() {
			return types.Equipment{}, invalid("unknown equipment status %q", in.Status)
		}
		equipment.Status = in.Status
	}
	if v := strings.TrimSpace(in.Manufacturer); v != "" {
		equipment.Manufacturer = v
	}
	if v := strings.TrimSpace(in.Model); v != "" {
		equipment.Model = v
	}
	if v := strings.TrimSpace(in.Location); v != "" {
		equipment.Location = v
	}
	if d := in.PurchaseDate.Ptr(); d != nil {
		equipment.PurchaseDate = d
	}
	if d := in.WarrantyEndDate.Ptr(); d != nil {
		equipment.WarrantyEndDate = d
	}
	if in.Notes != nil {
		equipment.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.AssignedTo.Set {
		assignee, err := s.resolveAssignee(ctx, in.AssignedTo.Value)
		if err != nil {
			return types.Equipment{}, err
		}
		equipment.AssignedTo = assignee
	}

	actorID := actor.ID
	equipment.UpdatedBy = &actorID

	updated, err := s.repo.Update(ctx, equipment)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return types.Equipment{}, withMessage(ErrDuplicateSerial, "another equipment already uses this serial number")
		case errors.Is(err, store.ErrNotFound):
			return types.Equipment{}, notFound("equipment")
		}
		return types.Equipment{}, err
	}

	s.events.Publish(ctx, types.EventEquipmentUpdated, actor.ID, updated.ID, updated)
	return updated, nil
}

func (s *EquipmentService) Delete(ctx context.Context, actor types.User, id int) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("equipment")
		}
		return err
	}
	s.events.Publish(ctx, types.EventEquipmentDeleted, actor.ID, id, nil)
	return nil
}

func (s *EquipmentService) lookup(ctx context.Context, id int) (types.Equipment, error) {
	equipment, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Equipment{}, notFound("equipment")
		}
		return types.Equipment{}, err
	}
	return equipment, nil
}

// ensureSerialFree fails when serial belongs to equipment other than selfID.
func (s *EquipmentService) ensureSerialFree(ctx context.Context, serial string, selfID int) error {
	existing, err := s.repo.GetBySerial(ctx, serial)
	switch {
	case err == nil && existing.ID != selfID:
		if selfID == 0 {
			return ErrDuplicateSerial
		}
		return withMessage(ErrDuplicateSerial, "another equipment already uses this serial number")
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	}
	return nil
}

// resolveAssignee maps a username to a user id. An empty username unassigns.
func (s *EquipmentService) resolveAssignee(ctx context.Context, username string) (*int, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAssigneeNotFound
		}
		return nil, err
	}
	id := user.ID
	return &id, nil
}
