// Package servicestest provides in-memory implementations of the service
// repositories for tests. Unique constraints behave like the PostgreSQL
// indexes: violating writes fail with an error matching store.ErrConflict.
package servicestest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/itparc/inventory/internal/storage"
	"github.com/itparc/inventory/internal/store"
	"github.com/itparc/inventory/types"
)

// Store holds every table. Its accessors share the same state so joins
// (assignee username, performer, equipment reference) resolve like SQL reads.
type Store struct {
	mu          sync.Mutex
	users       map[int]types.User
	equipment   map[int]types.Equipment
	records     map[int]types.MaintenanceRecord
	attachments map[int]types.MaintenanceAttachment
	lastID      int
	clock       time.Time
}

func New() *Store {
	return &Store{
		users:       map[int]types.User{},
		equipment:   map[int]types.Equipment{},
		records:     map[int]types.MaintenanceRecord{},
		attachments: map[int]types.MaintenanceAttachment{},
		clock:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *Store) Users() *Users             { return &Users{s} }
func (s *Store) Equipment() *Equipment     { return &Equipment{s} }
func (s *Store) Maintenance() *Maintenance { return &Maintenance{s} }
func (s *Store) Attachments() *Attachments { return &Attachments{s} }

// tick returns a strictly increasing timestamp. Callers hold mu.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *Store) nextID() int {
	s.lastID++
	return s.lastID
}

func conflict(constraint string) error {
	return &store.ConflictError{Constraint: constraint, Err: errors.New("duplicate key value violates unique constraint")}
}

// Users implements services.UserRepository.
type Users struct{ s *Store }

func (r *Users) List(_ context.Context) ([]types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	users := make([]types.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID > users[j].ID
	})
	return users, nil
}

func (r *Users) GetByID(_ context.Context, id int) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *Users) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *Users) FindByUsernameOrEmail(_ context.Context, username, email string) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == username || u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *Users) CountByRole(_ context.Context, role types.Role) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for _, u := range r.s.users {
		if u.Role == role {
			count++
		}
	}
	return count, nil
}

func (r *Users) Create(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.checkUnique(user); err != nil {
		return types.User{}, err
	}
	user.ID = r.s.nextID()
	user.CreatedAt = r.s.tick()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = user
	return user, nil
}

func (r *Users) Update(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	if err := r.checkUnique(user); err != nil {
		return types.User{}, err
	}
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = r.s.tick()
	r.s.users[user.ID] = user
	return user, nil
}

func (r *Users) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

func (r *Users) checkUnique(user types.User) error {
	for _, u := range r.s.users {
		if u.ID == user.ID {
			continue
		}
		if u.Username == user.Username {
			return conflict("users_username_key")
		}
		if u.Email == user.Email {
			return conflict("users_email_key")
		}
	}
	return nil
}

// Equipment implements services.EquipmentRepository.
type Equipment struct{ s *Store }

// resolve fills the joined assignee username. Callers hold mu.
func (r *Equipment) resolve(e types.Equipment) types.Equipment {
	e.AssignedToUsername = ""
	if e.AssignedTo != nil {
		if u, ok := r.s.users[*e.AssignedTo]; ok {
			e.AssignedToUsername = u.Username
		}
	}
	return e
}

func (r *Equipment) filter(keep func(types.Equipment) bool) []types.Equipment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	items := make([]types.Equipment, 0)
	for _, e := range r.s.equipment {
		if keep(e) {
			items = append(items, r.resolve(e))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (r *Equipment) List(_ context.Context) ([]types.Equipment, error) {
	return r.filter(func(types.Equipment) bool { return true }), nil
}

func (r *Equipment) ListAssignedTo(_ context.Context, userID int) ([]types.Equipment, error) {
	return r.filter(func(e types.Equipment) bool { return e.IsAssignedTo(userID) }), nil
}

func (r *Equipment) Get(_ context.Context, id int) (types.Equipment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.equipment[id]
	if !ok {
		return types.Equipment{}, store.ErrNotFound
	}
	return r.resolve(e), nil
}

func (r *Equipment) GetBySerial(_ context.Context, serial string) (types.Equipment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.equipment {
		if e.SerialNumber == serial {
			return r.resolve(e), nil
		}
	}
	return types.Equipment{}, store.ErrNotFound
}

func (r *Equipment) Create(_ context.Context, equipment types.Equipment) (types.Equipment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.checkUnique(equipment); err != nil {
		return types.Equipment{}, err
	}
	equipment.ID = r.s.nextID()
	equipment.CreatedAt = r.s.tick()
	equipment.UpdatedAt = equipment.CreatedAt
	r.s.equipment[equipment.ID] = equipment
	return r.resolve(equipment), nil
}

func (r *Equipment) Update(_ context.Context, equipment types.Equipment) (types.Equipment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.equipment[equipment.ID]
	if !ok {
		return types.Equipment{}, store.ErrNotFound
	}
	if err := r.checkUnique(equipment); err != nil {
		return types.Equipment{}, err
	}
	equipment.CreatedAt = current.CreatedAt
	equipment.CreatedBy = current.CreatedBy
	equipment.UpdatedAt = r.s.tick()
	r.s.equipment[equipment.ID] = equipment
	return r.resolve(equipment), nil
}

func (r *Equipment) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.equipment[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.equipment, id)
	return nil
}

func (r *Equipment) checkUnique(equipment types.Equipment) error {
	for _, e := range r.s.equipment {
		if e.ID != equipment.ID && e.SerialNumber == equipment.SerialNumber {
			return conflict("equipment_serial_number_key")
		}
	}
	return nil
}

// Maintenance implements services.MaintenanceRepository.
type Maintenance struct{ s *Store }

// resolve expands the performer and equipment references. Callers hold mu.
func (r *Maintenance) resolve(m types.MaintenanceRecord) types.MaintenanceRecord {
	m.PerformedBy, m.Equipment = nil, nil
	if u, ok := r.s.users[m.PerformedByID]; ok {
		m.PerformedBy = &types.UserRef{ID: u.ID, Username: u.Username, Email: u.Email}
	}
	if e, ok := r.s.equipment[m.EquipmentID]; ok {
		m.Equipment = &types.EquipmentRef{ID: e.ID, Name: e.Name, SerialNumber: e.SerialNumber}
	}
	return m
}

func (r *Maintenance) ListByEquipment(_ context.Context, equipmentID int) ([]types.MaintenanceRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	records := make([]types.MaintenanceRecord, 0)
	for _, m := range r.s.records {
		if m.EquipmentID == equipmentID {
			records = append(records, r.resolve(m))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].MaintenanceDate.Equal(records[j].MaintenanceDate) {
			return records[i].MaintenanceDate.After(records[j].MaintenanceDate)
		}
		return records[i].ID > records[j].ID
	})
	return records, nil
}

func (r *Maintenance) Get(_ context.Context, id int) (types.MaintenanceRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.records[id]
	if !ok {
		return types.MaintenanceRecord{}, store.ErrNotFound
	}
	return r.resolve(m), nil
}

func (r *Maintenance) Create(_ context.Context, record types.MaintenanceRecord) (types.MaintenanceRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	record.ID = r.s.nextID()
	record.CreatedAt = r.s.tick()
	record.UpdatedAt = record.CreatedAt
	r.s.records[record.ID] = record
	return r.resolve(record), nil
}

func (r *Maintenance) Update(_ context.Context, record types.MaintenanceRecord) (types.MaintenanceRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.records[record.ID]
	if !ok {
		return types.MaintenanceRecord{}, store.ErrNotFound
	}
	current.MaintenanceDate = record.MaintenanceDate
	current.Description = record.Description
	current.Cost = record.Cost
	current.Notes = record.Notes
	current.UpdatedAt = r.s.tick()
	r.s.records[record.ID] = current
	return r.resolve(current), nil
}

// Delete cascades to attachments like the foreign key does.
func (r *Maintenance) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.records[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.records, id)
	for aid, a := range r.s.attachments {
		if a.RecordID == id {
			delete(r.s.attachments, aid)
		}
	}
	return nil
}

// Attachments implements services.AttachmentRepository.
type Attachments struct{ s *Store }

func (r *Attachments) ListByRecord(_ context.Context, recordID int) ([]types.MaintenanceAttachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	items := make([]types.MaintenanceAttachment, 0)
	for _, a := range r.s.attachments {
		if a.RecordID == recordID {
			items = append(items, a)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *Attachments) Get(_ context.Context, id int) (types.MaintenanceAttachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.attachments[id]
	if !ok {
		return types.MaintenanceAttachment{}, store.ErrNotFound
	}
	return a, nil
}

func (r *Attachments) Create(_ context.Context, attachment types.MaintenanceAttachment) (types.MaintenanceAttachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.records[attachment.RecordID]; !ok {
		return types.MaintenanceAttachment{}, errors.New("violates foreign key constraint")
	}
	attachment.ID = r.s.nextID()
	attachment.CreatedAt = r.s.tick()
	r.s.attachments[attachment.ID] = attachment
	return attachment, nil
}

func (r *Attachments) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.attachments[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.attachments, id)
	return nil
}

// Blobs is an in-memory services.BlobStore.
type Blobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewBlobs() *Blobs {
	return &Blobs{objects: map[string][]byte{}}
}

func (b *Blobs) PutAttachment(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

func (b *Blobs) OpenAttachment(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *Blobs) RemoveAttachment(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

// Len reports how many blobs are stored.
func (b *Blobs) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

// Event is one call recorded by Recorder.
type Event struct {
	Type      types.EventType
	ActorID   int
	SubjectID int
}

// Recorder is a services.EventPublisher that keeps what it was given.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, eventType types.EventType, actorID, subjectID int, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Type: eventType, ActorID: actorID, SubjectID: subjectID})
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
