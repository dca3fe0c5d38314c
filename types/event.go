package types

import (
	"encoding/json"
	"time"
)

// EventType names a domain event published after a successful mutation.
type EventType string

const (
	EventUserCreated        EventType = "user.created"
	EventUserUpdated        EventType = "user.updated"
	EventUserDeleted        EventType = "user.deleted"
	EventEquipmentCreated   EventType = "equipment.created"
	EventEquipmentUpdated   EventType = "equipment.updated"
	EventEquipmentDeleted   EventType = "equipment.deleted"
	EventMaintenanceCreated EventType = "maintenance.created"
	EventMaintenanceUpdated EventType = "maintenance.updated"
	EventMaintenanceDeleted EventType = "maintenance.deleted"
)

// Event is the broker payload describing a change to a resource.
type Event struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	ActorID    int             `json:"actorId,omitempty"`
	SubjectID  int             `json:"subjectId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data,omitempty"`
}
