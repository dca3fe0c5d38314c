package types

import "time"

// MaintenanceRecord is one entry in the maintenance history of a piece of
// equipment.
type MaintenanceRecord struct {
	// ID is the unique identifier of the record.
	ID int `json:"id" db:"id"`

	// EquipmentID references the maintained equipment.
	EquipmentID int `json:"equipmentId" db:"equipment_id"`

	// Equipment is the expanded equipment reference, nil if it no longer exists.
	Equipment *EquipmentRef `json:"equipment,omitempty" db:"-"`

	// MaintenanceDate is when the work was performed.
	MaintenanceDate time.Time `json:"maintenanceDate" db:"maintenance_date"`

	// Description of the work performed. Required.
	Description string `json:"description" db:"description"`

	// PerformedByID is the user who filed the record. It is always the
	// authenticated caller at creation time.
	PerformedByID int `json:"performedById" db:"performed_by"`

	// PerformedBy is the expanded performer, nil if the user no longer exists.
	PerformedBy *UserRef `json:"performedBy,omitempty" db:"-"`

	// Cost of the intervention, 0 by default.
	Cost float64 `json:"cost" db:"cost"`

	Notes string `json:"notes,omitempty" db:"notes"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// MaintenanceAttachment describes a document stored alongside a maintenance
// record. The bytes live in object storage under ObjectKey.
type MaintenanceAttachment struct {
	ID          int       `json:"id" db:"id"`
	RecordID    int       `json:"recordId" db:"record_id"`
	ObjectKey   string    `json:"-" db:"object_key"`
	Filename    string    `json:"filename" db:"filename"`
	ContentType string    `json:"contentType" db:"content_type"`
	Size        int64     `json:"size" db:"size"`
	UploadedBy  int       `json:"uploadedBy" db:"uploaded_by"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
