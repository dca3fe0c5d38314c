package types

import "time"

// EquipmentType classifies a piece of equipment.
type EquipmentType string

const (
	EquipmentComputer EquipmentType = "computer"
	EquipmentPrinter  EquipmentType = "printer"
	EquipmentServer   EquipmentType = "server"
	EquipmentNetwork  EquipmentType = "network"
	EquipmentOther    EquipmentType = "other"
)

// Valid reports whether t is one of the known equipment types.
func (t EquipmentType) Valid() bool {
	switch t {
	case EquipmentComputer, EquipmentPrinter, EquipmentServer, EquipmentNetwork, EquipmentOther:
		return true
	}
	return false
}

// EquipmentStatus is the operational state of a piece of equipment.
type EquipmentStatus string

const (
	StatusInService      EquipmentStatus = "in-service"
	StatusFaulty         EquipmentStatus = "faulty"
	StatusInMaintenance  EquipmentStatus = "in-maintenance"
	StatusDecommissioned EquipmentStatus = "decommissioned"
)

// Valid reports whether s is one of the known equipment statuses.
func (s EquipmentStatus) Valid() bool {
	switch s {
	case StatusInService, StatusFaulty, StatusInMaintenance, StatusDecommissioned:
		return true
	}
	return false
}

// Equipment represents an inventoried asset.
// AssignedTo, CreatedBy and UpdatedBy are weak references to users: they are
// never cascaded and may point at accounts that no longer exist.
type Equipment struct {
	// ID is the unique identifier of the equipment.
	ID int `json:"id" db:"id"`

	// Name is the human-readable label of the equipment.
	Name string `json:"name" db:"name"`

	// Type classifies the equipment.
	Type EquipmentType `json:"type" db:"type"`

	// SerialNumber is globally unique across all equipment.
	SerialNumber string `json:"serialNumber" db:"serial_number"`

	Manufacturer string `json:"manufacturer,omitempty" db:"manufacturer"`
	Model        string `json:"model,omitempty" db:"model"`

	PurchaseDate    *time.Time `json:"purchaseDate,omitempty" db:"purchase_date"`
	WarrantyEndDate *time.Time `json:"warrantyEndDate,omitempty" db:"warranty_end_date"`

	// Status is the operational state, "in-service" by default.
	Status EquipmentStatus `json:"status" db:"status"`

	// AssignedTo is the id of the user the equipment is assigned to, if any.
	AssignedTo *int `json:"assignedTo" db:"assigned_to"`

	// AssignedToUsername is resolved from AssignedTo on every read.
	// It is empty when the equipment is unassigned or the user was deleted.
	AssignedToUsername string `json:"assignedToUsername,omitempty" db:"-"`

	Location string `json:"location,omitempty" db:"location"`
	Notes    string `json:"notes,omitempty" db:"notes"`

	// CreatedBy is the admin who registered the equipment.
	CreatedBy int `json:"createdBy" db:"created_by"`

	// UpdatedBy is the last admin who modified the equipment.
	UpdatedBy *int `json:"updatedBy,omitempty" db:"updated_by"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// IsAssignedTo reports whether the equipment is currently assigned to userID.
func (e Equipment) IsAssignedTo(userID int) bool {
	return e.AssignedTo != nil && *e.AssignedTo == userID
}

// EquipmentRef is the expanded form of an equipment reference.
type EquipmentRef struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	SerialNumber string `json:"serialNumber"`
}
