package model

import (
	"time"

	"github.com/google/uuid"
)

// EquipmentType selects which report branch applies to a piece of equipment.
type EquipmentType string

const (
	EquipmentSoftener       EquipmentType = "softener"
	EquipmentReverseOsmosis EquipmentType = "reverse_osmosis"
)

// Label is the human name printed on documents.
func (t EquipmentType) Label() string {
	switch t {
	case EquipmentSoftener:
		return "Water Softener"
	case EquipmentReverseOsmosis:
		return "Reverse Osmosis System"
	default:
		return string(t)
	}
}

// Valid reports whether t is a known equipment type.
func (t EquipmentType) Valid() bool {
	return t == EquipmentSoftener || t == EquipmentReverseOsmosis
}

// Equipment is a treatment unit installed at a client site.
type Equipment struct {
	Base
	ClientID     uuid.UUID     `json:"client_id" db:"client_id"`
	Type         EquipmentType `json:"type" db:"type"`
	Brand        string        `json:"brand" db:"brand"`
	Model        string        `json:"model" db:"model"`
	SerialNumber string        `json:"serial_number" db:"serial_number"`
	InstalledAt  *time.Time    `json:"installed_at,omitempty" db:"installed_at"`
	Location     string        `json:"location" db:"location"`
	Notes        string        `json:"notes" db:"notes"`
}
