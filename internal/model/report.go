package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaintenanceReport records one service visit on one piece of equipment.
type MaintenanceReport struct {
	Base
	EquipmentID  uuid.UUID  `json:"equipment_id" db:"equipment_id"`
	ClientID     uuid.UUID  `json:"client_id" db:"client_id"`
	TechnicianID uuid.UUID  `json:"technician_id" db:"technician_id"`
	WorkOrderID  *uuid.UUID `json:"work_order_id,omitempty" db:"work_order_id"`
	ServiceDate  time.Time  `json:"service_date" db:"service_date"`
	Data         ReportData `json:"data" db:"data"`
}

// ReportData is the semi-structured body of a report, stored as JSONB.
// Every section is optional; the PDF skips absent ones.
type ReportData struct {
	Measurements  []Measurement   `json:"measurements,omitempty" validate:"dive"`
	Checklist     []ChecklistItem `json:"checklist,omitempty" validate:"dive"`
	PartsReplaced []Part          `json:"parts_replaced,omitempty" validate:"dive"`

	Softener       *SoftenerSection       `json:"softener,omitempty"`
	ReverseOsmosis *ReverseOsmosisSection `json:"reverse_osmosis,omitempty"`

	Observations    string `json:"observations,omitempty"`
	Recommendations string `json:"recommendations,omitempty"`

	// Signatures are base64-encoded PNG images, with or without a data URL prefix.
	TechnicianSignature string `json:"technician_signature,omitempty"`
	ClientSignature     string `json:"client_signature,omitempty"`
	ClientSignerName    string `json:"client_signer_name,omitempty"`
}

// Measurement is one As Found / As Left pair.
type Measurement struct {
	Parameter string   `json:"parameter" validate:"required"`
	Unit      string   `json:"unit"`
	AsFound   *float64 `json:"as_found,omitempty"`
	AsLeft    *float64 `json:"as_left,omitempty"`
}

// ChecklistItem is a task the technician ticks during the visit.
type ChecklistItem struct {
	Label string `json:"label" validate:"required"`
	Done  bool   `json:"done"`
	Note  string `json:"note,omitempty"`
}

// Part is a replaced component.
type Part struct {
	Name     string  `json:"name" validate:"required"`
	Code     string  `json:"code,omitempty"`
	Quantity float64 `json:"quantity" validate:"gt=0"`
}

// SoftenerSection holds data specific to ion-exchange softeners.
type SoftenerSection struct {
	ResinType         string   `json:"resin_type,omitempty"`
	SaltLevelPct      *float64 `json:"salt_level_pct,omitempty" validate:"omitempty,gte=0,lte=100"`
	RegenerationCycle string   `json:"regeneration_cycle,omitempty"`
	HardnessIn        *float64 `json:"hardness_in,omitempty" validate:"omitempty,gte=0"`
	HardnessOut       *float64 `json:"hardness_out,omitempty" validate:"omitempty,gte=0"`
	BrineTankCleaned  bool     `json:"brine_tank_cleaned"`
}

// ReverseOsmosisSection holds data specific to RO systems.
type ReverseOsmosisSection struct {
	Membranes         []Membrane `json:"membranes,omitempty" validate:"dive"`
	PrefilterChanged  bool       `json:"prefilter_changed"`
	PostfilterChanged bool       `json:"postfilter_changed"`
	PermeateFlowLPM   *float64   `json:"permeate_flow_lpm,omitempty" validate:"omitempty,gte=0"`
	RejectFlowLPM     *float64   `json:"reject_flow_lpm,omitempty" validate:"omitempty,gte=0"`
	FeedTDS           *float64   `json:"feed_tds,omitempty" validate:"omitempty,gte=0"`
	PermeateTDS       *float64   `json:"permeate_tds,omitempty" validate:"omitempty,gte=0"`
}

// Membrane is one RO membrane housing.
type Membrane struct {
	Position int    `json:"position" validate:"gte=1"`
	Serial   string `json:"serial,omitempty"`
	Replaced bool   `json:"replaced"`
}

// RecoveryPct is permeate / (permeate + reject) * 100.
func (r ReverseOsmosisSection) RecoveryPct() (float64, bool) {
	if r.PermeateFlowLPM == nil || r.RejectFlowLPM == nil {
		return 0, false
	}
	total := *r.PermeateFlowLPM + *r.RejectFlowLPM
	if total <= 0 {
		return 0, false
	}
	return *r.PermeateFlowLPM / total * 100, true
}

// RejectionPct is the salt rejection: (1 - permeate TDS / feed TDS) * 100.
func (r ReverseOsmosisSection) RejectionPct() (float64, bool) {
	if r.FeedTDS == nil || r.PermeateTDS == nil || *r.FeedTDS <= 0 {
		return 0, false
	}
	return (1 - *r.PermeateTDS / *r.FeedTDS) * 100, true
}

// CheckEquipmentType verifies that the type-specific section matches the
// equipment type. A report may omit its section, never carry the other one.
func (d ReportData) CheckEquipmentType(t EquipmentType) error {
	switch t {
	case EquipmentSoftener:
		if d.ReverseOsmosis != nil {
			return fmt.Errorf("reverse osmosis section not allowed on a softener report")
		}
	case EquipmentReverseOsmosis:
		if d.Softener != nil {
			return fmt.Errorf("softener section not allowed on a reverse osmosis report")
		}
	default:
		return fmt.Errorf("unknown equipment type %q", t)
	}
	return nil
}

// ReportDocument is everything the PDF renderer needs, fetched in one go.
type ReportDocument struct {
	Report     MaintenanceReport
	Equipment  Equipment
	Client     Client
	Technician Technician
}
