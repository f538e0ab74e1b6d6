package service

import (
	"context"
	"strings"
	"time"

	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/validation"
	"github.com/google/uuid"
)

type equipmentStore interface {
	List(ctx context.Context, clientID *uuid.UUID, page model.Page) (model.List[model.Equipment], error)
	Get(ctx context.Context, id uuid.UUID) (*model.Equipment, error)
	Create(ctx context.Context, e *model.Equipment) (*model.Equipment, error)
	Update(ctx context.Context, e *model.Equipment) (*model.Equipment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EquipmentService manages equipment installed at client sites.
type EquipmentService struct {
	equipment equipmentStore
}

func NewEquipmentService(equipment equipmentStore) *EquipmentService {
	return &EquipmentService{equipment: equipment}
}

type EquipmentInput struct {
	ClientID     uuid.UUID           `json:"client_id" validate:"required"`
	Type         model.EquipmentType `json:"type" validate:"required,oneof=softener reverse_osmosis"`
	Brand        string              `json:"brand" validate:"max=100"`
	Model        string              `json:"model" validate:"max=100"`
	SerialNumber string              `json:"serial_number" validate:"max=100"`
	InstalledAt  *time.Time          `json:"installed_at"`
	Location     string              `json:"location" validate:"max=200"`
	Notes        string              `json:"notes" validate:"max=2000"`
}

func (i *EquipmentInput) Validate() error { return validation.Struct(i) }

func (i *EquipmentInput) apply(e *model.Equipment) {
	e.Type = i.Type
	e.Brand = strings.TrimSpace(i.Brand)
	e.Model = strings.TrimSpace(i.Model)
	e.SerialNumber = strings.TrimSpace(i.SerialNumber)
	e.InstalledAt = i.InstalledAt
	e.Location = strings.TrimSpace(i.Location)
	e.Notes = i.Notes
}

func (s *EquipmentService) List(ctx context.Context, clientID *uuid.UUID, page model.Page) (model.List[model.Equipment], error) {
	return s.equipment.List(ctx, clientID, page)
}

func (s *EquipmentService) Get(ctx context.Context, id uuid.UUID) (*model.Equipment, error) {
	return s.equipment.Get(ctx, id)
}

// Create stores equipment; an unknown client surfaces as a foreign key error.
func (s *EquipmentService) Create(ctx context.Context, in *EquipmentInput) (*model.Equipment, error) {
	e := &model.Equipment{ClientID: in.ClientID}
	in.apply(e)
	return s.equipment.Create(ctx, e)
}

// Update replaces equipment fields. Equipment never moves between clients.
func (s *EquipmentService) Update(ctx context.Context, id uuid.UUID, in *EquipmentInput) (*model.Equipment, error) {
	e, err := s.equipment.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(e)
	return s.equipment.Update(ctx, e)
}

func (s *EquipmentService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.equipment.Delete(ctx, id)
}
