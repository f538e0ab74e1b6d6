package service

import (
	"context"
	"strings"

	"github.com/deppfellow/aquaservice/internal/errs"
	"github.com/deppfellow/aquaservice/internal/lib/geo"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/repository"
	"github.com/deppfellow/aquaservice/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type technicianStore interface {
	List(ctx context.Context, f repository.TechnicianFilter, page model.Page) (model.List[model.Technician], error)
	ListActive(ctx context.Context) ([]model.Technician, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Technician, error)
	Create(ctx context.Context, t *model.Technician) (*model.Technician, error)
	Update(ctx context.Context, t *model.Technician) (*model.Technician, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TechnicianService manages technicians and ranks them for a visit.
type TechnicianService struct {
	technicians technicianStore
	locator     locator
}

func NewTechnicianService(technicians technicianStore, geocoder Geocoder, logger *zerolog.Logger) *TechnicianService {
	return &TechnicianService{technicians: technicians, locator: locator{geocoder: geocoder, logger: logger}}
}

type TechnicianInput struct {
	Name      string   `json:"name" validate:"required,max=200"`
	Email     string   `json:"email" validate:"required,email"`
	Phone     string   `json:"phone" validate:"max=50"`
	Address   string   `json:"address" validate:"max=300"`
	Skills    []string `json:"skills" validate:"max=50,dive,skill"`
	Active    *bool    `json:"active"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

func (i *TechnicianInput) Validate() error {
	i.Email = normalizeEmail(i.Email)
	if err := validation.Struct(i); err != nil {
		return err
	}
	return validateCoordinates(i.Latitude, i.Longitude)
}

func (i *TechnicianInput) apply(t *model.Technician) {
	t.Name = strings.TrimSpace(i.Name)
	t.Email = normalizeEmail(i.Email)
	t.Phone = strings.TrimSpace(i.Phone)
	t.Address = strings.TrimSpace(i.Address)
	t.Skills = model.NormalizeSkills(i.Skills)
	if i.Active != nil {
		t.Active = *i.Active
	}
}

type TechnicianQuery struct {
	Q          string `query:"q"`
	Skill      string `query:"skill"`
	ActiveOnly bool   `query:"active"`
	model.Page
}

func (s *TechnicianService) List(ctx context.Context, q TechnicianQuery) (model.List[model.Technician], error) {
	return s.technicians.List(ctx, repository.TechnicianFilter{
		Query:      q.Q,
		Skill:      strings.ToLower(strings.TrimSpace(q.Skill)),
		ActiveOnly: q.ActiveOnly,
	}, q.Page)
}

func (s *TechnicianService) Get(ctx context.Context, id uuid.UUID) (*model.Technician, error) {
	return s.technicians.Get(ctx, id)
}

// Create stores a technician, active unless stated otherwise.
func (s *TechnicianService) Create(ctx context.Context, in *TechnicianInput, geocode bool) (*model.Technician, error) {
	tech := &model.Technician{Active: true}
	in.apply(tech)

	tech.Latitude, tech.Longitude = in.Latitude, in.Longitude
	if tech.Latitude == nil && geocode {
		if lat, lng, ok := s.locator.locate(ctx, tech.Address); ok {
			tech.Latitude, tech.Longitude = lat, lng
		}
	}

	return s.technicians.Create(ctx, tech)
}

func (s *TechnicianService) Update(ctx context.Context, id uuid.UUID, in *TechnicianInput) (*model.Technician, error) {
	tech, err := s.technicians.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	previousAddress := tech.Address
	in.apply(tech)

	switch {
	case in.Latitude != nil:
		tech.Latitude, tech.Longitude = in.Latitude, in.Longitude
	case tech.Address != previousAddress || tech.Latitude == nil:
		if lat, lng, ok := s.locator.locate(ctx, tech.Address); ok {
			tech.Latitude, tech.Longitude = lat, lng
		}
	}

	return s.technicians.Update(ctx, tech)
}

func (s *TechnicianService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.technicians.Delete(ctx, id)
}

type MatchInput struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
	Skills    []string `json:"skills" validate:"max=50,dive,skill"`
	Limit     int      `json:"limit" validate:"omitempty,min=1,max=100"`
}

func (i *MatchInput) Validate() error { return validation.Struct(i) }

// Match ranks active technicians for a location and skill set.
func (s *TechnicianService) Match(ctx context.Context, in *MatchInput) ([]geo.Match, error) {
	return s.rank(ctx, model.Coordinates{Lat: *in.Latitude, Lng: *in.Longitude}, in.Skills, in.Limit)
}

func (s *TechnicianService) rank(ctx context.Context, target model.Coordinates, skills []string, limit int) ([]geo.Match, error) {
	if !geo.ValidCoordinates(target) {
		return nil, errs.NewBadRequestError("Invalid target coordinates", true, nil, nil, nil)
	}

	technicians, err := s.technicians.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	matches := geo.RankTechnicians(target, model.NormalizeSkills(skills), technicians, limit)
	if matches == nil {
		matches = []geo.Match{}
	}
	return matches, nil
}
