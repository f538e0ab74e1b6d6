package service

import (
	"context"
	"strings"

	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type clientStore interface {
	List(ctx context.Context, q string, page model.Page) (model.List[model.Client], error)
	Get(ctx context.Context, id uuid.UUID) (*model.Client, error)
	Create(ctx context.Context, c *model.Client) (*model.Client, error)
	Update(ctx context.Context, c *model.Client) (*model.Client, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ClientService manages clients and geocodes their addresses.
type ClientService struct {
	clients clientStore
	locator locator
}

func NewClientService(clients clientStore, geocoder Geocoder, logger *zerolog.Logger) *ClientService {
	return &ClientService{clients: clients, locator: locator{geocoder: geocoder, logger: logger}}
}

type ClientInput struct {
	Name      string   `json:"name" validate:"required,max=200"`
	TaxID     *string  `json:"tax_id" validate:"omitempty,max=32"`
	Email     string   `json:"email" validate:"omitempty,email"`
	Phone     string   `json:"phone" validate:"max=50"`
	Address   string   `json:"address" validate:"max=300"`
	City      string   `json:"city" validate:"max=100"`
	Notes     string   `json:"notes" validate:"max=2000"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

func (i *ClientInput) Validate() error {
	i.Email = normalizeEmail(i.Email)
	if err := validation.Struct(i); err != nil {
		return err
	}
	return validateCoordinates(i.Latitude, i.Longitude)
}

func validateCoordinates(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return validation.CustomValidationErrors{
			{Field: "latitude", Message: "latitude and longitude must be given together"},
		}
	}
	return nil
}

func (i *ClientInput) apply(c *model.Client) {
	c.Name = strings.TrimSpace(i.Name)
	c.TaxID = nil
	if i.TaxID != nil && strings.TrimSpace(*i.TaxID) != "" {
		taxID := strings.TrimSpace(*i.TaxID)
		c.TaxID = &taxID
	}
	c.Email = normalizeEmail(i.Email)
	c.Phone = strings.TrimSpace(i.Phone)
	c.Address = strings.TrimSpace(i.Address)
	c.City = strings.TrimSpace(i.City)
	c.Notes = i.Notes
}

func (s *ClientService) List(ctx context.Context, q string, page model.Page) (model.List[model.Client], error) {
	return s.clients.List(ctx, q, page)
}

func (s *ClientService) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	return s.clients.Get(ctx, id)
}

// Create stores a client. Explicit coordinates win; otherwise the address
// is geocoded when geocode is true.
func (s *ClientService) Create(ctx context.Context, in *ClientInput, geocode bool) (*model.Client, error) {
	client := &model.Client{}
	in.apply(client)

	client.Latitude, client.Longitude = in.Latitude, in.Longitude
	if client.Latitude == nil && geocode {
		if lat, lng, ok := s.locator.locate(ctx, client.FullAddress()); ok {
			client.Latitude, client.Longitude = lat, lng
		}
	}

	return s.clients.Create(ctx, client)
}

// Update replaces a client's fields. A changed address is geocoded again;
// if that fails the previous coordinates are kept.
func (s *ClientService) Update(ctx context.Context, id uuid.UUID, in *ClientInput) (*model.Client, error) {
	client, err := s.clients.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	previousAddress := client.FullAddress()
	in.apply(client)

	switch {
	case in.Latitude != nil:
		client.Latitude, client.Longitude = in.Latitude, in.Longitude
	case client.FullAddress() != previousAddress || client.Latitude == nil:
		if lat, lng, ok := s.locator.locate(ctx, client.FullAddress()); ok {
			client.Latitude, client.Longitude = lat, lng
		}
	}

	return s.clients.Update(ctx, client)
}

func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.clients.Delete(ctx, id)
}
