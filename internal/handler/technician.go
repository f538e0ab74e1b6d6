package handler

import (
	"github.com/deppfellow/aquaservice/internal/lib/geo"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/server"
	"github.com/deppfellow/aquaservice/internal/service"
	"github.com/deppfellow/aquaservice/internal/validation"
	"github.com/labstack/echo/v4"
)

type TechnicianHandler struct {
	Handler
	technicians *service.TechnicianService
}

func NewTechnicianHandler(s *server.Server, technicians *service.TechnicianService) *TechnicianHandler {
	return &TechnicianHandler{
		Handler:     NewHandler(s),
		technicians: technicians,
	}
}

type ListTechniciansRequest struct {
	service.TechnicianQuery
}

func (r *ListTechniciansRequest) Validate() error {
	return validation.Struct(r)
}

type UpdateTechnicianRequest struct {
	IDRequest
	service.TechnicianInput
}

func (r *UpdateTechnicianRequest) Validate() error {
	if err := r.IDRequest.Validate(); err != nil {
		return err
	}
	return r.TechnicianInput.Validate()
}

func (h *TechnicianHandler) List(c echo.Context, req *ListTechniciansRequest) (model.List[model.Technician], error) {
	return h.technicians.List(c.Request().Context(), req.TechnicianQuery)
}

func (h *TechnicianHandler) Get(c echo.Context, req *IDRequest) (*model.Technician, error) {
	return h.technicians.Get(c.Request().Context(), req.ID)
}

func (h *TechnicianHandler) Create(c echo.Context, req *service.TechnicianInput) (*model.Technician, error) {
	geocode, err := geocodeParam(c)
	if err != nil {
		return nil, err
	}
	return h.technicians.Create(c.Request().Context(), req, geocode)
}

func (h *TechnicianHandler) Update(c echo.Context, req *UpdateTechnicianRequest) (*model.Technician, error) {
	return h.technicians.Update(c.Request().Context(), req.ID, &req.TechnicianInput)
}

func (h *TechnicianHandler) Delete(c echo.Context, req *IDRequest) error {
	return h.technicians.Delete(c.Request().Context(), req.ID)
}

// Match ranks active technicians for an arbitrary location.
func (h *TechnicianHandler) Match(c echo.Context, req *service.MatchInput) ([]geo.Match, error) {
	return h.technicians.Match(c.Request().Context(), req)
}
