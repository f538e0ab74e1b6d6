package handler

import (
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/server"
	"github.com/deppfellow/aquaservice/internal/service"
	"github.com/deppfellow/aquaservice/internal/validation"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type EquipmentHandler struct {
	Handler
	equipment *service.EquipmentService
}

func NewEquipmentHandler(s *server.Server, equipment *service.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{
		Handler:   NewHandler(s),
		equipment: equipment,
	}
}

type ListEquipmentRequest struct {
	ClientID *uuid.UUID `query:"client_id"`
	model.Page
}

func (r *ListEquipmentRequest) Validate() error {
	return validation.Struct(r)
}

// ClientEquipmentRequest lists the units installed at one client.
type ClientEquipmentRequest struct {
	ClientID uuid.UUID `param:"id" validate:"required"`
	model.Page
}

func (r *ClientEquipmentRequest) Validate() error {
	return validation.Struct(r)
}

type UpdateEquipmentRequest struct {
	IDRequest
	service.EquipmentInput
}

func (r *UpdateEquipmentRequest) Validate() error {
	if err := r.IDRequest.Validate(); err != nil {
		return err
	}
	return r.EquipmentInput.Validate()
}

func (h *EquipmentHandler) List(c echo.Context, req *ListEquipmentRequest) (model.List[model.Equipment], error) {
	return h.equipment.List(c.Request().Context(), req.ClientID, req.Page)
}

func (h *EquipmentHandler) ListForClient(c echo.Context, req *ClientEquipmentRequest) (model.List[model.Equipment], error) {
	return h.equipment.List(c.Request().Context(), &req.ClientID, req.Page)
}

func (h *EquipmentHandler) Get(c echo.Context, req *IDRequest) (*model.Equipment, error) {
	return h.equipment.Get(c.Request().Context(), req.ID)
}

func (h *EquipmentHandler) Create(c echo.Context, req *service.EquipmentInput) (*model.Equipment, error) {
	return h.equipment.Create(c.Request().Context(), req)
}

func (h *EquipmentHandler) Update(c echo.Context, req *UpdateEquipmentRequest) (*model.Equipment, error) {
	return h.equipment.Update(c.Request().Context(), req.ID, &req.EquipmentInput)
}

func (h *EquipmentHandler) Delete(c echo.Context, req *IDRequest) error {
	return h.equipment.Delete(c.Request().Context(), req.ID)
}
