package handler

import (
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/server"
	"github.com/deppfellow/aquaservice/internal/service"
	"github.com/labstack/echo/v4"
)

type RemitoHandler struct {
	Handler
	remitos *service.RemitoService
}

func NewRemitoHandler(s *server.Server, remitos *service.RemitoService) *RemitoHandler {
	return &RemitoHandler{
		Handler: NewHandler(s),
		remitos: remitos,
	}
}

type ListRemitosRequest struct {
	service.RemitoQuery
}

func (r *ListRemitosRequest) Validate() error {
	return r.RemitoQuery.Validate()
}

func (h *RemitoHandler) List(c echo.Context, req *ListRemitosRequest) (model.List[model.Remito], error) {
	return h.remitos.List(c.Request().Context(), &req.RemitoQuery)
}

func (h *RemitoHandler) Get(c echo.Context, req *IDRequest) (*model.Remito, error) {
	return h.remitos.Get(c.Request().Context(), req.ID)
}

func (h *RemitoHandler) Create(c echo.Context, req *service.CreateRemitoInput) (*model.Remito, error) {
	return h.remitos.Create(c.Request().Context(), req)
}

func (h *RemitoHandler) PDF(c echo.Context, req *IDRequest) (*File, error) {
	data, name, err := h.remitos.PDF(c.Request().Context(), req.ID)
	if err != nil {
		return nil, err
	}
	return &File{Name: name, ContentType: pdfContentType, Data: data}, nil
}

func (h *RemitoHandler) Send(c echo.Context, req *IDRequest) (*model.EmailMessage, error) {
	return h.remitos.Send(c.Request().Context(), req.ID)
}
