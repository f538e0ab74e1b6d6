package handler

import (
	"github.com/deppfellow/aquaservice/internal/errs"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/server"
	"github.com/deppfellow/aquaservice/internal/service"
	"github.com/deppfellow/aquaservice/internal/validation"
	"github.com/labstack/echo/v4"
)

type ClientHandler struct {
	Handler
	clients *service.ClientService
}

func NewClientHandler(s *server.Server, clients *service.ClientService) *ClientHandler {
	return &ClientHandler{
		Handler: NewHandler(s),
		clients: clients,
	}
}

type ListClientsRequest struct {
	Q string `query:"q" validate:"max=200"`
	model.Page
}

func (r *ListClientsRequest) Validate() error {
	return validation.Struct(r)
}

type UpdateClientRequest struct {
	IDRequest
	service.ClientInput
}

func (r *UpdateClientRequest) Validate() error {
	if err := r.IDRequest.Validate(); err != nil {
		return err
	}
	return r.ClientInput.Validate()
}

// geocodeParam reads ?geocode=, which defaults to true.
func geocodeParam(c echo.Context) (bool, error) {
	geocode := true
	if err := echo.QueryParamsBinder(c).Bool("geocode", &geocode).BindError(); err != nil {
		return false, errs.NewBadRequestError("geocode must be true or false", true, nil, nil, nil)
	}
	return geocode, nil
}

func (h *ClientHandler) List(c echo.Context, req *ListClientsRequest) (model.List[model.Client], error) {
	return h.clients.List(c.Request().Context(), req.Q, req.Page)
}

func (h *ClientHandler) Get(c echo.Context, req *IDRequest) (*model.Client, error) {
	return h.clients.Get(c.Request().Context(), req.ID)
}

func (h *ClientHandler) Create(c echo.Context, req *service.ClientInput) (*model.Client, error) {
	geocode, err := geocodeParam(c)
	if err != nil {
		return nil, err
	}
	return h.clients.Create(c.Request().Context(), req, geocode)
}

func (h *ClientHandler) Update(c echo.Context, req *UpdateClientRequest) (*model.Client, error) {
	return h.clients.Update(c.Request().Context(), req.ID, &req.ClientInput)
}

func (h *ClientHandler) Delete(c echo.Context, req *IDRequest) error {
	return h.clients.Delete(c.Request().Context(), req.ID)
}
