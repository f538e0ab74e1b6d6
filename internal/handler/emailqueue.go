package handler

import (
	"net/http"

	"github.com/deppfellow/aquaservice/internal/lib/email"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/server"
	"github.com/deppfellow/aquaservice/internal/service"
	"github.com/deppfellow/aquaservice/internal/validation"
	"github.com/labstack/echo/v4"
)

// EmailQueueHandler exposes the outgoing email queue to admins.
type EmailQueueHandler struct {
	Handler
	emails *service.EmailQueueService
}

func NewEmailQueueHandler(s *server.Server, emails *service.EmailQueueService) *EmailQueueHandler {
	return &EmailQueueHandler{
		Handler: NewHandler(s),
		emails:  emails,
	}
}

type ListEmailsRequest struct {
	service.EmailQueueQuery
}

func (r *ListEmailsRequest) Validate() error {
	return r.EmailQueueQuery.Validate()
}

type previewRequest struct {
	Template email.Template `param:"template" validate:"required"`
}

func (r *previewRequest) Validate() error {
	return validation.Struct(r)
}

func (h *EmailQueueHandler) List(c echo.Context, req *ListEmailsRequest) (model.List[model.EmailMessage], error) {
	return h.emails.List(c.Request().Context(), &req.EmailQueueQuery)
}

// Drain runs one batch now instead of waiting for the scheduler.
func (h *EmailQueueHandler) Drain(c echo.Context, _ *EmptyRequest) (model.DrainResult, error) {
	return h.emails.Drain(c.Request().Context())
}

func (h *EmailQueueHandler) Retry(c echo.Context, req *IDRequest) (*model.EmailMessage, error) {
	return h.emails.Retry(c.Request().Context(), req.ID)
}

// Preview renders a template with sample data as HTML.
func (h *EmailQueueHandler) Preview(c echo.Context) error {
	req := &previewRequest{}
	if err := validation.BindAndValidate(c, req); err != nil {
		return err
	}
	html, err := h.emails.Preview(req.Template)
	if err != nil {
		return err
	}
	return c.HTML(http.StatusOK, html)
}
