package handler

import (
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/server"
	"github.com/deppfellow/aquaservice/internal/service"
	"github.com/labstack/echo/v4"
)

const pdfContentType = "application/pdf"

type ReportHandler struct {
	Handler
	reports *service.ReportService
}

func NewReportHandler(s *server.Server, reports *service.ReportService) *ReportHandler {
	return &ReportHandler{
		Handler: NewHandler(s),
		reports: reports,
	}
}

type ListReportsRequest struct {
	service.ReportQuery
}

func (r *ListReportsRequest) Validate() error {
	return r.ReportQuery.Validate()
}

func (h *ReportHandler) List(c echo.Context, req *ListReportsRequest) (model.List[model.MaintenanceReport], error) {
	return h.reports.List(c.Request().Context(), &req.ReportQuery)
}

func (h *ReportHandler) Get(c echo.Context, req *IDRequest) (*model.MaintenanceReport, error) {
	return h.reports.Get(c.Request().Context(), req.ID)
}

func (h *ReportHandler) Create(c echo.Context, req *service.CreateReportInput) (*model.MaintenanceReport, error) {
	return h.reports.Create(c.Request().Context(), req)
}

func (h *ReportHandler) Delete(c echo.Context, req *IDRequest) error {
	return h.reports.Delete(c.Request().Context(), req.ID)
}

func (h *ReportHandler) PDF(c echo.Context, req *IDRequest) (*File, error) {
	data, name, err := h.reports.PDF(c.Request().Context(), req.ID)
	if err != nil {
		return nil, err
	}
	return &File{Name: name, ContentType: pdfContentType, Data: data}, nil
}

// Email queues the report PDF for the client.
func (h *ReportHandler) Email(c echo.Context, req *IDRequest) (*model.EmailMessage, error) {
	return h.reports.Email(c.Request().Context(), req.ID)
}
