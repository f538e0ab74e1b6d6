package handler

import (
	"fmt"
	"time"

	"github.com/deppfellow/aquaservice/internal/lib/geo"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/server"
	"github.com/deppfellow/aquaservice/internal/service"
	"github.com/deppfellow/aquaservice/internal/validation"
	"github.com/labstack/echo/v4"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type WorkOrderHandler struct {
	Handler
	orders *service.WorkOrderService
}

func NewWorkOrderHandler(s *server.Server, orders *service.WorkOrderService) *WorkOrderHandler {
	return &WorkOrderHandler{
		Handler: NewHandler(s),
		orders:  orders,
	}
}

type ListWorkOrdersRequest struct {
	service.WorkOrderQuery
}

func (r *ListWorkOrdersRequest) Validate() error {
	return r.WorkOrderQuery.Validate()
}

type UpdateWorkOrderRequest struct {
	IDRequest
	service.UpdateWorkOrderInput
}

func (r *UpdateWorkOrderRequest) Validate() error {
	if err := r.IDRequest.Validate(); err != nil {
		return err
	}
	return r.UpdateWorkOrderInput.Validate()
}

type CancelWorkOrderRequest struct {
	IDRequest
	service.CancelWorkOrderInput
}

func (r *CancelWorkOrderRequest) Validate() error {
	if err := r.IDRequest.Validate(); err != nil {
		return err
	}
	return r.CancelWorkOrderInput.Validate()
}

type RescheduleWorkOrderRequest struct {
	IDRequest
	service.RescheduleWorkOrderInput
}

func (r *RescheduleWorkOrderRequest) Validate() error {
	if err := r.IDRequest.Validate(); err != nil {
		return err
	}
	return r.RescheduleWorkOrderInput.Validate()
}

type AssignWorkOrderRequest struct {
	IDRequest
	service.AssignWorkOrderInput
}

func (r *AssignWorkOrderRequest) Validate() error {
	if err := r.IDRequest.Validate(); err != nil {
		return err
	}
	return r.AssignWorkOrderInput.Validate()
}

type MatchesRequest struct {
	IDRequest
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

func (r *MatchesRequest) Validate() error {
	return validation.Struct(r)
}

type ExportRequest struct {
	service.ExportQuery
}

func (r *ExportRequest) Validate() error {
	return r.ExportQuery.Validate()
}

func (h *WorkOrderHandler) List(c echo.Context, req *ListWorkOrdersRequest) (model.List[model.WorkOrderDetail], error) {
	return h.orders.List(c.Request().Context(), &req.WorkOrderQuery)
}

// Calendar lists the signed-in technician's own visits.
func (h *WorkOrderHandler) Calendar(c echo.Context, req *ListWorkOrdersRequest) (model.List[model.WorkOrderDetail], error) {
	return h.orders.Calendar(c.Request().Context(), &req.WorkOrderQuery)
}

func (h *WorkOrderHandler) Get(c echo.Context, req *IDRequest) (*model.WorkOrderDetail, error) {
	return h.orders.Get(c.Request().Context(), req.ID)
}

func (h *WorkOrderHandler) Create(c echo.Context, req *service.CreateWorkOrderInput) (*model.WorkOrder, error) {
	return h.orders.Create(c.Request().Context(), req)
}

func (h *WorkOrderHandler) Update(c echo.Context, req *UpdateWorkOrderRequest) (*model.WorkOrder, error) {
	return h.orders.Update(c.Request().Context(), req.ID, &req.UpdateWorkOrderInput)
}

func (h *WorkOrderHandler) Delete(c echo.Context, req *IDRequest) error {
	return h.orders.Delete(c.Request().Context(), req.ID)
}

func (h *WorkOrderHandler) Confirm(c echo.Context, req *IDRequest) (*model.WorkOrder, error) {
	return h.orders.ConfirmByTechnician(c.Request().Context(), req.ID)
}

func (h *WorkOrderHandler) Start(c echo.Context, req *IDRequest) (*model.WorkOrder, error) {
	return h.orders.Start(c.Request().Context(), req.ID)
}

func (h *WorkOrderHandler) Complete(c echo.Context, req *IDRequest) (*model.WorkOrder, error) {
	return h.orders.Complete(c.Request().Context(), req.ID)
}

func (h *WorkOrderHandler) Cancel(c echo.Context, req *CancelWorkOrderRequest) (*model.WorkOrder, error) {
	return h.orders.Cancel(c.Request().Context(), req.ID, &req.CancelWorkOrderInput)
}

func (h *WorkOrderHandler) Reschedule(c echo.Context, req *RescheduleWorkOrderRequest) (*model.WorkOrder, error) {
	return h.orders.Reschedule(c.Request().Context(), req.ID, &req.RescheduleWorkOrderInput)
}

func (h *WorkOrderHandler) Assign(c echo.Context, req *AssignWorkOrderRequest) (*model.WorkOrder, error) {
	return h.orders.Assign(c.Request().Context(), req.ID, &req.AssignWorkOrderInput)
}

func (h *WorkOrderHandler) Matches(c echo.Context, req *MatchesRequest) ([]geo.Match, error) {
	return h.orders.Matches(c.Request().Context(), req.ID, req.Limit)
}

// Export downloads the work orders scheduled in [from, to) as a workbook.
func (h *WorkOrderHandler) Export(c echo.Context, req *ExportRequest) (*File, error) {
	data, err := h.orders.ExportXLSX(c.Request().Context(), &req.ExportQuery)
	if err != nil {
		return nil, err
	}
	return &File{
		Name:        exportFilename(req.From, req.To),
		ContentType: xlsxContentType,
		Data:        data,
	}, nil
}

func exportFilename(from, to time.Time) string {
	return fmt.Sprintf("work-orders-%s-%s.xlsx", from.Format("20060102"), to.Format("20060102"))
}
