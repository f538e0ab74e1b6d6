package handler

import (
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/server"
	"github.com/deppfellow/aquaservice/internal/service"
	"github.com/labstack/echo/v4"
)

type DashboardHandler struct {
	Handler
	dashboard *service.DashboardService
}

func NewDashboardHandler(s *server.Server, dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		Handler:   NewHandler(s),
		dashboard: dashboard,
	}
}

func (h *DashboardHandler) Admin(c echo.Context, _ *EmptyRequest) (*model.AdminDashboard, error) {
	return h.dashboard.Admin(c.Request().Context())
}

func (h *DashboardHandler) Technician(c echo.Context, _ *EmptyRequest) (*model.TechnicianDashboard, error) {
	return h.dashboard.Technician(c.Request().Context())
}
