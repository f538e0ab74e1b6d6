package router

import (
	"net/http"

	"github.com/deppfellow/aquaservice/internal/handler"
	"github.com/deppfellow/aquaservice/internal/service"
	"github.com/labstack/echo/v4"
)

// registerDirectoryRoutes covers clients, technicians and equipment.
// Technicians may read them; only admins change them.
func registerDirectoryRoutes(authed, admin *echo.Group, h *handler.Handlers) {
	clients := h.Clients
	authed.GET("/clients", handler.Handle(clients.Handler, clients.List, http.StatusOK, &handler.ListClientsRequest{}))
	authed.GET("/clients/:id", handler.Handle(clients.Handler, clients.Get, http.StatusOK, &handler.IDRequest{}))
	authed.GET("/clients/:id/equipment", handler.Handle(h.Equipment.Handler, h.Equipment.ListForClient, http.StatusOK, &handler.ClientEquipmentRequest{}))
	admin.POST("/clients", handler.Handle(clients.Handler, clients.Create, http.StatusCreated, &service.ClientInput{}))
	admin.PUT("/clients/:id", handler.Handle(clients.Handler, clients.Update, http.StatusOK, &handler.UpdateClientRequest{}))
	admin.DELETE("/clients/:id", handler.HandleNoContent(clients.Handler, clients.Delete, http.StatusNoContent, &handler.IDRequest{}))

	technicians := h.Technicians
	authed.GET("/technicians", handler.Handle(technicians.Handler, technicians.List, http.StatusOK, &handler.ListTechniciansRequest{}))
	authed.GET("/technicians/:id", handler.Handle(technicians.Handler, technicians.Get, http.StatusOK, &handler.IDRequest{}))
	admin.POST("/technicians", handler.Handle(technicians.Handler, technicians.Create, http.StatusCreated, &service.TechnicianInput{}))
	admin.POST("/technicians/match", handler.Handle(technicians.Handler, technicians.Match, http.StatusOK, &service.MatchInput{}))
	admin.PUT("/technicians/:id", handler.Handle(technicians.Handler, technicians.Update, http.StatusOK, &handler.UpdateTechnicianRequest{}))
	admin.DELETE("/technicians/:id", handler.HandleNoContent(technicians.Handler, technicians.Delete, http.StatusNoContent, &handler.IDRequest{}))

	equipment := h.Equipment
	authed.GET("/equipment", handler.Handle(equipment.Handler, equipment.List, http.StatusOK, &handler.ListEquipmentRequest{}))
	authed.GET("/equipment/:id", handler.Handle(equipment.Handler, equipment.Get, http.StatusOK, &handler.IDRequest{}))
	admin.POST("/equipment", handler.Handle(equipment.Handler, equipment.Create, http.StatusCreated, &service.EquipmentInput{}))
	admin.PUT("/equipment/:id", handler.Handle(equipment.Handler, equipment.Update, http.StatusOK, &handler.UpdateEquipmentRequest{}))
	admin.DELETE("/equipment/:id", handler.HandleNoContent(equipment.Handler, equipment.Delete, http.StatusNoContent, &handler.IDRequest{}))
}

// registerWorkOrderRoutes covers scheduling. The service scopes reads and
// the technician actions to the caller's own work orders.
func registerWorkOrderRoutes(authed, admin *echo.Group, h *handler.Handlers) {
	wo := h.WorkOrders

	authed.GET("/work-orders", handler.Handle(wo.Handler, wo.List, http.StatusOK, &handler.ListWorkOrdersRequest{}))
	authed.GET("/work-orders/:id", handler.Handle(wo.Handler, wo.Get, http.StatusOK, &handler.IDRequest{}))
	authed.POST("/work-orders/:id/confirm", handler.Handle(wo.Handler, wo.Confirm, http.StatusOK, &handler.IDRequest{}))
	authed.POST("/work-orders/:id/start", handler.Handle(wo.Handler, wo.Start, http.StatusOK, &handler.IDRequest{}))
	authed.POST("/work-orders/:id/complete", handler.Handle(wo.Handler, wo.Complete, http.StatusOK, &handler.IDRequest{}))

	admin.POST("/work-orders", handler.Handle(wo.Handler, wo.Create, http.StatusCreated, &service.CreateWorkOrderInput{}))
	admin.PUT("/work-orders/:id", handler.Handle(wo.Handler, wo.Update, http.StatusOK, &handler.UpdateWorkOrderRequest{}))
	admin.DELETE("/work-orders/:id", handler.HandleNoContent(wo.Handler, wo.Delete, http.StatusNoContent, &handler.IDRequest{}))
	admin.POST("/work-orders/:id/cancel", handler.Handle(wo.Handler, wo.Cancel, http.StatusOK, &handler.CancelWorkOrderRequest{}))
	admin.POST("/work-orders/:id/reschedule", handler.Handle(wo.Handler, wo.Reschedule, http.StatusOK, &handler.RescheduleWorkOrderRequest{}))
	admin.POST("/work-orders/:id/assign", handler.Handle(wo.Handler, wo.Assign, http.StatusOK, &handler.AssignWorkOrderRequest{}))
	admin.GET("/work-orders/:id/matches", handler.Handle(wo.Handler, wo.Matches, http.StatusOK, &handler.MatchesRequest{}))
	admin.GET("/export/work-orders.xlsx", handler.HandleFile(wo.Handler, wo.Export, http.StatusOK, &handler.ExportRequest{}))
}

// registerDocumentRoutes covers maintenance reports and remitos.
func registerDocumentRoutes(authed, admin *echo.Group, h *handler.Handlers) {
	reports := h.Reports
	authed.GET("/reports", handler.Handle(reports.Handler, reports.List, http.StatusOK, &handler.ListReportsRequest{}))
	authed.POST("/reports", handler.Handle(reports.Handler, reports.Create, http.StatusCreated, &service.CreateReportInput{}))
	authed.GET("/reports/:id", handler.Handle(reports.Handler, reports.Get, http.StatusOK, &handler.IDRequest{}))
	authed.GET("/reports/:id/pdf", handler.HandleFile(reports.Handler, reports.PDF, http.StatusOK, &handler.IDRequest{}))
	authed.POST("/reports/:id/email", handler.Handle(reports.Handler, reports.Email, http.StatusAccepted, &handler.IDRequest{}))
	admin.DELETE("/reports/:id", handler.HandleNoContent(reports.Handler, reports.Delete, http.StatusNoContent, &handler.IDRequest{}))

	remitos := h.Remitos
	admin.GET("/remitos", handler.Handle(remitos.Handler, remitos.List, http.StatusOK, &handler.ListRemitosRequest{}))
	admin.POST("/remitos", handler.Handle(remitos.Handler, remitos.Create, http.StatusCreated, &service.CreateRemitoInput{}))
	admin.GET("/remitos/:id", handler.Handle(remitos.Handler, remitos.Get, http.StatusOK, &handler.IDRequest{}))
	admin.GET("/remitos/:id/pdf", handler.HandleFile(remitos.Handler, remitos.PDF, http.StatusOK, &handler.IDRequest{}))
	admin.POST("/remitos/:id/send", handler.Handle(remitos.Handler, remitos.Send, http.StatusAccepted, &handler.IDRequest{}))
}

// registerAdminRoutes covers the email queue, bulk import and the dashboard.
func registerAdminRoutes(admin *echo.Group, h *handler.Handlers) {
	emails := h.Emails
	admin.GET("/admin/email-queue", handler.Handle(emails.Handler, emails.List, http.StatusOK, &handler.ListEmailsRequest{}))
	admin.POST("/admin/email-queue/drain", handler.Handle(emails.Handler, emails.Drain, http.StatusOK, &handler.EmptyRequest{}))
	admin.POST("/admin/email-queue/:id/retry", handler.Handle(emails.Handler, emails.Retry, http.StatusOK, &handler.IDRequest{}))
	admin.GET("/admin/email-templates/:template", emails.Preview)

	imports := h.Import
	admin.POST("/import/clients", handler.Handle(imports.Handler, imports.Clients, http.StatusOK, &handler.ImportRequest{}))
	admin.POST("/import/technicians", handler.Handle(imports.Handler, imports.Technicians, http.StatusOK, &handler.ImportRequest{}))

	admin.GET("/dashboard", handler.Handle(h.Dashboard.Handler, h.Dashboard.Admin, http.StatusOK, &handler.EmptyRequest{}))
}
