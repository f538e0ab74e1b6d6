package handler

import (
	"github.com/deppfellow/aquaservice/internal/server"
	"github.com/deppfellow/aquaservice/internal/service"
)

// Handlers groups every HTTP handler so the router receives one value.
type Handlers struct {
	Health       *HealthHandler
	OpenAPI      *OpenAPIHandler
	Auth         *AuthHandler
	Clients      *ClientHandler
	Technicians  *TechnicianHandler
	Equipment    *EquipmentHandler
	WorkOrders   *WorkOrderHandler
	Confirmation *ConfirmationHandler
	Reports      *ReportHandler
	Remitos      *RemitoHandler
	Emails       *EmailQueueHandler
	Import       *ImportHandler
	Dashboard    *DashboardHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(s),
		OpenAPI:      NewOpenAPIHandler(s),
		Auth:         NewAuthHandler(s, services.Auth),
		Clients:      NewClientHandler(s, services.Clients),
		Technicians:  NewTechnicianHandler(s, services.Technicians),
		Equipment:    NewEquipmentHandler(s, services.Equipment),
		WorkOrders:   NewWorkOrderHandler(s, services.WorkOrders),
		Confirmation: NewConfirmationHandler(s, services.WorkOrders),
		Reports:      NewReportHandler(s, services.Reports),
		Remitos:      NewRemitoHandler(s, services.Remitos),
		Emails:       NewEmailQueueHandler(s, services.Emails),
		Import:       NewImportHandler(s, services.Import),
		Dashboard:    NewDashboardHandler(s, services.Dashboard),
	}
}
