package model

import "time"

// AdminDashboard is the landing page summary for administrators.
type AdminDashboard struct {
	Clients            int                     `json:"clients"`
	ActiveTechnicians  int                     `json:"active_technicians"`
	Equipment          int                     `json:"equipment"`
	WorkOrdersByStatus map[WorkOrderStatus]int `json:"work_orders_by_status"`
	Upcoming           []WorkOrder             `json:"upcoming"`
	ReportsThisMonth   int                     `json:"reports_this_month"`
	PendingEmails      int                     `json:"pending_emails"`
	FailedEmails       int                     `json:"failed_emails"`
	GeneratedAt        time.Time               `json:"generated_at"`
}

// TechnicianDashboard is the landing page summary for a technician.
type TechnicianDashboard struct {
	Upcoming      []WorkOrder         `json:"upcoming"`
	RecentReports []MaintenanceReport `json:"recent_reports"`
	GeneratedAt   time.Time           `json:"generated_at"`
}
