package email

// PreviewData contains sample template data for the admin preview endpoint.
//
// Example:
//
//	PreviewData[TemplateWelcome]["Name"] == "Laura Pérez"
var PreviewData = map[Template]map[string]string{
	TemplateWelcome: {
		"Name":     "Laura Pérez",
		"Email":    "laura@example.com",
		"LoginURL": "http://localhost:3000/login",
	},
	TemplateWorkOrderConfirmation: {
		"ClientName":   "Hotel Central",
		"ScheduledFor": "14/05/2026 09:30",
		"Description":  "Quarterly softener service",
		"ConfirmURL":   "http://localhost:3000/confirm/sample-token",
	},
	TemplateWorkOrderConfirmed: {
		"ClientName":     "Hotel Central",
		"ScheduledFor":   "14/05/2026 09:30",
		"TechnicianName": "Martín Gómez",
	},
	TemplateReportReady: {
		"ClientName":  "Hotel Central",
		"Equipment":   "Water Softener",
		"ServiceDate": "14/05/2026",
	},
	TemplateRemito: {
		"ClientName":   "Hotel Central",
		"RemitoNumber": "R-000042",
		"Total":        "89.60",
	},
}
