package email

import (
	"fmt"
	"time"
)

// Message is an email waiting to be rendered and sent.
// Data keys must match what the HTML template expects.
type Message struct {
	To       string
	Subject  string
	Template Template
	Data     map[string]string
}

// Keys in Data that the queue uses to build attachments at send time.
const (
	DataRemitoID = "remito_id"
	DataReportID = "report_id"
)

const emailDateLayout = "02/01/2006 15:04"

// WelcomeMessage greets a newly created user.
func WelcomeMessage(to, name, loginURL string) Message {
	return Message{
		To:       to,
		Subject:  "Your account is ready",
		Template: TemplateWelcome,
		Data: map[string]string{
			"Name":     name,
			"Email":    to,
			"LoginURL": loginURL,
		},
	}
}

// WorkOrderConfirmationMessage asks a client to confirm a scheduled visit.
func WorkOrderConfirmationMessage(to, clientName string, scheduledFor time.Time, description, confirmURL string) Message {
	return Message{
		To:       to,
		Subject:  fmt.Sprintf("Please confirm your service visit on %s", scheduledFor.Format("02/01/2006")),
		Template: TemplateWorkOrderConfirmation,
		Data: map[string]string{
			"ClientName":   clientName,
			"ScheduledFor": scheduledFor.Format(emailDateLayout),
			"Description":  description,
			"ConfirmURL":   confirmURL,
		},
	}
}

// WorkOrderConfirmedMessage tells a client both parties confirmed the visit.
func WorkOrderConfirmedMessage(to, clientName string, scheduledFor time.Time, technicianName string) Message {
	return Message{
		To:       to,
		Subject:  "Your service visit is confirmed",
		Template: TemplateWorkOrderConfirmed,
		Data: map[string]string{
			"ClientName":     clientName,
			"ScheduledFor":   scheduledFor.Format(emailDateLayout),
			"TechnicianName": technicianName,
		},
	}
}

// ReportReadyMessage delivers a maintenance report PDF.
func ReportReadyMessage(to, clientName, reportID, equipment string, serviceDate time.Time) Message {
	return Message{
		To:       to,
		Subject:  fmt.Sprintf("Maintenance report %s", serviceDate.Format("02/01/2006")),
		Template: TemplateReportReady,
		Data: map[string]string{
			"ClientName":  clientName,
			"Equipment":   equipment,
			"ServiceDate": serviceDate.Format("02/01/2006"),
			DataReportID:  reportID,
		},
	}
}

// RemitoMessage delivers a remito PDF.
func RemitoMessage(to, clientName, remitoID, number, total string) Message {
	return Message{
		To:       to,
		Subject:  fmt.Sprintf("Remito %s", number),
		Template: TemplateRemito,
		Data: map[string]string{
			"ClientName":   clientName,
			"RemitoNumber": number,
			"Total":        total,
			DataRemitoID:   remitoID,
		},
	}
}
