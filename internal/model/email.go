package model

import (
	"time"
)

// EmailStatus is the delivery state of a queued email.
type EmailStatus string

const (
	EmailPending EmailStatus = "pending"
	EmailSent    EmailStatus = "sent"
	EmailFailed  EmailStatus = "failed"
)

// EmailMessage is a row of the outgoing email queue.
//
// Data carries template variables; attachments are produced at send time
// from Data (e.g. the remito_id of a remito email), never stored.
type EmailMessage struct {
	Base
	To         string            `json:"to" db:"recipient"`
	Subject    string            `json:"subject" db:"subject"`
	Template   string            `json:"template" db:"template"`
	Data       map[string]string `json:"data" db:"data"`
	Status     EmailStatus       `json:"status" db:"status"`
	Attempts   int               `json:"attempts" db:"attempts"`
	LastError  *string           `json:"last_error,omitempty" db:"last_error"`
	ProviderID *string           `json:"provider_id,omitempty" db:"provider_id"`
	SentAt     *time.Time        `json:"sent_at,omitempty" db:"sent_at"`
}

// DrainResult summarizes one bounded pass over the email queue.
type DrainResult struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Retrying  int `json:"retrying"`
	Failed    int `json:"failed"`
}
