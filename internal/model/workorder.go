package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WorkOrderStatus is the state of a scheduled visit.
type WorkOrderStatus string

const (
	WorkOrderPending             WorkOrderStatus = "pending"
	WorkOrderTechnicianConfirmed WorkOrderStatus = "technician_confirmed"
	WorkOrderClientConfirmed     WorkOrderStatus = "client_confirmed"
	WorkOrderConfirmed           WorkOrderStatus = "confirmed"
	WorkOrderInProgress          WorkOrderStatus = "in_progress"
	WorkOrderCompleted           WorkOrderStatus = "completed"
	WorkOrderCancelled           WorkOrderStatus = "cancelled"
)

// AllWorkOrderStatuses lists statuses in lifecycle order.
var AllWorkOrderStatuses = []WorkOrderStatus{
	WorkOrderPending,
	WorkOrderTechnicianConfirmed,
	WorkOrderClientConfirmed,
	WorkOrderConfirmed,
	WorkOrderInProgress,
	WorkOrderCompleted,
	WorkOrderCancelled,
}

// Terminal reports whether no further transition is possible.
func (s WorkOrderStatus) Terminal() bool {
	return s == WorkOrderCompleted || s == WorkOrderCancelled
}

// WorkOrder is a scheduled service visit.
type WorkOrder struct {
	Base
	ClientID              uuid.UUID       `json:"client_id" db:"client_id"`
	EquipmentID           *uuid.UUID      `json:"equipment_id,omitempty" db:"equipment_id"`
	TechnicianID          *uuid.UUID      `json:"technician_id,omitempty" db:"technician_id"`
	ScheduledFor          time.Time       `json:"scheduled_for" db:"scheduled_for"`
	DurationMinutes       int             `json:"duration_minutes" db:"duration_minutes"`
	Status                WorkOrderStatus `json:"status" db:"status"`
	Description           string          `json:"description" db:"description"`
	RequiredSkills        []string        `json:"required_skills" db:"required_skills"`
	TechnicianConfirmedAt *time.Time      `json:"technician_confirmed_at,omitempty" db:"technician_confirmed_at"`
	ClientConfirmedAt     *time.Time      `json:"client_confirmed_at,omitempty" db:"client_confirmed_at"`
	ConfirmationToken     string          `json:"-" db:"confirmation_token"`
	StartedAt             *time.Time      `json:"started_at,omitempty" db:"started_at"`
	CompletedAt           *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CancelReason          *string         `json:"cancel_reason,omitempty" db:"cancel_reason"`
	Version               int             `json:"version" db:"version"`
}

// WorkOrderEvent is an input to the work order state machine.
type WorkOrderEvent string

const (
	EventTechnicianConfirm WorkOrderEvent = "technician_confirm"
	EventClientConfirm     WorkOrderEvent = "client_confirm"
	EventStart             WorkOrderEvent = "start"
	EventComplete          WorkOrderEvent = "complete"
	EventCancel            WorkOrderEvent = "cancel"
	EventReschedule        WorkOrderEvent = "reschedule"
	EventAssign            WorkOrderEvent = "assign"
)

// TransitionError is returned when an event is not allowed in the current state.
type TransitionError struct {
	From  WorkOrderStatus
	Event WorkOrderEvent
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a work order in status %s", e.Event, e.From)
}

// Apply runs event against the work order at time now and mutates it.
//
// Confirmation: the technician and the client confirm independently; the
// order becomes confirmed once both timestamps are set, in either order.
// Reschedule and assign clear confirmations (assign clears only the
// technician's) and send the order back through the confirmation flow.
func (w *WorkOrder) Apply(event WorkOrderEvent, now time.Time) error {
	if w.Status.Terminal() {
		return &TransitionError{From: w.Status, Event: event}
	}

	switch event {
	case EventTechnicianConfirm:
		if w.TechnicianID == nil || w.TechnicianConfirmedAt != nil || !w.awaitingConfirmation() {
			return &TransitionError{From: w.Status, Event: event}
		}
		w.TechnicianConfirmedAt = &now

	case EventClientConfirm:
		if w.ClientConfirmedAt != nil || !w.awaitingConfirmation() {
			return &TransitionError{From: w.Status, Event: event}
		}
		w.ClientConfirmedAt = &now

	case EventStart:
		if w.Status != WorkOrderConfirmed {
			return &TransitionError{From: w.Status, Event: event}
		}
		w.StartedAt = &now
		w.Status = WorkOrderInProgress
		return nil

	case EventComplete:
		if w.Status != WorkOrderInProgress {
			return &TransitionError{From: w.Status, Event: event}
		}
		w.CompletedAt = &now
		w.Status = WorkOrderCompleted
		return nil

	case EventCancel:
		w.Status = WorkOrderCancelled
		return nil

	case EventReschedule:
		if w.Status == WorkOrderInProgress {
			return &TransitionError{From: w.Status, Event: event}
		}
		w.TechnicianConfirmedAt = nil
		w.ClientConfirmedAt = nil

	case EventAssign:
		if w.Status == WorkOrderInProgress {
			return &TransitionError{From: w.Status, Event: event}
		}
		w.TechnicianConfirmedAt = nil

	default:
		return &TransitionError{From: w.Status, Event: event}
	}

	w.Status = w.confirmationStatus()
	return nil
}

func (w *WorkOrder) awaitingConfirmation() bool {
	switch w.Status {
	case WorkOrderPending, WorkOrderTechnicianConfirmed, WorkOrderClientConfirmed:
		return true
	}
	return false
}

// confirmationStatus derives the pre-visit status from the two timestamps.
func (w *WorkOrder) confirmationStatus() WorkOrderStatus {
	switch {
	case w.TechnicianConfirmedAt != nil && w.ClientConfirmedAt != nil:
		return WorkOrderConfirmed
	case w.TechnicianConfirmedAt != nil:
		return WorkOrderTechnicianConfirmed
	case w.ClientConfirmedAt != nil:
		return WorkOrderClientConfirmed
	default:
		return WorkOrderPending
	}
}

// EndsAt is the scheduled end of the visit.
func (w WorkOrder) EndsAt() time.Time {
	return w.ScheduledFor.Add(time.Duration(w.DurationMinutes) * time.Minute)
}

// WorkOrderDetail is a work order joined with the names shown in lists
// and exports.
type WorkOrderDetail struct {
	WorkOrder
	ClientName     string  `json:"client_name" db:"client_name"`
	ClientAddress  string  `json:"client_address" db:"client_address"`
	TechnicianName *string `json:"technician_name,omitempty" db:"technician_name"`
}
