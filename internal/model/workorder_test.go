package model

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newAssignedOrder() *WorkOrder {
	tech := uuid.New()
	return &WorkOrder{Status: WorkOrderPending, TechnicianID: &tech, DurationMinutes: 90}
}

func TestConfirmationInEitherOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	wo := newAssignedOrder()
	if err := wo.Apply(EventTechnicianConfirm, now); err != nil {
		t.Fatalf("technician confirm: %v", err)
	}
	if wo.Status != WorkOrderTechnicianConfirmed {
		t.Fatalf("status = %s", wo.Status)
	}
	if err := wo.Apply(EventClientConfirm, now); err != nil {
		t.Fatalf("client confirm: %v", err)
	}
	if wo.Status != WorkOrderConfirmed {
		t.Fatalf("status = %s, want confirmed", wo.Status)
	}

	wo = newAssignedOrder()
	_ = wo.Apply(EventClientConfirm, now)
	if wo.Status != WorkOrderClientConfirmed {
		t.Fatalf("status = %s", wo.Status)
	}
	_ = wo.Apply(EventTechnicianConfirm, now)
	if wo.Status != WorkOrderConfirmed {
		t.Fatalf("status = %s, want confirmed", wo.Status)
	}
}

func TestDoubleConfirmationRejected(t *testing.T) {
	wo := newAssignedOrder()
	now := time.Now()
	_ = wo.Apply(EventClientConfirm, now)

	err := wo.Apply(EventClientConfirm, now)
	var te *TransitionError
	if !errors.As(err, &te) || te.Event != EventClientConfirm {
		t.Fatalf("expected transition error, got %v", err)
	}
}

func TestTechnicianConfirmRequiresAssignment(t *testing.T) {
	wo := &WorkOrder{Status: WorkOrderPending}
	if err := wo.Apply(EventTechnicianConfirm, time.Now()); err == nil {
		t.Fatalf("unassigned order cannot be confirmed by a technician")
	}
}

func TestLifecycleToCompletion(t *testing.T) {
	wo := newAssignedOrder()
	now := time.Now()

	if err := wo.Apply(EventStart, now); err == nil {
		t.Fatalf("start must require confirmation")
	}
	_ = wo.Apply(EventTechnicianConfirm, now)
	_ = wo.Apply(EventClientConfirm, now)
	if err := wo.Apply(EventStart, now); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := wo.Apply(EventReschedule, now); err == nil {
		t.Fatalf("in-progress order cannot be rescheduled")
	}
	if err := wo.Apply(EventComplete, now); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if wo.Status != WorkOrderCompleted || wo.CompletedAt == nil {
		t.Fatalf("unexpected final state %+v", wo)
	}
	if err := wo.Apply(EventCancel, now); err == nil {
		t.Fatalf("completed order is terminal")
	}
}

func TestRescheduleResetsConfirmations(t *testing.T) {
	wo := newAssignedOrder()
	now := time.Now()
	_ = wo.Apply(EventTechnicianConfirm, now)
	_ = wo.Apply(EventClientConfirm, now)

	if err := wo.Apply(EventReschedule, now); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if wo.Status != WorkOrderPending || wo.TechnicianConfirmedAt != nil || wo.ClientConfirmedAt != nil {
		t.Fatalf("reschedule should reset confirmations: %+v", wo)
	}
}

func TestAssignKeepsClientConfirmation(t *testing.T) {
	wo := newAssignedOrder()
	now := time.Now()
	_ = wo.Apply(EventTechnicianConfirm, now)
	_ = wo.Apply(EventClientConfirm, now)

	if err := wo.Apply(EventAssign, now); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if wo.Status != WorkOrderClientConfirmed {
		t.Fatalf("status = %s, want client_confirmed", wo.Status)
	}
}

func TestCancelFromAnyOpenState(t *testing.T) {
	for _, status := range []WorkOrderStatus{WorkOrderPending, WorkOrderConfirmed, WorkOrderInProgress} {
		wo := &WorkOrder{Status: status}
		if err := wo.Apply(EventCancel, time.Now()); err != nil || wo.Status != WorkOrderCancelled {
			t.Fatalf("cancel from %s: %v", status, err)
		}
	}
}

func TestEndsAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	wo := WorkOrder{ScheduledFor: start, DurationMinutes: 90}
	if got := wo.EndsAt(); !got.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("EndsAt = %v", got)
	}
}
