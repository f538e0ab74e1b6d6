package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deppfellow/aquaservice/internal/errs"
	"github.com/deppfellow/aquaservice/internal/lib/email"
	"github.com/deppfellow/aquaservice/internal/lib/geo"
	"github.com/deppfellow/aquaservice/internal/lib/spreadsheet"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/repository"
	"github.com/deppfellow/aquaservice/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type workOrderStore interface {
	List(ctx context.Context, f repository.WorkOrderFilter, page model.Page) (model.List[model.WorkOrderDetail], error)
	ListAll(ctx context.Context, f repository.WorkOrderFilter) ([]model.WorkOrderDetail, error)
	Get(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*model.WorkOrderDetail, error)
	GetByToken(ctx context.Context, token string) (*model.WorkOrder, error)
	Create(ctx context.Context, w *model.WorkOrder) (*model.WorkOrder, error)
	Update(ctx context.Context, w *model.WorkOrder) (*model.WorkOrder, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// maxExportRange bounds the date range of a spreadsheet export.
const maxExportRange = 366 * 24 * time.Hour

// WorkOrderService schedules visits and drives the confirmation workflow.
type WorkOrderService struct {
	orders      workOrderStore
	clients     clientStore
	equipment   equipmentStore
	technicians *TechnicianService
	emails      Enqueuer
	confirmURL  string
	now         func() time.Time
	logger      *zerolog.Logger
}

func NewWorkOrderService(
	orders workOrderStore,
	clients clientStore,
	equipment equipmentStore,
	technicians *TechnicianService,
	emails Enqueuer,
	publicBaseURL string,
	logger *zerolog.Logger,
) *WorkOrderService {
	return &WorkOrderService{
		orders:      orders,
		clients:     clients,
		equipment:   equipment,
		technicians: technicians,
		emails:      emails,
		confirmURL:  strings.TrimRight(publicBaseURL, "/") + "/confirm/",
		now:         time.Now,
		logger:      logger,
	}
}

// newConfirmationToken returns an unguessable URL-safe token.
func newConfirmationToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate confirmation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

type CreateWorkOrderInput struct {
	ClientID        uuid.UUID  `json:"client_id" validate:"required"`
	EquipmentID     *uuid.UUID `json:"equipment_id"`
	TechnicianID    *uuid.UUID `json:"technician_id"`
	ScheduledFor    time.Time  `json:"scheduled_for" validate:"required"`
	DurationMinutes int        `json:"duration_minutes" validate:"omitempty,min=15,max=1440"`
	Description     string     `json:"description" validate:"max=2000"`
	RequiredSkills  []string   `json:"required_skills" validate:"max=20,dive,skill"`
}

func (i *CreateWorkOrderInput) Validate() error { return validation.Struct(i) }

type UpdateWorkOrderInput struct {
	EquipmentID     *uuid.UUID `json:"equipment_id"`
	DurationMinutes int        `json:"duration_minutes" validate:"omitempty,min=15,max=1440"`
	Description     string     `json:"description" validate:"max=2000"`
	RequiredSkills  []string   `json:"required_skills" validate:"max=20,dive,skill"`
}

func (i *UpdateWorkOrderInput) Validate() error { return validation.Struct(i) }

type WorkOrderQuery struct {
	Status       model.WorkOrderStatus `query:"status"`
	TechnicianID *uuid.UUID            `query:"technician_id"`
	ClientID     *uuid.UUID            `query:"client_id"`
	From         *time.Time            `query:"from"`
	To           *time.Time            `query:"to"`
	model.Page
}

func (q *WorkOrderQuery) Validate() error {
	if q.Status != "" {
		valid := false
		for _, s := range model.AllWorkOrderStatuses {
			valid = valid || s == q.Status
		}
		if !valid {
			return validation.CustomValidationErrors{{Field: "status", Message: "is not a known status"}}
		}
	}
	if q.From != nil && q.To != nil && !q.To.After(*q.From) {
		return validation.CustomValidationErrors{{Field: "to", Message: "must be after from"}}
	}
	return validation.Struct(q)
}

func (q *WorkOrderQuery) filter() repository.WorkOrderFilter {
	return repository.WorkOrderFilter{
		Status:       q.Status,
		TechnicianID: q.TechnicianID,
		ClientID:     q.ClientID,
		From:         q.From,
		To:           q.To,
	}
}

// List returns work orders. Technicians only ever see their own.
func (s *WorkOrderService) List(ctx context.Context, q *WorkOrderQuery) (model.List[model.WorkOrderDetail], error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return model.List[model.WorkOrderDetail]{}, err
	}

	f := q.filter()
	if !p.IsAdmin() {
		f.TechnicianID = p.TechnicianID
	}
	return s.orders.List(ctx, f, q.Page)
}

// Calendar returns the caller's own work orders in a date range.
func (s *WorkOrderService) Calendar(ctx context.Context, q *WorkOrderQuery) (model.List[model.WorkOrderDetail], error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return model.List[model.WorkOrderDetail]{}, err
	}
	if p.TechnicianID == nil {
		return model.List[model.WorkOrderDetail]{}, errs.NewForbiddenError("Only technicians have a calendar", true)
	}

	f := q.filter()
	f.TechnicianID = p.TechnicianID
	return s.orders.List(ctx, f, q.Page)
}

// Get returns a work order with names. Technicians may only read their own.
func (s *WorkOrderService) Get(ctx context.Context, id uuid.UUID) (*model.WorkOrderDetail, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	wo, err := s.orders.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canActAs(p, wo.TechnicianID) {
		return nil, errs.NewForbiddenError("This work order is assigned to another technician", true)
	}
	return wo, nil
}

// Create schedules a visit in pending state and asks the client to confirm.
func (s *WorkOrderService) Create(ctx context.Context, in *CreateWorkOrderInput) (*model.WorkOrder, error) {
	client, err := s.clients.Get(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if err := s.checkEquipment(ctx, in.EquipmentID, client.ID); err != nil {
		return nil, err
	}

	token, err := newConfirmationToken()
	if err != nil {
		return nil, err
	}

	duration := in.DurationMinutes
	if duration == 0 {
		duration = 60
	}

	created, err := s.orders.Create(ctx, &model.WorkOrder{
		ClientID:          client.ID,
		EquipmentID:       in.EquipmentID,
		TechnicianID:      in.TechnicianID,
		ScheduledFor:      in.ScheduledFor,
		DurationMinutes:   duration,
		Status:            model.WorkOrderPending,
		Description:       in.Description,
		RequiredSkills:    model.NormalizeSkills(in.RequiredSkills),
		ConfirmationToken: token,
	})
	if err != nil {
		return nil, err
	}

	s.requestClientConfirmation(ctx, created, client)
	return created, nil
}

func (s *WorkOrderService) checkEquipment(ctx context.Context, equipmentID *uuid.UUID, clientID uuid.UUID) error {
	if equipmentID == nil {
		return nil
	}
	eq, err := s.equipment.Get(ctx, *equipmentID)
	if err != nil {
		return err
	}
	if eq.ClientID != clientID {
		return errs.NewBadRequestError("Equipment belongs to another client", true, nil,
			[]errs.FieldError{{Field: "equipment_id", Error: "belongs to another client"}}, nil)
	}
	return nil
}

// Update edits descriptive fields of an open work order.
func (s *WorkOrderService) Update(ctx context.Context, id uuid.UUID, in *UpdateWorkOrderInput) (*model.WorkOrder, error) {
	wo, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if wo.Status.Terminal() {
		return nil, errs.NewConflictError("A closed work order cannot be edited", errs.Ptr(errs.CodeInvalidTransition))
	}
	if err := s.checkEquipment(ctx, in.EquipmentID, wo.ClientID); err != nil {
		return nil, err
	}

	wo.EquipmentID = in.EquipmentID
	if in.DurationMinutes > 0 {
		wo.DurationMinutes = in.DurationMinutes
	}
	wo.Description = in.Description
	wo.RequiredSkills = model.NormalizeSkills(in.RequiredSkills)

	saved, err := s.orders.Update(ctx, wo)
	if errors.Is(err, repository.ErrStaleWorkOrder) {
		return nil, staleError()
	}
	return saved, err
}

func (s *WorkOrderService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.orders.Delete(ctx, id)
}

// transition loads a work order, applies event and saves it. A write that
// lost a race with another transition is retried once on a fresh copy, so
// concurrent confirmations by technician and client both land.
func (s *WorkOrderService) transition(ctx context.Context, load func(context.Context) (*model.WorkOrder, error), event model.WorkOrderEvent, mutate func(*model.WorkOrder)) (*model.WorkOrder, error) {
	for attempt := 0; ; attempt++ {
		wo, err := load(ctx)
		if err != nil {
			return nil, err
		}

		before := wo.Status
		if err := wo.Apply(event, s.now()); err != nil {
			return nil, transitionError(err)
		}
		if mutate != nil {
			mutate(wo)
		}

		saved, err := s.orders.Update(ctx, wo)
		if errors.Is(err, repository.ErrStaleWorkOrder) {
			if attempt == 0 {
				s.logger.Debug().
					Str("work_order_id", wo.ID.String()).
					Str("event", string(event)).
					Msg("work order changed during transition, retrying")
				continue
			}
			return nil, staleError()
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info().
			Str("work_order_id", saved.ID.String()).
			Str("event", string(event)).
			Str("from", string(before)).
			Str("to", string(saved.Status)).
			Msg("work order transition")

		if before != model.WorkOrderConfirmed && saved.Status == model.WorkOrderConfirmed {
			s.notifyConfirmed(ctx, saved)
		}
		return saved, nil
	}
}

func staleError() error {
	return errs.NewConflictError("The work order was changed by someone else, try again", errs.Ptr(errs.CodeInvalidTransition))
}

// byID loads a work order for transition.
func (s *WorkOrderService) byID(id uuid.UUID) func(context.Context) (*model.WorkOrder, error) {
	return func(ctx context.Context) (*model.WorkOrder, error) {
		return s.orders.Get(ctx, id)
	}
}

// ownOrder loads a work order the caller may act on as its technician.
func (s *WorkOrderService) ownOrder(id uuid.UUID) func(context.Context) (*model.WorkOrder, error) {
	return func(ctx context.Context) (*model.WorkOrder, error) {
		p, err := requirePrincipal(ctx)
		if err != nil {
			return nil, err
		}
		wo, err := s.orders.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !canActAs(p, wo.TechnicianID) {
			return nil, errs.NewForbiddenError("This work order is assigned to another technician", true)
		}
		return wo, nil
	}
}

// ConfirmByTechnician records the assigned technician's confirmation.
func (s *WorkOrderService) ConfirmByTechnician(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error) {
	return s.transition(ctx, func(ctx context.Context) (*model.WorkOrder, error) {
		p, err := requirePrincipal(ctx)
		if err != nil {
			return nil, err
		}
		wo, err := s.orders.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.TechnicianID == nil || wo.TechnicianID == nil || *p.TechnicianID != *wo.TechnicianID {
			return nil, errs.NewForbiddenError("Only the assigned technician can confirm this work order", true)
		}
		return wo, nil
	}, model.EventTechnicianConfirm, nil)
}

// ConfirmByClient records the client's confirmation from an emailed link.
func (s *WorkOrderService) ConfirmByClient(ctx context.Context, token string) (*model.WorkOrder, error) {
	return s.transition(ctx, func(ctx context.Context) (*model.WorkOrder, error) {
		return s.orders.GetByToken(ctx, token)
	}, model.EventClientConfirm, nil)
}

// ByToken returns the work order an emailed link points to, without
// changing it.
func (s *WorkOrderService) ByToken(ctx context.Context, token string) (*model.WorkOrder, error) {
	return s.orders.GetByToken(ctx, token)
}

func (s *WorkOrderService) Start(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error) {
	return s.transition(ctx, s.ownOrder(id), model.EventStart, nil)
}

func (s *WorkOrderService) Complete(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error) {
	return s.transition(ctx, s.ownOrder(id), model.EventComplete, nil)
}

type CancelWorkOrderInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (i *CancelWorkOrderInput) Validate() error { return validation.Struct(i) }

func (s *WorkOrderService) Cancel(ctx context.Context, id uuid.UUID, in *CancelWorkOrderInput) (*model.WorkOrder, error) {
	reason := strings.TrimSpace(in.Reason)
	return s.transition(ctx, s.byID(id), model.EventCancel, func(w *model.WorkOrder) {
		w.CancelReason = &reason
	})
}

type RescheduleWorkOrderInput struct {
	ScheduledFor    time.Time `json:"scheduled_for" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,min=15,max=1440"`
}

func (i *RescheduleWorkOrderInput) Validate() error { return validation.Struct(i) }

// Reschedule moves the visit, clears both confirmations, rotates the
// confirmation token and asks the client to confirm again.
func (s *WorkOrderService) Reschedule(ctx context.Context, id uuid.UUID, in *RescheduleWorkOrderInput) (*model.WorkOrder, error) {
	token, err := newConfirmationToken()
	if err != nil {
		return nil, err
	}

	saved, err := s.transition(ctx, s.byID(id), model.EventReschedule, func(w *model.WorkOrder) {
		w.ScheduledFor = in.ScheduledFor
		if in.DurationMinutes > 0 {
			w.DurationMinutes = in.DurationMinutes
		}
		w.ConfirmationToken = token
	})
	if err != nil {
		return nil, err
	}

	if client, err := s.clients.Get(ctx, saved.ClientID); err == nil {
		s.requestClientConfirmation(ctx, saved, client)
	} else {
		s.logger.Error().Err(err).Str("work_order_id", saved.ID.String()).Msg("failed to load client for confirmation email")
	}
	return saved, nil
}

type AssignWorkOrderInput struct {
	TechnicianID uuid.UUID `json:"technician_id" validate:"required"`
}

func (i *AssignWorkOrderInput) Validate() error { return validation.Struct(i) }

// Assign sets the technician and clears the technician confirmation.
func (s *WorkOrderService) Assign(ctx context.Context, id uuid.UUID, in *AssignWorkOrderInput) (*model.WorkOrder, error) {
	tech, err := s.technicians.Get(ctx, in.TechnicianID)
	if err != nil {
		return nil, err
	}
	if !tech.Active {
		return nil, errs.NewBadRequestError("Technician is not active", true, nil,
			[]errs.FieldError{{Field: "technician_id", Error: "is not active"}}, nil)
	}

	return s.transition(ctx, s.byID(id), model.EventAssign, func(w *model.WorkOrder) {
		w.TechnicianID = &tech.ID
	})
}

// Matches ranks technicians for a work order by its client's location.
func (s *WorkOrderService) Matches(ctx context.Context, id uuid.UUID, limit int) ([]geo.Match, error) {
	wo, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.Get(ctx, wo.ClientID)
	if err != nil {
		return nil, err
	}
	location, ok := client.Location()
	if !ok {
		return nil, errs.NewUnprocessableError("The client address has no coordinates yet", nil)
	}
	return s.technicians.rank(ctx, location, wo.RequiredSkills, limit)
}

type ExportQuery struct {
	From time.Time `query:"from" validate:"required"`
	To   time.Time `query:"to" validate:"required,gtfield=From"`
}

func (q *ExportQuery) Validate() error {
	if err := validation.Struct(q); err != nil {
		return err
	}
	if q.To.Sub(q.From) > maxExportRange {
		return validation.CustomValidationErrors{{Field: "to", Message: "range must not exceed one year"}}
	}
	return nil
}

// ExportXLSX writes the work orders scheduled in [from, to) to a workbook.
func (s *WorkOrderService) ExportXLSX(ctx context.Context, q *ExportQuery) ([]byte, error) {
	orders, err := s.orders.ListAll(ctx, repository.WorkOrderFilter{From: &q.From, To: &q.To})
	if err != nil {
		return nil, err
	}
	return spreadsheet.WorkOrdersXLSX(orders)
}

func (s *WorkOrderService) requestClientConfirmation(ctx context.Context, wo *model.WorkOrder, client *model.Client) {
	if s.emails == nil || client.Email == "" {
		return
	}
	msg := email.WorkOrderConfirmationMessage(client.Email, client.Name, wo.ScheduledFor, wo.Description, s.confirmURL+wo.ConfirmationToken)
	if _, err := s.emails.Enqueue(ctx, msg); err != nil {
		s.logger.Error().Err(err).Str("work_order_id", wo.ID.String()).Msg("failed to queue confirmation email")
	}
}

func (s *WorkOrderService) notifyConfirmed(ctx context.Context, wo *model.WorkOrder) {
	if s.emails == nil {
		return
	}
	detail, err := s.orders.GetDetail(ctx, wo.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("work_order_id", wo.ID.String()).Msg("failed to load work order for confirmed email")
		return
	}
	client, err := s.clients.Get(ctx, wo.ClientID)
	if err != nil || client.Email == "" {
		return
	}

	technician := ""
	if detail.TechnicianName != nil {
		technician = *detail.TechnicianName
	}
	if _, err := s.emails.Enqueue(ctx, email.WorkOrderConfirmedMessage(client.Email, client.Name, wo.ScheduledFor, technician)); err != nil {
		s.logger.Error().Err(err).Str("work_order_id", wo.ID.String()).Msg("failed to queue confirmed email")
	}
}
