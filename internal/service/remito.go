package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deppfellow/aquaservice/internal/errs"
	"github.com/deppfellow/aquaservice/internal/lib/email"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type remitoStore interface {
	List(ctx context.Context, clientID *uuid.UUID, page model.Page) (model.List[model.Remito], error)
	Get(ctx context.Context, id uuid.UUID) (*model.Remito, error)
	Create(ctx context.Context, m *model.Remito) (*model.Remito, error)
	MarkEmailed(ctx context.Context, id uuid.UUID, at time.Time) error
}

// RemitoService issues numbered receipts.
type RemitoService struct {
	remitos  remitoStore
	clients  clientStore
	orders   workOrderStore
	renderer Renderer
	emails   Enqueuer
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewRemitoService(
	remitos remitoStore,
	clients clientStore,
	orders workOrderStore,
	renderer Renderer,
	emails Enqueuer,
	logger *zerolog.Logger,
) *RemitoService {
	return &RemitoService{
		remitos:  remitos,
		clients:  clients,
		orders:   orders,
		renderer: renderer,
		emails:   emails,
		now:      time.Now,
		logger:   logger,
	}
}

type CreateRemitoInput struct {
	ClientID    uuid.UUID          `json:"client_id" validate:"required"`
	WorkOrderID *uuid.UUID         `json:"work_order_id"`
	IssuedAt    *time.Time         `json:"issued_at"`
	Items       []model.RemitoItem `json:"items" validate:"required,min=1,max=100,dive"`
	Notes       string             `json:"notes" validate:"max=2000"`
}

func (i *CreateRemitoInput) Validate() error {
	if err := validation.Struct(i); err != nil {
		return err
	}

	var fieldErrs validation.CustomValidationErrors
	for n, item := range i.Items {
		if !item.Quantity.IsPositive() {
			fieldErrs = append(fieldErrs, validation.CustomValidationError{
				Field: fmt.Sprintf("items[%d].quantity", n), Message: "must be greater than 0",
			})
		}
		if item.UnitPrice.IsNegative() {
			fieldErrs = append(fieldErrs, validation.CustomValidationError{
				Field: fmt.Sprintf("items[%d].unit_price", n), Message: "must not be negative",
			})
		}
	}
	if len(fieldErrs) > 0 {
		return fieldErrs
	}
	return nil
}

type RemitoQuery struct {
	ClientID *uuid.UUID `query:"client_id"`
	model.Page
}

func (q *RemitoQuery) Validate() error { return validation.Struct(q) }

// Create issues a remito; the number comes from a database sequence.
func (s *RemitoService) Create(ctx context.Context, in *CreateRemitoInput) (*model.Remito, error) {
	client, err := s.clients.Get(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if in.WorkOrderID != nil {
		wo, err := s.orders.Get(ctx, *in.WorkOrderID)
		if err != nil {
			return nil, err
		}
		if wo.ClientID != client.ID {
			return nil, errs.NewBadRequestError("Work order belongs to another client", true, nil,
				[]errs.FieldError{{Field: "work_order_id", Error: "belongs to another client"}}, nil)
		}
	}

	issued := s.now()
	if in.IssuedAt != nil {
		issued = *in.IssuedAt
	}

	items := make([]model.RemitoItem, len(in.Items))
	for n, item := range in.Items {
		items[n] = model.RemitoItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.Round(2),
		}
	}

	return s.remitos.Create(ctx, &model.Remito{
		ClientID:    client.ID,
		WorkOrderID: in.WorkOrderID,
		IssuedAt:    issued,
		Items:       items,
		Notes:       strings.TrimSpace(in.Notes),
	})
}

func (s *RemitoService) List(ctx context.Context, q *RemitoQuery) (model.List[model.Remito], error) {
	return s.remitos.List(ctx, q.ClientID, q.Page)
}

func (s *RemitoService) Get(ctx context.Context, id uuid.UUID) (*model.Remito, error) {
	return s.remitos.Get(ctx, id)
}

func (s *RemitoService) Document(ctx context.Context, id uuid.UUID) (*model.RemitoDocument, error) {
	remito, err := s.remitos.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.Get(ctx, remito.ClientID)
	if err != nil {
		return nil, err
	}
	return &model.RemitoDocument{Remito: *remito, Client: *client}, nil
}

// RemitoFilename is the attachment name of a rendered remito.
func RemitoFilename(r *model.Remito) string {
	return fmt.Sprintf("remito-%s.pdf", r.DisplayNumber())
}

func (s *RemitoService) PDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	doc, err := s.Document(ctx, id)
	if err != nil {
		return nil, "", err
	}
	out, err := s.renderer.Remito(doc)
	if err != nil {
		return nil, "", fmt.Errorf("render remito %s: %w", id, err)
	}
	return out, RemitoFilename(&doc.Remito), nil
}

// attachment renders a remito for an outgoing email.
func (s *RemitoService) attachment(ctx context.Context, id uuid.UUID) (email.Attachment, error) {
	out, filename, err := s.PDF(ctx, id)
	if err != nil {
		return email.Attachment{}, err
	}
	return email.Attachment{Filename: filename, Content: out}, nil
}

// Send queues the remito email; EmailedAt is set once it is delivered.
func (s *RemitoService) Send(ctx context.Context, id uuid.UUID) (*model.EmailMessage, error) {
	doc, err := s.Document(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Client.Email == "" {
		return nil, errs.NewUnprocessableError("The client has no email address",
			[]errs.FieldError{{Field: "email", Error: "is missing on the client"}})
	}

	msg := email.RemitoMessage(doc.Client.Email, doc.Client.Name, id.String(),
		doc.Remito.DisplayNumber(), formatMoney(doc.Remito.Total()))
	return s.emails.Enqueue(ctx, msg)
}

// MarkEmailed records delivery of the remito email.
func (s *RemitoService) MarkEmailed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.remitos.MarkEmailed(ctx, id, at)
}

func formatMoney(d decimal.Decimal) string {
	return "$ " + d.StringFixed(2)
}
