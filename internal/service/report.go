package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deppfellow/aquaservice/internal/errs"
	"github.com/deppfellow/aquaservice/internal/lib/email"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/repository"
	"github.com/deppfellow/aquaservice/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type reportStore interface {
	List(ctx context.Context, f repository.ReportFilter, page model.Page) (model.List[model.MaintenanceReport], error)
	Get(ctx context.Context, id uuid.UUID) (*model.MaintenanceReport, error)
	Create(ctx context.Context, m *model.MaintenanceReport) (*model.MaintenanceReport, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Renderer lays out PDF documents.
type Renderer interface {
	MaintenanceReport(doc *model.ReportDocument) ([]byte, error)
	Remito(doc *model.RemitoDocument) ([]byte, error)
}

// ReportService stores maintenance reports and renders them.
type ReportService struct {
	reports     reportStore
	equipment   equipmentStore
	clients     clientStore
	technicians technicianStore
	orders      workOrderStore
	renderer    Renderer
	emails      Enqueuer
	logger      *zerolog.Logger
}

func NewReportService(
	reports reportStore,
	equipment equipmentStore,
	clients clientStore,
	technicians technicianStore,
	orders workOrderStore,
	renderer Renderer,
	emails Enqueuer,
	logger *zerolog.Logger,
) *ReportService {
	return &ReportService{
		reports:     reports,
		equipment:   equipment,
		clients:     clients,
		technicians: technicians,
		orders:      orders,
		renderer:    renderer,
		emails:      emails,
		logger:      logger,
	}
}

type CreateReportInput struct {
	EquipmentID uuid.UUID  `json:"equipment_id" validate:"required"`
	WorkOrderID *uuid.UUID `json:"work_order_id"`
	// TechnicianID is only honoured for admins; technicians always file as themselves.
	TechnicianID *uuid.UUID       `json:"technician_id"`
	ServiceDate  time.Time        `json:"service_date" validate:"required"`
	Data         model.ReportData `json:"data"`
}

func (i *CreateReportInput) Validate() error { return validation.Struct(i) }

type ReportQuery struct {
	ClientID     *uuid.UUID `query:"client_id"`
	EquipmentID  *uuid.UUID `query:"equipment_id"`
	TechnicianID *uuid.UUID `query:"technician_id"`
	model.Page
}

func (q *ReportQuery) Validate() error { return validation.Struct(q) }

// Create files a report for a piece of equipment.
func (s *ReportService) Create(ctx context.Context, in *CreateReportInput) (*model.MaintenanceReport, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	technicianID := p.TechnicianID
	if p.IsAdmin() && in.TechnicianID != nil {
		technicianID = in.TechnicianID
	}
	if technicianID == nil {
		return nil, errs.NewBadRequestError("A technician is required", true, nil,
			[]errs.FieldError{{Field: "technician_id", Error: "is required"}}, nil)
	}

	eq, err := s.equipment.Get(ctx, in.EquipmentID)
	if err != nil {
		return nil, err
	}
	if err := in.Data.CheckEquipmentType(eq.Type); err != nil {
		return nil, errs.NewUnprocessableError("Report does not match the equipment type",
			[]errs.FieldError{{Field: "data", Error: err.Error()}})
	}

	if in.WorkOrderID != nil {
		wo, err := s.orders.Get(ctx, *in.WorkOrderID)
		if err != nil {
			return nil, err
		}
		if wo.ClientID != eq.ClientID {
			return nil, errs.NewBadRequestError("Work order belongs to another client", true, nil,
				[]errs.FieldError{{Field: "work_order_id", Error: "belongs to another client"}}, nil)
		}
		if wo.EquipmentID != nil && *wo.EquipmentID != eq.ID {
			return nil, errs.NewBadRequestError("Work order is for another piece of equipment", true, nil,
				[]errs.FieldError{{Field: "work_order_id", Error: "is for another piece of equipment"}}, nil)
		}
		if !canActAs(p, wo.TechnicianID) {
			return nil, errs.NewForbiddenError("This work order is assigned to another technician", true)
		}
	}

	return s.reports.Create(ctx, &model.MaintenanceReport{
		EquipmentID:  eq.ID,
		ClientID:     eq.ClientID,
		TechnicianID: *technicianID,
		WorkOrderID:  in.WorkOrderID,
		ServiceDate:  in.ServiceDate,
		Data:         in.Data,
	})
}

// List returns reports; technicians only see the ones they filed.
func (s *ReportService) List(ctx context.Context, q *ReportQuery) (model.List[model.MaintenanceReport], error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return model.List[model.MaintenanceReport]{}, err
	}

	f := repository.ReportFilter{ClientID: q.ClientID, EquipmentID: q.EquipmentID, TechnicianID: q.TechnicianID}
	if !p.IsAdmin() {
		f.TechnicianID = p.TechnicianID
	}
	return s.reports.List(ctx, f, q.Page)
}

func (s *ReportService) Get(ctx context.Context, id uuid.UUID) (*model.MaintenanceReport, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	report, err := s.reports.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canActAs(p, &report.TechnicianID) {
		return nil, errs.NewForbiddenError("This report was filed by another technician", true)
	}
	return report, nil
}

func (s *ReportService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.reports.Delete(ctx, id)
}

// Document loads a report together with everything printed on it.
func (s *ReportService) Document(ctx context.Context, id uuid.UUID) (*model.ReportDocument, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.document(ctx, report)
}

func (s *ReportService) document(ctx context.Context, report *model.MaintenanceReport) (*model.ReportDocument, error) {
	doc := &model.ReportDocument{Report: *report}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		eq, err := s.equipment.Get(gctx, report.EquipmentID)
		if err != nil {
			return err
		}
		doc.Equipment = *eq
		return nil
	})
	g.Go(func() error {
		client, err := s.clients.Get(gctx, report.ClientID)
		if err != nil {
			return err
		}
		doc.Client = *client
		return nil
	})
	g.Go(func() error {
		tech, err := s.technicians.Get(gctx, report.TechnicianID)
		if err != nil {
			return err
		}
		doc.Technician = *tech
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return doc, nil
}

// attachment renders a report for an outgoing email.
func (s *ReportService) attachment(ctx context.Context, id uuid.UUID) (email.Attachment, error) {
	report, err := s.reports.Get(ctx, id)
	if err != nil {
		return email.Attachment{}, err
	}
	doc, err := s.document(ctx, report)
	if err != nil {
		return email.Attachment{}, err
	}
	out, err := s.renderer.MaintenanceReport(doc)
	if err != nil {
		return email.Attachment{}, fmt.Errorf("render report %s: %w", id, err)
	}
	return email.Attachment{Filename: ReportFilename(id), Content: out}, nil
}

// ReportFilename is the attachment name of a rendered report.
func ReportFilename(id uuid.UUID) string {
	return fmt.Sprintf("report-%s.pdf", id)
}

// PDF renders a report and returns the bytes and a download filename.
func (s *ReportService) PDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	doc, err := s.Document(ctx, id)
	if err != nil {
		return nil, "", err
	}

	out, err := s.renderer.MaintenanceReport(doc)
	if err != nil {
		return nil, "", fmt.Errorf("render report %s: %w", id, err)
	}
	return out, ReportFilename(id), nil
}

// Email queues the "report ready" email with the PDF attached at send time.
func (s *ReportService) Email(ctx context.Context, id uuid.UUID) (*model.EmailMessage, error) {
	doc, err := s.Document(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Client.Email == "" {
		return nil, errs.NewUnprocessableError("The client has no email address",
			[]errs.FieldError{{Field: "email", Error: "is missing on the client"}})
	}

	equipment := strings.TrimSpace(strings.Join([]string{doc.Equipment.Type.Label(), doc.Equipment.Brand, doc.Equipment.Model}, " "))
	msg := email.ReportReadyMessage(doc.Client.Email, doc.Client.Name, id.String(), equipment, doc.Report.ServiceDate)
	return s.emails.Enqueue(ctx, msg)
}
