package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deppfellow/aquaservice/internal/config"
	"github.com/deppfellow/aquaservice/internal/errs"
	"github.com/deppfellow/aquaservice/internal/lib/email"
	"github.com/deppfellow/aquaservice/internal/logger"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type emailQueueStore interface {
	Enqueue(ctx context.Context, to, subject, template string, data map[string]string) (*model.EmailMessage, error)
	Claim(ctx context.Context, limit int, lease time.Duration) ([]model.EmailMessage, error)
	MarkSent(ctx context.Context, id uuid.UUID, providerID string, at time.Time) error
	MarkAttemptFailed(ctx context.Context, id uuid.UUID, message string, maxAttempts int) (model.EmailStatus, error)
	List(ctx context.Context, status model.EmailStatus, page model.Page) (model.List[model.EmailMessage], error)
	Retry(ctx context.Context, id uuid.UUID) (*model.EmailMessage, error)
}

// claimLease is how long a drain owns the rows it claimed.
const claimLease = 5 * time.Minute

// EmailQueueService persists outgoing email and delivers it in bounded,
// sequential batches.
type EmailQueueService struct {
	queue       emailQueueStore
	mailer      Mailer
	scheduler   DrainScheduler
	reports     *ReportService
	remitos     *RemitoService
	batchSize   int
	maxAttempts int
	now         func() time.Time
	logger      *zerolog.Logger
}

func NewEmailQueueService(queue emailQueueStore, mailer Mailer, scheduler DrainScheduler, cfg config.JobsConfig, logger *zerolog.Logger) *EmailQueueService {
	return &EmailQueueService{
		queue:       queue,
		mailer:      mailer,
		scheduler:   scheduler,
		batchSize:   cfg.EmailBatchSize,
		maxAttempts: cfg.EmailMaxAttempts,
		now:         time.Now,
		logger:      logger,
	}
}

// SetDocuments gives the queue access to the PDFs it attaches at send time.
func (s *EmailQueueService) SetDocuments(reports *ReportService, remitos *RemitoService) {
	s.reports = reports
	s.remitos = remitos
}

// Enqueue stores msg as pending and asks the workers to drain soon.
func (s *EmailQueueService) Enqueue(ctx context.Context, msg email.Message) (*model.EmailMessage, error) {
	if !msg.Template.Valid() {
		return nil, fmt.Errorf("%w: %s", email.ErrUnknownTemplate, msg.Template)
	}
	if msg.To == "" {
		return nil, errs.NewUnprocessableError("Email recipient is required",
			[]errs.FieldError{{Field: "to", Error: "is required"}})
	}

	queued, err := s.queue.Enqueue(ctx, msg.To, msg.Subject, string(msg.Template), msg.Data)
	if err != nil {
		return nil, err
	}

	event := s.logger.Info().
		Str("email_id", queued.ID.String()).
		Str("template", queued.Template)
	if requestID := logger.RequestIDFromContext(ctx); requestID != "" {
		event = event.Str("request_id", requestID)
	}
	event.Msg("email queued")

	s.scheduleDrain(ctx)
	return queued, nil
}

func (s *EmailQueueService) scheduleDrain(ctx context.Context) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.EnqueueEmailDrain(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to schedule email drain, the periodic drain will pick it up")
	}
}

// Drain sends at most one batch of pending email, one message at a time.
func (s *EmailQueueService) Drain(ctx context.Context) (model.DrainResult, error) {
	var result model.DrainResult

	batch, err := s.queue.Claim(ctx, s.batchSize, claimLease)
	if err != nil {
		return result, fmt.Errorf("claim email batch: %w", err)
	}

	for i := range batch {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		msg := &batch[i]
		result.Processed++

		providerID, sendErr := s.send(ctx, msg)
		if sendErr == nil {
			if err := s.queue.MarkSent(ctx, msg.ID, providerID, s.now()); err != nil {
				return result, fmt.Errorf("mark email %s sent: %w", msg.ID, err)
			}
			result.Sent++
			s.afterSent(ctx, msg)
			continue
		}

		status, err := s.queue.MarkAttemptFailed(ctx, msg.ID, sendErr.Error(), s.maxAttempts)
		if err != nil {
			return result, fmt.Errorf("record failed attempt for email %s: %w", msg.ID, err)
		}

		event := s.logger.Warn()
		if status == model.EmailFailed {
			result.Failed++
			event = s.logger.Error()
		} else {
			result.Retrying++
		}
		event.Err(sendErr).
			Str("email_id", msg.ID.String()).
			Int("attempt", msg.Attempts+1).
			Str("status", string(status)).
			Msg("email delivery failed")
	}

	return result, nil
}

func (s *EmailQueueService) send(ctx context.Context, msg *model.EmailMessage) (string, error) {
	if s.mailer == nil {
		return "", errors.New("no mailer configured")
	}

	attachments, err := s.attachments(ctx, msg)
	if err != nil {
		return "", err
	}

	return s.mailer.Send(ctx, email.Message{
		To:       msg.To,
		Subject:  msg.Subject,
		Template: email.Template(msg.Template),
		Data:     msg.Data,
	}, attachments...)
}

// attachments renders the PDFs referenced by msg.Data.
func (s *EmailQueueService) attachments(ctx context.Context, msg *model.EmailMessage) ([]email.Attachment, error) {
	var out []email.Attachment

	if raw, ok := msg.Data[email.DataReportID]; ok && s.reports != nil {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", email.DataReportID, raw, err)
		}
		a, err := s.reports.attachment(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("attach report: %w", err)
		}
		out = append(out, a)
	}

	if raw, ok := msg.Data[email.DataRemitoID]; ok && s.remitos != nil {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", email.DataRemitoID, raw, err)
		}
		a, err := s.remitos.attachment(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("attach remito: %w", err)
		}
		out = append(out, a)
	}

	return out, nil
}

func (s *EmailQueueService) afterSent(ctx context.Context, msg *model.EmailMessage) {
	raw, ok := msg.Data[email.DataRemitoID]
	if !ok || s.remitos == nil {
		return
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return
	}
	if err := s.remitos.MarkEmailed(ctx, id, s.now()); err != nil {
		s.logger.Error().Err(err).Str("remito_id", raw).Msg("failed to mark remito emailed")
	}
}

type EmailQueueQuery struct {
	Status model.EmailStatus `query:"status" validate:"omitempty,oneof=pending sent failed"`
	model.Page
}

func (q *EmailQueueQuery) Validate() error { return validation.Struct(q) }

func (s *EmailQueueService) List(ctx context.Context, q *EmailQueueQuery) (model.List[model.EmailMessage], error) {
	return s.queue.List(ctx, q.Status, q.Page)
}

// Retry moves a failed message back to pending with its attempt count reset.
func (s *EmailQueueService) Retry(ctx context.Context, id uuid.UUID) (*model.EmailMessage, error) {
	msg, err := s.queue.Retry(ctx, id)
	if err != nil {
		return nil, err
	}
	s.scheduleDrain(ctx)
	return msg, nil
}

// Preview renders a template with sample data.
func (s *EmailQueueService) Preview(name email.Template) (string, error) {
	if !name.Valid() {
		return "", errs.NewNotFoundError("Unknown email template", true, nil)
	}
	return s.mailer.Preview(name)
}
