package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/google/uuid"
)

const emailColumns = `id, recipient, subject, template, data, status, attempts, last_error, provider_id, sent_at, created_at, updated_at`

// EmailQueueRepository persists the outgoing email queue.
type EmailQueueRepository struct {
	db DBTX
}

func NewEmailQueueRepository(db DBTX) *EmailQueueRepository {
	return &EmailQueueRepository{db: db}
}

// Enqueue inserts a pending message.
func (r *EmailQueueRepository) Enqueue(ctx context.Context, to, subject, template string, data map[string]string) (*model.EmailMessage, error) {
	if data == nil {
		data = map[string]string{}
	}
	rows, err := r.db.Query(ctx, `
		INSERT INTO email_queue (recipient, subject, template, data)
		VALUES ($1, $2, $3, $4)
		RETURNING `+emailColumns,
		to, subject, template, data)
	return collectOne[model.EmailMessage](rows, err, "email_queue")
}

// Claim leases up to limit pending rows, oldest first, for lease.
//
// Rows locked by a concurrent claim are skipped, and a leased row is not
// handed out again until its lease runs out, so two drains never send the
// same message.
func (r *EmailQueueRepository) Claim(ctx context.Context, limit int, lease time.Duration) ([]model.EmailMessage, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE email_queue
		SET locked_until = NOW() + make_interval(secs => $2)
		WHERE id IN (
			SELECT id FROM email_queue
			WHERE status = 'pending' AND (locked_until IS NULL OR locked_until < NOW())
			ORDER BY created_at, id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+emailColumns,
		limit, lease.Seconds())
	items, err := collectAll[model.EmailMessage](rows, err)
	if err != nil {
		return nil, fmt.Errorf("claim email batch: %w", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// MarkSent records a successful delivery and releases the lease.
func (r *EmailQueueRepository) MarkSent(ctx context.Context, id uuid.UUID, providerID string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE email_queue
		SET status = 'sent', provider_id = $2, sent_at = $3, attempts = attempts + 1,
		    last_error = NULL, locked_until = NULL
		WHERE id = $1`,
		id, providerID, at)
	return expectAffected(tag, err, "email_queue")
}

// MarkAttemptFailed counts a failed attempt. The row becomes failed once
// attempts reach maxAttempts and stays pending otherwise. It returns the
// resulting status.
func (r *EmailQueueRepository) MarkAttemptFailed(ctx context.Context, id uuid.UUID, message string, maxAttempts int) (model.EmailStatus, error) {
	var status string
	err := r.db.QueryRow(ctx, `
		UPDATE email_queue
		SET attempts = attempts + 1,
		    last_error = $2,
		    locked_until = NULL,
		    status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE 'pending' END
		WHERE id = $1
		RETURNING status`,
		id, message, maxAttempts).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("record failed attempt: %w", err)
	}
	return model.EmailStatus(status), nil
}

// List returns queue rows, newest first, optionally of one status.
func (r *EmailQueueRepository) List(ctx context.Context, status model.EmailStatus, page model.Page) (model.List[model.EmailMessage], error) {
	page = page.Normalize()
	where := `WHERE ($1 = '' OR status = $1)`

	total, err := count(ctx, r.db, `SELECT COUNT(*) FROM email_queue `+where, string(status))
	if err != nil {
		return model.List[model.EmailMessage]{}, fmt.Errorf("count email queue: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+emailColumns+` FROM email_queue `+where+` ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		string(status), page.Limit, page.Offset)
	items, err := collectAll[model.EmailMessage](rows, err)
	if err != nil {
		return model.List[model.EmailMessage]{}, fmt.Errorf("list email queue: %w", err)
	}

	return model.List[model.EmailMessage]{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

// Retry moves a failed row back to pending with its attempt count reset.
func (r *EmailQueueRepository) Retry(ctx context.Context, id uuid.UUID) (*model.EmailMessage, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE email_queue
		SET status = 'pending', attempts = 0, last_error = NULL, locked_until = NULL
		WHERE id = $1 AND status = 'failed'
		RETURNING `+emailColumns,
		id)
	return collectOne[model.EmailMessage](rows, err, "email_queue")
}

func (r *EmailQueueRepository) CountByStatus(ctx context.Context, status model.EmailStatus) (int, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM email_queue WHERE status = $1`, string(status))
}
