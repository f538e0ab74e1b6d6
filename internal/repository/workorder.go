package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrStaleWorkOrder is returned by Update when the row changed after it
// was read.
var ErrStaleWorkOrder = errors.New("work order was modified concurrently")

const workOrderColumns = `id, client_id, equipment_id, technician_id, scheduled_for, duration_minutes, status,
	description, required_skills, technician_confirmed_at, client_confirmed_at, confirmation_token,
	started_at, completed_at, cancel_reason, version, created_at, updated_at`

const workOrderDetailColumns = `w.id, w.client_id, w.equipment_id, w.technician_id, w.scheduled_for, w.duration_minutes,
	w.status, w.description, w.required_skills, w.technician_confirmed_at, w.client_confirmed_at,
	w.confirmation_token, w.started_at, w.completed_at, w.cancel_reason, w.version, w.created_at, w.updated_at,
	c.name AS client_name,
	concat_ws(', ', NULLIF(c.address, ''), NULLIF(c.city, '')) AS client_address,
	t.name AS technician_name`

const workOrderDetailFrom = `FROM work_orders w
	JOIN clients c ON c.id = w.client_id
	LEFT JOIN technicians t ON t.id = w.technician_id`

// WorkOrderRepository persists scheduled visits.
type WorkOrderRepository struct {
	db DBTX
}

func NewWorkOrderRepository(db DBTX) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

// WorkOrderFilter narrows List. Zero values do not filter.
type WorkOrderFilter struct {
	Status       model.WorkOrderStatus
	TechnicianID *uuid.UUID
	ClientID     *uuid.UUID
	From         *time.Time
	To           *time.Time
}

func (f WorkOrderFilter) args() []any {
	return []any{string(f.Status), f.TechnicianID, f.ClientID, f.From, f.To}
}

const workOrderWhere = `WHERE ($1 = '' OR w.status = $1)
	AND ($2::uuid IS NULL OR w.technician_id = $2)
	AND ($3::uuid IS NULL OR w.client_id = $3)
	AND ($4::timestamptz IS NULL OR w.scheduled_for >= $4)
	AND ($5::timestamptz IS NULL OR w.scheduled_for < $5)`

// List returns work orders with client and technician names, by schedule.
func (r *WorkOrderRepository) List(ctx context.Context, f WorkOrderFilter, page model.Page) (model.List[model.WorkOrderDetail], error) {
	page = page.Normalize()

	total, err := count(ctx, r.db, `SELECT COUNT(*) `+workOrderDetailFrom+` `+workOrderWhere, f.args()...)
	if err != nil {
		return model.List[model.WorkOrderDetail]{}, fmt.Errorf("count work orders: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+workOrderDetailColumns+` `+workOrderDetailFrom+` `+workOrderWhere+`
		ORDER BY w.scheduled_for, w.id LIMIT $6 OFFSET $7`,
		append(f.args(), page.Limit, page.Offset)...)
	items, err := collectAll[model.WorkOrderDetail](rows, err)
	if err != nil {
		return model.List[model.WorkOrderDetail]{}, fmt.Errorf("list work orders: %w", err)
	}

	return model.List[model.WorkOrderDetail]{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

// ListAll returns every work order matching f, for exports.
func (r *WorkOrderRepository) ListAll(ctx context.Context, f WorkOrderFilter) ([]model.WorkOrderDetail, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+workOrderDetailColumns+` `+workOrderDetailFrom+` `+workOrderWhere+` ORDER BY w.scheduled_for, w.id`,
		f.args()...)
	return collectAll[model.WorkOrderDetail](rows, err)
}

func (r *WorkOrderRepository) Get(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error) {
	rows, err := r.db.Query(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE id = $1`, id)
	return collectOne[model.WorkOrder](rows, err, "work_orders")
}

func (r *WorkOrderRepository) GetDetail(ctx context.Context, id uuid.UUID) (*model.WorkOrderDetail, error) {
	rows, err := r.db.Query(ctx, `SELECT `+workOrderDetailColumns+` `+workOrderDetailFrom+` WHERE w.id = $1`, id)
	return collectOne[model.WorkOrderDetail](rows, err, "work_orders")
}

func (r *WorkOrderRepository) GetByToken(ctx context.Context, token string) (*model.WorkOrder, error) {
	rows, err := r.db.Query(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE confirmation_token = $1`, token)
	return collectOne[model.WorkOrder](rows, err, "work_orders")
}

func (r *WorkOrderRepository) Create(ctx context.Context, w *model.WorkOrder) (*model.WorkOrder, error) {
	rows, err := r.db.Query(ctx, `
		INSERT INTO work_orders (client_id, equipment_id, technician_id, scheduled_for, duration_minutes,
		                         status, description, required_skills, confirmation_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+workOrderColumns,
		w.ClientID, w.EquipmentID, w.TechnicianID, w.ScheduledFor, w.DurationMinutes,
		w.Status, w.Description, w.RequiredSkills, w.ConfirmationToken)
	return collectOne[model.WorkOrder](rows, err, "work_orders")
}

// Update writes every mutable column, including state machine fields.
// Update writes w only if the stored row still has w.Version, bumping the
// version. A row that changed (or vanished) since it was read gives
// ErrStaleWorkOrder.
func (r *WorkOrderRepository) Update(ctx context.Context, w *model.WorkOrder) (*model.WorkOrder, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE work_orders
		SET equipment_id = $2, technician_id = $3, scheduled_for = $4, duration_minutes = $5, status = $6,
		    description = $7, required_skills = $8, technician_confirmed_at = $9, client_confirmed_at = $10,
		    confirmation_token = $11, started_at = $12, completed_at = $13, cancel_reason = $14,
		    version = version + 1
		WHERE id = $1 AND version = $15
		RETURNING `+workOrderColumns,
		w.ID, w.EquipmentID, w.TechnicianID, w.ScheduledFor, w.DurationMinutes, w.Status,
		w.Description, w.RequiredSkills, w.TechnicianConfirmedAt, w.ClientConfirmedAt,
		w.ConfirmationToken, w.StartedAt, w.CompletedAt, w.CancelReason, w.Version)
	if err != nil {
		return nil, err
	}
	saved, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.WorkOrder])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStaleWorkOrder
	}
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *WorkOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM work_orders WHERE id = $1`, id)
	return expectAffected(tag, err, "work_orders")
}

// CountByStatus returns a count for every status, zero included.
func (r *WorkOrderRepository) CountByStatus(ctx context.Context) (map[model.WorkOrderStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM work_orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.WorkOrderStatus]int, len(model.AllWorkOrderStatuses))
	for _, s := range model.AllWorkOrderStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.WorkOrderStatus(status)] = n
	}
	return counts, rows.Err()
}

// Upcoming returns open work orders scheduled in [from, to), optionally
// only those assigned to one technician.
func (r *WorkOrderRepository) Upcoming(ctx context.Context, from, to time.Time, technicianID *uuid.UUID, limit int) ([]model.WorkOrder, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+workOrderColumns+` FROM work_orders
		WHERE scheduled_for >= $1 AND scheduled_for < $2
		  AND status NOT IN ('completed', 'cancelled')
		  AND ($3::uuid IS NULL OR technician_id = $3)
		ORDER BY scheduled_for, id
		LIMIT $4`,
		from, to, technicianID, limit)
	return collectAll[model.WorkOrder](rows, err)
}
