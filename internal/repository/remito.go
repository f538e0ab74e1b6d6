package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/google/uuid"
)

const remitoColumns = `id, number, client_id, work_order_id, issued_at, items, notes, emailed_at, created_at, updated_at`

// RemitoRepository persists remitos. Numbers come from remito_number_seq.
type RemitoRepository struct {
	db DBTX
}

func NewRemitoRepository(db DBTX) *RemitoRepository {
	return &RemitoRepository{db: db}
}

func (r *RemitoRepository) List(ctx context.Context, clientID *uuid.UUID, page model.Page) (model.List[model.Remito], error) {
	page = page.Normalize()
	where := `WHERE ($1::uuid IS NULL OR client_id = $1)`

	total, err := count(ctx, r.db, `SELECT COUNT(*) FROM remitos `+where, clientID)
	if err != nil {
		return model.List[model.Remito]{}, fmt.Errorf("count remitos: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+remitoColumns+` FROM remitos `+where+` ORDER BY number DESC LIMIT $2 OFFSET $3`,
		clientID, page.Limit, page.Offset)
	items, err := collectAll[model.Remito](rows, err)
	if err != nil {
		return model.List[model.Remito]{}, fmt.Errorf("list remitos: %w", err)
	}

	return model.List[model.Remito]{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

func (r *RemitoRepository) Get(ctx context.Context, id uuid.UUID) (*model.Remito, error) {
	rows, err := r.db.Query(ctx, `SELECT `+remitoColumns+` FROM remitos WHERE id = $1`, id)
	return collectOne[model.Remito](rows, err, "remitos")
}

// Create inserts a remito; the number is assigned by the database.
func (r *RemitoRepository) Create(ctx context.Context, m *model.Remito) (*model.Remito, error) {
	rows, err := r.db.Query(ctx, `
		INSERT INTO remitos (client_id, work_order_id, issued_at, items, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+remitoColumns,
		m.ClientID, m.WorkOrderID, m.IssuedAt, m.Items, m.Notes)
	return collectOne[model.Remito](rows, err, "remitos")
}

func (r *RemitoRepository) MarkEmailed(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE remitos SET emailed_at = $2 WHERE id = $1`, id, at)
	return expectAffected(tag, err, "remitos")
}
