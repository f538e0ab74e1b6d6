package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/google/uuid"
)

const reportColumns = `id, equipment_id, client_id, technician_id, work_order_id, service_date, data, created_at, updated_at`

// ReportRepository persists maintenance reports.
type ReportRepository struct {
	db DBTX
}

func NewReportRepository(db DBTX) *ReportRepository {
	return &ReportRepository{db: db}
}

// ReportFilter narrows List. Nil ids do not filter.
type ReportFilter struct {
	ClientID     *uuid.UUID
	EquipmentID  *uuid.UUID
	TechnicianID *uuid.UUID
}

func (r *ReportRepository) List(ctx context.Context, f ReportFilter, page model.Page) (model.List[model.MaintenanceReport], error) {
	page = page.Normalize()
	where := `WHERE ($1::uuid IS NULL OR client_id = $1)
		AND ($2::uuid IS NULL OR equipment_id = $2)
		AND ($3::uuid IS NULL OR technician_id = $3)`
	args := []any{f.ClientID, f.EquipmentID, f.TechnicianID}

	total, err := count(ctx, r.db, `SELECT COUNT(*) FROM maintenance_reports `+where, args...)
	if err != nil {
		return model.List[model.MaintenanceReport]{}, fmt.Errorf("count reports: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+reportColumns+` FROM maintenance_reports `+where+` ORDER BY service_date DESC, id LIMIT $4 OFFSET $5`,
		append(args, page.Limit, page.Offset)...)
	items, err := collectAll[model.MaintenanceReport](rows, err)
	if err != nil {
		return model.List[model.MaintenanceReport]{}, fmt.Errorf("list reports: %w", err)
	}

	return model.List[model.MaintenanceReport]{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

func (r *ReportRepository) Get(ctx context.Context, id uuid.UUID) (*model.MaintenanceReport, error) {
	rows, err := r.db.Query(ctx, `SELECT `+reportColumns+` FROM maintenance_reports WHERE id = $1`, id)
	return collectOne[model.MaintenanceReport](rows, err, "maintenance_reports")
}

func (r *ReportRepository) Create(ctx context.Context, m *model.MaintenanceReport) (*model.MaintenanceReport, error) {
	rows, err := r.db.Query(ctx, `
		INSERT INTO maintenance_reports (equipment_id, client_id, technician_id, work_order_id, service_date, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+reportColumns,
		m.EquipmentID, m.ClientID, m.TechnicianID, m.WorkOrderID, m.ServiceDate, m.Data)
	return collectOne[model.MaintenanceReport](rows, err, "maintenance_reports")
}

func (r *ReportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM maintenance_reports WHERE id = $1`, id)
	return expectAffected(tag, err, "maintenance_reports")
}

// CountSince counts reports with a service date at or after since.
func (r *ReportRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM maintenance_reports WHERE service_date >= $1`, since)
}

// RecentByTechnician returns one technician's reports since a date, newest first.
func (r *ReportRepository) RecentByTechnician(ctx context.Context, technicianID uuid.UUID, since time.Time, limit int) ([]model.MaintenanceReport, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+reportColumns+` FROM maintenance_reports
		WHERE technician_id = $1 AND service_date >= $2
		ORDER BY service_date DESC, id
		LIMIT $3`,
		technicianID, since, limit)
	return collectAll[model.MaintenanceReport](rows, err)
}
