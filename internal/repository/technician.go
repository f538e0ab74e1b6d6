package repository

import (
	"context"
	"fmt"

	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/google/uuid"
)

const technicianColumns = `id, name, email, phone, address, latitude, longitude, skills, active, created_at, updated_at`

// TechnicianRepository persists technicians and their skills.
type TechnicianRepository struct {
	db DBTX
}

func NewTechnicianRepository(db DBTX) *TechnicianRepository {
	return &TechnicianRepository{db: db}
}

// TechnicianFilter narrows List. Skill matches technicians having that skill.
type TechnicianFilter struct {
	Query      string
	Skill      string
	ActiveOnly bool
}

func (r *TechnicianRepository) List(ctx context.Context, f TechnicianFilter, page model.Page) (model.List[model.Technician], error) {
	page = page.Normalize()
	where := `WHERE ($1 = '' OR name ILIKE $1 OR email ILIKE $1)
		AND ($2 = '' OR $2 = ANY(skills))
		AND (NOT $3 OR active)`
	args := []any{searchPattern(f.Query), f.Skill, f.ActiveOnly}

	total, err := count(ctx, r.db, `SELECT COUNT(*) FROM technicians `+where, args...)
	if err != nil {
		return model.List[model.Technician]{}, fmt.Errorf("count technicians: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+technicianColumns+` FROM technicians `+where+` ORDER BY lower(name), id LIMIT $4 OFFSET $5`,
		append(args, page.Limit, page.Offset)...)
	items, err := collectAll[model.Technician](rows, err)
	if err != nil {
		return model.List[model.Technician]{}, fmt.Errorf("list technicians: %w", err)
	}

	return model.List[model.Technician]{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

// ListActive returns every active technician, the candidate set for matching.
func (r *TechnicianRepository) ListActive(ctx context.Context) ([]model.Technician, error) {
	rows, err := r.db.Query(ctx, `SELECT `+technicianColumns+` FROM technicians WHERE active ORDER BY lower(name), id`)
	return collectAll[model.Technician](rows, err)
}

func (r *TechnicianRepository) Get(ctx context.Context, id uuid.UUID) (*model.Technician, error) {
	rows, err := r.db.Query(ctx, `SELECT `+technicianColumns+` FROM technicians WHERE id = $1`, id)
	return collectOne[model.Technician](rows, err, "technicians")
}

func (r *TechnicianRepository) Create(ctx context.Context, t *model.Technician) (*model.Technician, error) {
	rows, err := r.db.Query(ctx, `
		INSERT INTO technicians (name, email, phone, address, latitude, longitude, skills, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+technicianColumns,
		t.Name, t.Email, t.Phone, t.Address, t.Latitude, t.Longitude, t.Skills, t.Active)
	return collectOne[model.Technician](rows, err, "technicians")
}

func (r *TechnicianRepository) Update(ctx context.Context, t *model.Technician) (*model.Technician, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE technicians
		SET name = $2, email = $3, phone = $4, address = $5, latitude = $6, longitude = $7,
		    skills = $8, active = $9
		WHERE id = $1
		RETURNING `+technicianColumns,
		t.ID, t.Name, t.Email, t.Phone, t.Address, t.Latitude, t.Longitude, t.Skills, t.Active)
	return collectOne[model.Technician](rows, err, "technicians")
}

func (r *TechnicianRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM technicians WHERE id = $1`, id)
	return expectAffected(tag, err, "technicians")
}

func (r *TechnicianRepository) CountActive(ctx context.Context) (int, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM technicians WHERE active`)
}
