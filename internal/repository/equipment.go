package repository

import (
	"context"
	"fmt"

	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/google/uuid"
)

const equipmentColumns = `id, client_id, type, brand, model, serial_number, installed_at, location, notes, created_at, updated_at`

// EquipmentRepository persists equipment installed at client sites.
type EquipmentRepository struct {
	db DBTX
}

func NewEquipmentRepository(db DBTX) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

// List returns equipment, optionally only the units of one client.
func (r *EquipmentRepository) List(ctx context.Context, clientID *uuid.UUID, page model.Page) (model.List[model.Equipment], error) {
	page = page.Normalize()
	where := `WHERE ($1::uuid IS NULL OR client_id = $1)`

	total, err := count(ctx, r.db, `SELECT COUNT(*) FROM equipment `+where, clientID)
	if err != nil {
		return model.List[model.Equipment]{}, fmt.Errorf("count equipment: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+equipmentColumns+` FROM equipment `+where+` ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		clientID, page.Limit, page.Offset)
	items, err := collectAll[model.Equipment](rows, err)
	if err != nil {
		return model.List[model.Equipment]{}, fmt.Errorf("list equipment: %w", err)
	}

	return model.List[model.Equipment]{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

func (r *EquipmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Equipment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+equipmentColumns+` FROM equipment WHERE id = $1`, id)
	return collectOne[model.Equipment](rows, err, "equipment")
}

func (r *EquipmentRepository) Create(ctx context.Context, e *model.Equipment) (*model.Equipment, error) {
	rows, err := r.db.Query(ctx, `
		INSERT INTO equipment (client_id, type, brand, model, serial_number, installed_at, location, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+equipmentColumns,
		e.ClientID, e.Type, e.Brand, e.Model, e.SerialNumber, e.InstalledAt, e.Location, e.Notes)
	return collectOne[model.Equipment](rows, err, "equipment")
}

func (r *EquipmentRepository) Update(ctx context.Context, e *model.Equipment) (*model.Equipment, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE equipment
		SET type = $2, brand = $3, model = $4, serial_number = $5, installed_at = $6, location = $7, notes = $8
		WHERE id = $1
		RETURNING `+equipmentColumns,
		e.ID, e.Type, e.Brand, e.Model, e.SerialNumber, e.InstalledAt, e.Location, e.Notes)
	return collectOne[model.Equipment](rows, err, "equipment")
}

func (r *EquipmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM equipment WHERE id = $1`, id)
	return expectAffected(tag, err, "equipment")
}

func (r *EquipmentRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM equipment`)
}
