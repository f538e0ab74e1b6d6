package repository

import (
	"context"
	"fmt"

	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/google/uuid"
)

const clientColumns = `id, name, tax_id, email, phone, address, city, latitude, longitude, notes, created_at, updated_at`

// ClientRepository persists clients.
type ClientRepository struct {
	db DBTX
}

func NewClientRepository(db DBTX) *ClientRepository {
	return &ClientRepository{db: db}
}

// List returns clients whose name, tax id, email or city matches q, by name.
func (r *ClientRepository) List(ctx context.Context, q string, page model.Page) (model.List[model.Client], error) {
	page = page.Normalize()
	pattern := searchPattern(q)
	where := `WHERE $1 = '' OR name ILIKE $1 OR tax_id ILIKE $1 OR email ILIKE $1 OR city ILIKE $1`

	total, err := count(ctx, r.db, `SELECT COUNT(*) FROM clients `+where, pattern)
	if err != nil {
		return model.List[model.Client]{}, fmt.Errorf("count clients: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+clientColumns+` FROM clients `+where+` ORDER BY lower(name), id LIMIT $2 OFFSET $3`,
		pattern, page.Limit, page.Offset)
	items, err := collectAll[model.Client](rows, err)
	if err != nil {
		return model.List[model.Client]{}, fmt.Errorf("list clients: %w", err)
	}

	return model.List[model.Client]{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

func (r *ClientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	rows, err := r.db.Query(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	return collectOne[model.Client](rows, err, "clients")
}

func (r *ClientRepository) Create(ctx context.Context, c *model.Client) (*model.Client, error) {
	rows, err := r.db.Query(ctx, `
		INSERT INTO clients (name, tax_id, email, phone, address, city, latitude, longitude, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+clientColumns,
		c.Name, c.TaxID, c.Email, c.Phone, c.Address, c.City, c.Latitude, c.Longitude, c.Notes)
	return collectOne[model.Client](rows, err, "clients")
}

func (r *ClientRepository) Update(ctx context.Context, c *model.Client) (*model.Client, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE clients
		SET name = $2, tax_id = $3, email = $4, phone = $5, address = $6, city = $7,
		    latitude = $8, longitude = $9, notes = $10
		WHERE id = $1
		RETURNING `+clientColumns,
		c.ID, c.Name, c.TaxID, c.Email, c.Phone, c.Address, c.City, c.Latitude, c.Longitude, c.Notes)
	return collectOne[model.Client](rows, err, "clients")
}

func (r *ClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	return expectAffected(tag, err, "clients")
}

func (r *ClientRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM clients`)
}
