package repository

import (
	"context"

	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/google/uuid"
)

const userColumns = `id, email, password_hash, role, technician_id, active, created_at, updated_at`

// UserRepository persists sign-in accounts.
type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return collectOne[model.User](rows, err, "users")
}

// GetByEmail looks a user up case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return collectOne[model.User](rows, err, "users")
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	return collectAll[model.User](rows, err)
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) (*model.User, error) {
	rows, err := r.db.Query(ctx, `
		INSERT INTO users (email, password_hash, role, technician_id, active)
		VALUES (lower($1), $2, $3, $4, $5)
		RETURNING `+userColumns,
		u.Email, u.PasswordHash, u.Role, u.TechnicianID, u.Active)
	return collectOne[model.User](rows, err, "users")
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	return expectAffected(tag, err, "users")
}

func (r *UserRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET active = $2 WHERE id = $1`, id, active)
	return expectAffected(tag, err, "users")
}
