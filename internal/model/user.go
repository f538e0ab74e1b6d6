package model

import (
	"github.com/google/uuid"
)

// Role is the authorization role of a user.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "technician"
)

// User is an account that can sign in.
// Technician users are linked to their technician row.
type User struct {
	Base
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         Role       `json:"role" db:"role"`
	TechnicianID *uuid.UUID `json:"technician_id,omitempty" db:"technician_id"`
	Active       bool       `json:"active" db:"active"`
}
