// Package model holds the domain types shared by the repository,
// service and handler layers.
//
// Types carry `db` tags for pgx.RowToStructByName and `json` tags for
// API responses. Business rules that depend only on the values of a
// single entity (work order transitions, remito totals, report section
// checks) live next to the type.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Base holds the columns every table shares.
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Page is the offset pagination used by list endpoints.
type Page struct {
	Limit  int `json:"limit" query:"limit" validate:"omitempty,min=1,max=200"`
	Offset int `json:"offset" query:"offset" validate:"omitempty,min=0"`
}

// Normalize fills in the default page size.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// List wraps a page of results with the total row count.
type List[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
