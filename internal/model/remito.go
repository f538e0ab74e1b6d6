package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Remito is a delivery/service receipt issued to a client.
type Remito struct {
	Base
	Number      int64        `json:"number" db:"number"`
	ClientID    uuid.UUID    `json:"client_id" db:"client_id"`
	WorkOrderID *uuid.UUID   `json:"work_order_id,omitempty" db:"work_order_id"`
	IssuedAt    time.Time    `json:"issued_at" db:"issued_at"`
	Items       []RemitoItem `json:"items" db:"items"`
	Notes       string       `json:"notes" db:"notes"`
	EmailedAt   *time.Time   `json:"emailed_at,omitempty" db:"emailed_at"`
}

// RemitoItem is one line of a remito.
type RemitoItem struct {
	Description string          `json:"description" validate:"required,max=200"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Subtotal is quantity × unit price.
func (i RemitoItem) Subtotal() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// Total sums every line subtotal.
func (r Remito) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// DisplayNumber is the printed receipt number, e.g. "R-000042".
func (r Remito) DisplayNumber() string {
	return fmt.Sprintf("R-%06d", r.Number)
}

// RemitoDocument is what the remito PDF renderer needs.
type RemitoDocument struct {
	Remito Remito
	Client Client
}
