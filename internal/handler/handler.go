// Package handler is the HTTP layer, the first entry point for business
// logic after the router.
//
// It binds and validates requests through the validation package, calls the
// service layer and shapes the response. Authorization decisions that depend
// on ownership live in the services; handlers only pass the request context.
package handler

import (
	"github.com/deppfellow/aquaservice/internal/validation"
	"github.com/google/uuid"
)

// IDRequest binds the :id path parameter.
type IDRequest struct {
	ID uuid.UUID `param:"id" json:"-" validate:"required"`
}

func (r *IDRequest) Validate() error {
	return validation.Struct(r)
}

// EmptyRequest is used by endpoints that take no input.
type EmptyRequest struct{}

func (r *EmptyRequest) Validate() error {
	return nil
}
