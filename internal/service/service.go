// Package service contains the business logic.
//
// It sits between the handler and repository layers.
// It receives validated data from the handler, performs
// business operations, and calls repository methods to interact
// with the data.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/deppfellow/aquaservice/internal/errs"
	"github.com/deppfellow/aquaservice/internal/lib/auth"
	"github.com/deppfellow/aquaservice/internal/lib/email"
	"github.com/deppfellow/aquaservice/internal/lib/geocode"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Geocoder resolves addresses to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geocode.Result, error)
}

// Mailer delivers one rendered email and returns the provider id.
type Mailer interface {
	Send(ctx context.Context, msg email.Message, attachments ...email.Attachment) (string, error)
	Preview(name email.Template) (string, error)
}

// DrainScheduler asks the job workers to drain the email queue soon.
type DrainScheduler interface {
	EnqueueEmailDrain(ctx context.Context) error
}

// Cache is the subset of redis.Cmdable used for JSON snapshots.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// locator geocodes addresses on save. Failures are logged and never fatal.
type locator struct {
	geocoder Geocoder
	logger   *zerolog.Logger
}

// locate returns coordinates for address, ok=false when they could not be
// resolved.
func (l locator) locate(ctx context.Context, address string) (lat, lng *float64, ok bool) {
	if l.geocoder == nil || address == "" {
		return nil, nil, false
	}

	result, err := l.geocoder.Geocode(ctx, address)
	if err != nil {
		event := l.logger.Warn()
		if !errors.Is(err, geocode.ErrNotFound) {
			event = l.logger.Error()
		}
		event.Err(err).Str("address", address).Msg("geocoding failed, keeping previous coordinates")
		return nil, nil, false
	}

	return &result.Lat, &result.Lng, true
}

// normalizeEmail trims and lowercases an address. Inputs apply it before
// validation so pasted addresses with stray spaces are accepted.
func normalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// transitionError maps a state machine rejection to a 409.
func transitionError(err error) error {
	var te *model.TransitionError
	if errors.As(err, &te) {
		return errs.NewConflictError(te.Error(), errs.Ptr(errs.CodeInvalidTransition))
	}
	return err
}

// requirePrincipal returns the caller or a 401.
func requirePrincipal(ctx context.Context) (*auth.Principal, error) {
	p, ok := auth.FromContext(ctx)
	if !ok || p == nil {
		return nil, errs.NewUnauthorizedError("Authentication required", false)
	}
	return p, nil
}

// canActAs reports whether p is an admin or the technician technicianID.
func canActAs(p *auth.Principal, technicianID *uuid.UUID) bool {
	if p.IsAdmin() {
		return true
	}
	return p.TechnicianID != nil && technicianID != nil && *p.TechnicianID == *technicianID
}
