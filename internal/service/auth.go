package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/deppfellow/aquaservice/internal/errs"
	"github.com/deppfellow/aquaservice/internal/lib/auth"
	"github.com/deppfellow/aquaservice/internal/lib/email"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/validation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type userStore interface {
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Create(ctx context.Context, u *model.User) (*model.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

// Enqueuer puts a message on the outgoing email queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg email.Message) (*model.EmailMessage, error)
}

// AuthService signs users in and manages accounts.
type AuthService struct {
	users    userStore
	tokens   *auth.TokenManager
	emails   Enqueuer
	loginURL string
	logger   *zerolog.Logger
}

func NewAuthService(users userStore, tokens *auth.TokenManager, emails Enqueuer, publicBaseURL string, logger *zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		emails:   emails,
		loginURL: strings.TrimRight(publicBaseURL, "/") + errs.LoginRoute,
		logger:   logger,
	}
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (i *LoginInput) Validate() error {
	i.Email = normalizeEmail(i.Email)
	return validation.Struct(i)
}

// LoginResult is returned to the client, which stores the token and its expiry.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

var errInvalidCredentials = errs.NewUnauthorizedError("Invalid email or password", true)

// Login checks credentials and issues an access token.
// Unknown emails and wrong passwords answer the same error.
func (s *AuthService) Login(ctx context.Context, in *LoginInput) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := auth.CheckPassword(user.PasswordHash, in.Password); err != nil {
		s.logger.Warn().Str("user_id", user.ID.String()).Msg("failed login attempt")
		return nil, errInvalidCredentials
	}
	if !user.Active {
		return nil, errs.NewForbiddenError("This account is disabled", true)
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// SessionInfo reports whether a stored token is still usable.
type SessionInfo struct {
	Valid            bool       `json:"valid"`
	Expired          bool       `json:"expired"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	RemainingSeconds int64      `json:"remaining_seconds"`
}

// Session inspects token without failing: the answer itself says whether
// the client must sign in again.
func (s *AuthService) Session(token string) SessionInfo {
	p, err := s.tokens.Parse(token)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return SessionInfo{Expired: true}
	case err != nil:
		return SessionInfo{}
	}

	remaining, err := s.tokens.Remaining(token)
	if err != nil {
		return SessionInfo{Expired: errors.Is(err, auth.ErrTokenExpired)}
	}

	return SessionInfo{
		Valid:            true,
		ExpiresAt:        &p.ExpiresAt,
		RemainingSeconds: int64(remaining.Seconds()),
	}
}

func (s *AuthService) Me(ctx context.Context) (*model.User, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	return s.users.Get(ctx, p.UserID)
}

func (s *AuthService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

type CreateUserInput struct {
	Email        string     `json:"email" validate:"required,email"`
	Password     string     `json:"password" validate:"required,min=8,max=72"`
	Role         model.Role `json:"role" validate:"required,oneof=admin technician"`
	TechnicianID *uuid.UUID `json:"technician_id"`
}

func (i *CreateUserInput) Validate() error {
	i.Email = normalizeEmail(i.Email)
	if err := validation.Struct(i); err != nil {
		return err
	}
	if i.Role == model.RoleTechnician && i.TechnicianID == nil {
		return validation.CustomValidationErrors{
			{Field: "technician_id", Message: "is required for technician accounts"},
		}
	}
	return nil
}

// CreateUser creates an account and queues a welcome email.
func (s *AuthService) CreateUser(ctx context.Context, in *CreateUserInput) (*model.User, error) {
	hash, err := auth.HashPassword(in.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return nil, errs.NewBadRequestError(err.Error(), true, nil, nil, nil)
	}
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         in.Role,
		Active:       true,
	}
	if in.Role == model.RoleTechnician {
		user.TechnicianID = in.TechnicianID
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	if s.emails != nil {
		if _, err := s.emails.Enqueue(ctx, email.WelcomeMessage(created.Email, created.Email, s.loginURL)); err != nil {
			s.logger.Error().Err(err).Str("user_id", created.ID.String()).Msg("failed to queue welcome email")
		}
	}

	return created, nil
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

func (i *ChangePasswordInput) Validate() error { return validation.Struct(i) }

// ChangePassword replaces the caller's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, in *ChangePasswordInput) error {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return err
	}

	user, err := s.users.Get(ctx, p.UserID)
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(user.PasswordHash, in.CurrentPassword); err != nil {
		return errs.NewBadRequestError("Current password is incorrect", true, nil,
			[]errs.FieldError{{Field: "current_password", Error: "is incorrect"}}, nil)
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, hash)
}
