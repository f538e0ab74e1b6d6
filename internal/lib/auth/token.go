// Package auth issues and verifies access tokens and hashes passwords.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deppfellow/aquaservice/internal/model"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Principal is the authenticated caller extracted from a token.
type Principal struct {
	UserID       uuid.UUID
	Role         model.Role
	TechnicianID *uuid.UUID
	ExpiresAt    time.Time
}

// IsAdmin reports whether the caller has the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == model.RoleAdmin
}

type principalKey struct{}

// WithPrincipal stores the principal in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the principal from ctx, if any.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok
}

type claims struct {
	Role         string `json:"role"`
	TechnicianID string `json:"tid,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed token for user and its expiry time.
func (m *TokenManager) Issue(user *model.User) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)

	c := claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if user.TechnicianID != nil {
		c.TechnicianID = user.TechnicianID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates tokenStr and returns its principal.
// Expired tokens return ErrTokenExpired, every other failure ErrTokenInvalid.
func (m *TokenManager) Parse(tokenStr string) (*Principal, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !tok.Valid {
		return nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}

	role := model.Role(strings.ToLower(c.Role))
	if role != model.RoleAdmin && role != model.RoleTechnician {
		return nil, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, c.Role)
	}

	p := &Principal{UserID: userID, Role: role, ExpiresAt: c.ExpiresAt.Time}
	if c.TechnicianID != "" {
		tid, err := uuid.Parse(c.TechnicianID)
		if err != nil {
			return nil, fmt.Errorf("%w: bad technician id", ErrTokenInvalid)
		}
		p.TechnicianID = &tid
	}
	if role == model.RoleTechnician && p.TechnicianID == nil {
		return nil, fmt.Errorf("%w: technician token without technician id", ErrTokenInvalid)
	}

	return p, nil
}

// Remaining is how long tokenStr stays valid. Expired tokens report zero
// with ErrTokenExpired.
func (m *TokenManager) Remaining(tokenStr string) (time.Duration, error) {
	p, err := m.Parse(tokenStr)
	if err != nil {
		return 0, err
	}
	return p.ExpiresAt.Sub(m.now()), nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
