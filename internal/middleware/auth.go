package middleware

import (
	"errors"
	"slices"
	"time"

	"github.com/deppfellow/aquaservice/internal/errs"
	"github.com/deppfellow/aquaservice/internal/lib/auth"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/server"
	"github.com/labstack/echo/v4"
)

// AuthMiddleware verifies bearer tokens issued by auth.TokenManager.
type AuthMiddleware struct {
	server *server.Server
	tokens *auth.TokenManager
}

func NewAuthMiddleware(s *server.Server, tokens *auth.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{
		server: s,
		tokens: tokens,
	}
}

// RequireAuth rejects requests without a valid bearer token.
//
// On success the principal is stored in the request context (for the
// service layer) and user_id/user_role in the Echo context (for logging).
// An expired token answers TOKEN_EXPIRED with a redirect to the login route.
func (a *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		token, ok := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return errs.NewUnauthorizedError("Unauthorized", false)
		}

		principal, err := a.tokens.Parse(token)
		if err != nil {
			GetLogger(c).Warn().
				Err(err).
				Str("function", "RequireAuth").
				Str("request_id", GetRequestID(c)).
				Dur("duration", time.Since(start)).
				Msg("rejected bearer token")

			if errors.Is(err, auth.ErrTokenExpired) {
				return errs.NewTokenExpiredError()
			}
			return errs.NewUnauthorizedError("Unauthorized", false)
		}

		c.Set(UserIDKey, principal.UserID.String())
		c.Set(UserRoleKey, string(principal.Role))
		c.SetRequest(c.Request().WithContext(auth.WithPrincipal(c.Request().Context(), principal)))

		return next(c)
	}
}

// RequireRole allows the request only for the given roles. It must run
// after RequireAuth.
func (a *AuthMiddleware) RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := auth.FromContext(c.Request().Context())
			if !ok {
				return errs.NewUnauthorizedError("Unauthorized", false)
			}
			if !slices.Contains(roles, principal.Role) {
				return errs.NewForbiddenError("You do not have access to this resource", false)
			}
			return next(c)
		}
	}
}
