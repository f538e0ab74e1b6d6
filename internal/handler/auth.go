package handler

import (
	"github.com/deppfellow/aquaservice/internal/lib/auth"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/server"
	"github.com/deppfellow/aquaservice/internal/service"
	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	Handler
	auth *service.AuthService
}

func NewAuthHandler(s *server.Server, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{
		Handler: NewHandler(s),
		auth:    auth,
	}
}

func (h *AuthHandler) Login(c echo.Context, req *service.LoginInput) (*service.LoginResult, error) {
	return h.auth.Login(c.Request().Context(), req)
}

// Session reports whether the bearer token is still usable. It never fails,
// so clients can call it before deciding to show the login screen.
func (h *AuthHandler) Session(c echo.Context, _ *EmptyRequest) (service.SessionInfo, error) {
	token, _ := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	return h.auth.Session(token), nil
}

func (h *AuthHandler) Me(c echo.Context, _ *EmptyRequest) (*model.User, error) {
	return h.auth.Me(c.Request().Context())
}

func (h *AuthHandler) ChangePassword(c echo.Context, req *service.ChangePasswordInput) error {
	return h.auth.ChangePassword(c.Request().Context(), req)
}

func (h *AuthHandler) ListUsers(c echo.Context, _ *EmptyRequest) ([]model.User, error) {
	return h.auth.ListUsers(c.Request().Context())
}

func (h *AuthHandler) CreateUser(c echo.Context, req *service.CreateUserInput) (*model.User, error) {
	return h.auth.CreateUser(c.Request().Context(), req)
}
