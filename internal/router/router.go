// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares and defines the API route groups,
// mapping specific paths to their corresponding handlers.
package router

import (
	"net/http"

	"github.com/deppfellow/aquaservice/internal/handler"
	"github.com/deppfellow/aquaservice/internal/middleware"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/server"
	"github.com/deppfellow/aquaservice/internal/service"
	"github.com/labstack/echo/v4"
)

// NewRouter builds the Echo instance with global middleware, system routes
// and the versioned API.
//
// Middleware order matters: the request id and New Relic transaction come
// first so every later log line and span carries them.
func NewRouter(s *server.Server, h *handler.Handlers, services *service.Services) *echo.Echo {
	m := middleware.NewMiddlewares(s, services.Tokens)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = m.Global.GlobalErrorHandler

	router.Use(
		middleware.RequestID(),
		m.Tracing.NewRelicMiddleware(),
		m.Tracing.EnhanceTracing(),
		m.ContextEnhancer.EnhanceContext(),
		m.Global.RequestLogger(),
		m.Global.Recover(),
		m.Global.Secure(),
		m.Global.CORS(),
		m.Global.BodyLimit(),
		m.RateLimit.Limit(),
	)

	registerSystemRoutes(router, h)
	registerPublicRoutes(router, h)
	registerAPIRoutes(router.Group("/api/v1"), h, m)

	return router
}

// registerPublicRoutes serves what clients reach from emails, without a token.
func registerPublicRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/confirm/:token", h.Confirmation.Show)
	r.POST("/confirm/:token", h.Confirmation.Confirm)
}

func registerAPIRoutes(api *echo.Group, h *handler.Handlers, m *middleware.Middlewares) {
	api.POST("/auth/login", handler.Handle(h.Auth.Handler, h.Auth.Login, http.StatusOK, &service.LoginInput{}))
	api.GET("/auth/session", handler.Handle(h.Auth.Handler, h.Auth.Session, http.StatusOK, &handler.EmptyRequest{}))

	// ContextEnhancer runs again after RequireAuth so handler logs carry
	// user_id and role.
	authed := api.Group("", m.Auth.RequireAuth, m.ContextEnhancer.EnhanceContext())
	admin := authed.Group("", m.Auth.RequireRole(model.RoleAdmin))

	authed.GET("/me", handler.Handle(h.Auth.Handler, h.Auth.Me, http.StatusOK, &handler.EmptyRequest{}))
	authed.PUT("/me/password", handler.HandleNoContent(h.Auth.Handler, h.Auth.ChangePassword, http.StatusNoContent, &service.ChangePasswordInput{}))
	authed.GET("/me/work-orders", handler.Handle(h.WorkOrders.Handler, h.WorkOrders.Calendar, http.StatusOK, &handler.ListWorkOrdersRequest{}))
	authed.GET("/me/dashboard", handler.Handle(h.Dashboard.Handler, h.Dashboard.Technician, http.StatusOK, &handler.EmptyRequest{}))

	admin.GET("/users", handler.Handle(h.Auth.Handler, h.Auth.ListUsers, http.StatusOK, &handler.EmptyRequest{}))
	admin.POST("/users", handler.Handle(h.Auth.Handler, h.Auth.CreateUser, http.StatusCreated, &service.CreateUserInput{}))

	registerDirectoryRoutes(authed, admin, h)
	registerWorkOrderRoutes(authed, admin, h)
	registerDocumentRoutes(authed, admin, h)
	registerAdminRoutes(admin, h)
}
