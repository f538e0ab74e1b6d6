package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deppfellow/aquaservice/internal/config"
	"github.com/deppfellow/aquaservice/internal/errs"
	"github.com/deppfellow/aquaservice/internal/lib/auth"
	"github.com/deppfellow/aquaservice/internal/logger"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/server"
	"github.com/deppfellow/aquaservice/internal/sqlerr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const testSecret = "0123456789abcdef0123"

func testServer(rateLimit float64) *server.Server {
	log := zerolog.Nop()
	return &server.Server{
		Config: &config.Config{Server: config.ServerConfig{
			RateLimit:          rateLimit,
			CORSAllowedOrigins: []string{"http://localhost:3000"},
		}},
		Logger: &log,
	}
}

func newEcho(s *server.Server) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = NewGlobalMiddlewares(s).GlobalErrorHandler
	return e
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errs.HTTPError {
	t.Helper()
	var body errs.HTTPError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not an error body: %v (%s)", err, rec.Body.String())
	}
	return body
}

func issue(t *testing.T, tm *auth.TokenManager, role model.Role) string {
	t.Helper()
	user := &model.User{Base: model.Base{ID: uuid.New()}, Role: role}
	if role == model.RoleTechnician {
		techID := uuid.New()
		user.TechnicianID = &techID
	}
	token, _, err := tm.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

func protectedEcho(s *server.Server, tm *auth.TokenManager) *echo.Echo {
	e := newEcho(s)
	a := NewAuthMiddleware(s, tm)
	e.GET("/me", func(c echo.Context) error {
		p, ok := auth.FromContext(c.Request().Context())
		if !ok {
			return errors.New("principal missing")
		}
		return c.String(http.StatusOK, string(p.Role)+":"+GetUserID(c))
	}, a.RequireAuth)
	e.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, a.RequireAuth, a.RequireRole(model.RoleAdmin))
	return e
}

func TestRequireAuthMissingToken(t *testing.T) {
	s := testServer(10)
	e := protectedEcho(s, auth.NewTokenManager(testSecret, "aquaservice", time.Hour))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequireAuthExpiredTokenRedirects(t *testing.T) {
	s := testServer(10)
	expired := auth.NewTokenManager(testSecret, "aquaservice", -time.Minute)
	e := protectedEcho(s, auth.NewTokenManager(testSecret, "aquaservice", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+issue(t, expired, model.RoleAdmin))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	body := decodeError(t, rec)
	if rec.Code != http.StatusUnauthorized || body.Code != errs.CodeTokenExpired {
		t.Fatalf("status %d body %+v", rec.Code, body)
	}
	if body.Action == nil || body.Action.Value != errs.LoginRoute {
		t.Fatalf("missing redirect action: %+v", body.Action)
	}
}

func TestRequireAuthStoresPrincipal(t *testing.T) {
	s := testServer(10)
	tm := auth.NewTokenManager(testSecret, "aquaservice", time.Hour)
	e := protectedEcho(s, tm)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+issue(t, tm, model.RoleTechnician))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); len(got) < len("technician:")+36 {
		t.Fatalf("body = %q", got)
	}
}

func TestRequireRoleForbidsTechnician(t *testing.T) {
	s := testServer(10)
	tm := auth.NewTokenManager(testSecret, "aquaservice", time.Hour)
	e := protectedEcho(s, tm)

	for role, want := range map[model.Role]int{
		model.RoleTechnician: http.StatusForbidden,
		model.RoleAdmin:      http.StatusNoContent,
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+issue(t, tm, role))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("%s: status = %d, want %d", role, rec.Code, want)
		}
	}
}

func TestGlobalErrorHandlerMapsErrors(t *testing.T) {
	s := testServer(10)
	e := newEcho(s)
	e.GET("/missing-client", func(c echo.Context) error {
		return sqlerr.NotFoundIn("clients", pgx.ErrNoRows)
	})
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("connection reset by peer")
	})

	cases := []struct {
		path    string
		status  int
		message string
	}{
		{"/missing-client", http.StatusNotFound, "Client not found"},
		{"/boom", http.StatusInternalServerError, "Internal Server Error"},
		{"/nowhere", http.StatusNotFound, "Route not found"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		body := decodeError(t, rec)
		if rec.Code != tc.status || body.Message != tc.message {
			t.Fatalf("%s: status %d body %+v", tc.path, rec.Code, body)
		}
	}
}

func TestRequestIDReusedAndGenerated(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, GetRequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Body.String() != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("request id not reused: %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(rec.Body.String()); err != nil {
		t.Fatalf("generated id is not a uuid: %q", rec.Body.String())
	}
}

func TestRequestIDReachesRequestContextAndRejectsUnsafeValues(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, logger.RequestIDFromContext(c.Request().Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "lb-7f3a:42")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Body.String() != "lb-7f3a:42" {
		t.Fatalf("request context id = %q", rec.Body.String())
	}

	for _, bad := range []string{"x\nforged=1", "a b", strings.Repeat("a", 129)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, bad)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if _, err := uuid.Parse(rec.Body.String()); err != nil {
			t.Fatalf("header %q was not replaced: %q", bad, rec.Body.String())
		}
		if rec.Header().Get(RequestIDHeader) != rec.Body.String() {
			t.Fatalf("response header does not carry the replacement id")
		}
	}
}

func TestRateLimitDeniesBurst(t *testing.T) {
	s := testServer(1)
	e := newEcho(s)
	e.Use(NewRateLimitMiddleware(s).Limit())
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	var last int
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d", last)
	}
}

func TestContextEnhancerStoresLogger(t *testing.T) {
	s := testServer(10)
	e := echo.New()
	e.Use(RequestID(), NewContextEnhancer(s).EnhanceContext())
	e.GET("/", func(c echo.Context) error {
		if _, ok := c.Get(LoggerKey).(*zerolog.Logger); !ok {
			return errors.New("logger missing")
		}
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
}
