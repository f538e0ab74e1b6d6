package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deppfellow/aquaservice/internal/config"
	"github.com/deppfellow/aquaservice/internal/errs"
	"github.com/deppfellow/aquaservice/internal/middleware"
	"github.com/deppfellow/aquaservice/internal/server"
	"github.com/deppfellow/aquaservice/internal/validation"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func testServer() *server.Server {
	log := zerolog.Nop()
	return &server.Server{
		Config: &config.Config{
			Primary: config.Primary{Env: "test"},
			Report:  config.ReportConfig{CompanyName: "Aguas del Sur"},
		},
		Logger: &log,
	}
}

func newEcho(s *server.Server) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.NewGlobalMiddlewares(s).GlobalErrorHandler
	return e
}

type noteRequest struct {
	IDRequest
	Text  string `json:"text" validate:"required,max=20"`
	Loud  bool   `query:"loud"`
	Count int    `json:"count"`
}

func (r *noteRequest) Validate() error {
	return validation.Struct(r)
}

type noteResponse struct {
	ID    uuid.UUID `json:"id"`
	Text  string    `json:"text"`
	Count int       `json:"count"`
}

func echoNote(c echo.Context, req *noteRequest) (*noteResponse, error) {
	text := req.Text
	if req.Loud {
		text = strings.ToUpper(text)
	}
	return &noteResponse{ID: req.ID, Text: text, Count: req.Count}, nil
}

func TestHandleBindsPathAndBody(t *testing.T) {
	s := testServer()
	e := newEcho(s)
	e.PUT("/notes/:id", Handle(NewHandler(s), echoNote, http.StatusOK, &noteRequest{}))

	id := uuid.New()
	req := httptest.NewRequest(http.MethodPut, "/notes/"+id.String(), strings.NewReader(`{"text":"hola","count":2}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got noteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != id || got.Text != "hola" || got.Count != 2 {
		t.Fatalf("unexpected response %+v", got)
	}
}

func TestHandleBindsQueryOnGet(t *testing.T) {
	s := testServer()
	e := newEcho(s)
	e.GET("/notes/:id", Handle(NewHandler(s), func(c echo.Context, req *noteRequest) (*noteResponse, error) {
		return echoNote(c, req)
	}, http.StatusOK, &noteRequest{Text: "ignored"}))

	id := uuid.New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notes/"+id.String()+"?loud=true", nil)
	e.ServeHTTP(rec, req)

	// Text is required and the prototype's value must not leak into requests.
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleDoesNotShareRequests(t *testing.T) {
	s := testServer()
	e := newEcho(s)
	e.PUT("/notes/:id", Handle(NewHandler(s), echoNote, http.StatusOK, &noteRequest{}))

	send := func(body string) noteResponse {
		req := httptest.NewRequest(http.MethodPut, "/notes/"+uuid.NewString(), strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		var got noteResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &got)
		return got
	}

	if first := send(`{"text":"uno","count":5}`); first.Count != 5 {
		t.Fatalf("first count = %d", first.Count)
	}
	if second := send(`{"text":"dos"}`); second.Count != 0 {
		t.Fatalf("second request saw count %d from the first", second.Count)
	}
}

func TestHandleValidationErrorShape(t *testing.T) {
	s := testServer()
	e := newEcho(s)
	e.PUT("/notes/:id", Handle(NewHandler(s), echoNote, http.StatusOK, &noteRequest{}))

	req := httptest.NewRequest(http.MethodPut, "/notes/"+uuid.NewString(), strings.NewReader(`{"text":"this text is far too long"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body errs.HTTPError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Errors) != 1 || body.Errors[0].Field != "text" {
		t.Fatalf("field errors = %+v", body.Errors)
	}
}

func TestHandleBadPathID(t *testing.T) {
	s := testServer()
	e := newEcho(s)
	e.GET("/things/:id", Handle(NewHandler(s), func(c echo.Context, req *IDRequest) (string, error) {
		return req.ID.String(), nil
	}, http.StatusOK, &IDRequest{}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleServiceError(t *testing.T) {
	s := testServer()
	e := newEcho(s)
	e.POST("/fail", Handle(NewHandler(s), func(c echo.Context, _ *EmptyRequest) (any, error) {
		return nil, errs.NewConflictError("Cannot start a work order in status pending", nil)
	}, http.StatusOK, &EmptyRequest{}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fail", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestHandleFile(t *testing.T) {
	s := testServer()
	e := newEcho(s)
	e.GET("/files/:id", HandleFile(NewHandler(s), func(c echo.Context, req *IDRequest) (*File, error) {
		return &File{Name: "report-" + req.ID.String() + ".pdf", ContentType: pdfContentType, Data: []byte("%PDF-1.3")}, nil
	}, http.StatusOK, &IDRequest{}))

	id := uuid.New()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/"+id.String(), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != pdfContentType {
		t.Fatalf("content type = %q", ct)
	}
	want := `attachment; filename="report-` + id.String() + `.pdf"`
	if cd := rec.Header().Get(echo.HeaderContentDisposition); cd != want {
		t.Fatalf("content disposition = %q, want %q", cd, want)
	}
	if rec.Body.String() != "%PDF-1.3" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestHandleNoContent(t *testing.T) {
	s := testServer()
	e := newEcho(s)
	called := false
	e.DELETE("/things/:id", HandleNoContent(NewHandler(s), func(c echo.Context, req *IDRequest) error {
		called = true
		return nil
	}, http.StatusNoContent, &IDRequest{}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/things/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNoContent || !called {
		t.Fatalf("status = %d, called = %v", rec.Code, called)
	}
}

func TestGeocodeParam(t *testing.T) {
	e := echo.New()
	cases := map[string]bool{"": true, "?geocode=false": false, "?geocode=1": true}
	for query, want := range cases {
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/clients"+query, nil), httptest.NewRecorder())
		got, err := geocodeParam(c)
		if err != nil || got != want {
			t.Errorf("geocodeParam(%q) = %v, %v; want %v", query, got, err, want)
		}
	}

	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/clients?geocode=maybe", nil), httptest.NewRecorder())
	if _, err := geocodeParam(c); err == nil {
		t.Fatalf("expected error for invalid geocode flag")
	}
}

func TestExportFilename(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if got := exportFilename(from, to); got != "work-orders-20260101-20260201.xlsx" {
		t.Fatalf("filename = %q", got)
	}
}

func TestWantsHTML(t *testing.T) {
	e := echo.New()

	form := httptest.NewRequest(http.MethodPost, "/confirm/x", strings.NewReader(""))
	form.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if !wantsHTML(e.NewContext(form, httptest.NewRecorder())) {
		t.Fatalf("form posts should get HTML")
	}

	api := httptest.NewRequest(http.MethodPost, "/confirm/x", nil)
	api.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	if wantsHTML(e.NewContext(api, httptest.NewRecorder())) {
		t.Fatalf("API callers should get JSON")
	}
}

func TestServeOpenAPIUI(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "openapi.html"), []byte("<html>docs</html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := NewOpenAPIHandler(testServer())
	h.dir = dir

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/docs", nil), rec)
	if err := h.ServeOpenAPIUI(c); err != nil {
		t.Fatalf("ServeOpenAPIUI: %v", err)
	}
	if rec.Body.String() != "<html>docs</html>" {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if rec.Header().Get("Cache-Control") != "no-cache" {
		t.Fatalf("docs must not be cached")
	}

	h.dir = filepath.Join(dir, "missing")
	if err := h.ServeOpenAPIUI(e.NewContext(httptest.NewRequest(http.MethodGet, "/docs", nil), httptest.NewRecorder())); err == nil {
		t.Fatalf("expected error when openapi.html is missing")
	}
}

func TestConfirmPageRenders(t *testing.T) {
	h := NewConfirmationHandler(testServer(), nil)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/confirm/x", nil), rec)
	if err := h.renderError(c, errs.NewNotFoundError("Work Order not found", true, nil)); err != nil {
		t.Fatalf("renderError: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Aguas del Sur") || !strings.Contains(body, "no es válido") {
		t.Fatalf("unexpected page %s", body)
	}
	if strings.Contains(body, "<form") {
		t.Fatalf("an invalid link must not offer the confirm button")
	}
}
