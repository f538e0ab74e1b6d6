package handler

import (
	"io"

	"github.com/deppfellow/aquaservice/internal/errs"
	"github.com/deppfellow/aquaservice/internal/server"
	"github.com/deppfellow/aquaservice/internal/service"
	"github.com/labstack/echo/v4"
)

// uploadField is the multipart field carrying the spreadsheet.
const uploadField = "file"

// ImportHandler accepts CSV, XLSX and XLS uploads.
type ImportHandler struct {
	Handler
	imports *service.ImportService
}

func NewImportHandler(s *server.Server, imports *service.ImportService) *ImportHandler {
	return &ImportHandler{
		Handler: NewHandler(s),
		imports: imports,
	}
}

type ImportRequest struct {
	Geocode bool `form:"geocode"`
}

func (r *ImportRequest) Validate() error {
	return nil
}

// withUpload opens the uploaded file for the duration of run.
func withUpload(c echo.Context, run func(r io.Reader, filename string) (*service.ImportResult, error)) (*service.ImportResult, error) {
	header, err := c.FormFile(uploadField)
	if err != nil {
		return nil, errs.NewBadRequestError("A spreadsheet must be uploaded in the \"file\" field", true, nil,
			[]errs.FieldError{{Field: uploadField, Error: "is required"}}, nil)
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return run(f, header.Filename)
}

func (h *ImportHandler) Clients(c echo.Context, req *ImportRequest) (*service.ImportResult, error) {
	return withUpload(c, func(r io.Reader, filename string) (*service.ImportResult, error) {
		return h.imports.ImportClients(c.Request().Context(), r, filename, req.Geocode)
	})
}

func (h *ImportHandler) Technicians(c echo.Context, req *ImportRequest) (*service.ImportResult, error) {
	return withUpload(c, func(r io.Reader, filename string) (*service.ImportResult, error) {
		return h.imports.ImportTechnicians(c.Request().Context(), r, filename, req.Geocode)
	})
}
