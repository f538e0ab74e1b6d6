package handler

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/Masterminds/sprig/v3"
	"github.com/deppfellow/aquaservice/internal/errs"
	"github.com/deppfellow/aquaservice/internal/middleware"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/server"
	"github.com/deppfellow/aquaservice/internal/service"
	"github.com/deppfellow/aquaservice/internal/sqlerr"
	"github.com/labstack/echo/v4"
)

var confirmPage = template.Must(template.New("confirm").Funcs(sprig.FuncMap()).Parse(`<!doctype html>
<html lang="es">
<head><meta charset="utf-8"><title>{{ .Company }}</title>
<meta name="viewport" content="width=device-width, initial-scale=1"></head>
<body style="font-family: sans-serif; max-width: 36rem; margin: 3rem auto; padding: 0 1rem;">
<h1>{{ .Company }}</h1>
{{- if .Order }}
<p>Visita programada para el <strong>{{ .Order.ScheduledFor | date "02/01/2006 15:04" }}</strong>
({{ .Order.DurationMinutes }} min).</p>
{{- end }}
<p>{{ .Message }}</p>
{{- if .CanConfirm }}
<form method="post"><button type="submit">Confirmar visita</button></form>
{{- end }}
</body>
</html>`))

type confirmView struct {
	Company    string
	Order      *model.WorkOrder
	Message    string
	CanConfirm bool
}

// ConfirmationHandler serves the public link clients receive by email.
type ConfirmationHandler struct {
	Handler
	orders *service.WorkOrderService
}

func NewConfirmationHandler(s *server.Server, orders *service.WorkOrderService) *ConfirmationHandler {
	return &ConfirmationHandler{
		Handler: NewHandler(s),
		orders:  orders,
	}
}

// Show renders the visit and a confirm button. It never changes state, so
// link previews in mail clients cannot confirm on the client's behalf.
func (h *ConfirmationHandler) Show(c echo.Context) error {
	wo, err := h.orders.ByToken(c.Request().Context(), c.Param("token"))
	if err != nil {
		return h.renderError(c, err)
	}

	view := confirmView{Order: wo}
	switch {
	case wo.Status.Terminal():
		view.Message = "Esta visita ya no está activa."
	case wo.ClientConfirmedAt != nil:
		view.Message = "Ya confirmaste esta visita. ¡Gracias!"
	default:
		view.Message = "Por favor confirmá que podemos visitarte en ese horario."
		view.CanConfirm = true
	}
	return h.render(c, http.StatusOK, view)
}

// Confirm records the client's confirmation. Browsers posting the form get
// a page back; API callers get the updated work order as JSON.
func (h *ConfirmationHandler) Confirm(c echo.Context) error {
	wo, err := h.orders.ConfirmByClient(c.Request().Context(), c.Param("token"))
	if !wantsHTML(c) {
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, wo)
	}
	if err != nil {
		return h.renderError(c, err)
	}
	return h.render(c, http.StatusOK, confirmView{Order: wo, Message: "¡Gracias! Tu visita quedó confirmada."})
}

func wantsHTML(c echo.Context) bool {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	return strings.HasPrefix(ct, echo.MIMEApplicationForm) ||
		strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}

func (h *ConfirmationHandler) renderError(c echo.Context, err error) error {
	var httpErr *errs.HTTPError
	if !errors.As(sqlerr.HandleError(err), &httpErr) || httpErr.Status >= http.StatusInternalServerError {
		return err
	}

	middleware.GetLogger(c).Warn().Err(err).Int("status", httpErr.Status).Msg("confirmation link rejected")

	message := "No pudimos confirmar la visita. Contactanos para coordinar un nuevo horario."
	if httpErr.Status == http.StatusNotFound {
		message = "El enlace no es válido o la visita fue reprogramada."
	}
	return h.render(c, httpErr.Status, confirmView{Message: message})
}

func (h *ConfirmationHandler) render(c echo.Context, status int, view confirmView) error {
	view.Company = h.server.Config.Report.CompanyName

	var buf bytes.Buffer
	if err := confirmPage.Execute(&buf, view); err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.HTMLBlob(status, buf.Bytes())
}
