package email

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"

	"github.com/Masterminds/sprig/v3"
)

// Template is a string-based enum naming email templates.
type Template string

const (
	// TemplateWelcome corresponds to templates/welcome.html
	TemplateWelcome Template = "welcome"

	TemplateWorkOrderConfirmation Template = "work_order_confirmation"
	TemplateWorkOrderConfirmed    Template = "work_order_confirmed"
	TemplateReportReady           Template = "report_ready"
	TemplateRemito                Template = "remito"
)

// AllTemplates lists every template shipped with the binary.
var AllTemplates = []Template{
	TemplateWelcome,
	TemplateWorkOrderConfirmation,
	TemplateWorkOrderConfirmed,
	TemplateReportReady,
	TemplateRemito,
}

// ErrUnknownTemplate is returned when a name has no template file.
var ErrUnknownTemplate = errors.New("unknown email template")

// Valid reports whether t names a shipped template.
func (t Template) Valid() bool {
	for _, known := range AllTemplates {
		if t == known {
			return true
		}
	}
	return false
}

//go:embed templates/*.html
var templateFS embed.FS

// Templates is the parsed template set, including the shared layout.
type Templates struct {
	set *template.Template
}

// LoadTemplates parses every embedded template once.
func LoadTemplates() (*Templates, error) {
	set, err := template.New("email").
		Funcs(sprig.FuncMap()).
		Option("missingkey=zero").
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &Templates{set: set}, nil
}

// Render executes the named template into an HTML string.
func (t *Templates) Render(name Template, data map[string]string) (string, error) {
	if !name.Valid() {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	var body bytes.Buffer
	if err := t.set.ExecuteTemplate(&body, string(name)+".html", data); err != nil {
		return "", fmt.Errorf("failed to execute email template %s: %w", name, err)
	}
	return body.String(), nil
}
