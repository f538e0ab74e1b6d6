package pdf

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/deppfellow/aquaservice/internal/config"
	"github.com/rs/zerolog"
)

const dateLayout = "02/01/2006"

// Branding is printed in the header of every document.
type Branding struct {
	CompanyName string
	Address     string
	Phone       string
	Logo        []byte
}

// Renderer turns domain documents into PDF bytes.
// It holds no per-document state and is safe for concurrent use.
type Renderer struct {
	branding Branding
	logger   *zerolog.Logger
}

// NewRenderer loads the configured logo once. A missing or unreadable
// logo is an error; an empty LogoPath renders documents without one.
func NewRenderer(cfg *config.ReportConfig, logger *zerolog.Logger) (*Renderer, error) {
	b := Branding{
		CompanyName: cfg.CompanyName,
		Address:     cfg.CompanyAddress,
		Phone:       cfg.CompanyPhone,
	}

	if cfg.LogoPath != "" {
		logo, err := os.ReadFile(cfg.LogoPath)
		if err != nil {
			return nil, fmt.Errorf("read report logo: %w", err)
		}
		if _, err := imageType(logo); err != nil {
			return nil, fmt.Errorf("report logo %s: %w", cfg.LogoPath, err)
		}
		b.Logo = logo
	}

	return NewRendererWithBranding(b, logger), nil
}

// NewRendererWithBranding builds a Renderer from explicit branding.
func NewRendererWithBranding(b Branding, logger *zerolog.Logger) *Renderer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Renderer{branding: b, logger: logger}
}

// header draws the first-page band: logo and company block on the left,
// document title and reference lines on the right.
func (r *Renderer) header(c *canvas, title string, refs []string) {
	top := c.y
	textX := margin

	if len(r.branding.Logo) > 0 {
		if err := c.image("logo", r.branding.Logo, margin, top, 32, 18); err != nil {
			r.logger.Warn().Err(err).Msg("skipping report logo")
		} else {
			textX = margin + 36
		}
	}

	rightWidth := 70.0
	companyWidth := margin + contentWidth - rightWidth - textX - 2

	c.setTextColor(colorText)
	c.cell(textX, top, companyWidth, 7, r.branding.CompanyName, "B", "L", "", false, 14)

	c.setTextColor(colorMuted)
	y := top + 7
	for _, line := range []string{r.branding.Address, r.branding.Phone} {
		if strings.TrimSpace(line) == "" {
			continue
		}
		c.cell(textX, y, companyWidth, 5, line, "", "L", "", false, 9)
		y += 5
	}

	rightX := margin + contentWidth - rightWidth
	c.setTextColor(colorBand)
	c.cell(rightX, top, rightWidth, 7, title, "B", "R", "", false, 13)
	c.setTextColor(colorText)
	y = top + 7
	for _, ref := range refs {
		c.cell(rightX, y, rightWidth, 5, ref, "", "R", "", false, 9)
		y += 5
	}

	c.y = top + 22
	c.setDrawColor(colorBand)
	c.pdf.SetLineWidth(0.8)
	c.pdf.Line(margin, c.y, margin+contentWidth, c.y)
	c.pdf.SetLineWidth(0.2)
	c.y += 5
}

// continuationHeader is drawn at the top of every page after the first.
func (r *Renderer) continuationHeader(c *canvas, title string) func() {
	return func() {
		c.setTextColor(colorMuted)
		c.cell(margin, c.y, contentWidth, 5, r.branding.CompanyName+" - "+title, "I", "L", "", false, 8)
		c.setDrawColor(colorBorder)
		c.pdf.Line(margin, c.y+6, margin+contentWidth, c.y+6)
		c.setTextColor(colorText)
		c.y += 9
	}
}

// signatureBox is one signature slot at the end of a document.
type signatureBox struct {
	caption string
	name    string
	image   string
}

// signatures draws the signature slots side by side. Embedded images are
// drawn when present and decodable; an empty box is left for a manual
// signature otherwise.
func (r *Renderer) signatures(c *canvas, boxes []signatureBox) {
	if len(boxes) == 0 {
		return
	}

	const (
		boxHeight = 28.0
		gap       = 10.0
	)
	c.ensureSpace(boxHeight + 16)
	c.y += 4

	width := (contentWidth - gap*float64(len(boxes)-1)) / float64(len(boxes))
	for i, box := range boxes {
		x := margin + float64(i)*(width+gap)

		if box.image != "" {
			data, err := decodeDataURL(box.image)
			if err == nil {
				err = c.image(fmt.Sprintf("signature-%d", i), data, x+2, c.y+2, width-4, boxHeight-4)
			}
			if err != nil {
				r.logger.Warn().Err(err).Str("signature", box.caption).Msg("skipping unreadable signature")
			}
		}

		c.setDrawColor(colorText)
		c.pdf.Line(x, c.y+boxHeight, x+width, c.y+boxHeight)

		c.setTextColor(colorMuted)
		c.cell(x, c.y+boxHeight+1, width, 5, box.caption, "B", "C", "", false, 9)
		c.setTextColor(colorText)
		c.cell(x, c.y+boxHeight+6, width, 5, box.name, "", "C", "", false, 9)
	}
	c.y += boxHeight + 12
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDate(*t)
}

// formatFloat prints up to two decimals without trailing zeros.
func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(roundTo(*v, 2), 'f', -1, 64)
}

func formatPct(v float64) string {
	return strconv.FormatFloat(roundTo(v, 1), 'f', 1, 64) + " %"
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func shortID(id fmt.Stringer) string {
	s := id.String()
	if len(s) > 8 {
		return strings.ToUpper(s[:8])
	}
	return strings.ToUpper(s)
}
