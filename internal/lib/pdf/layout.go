// Package pdf renders maintenance reports and remitos as A4 documents.
//
// Layout is cursor based: every block measures itself, asks the canvas
// for room with ensureSpace and then draws at the current y. Automatic
// page breaks are disabled; a block that does not fit below the cursor
// starts a new page instead.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidth  = 210.0
	pageHeight = 297.0
	margin     = 15.0

	contentWidth = pageWidth - 2*margin

	fontFamily = "Helvetica"

	bodyFontSize   = 10.0
	tableFontSize  = 9.0
	minFontSize    = 6.0
	fontStep       = 0.5
	lineHeight     = 6.0
	rowHeight      = 6.5
	sectionHeight  = 8.0
	cellPadding    = 1.0
	minColumnWidth = 14.0
	ellipsis       = "..."
)

type rgb struct{ r, g, b int }

var (
	colorText    = rgb{33, 37, 41}
	colorMuted   = rgb{108, 117, 125}
	colorBand    = rgb{0, 94, 140}
	colorHeader  = rgb{222, 235, 244}
	colorStripe  = rgb{246, 249, 251}
	colorBorder  = rgb{190, 200, 210}
	colorOnBand  = rgb{255, 255, 255}
	colorSection = rgb{0, 94, 140}
)

// kv is a label/value line in an info block.
type kv struct {
	label string
	value string
}

// canvas tracks the cursor and page geometry around an fpdf document.
type canvas struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	y   float64

	// continuation draws the compact header on every page after the first.
	continuation func()
}

func newCanvas(title string) *canvas {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetMargins(margin, margin, margin)
	doc.SetCellMargin(cellPadding)
	doc.SetTitle(title, true)
	doc.SetCreator("aquaservice", true)

	c := &canvas{
		pdf: doc,
		tr:  doc.UnicodeTranslatorFromDescriptor(""),
	}
	c.addPage()
	return c
}

func (c *canvas) bottom() float64 {
	return pageHeight - margin
}

func (c *canvas) addPage() {
	c.pdf.AddPage()
	c.y = margin
	if c.pdf.PageNo() > 1 && c.continuation != nil {
		c.continuation()
	}
}

// ensureSpace starts a new page when a block of height h would cross the
// bottom margin. It reports whether a page was added.
func (c *canvas) ensureSpace(h float64) bool {
	if c.y+h <= c.bottom() {
		return false
	}
	c.addPage()
	return true
}

func (c *canvas) setFont(style string, size float64) {
	c.pdf.SetFont(fontFamily, style, size)
}

func (c *canvas) setTextColor(col rgb) {
	c.pdf.SetTextColor(col.r, col.g, col.b)
}

func (c *canvas) setFillColor(col rgb) {
	c.pdf.SetFillColor(col.r, col.g, col.b)
}

func (c *canvas) setDrawColor(col rgb) {
	c.pdf.SetDrawColor(col.r, col.g, col.b)
}

// textWidth measures s in the current font.
func (c *canvas) textWidth(s string) float64 {
	return c.pdf.GetStringWidth(c.tr(s))
}

// fitText picks the largest font size between size and minFontSize, in
// fontStep decrements, at which text fits in a cell of width w. When even
// the minimum is too wide the text is truncated with an ellipsis.
//
// The returned string is already translated to the PDF code page and must
// be drawn as is. The current font size is left at the returned size.
func (c *canvas) fitText(text string, w, size float64) (float64, string) {
	encoded := c.tr(text)
	avail := w - 2*cellPadding

	for s := size; s >= minFontSize; s -= fontStep {
		c.pdf.SetFontSize(s)
		if c.pdf.GetStringWidth(encoded) <= avail {
			return s, encoded
		}
	}

	c.pdf.SetFontSize(minFontSize)
	return minFontSize, c.truncate(encoded, avail)
}

// truncate cuts an encoded string until it fits in avail together with
// the ellipsis.
func (c *canvas) truncate(encoded string, avail float64) string {
	if c.pdf.GetStringWidth(ellipsis) > avail {
		return ""
	}
	for len(encoded) > 0 && c.pdf.GetStringWidth(encoded+ellipsis) > avail {
		encoded = encoded[:len(encoded)-1]
	}
	return strings.TrimRight(encoded, " ") + ellipsis
}

// cell draws text fitted into a w×h cell at (x, y) without moving the cursor.
func (c *canvas) cell(x, y, w, h float64, text, style, align, border string, fill bool, size float64) {
	c.setFont(style, size)
	_, encoded := c.fitText(text, w, size)
	c.pdf.SetXY(x, y)
	c.pdf.CellFormat(w, h, encoded, border, 0, align, fill, 0, "")
}

// sectionTitle draws a section heading and keeps it on the same page as
// at least the first two lines of its content.
func (c *canvas) sectionTitle(title string) {
	c.ensureSpace(sectionHeight + 2*rowHeight + 2)
	c.y += 2

	c.setFont("B", 11)
	c.setTextColor(colorSection)
	c.pdf.SetXY(margin, c.y)
	c.pdf.CellFormat(contentWidth, sectionHeight, c.tr(title), "", 0, "L", false, 0, "")

	c.setDrawColor(colorSection)
	c.pdf.SetLineWidth(0.4)
	c.pdf.Line(margin, c.y+sectionHeight, margin+contentWidth, c.y+sectionHeight)
	c.pdf.SetLineWidth(0.2)

	c.setTextColor(colorText)
	c.y += sectionHeight + 1.5
}

// keyValueGrid lays pairs out in two columns, row-major. Pairs with an
// empty value are dropped; nothing is drawn when none remain.
func (c *canvas) keyValueGrid(pairs []kv) {
	filled := nonEmpty(pairs)
	if len(filled) == 0 {
		return
	}

	colWidth := contentWidth / 2
	labelWidth := colWidth * 0.45
	valueWidth := colWidth - labelWidth

	for i := 0; i < len(filled); i += 2 {
		c.ensureSpace(rowHeight)
		for j := 0; j < 2 && i+j < len(filled); j++ {
			x := margin + float64(j)*colWidth
			c.setTextColor(colorMuted)
			c.cell(x, c.y, labelWidth, rowHeight, filled[i+j].label, "B", "L", "", false, tableFontSize)
			c.setTextColor(colorText)
			c.cell(x+labelWidth, c.y, valueWidth, rowHeight, filled[i+j].value, "", "L", "", false, tableFontSize)
		}
		c.y += rowHeight
	}
}

// twoColumnBlock draws two titled label/value lists side by side. The
// block is kept together on one page.
func (c *canvas) twoColumnBlock(leftTitle string, left []kv, rightTitle string, right []kv) {
	left, right = nonEmpty(left), nonEmpty(right)
	rows := max(len(left), len(right))
	if rows == 0 {
		return
	}

	c.ensureSpace(rowHeight*float64(rows+1) + 4)

	gap := 6.0
	colWidth := (contentWidth - gap) / 2
	labelWidth := colWidth * 0.35

	top := c.y
	c.setFillColor(colorHeader)
	c.setTextColor(colorText)
	c.cell(margin, top, colWidth, rowHeight, leftTitle, "B", "L", "", true, bodyFontSize)
	c.cell(margin+colWidth+gap, top, colWidth, rowHeight, rightTitle, "B", "L", "", true, bodyFontSize)

	draw := func(x float64, pairs []kv) {
		y := top + rowHeight
		for _, p := range pairs {
			c.setTextColor(colorMuted)
			c.cell(x, y, labelWidth, rowHeight, p.label, "B", "L", "", false, tableFontSize)
			c.setTextColor(colorText)
			c.cell(x+labelWidth, y, colWidth-labelWidth, rowHeight, p.value, "", "L", "", false, tableFontSize)
			y += rowHeight
		}
	}
	draw(margin, left)
	draw(margin+colWidth+gap, right)

	c.setDrawColor(colorBorder)
	c.pdf.Rect(margin, top, colWidth, rowHeight*float64(rows+1), "D")
	c.pdf.Rect(margin+colWidth+gap, top, colWidth, rowHeight*float64(rows+1), "D")

	c.y = top + rowHeight*float64(rows+1) + 4
}

// column describes one table column.
type column struct {
	header string
	align  string
}

// table draws a bordered table whose column widths follow the content.
// The header row is repeated at the top of every page the table spills onto.
func (c *canvas) table(cols []column, rows [][]string) {
	if len(rows) == 0 || len(cols) == 0 {
		return
	}

	widths := c.columnWidths(cols, rows)

	drawHeader := func() {
		c.setFillColor(colorHeader)
		c.setDrawColor(colorBorder)
		c.setTextColor(colorText)
		x := margin
		for i, col := range cols {
			c.cell(x, c.y, widths[i], rowHeight, col.header, "B", col.align, "1", true, tableFontSize)
			x += widths[i]
		}
		c.y += rowHeight
	}

	c.ensureSpace(2 * rowHeight)
	drawHeader()

	for r, row := range rows {
		if c.ensureSpace(rowHeight) {
			drawHeader()
		}
		c.setFillColor(colorStripe)
		x := margin
		for i := range cols {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			c.cell(x, c.y, widths[i], rowHeight, value, "", cols[i].align, "1", r%2 == 1, tableFontSize)
			x += widths[i]
		}
		c.y += rowHeight
	}
	c.y += 2
}

// columnWidths measures the widest header or cell of every column and
// distributes the printable width proportionally to those measurements.
func (c *canvas) columnWidths(cols []column, rows [][]string) []float64 {
	natural := make([]float64, len(cols))

	c.setFont("B", tableFontSize)
	for i, col := range cols {
		natural[i] = c.textWidth(col.header)
	}

	c.setFont("", tableFontSize)
	for _, row := range rows {
		for i := 0; i < len(cols) && i < len(row); i++ {
			if w := c.textWidth(row[i]); w > natural[i] {
				natural[i] = w
			}
		}
	}

	for i := range natural {
		natural[i] += 2*cellPadding + 1
	}

	return distributeWidths(natural, contentWidth, minColumnWidth)
}

// distributeWidths scales natural widths so they sum to total.
//
// When there is spare room every column grows proportionally. When the
// content is too wide columns shrink proportionally, but none below
// minWidth; columns clamped to minWidth are taken out and the remainder
// is rescaled until every column fits. If total cannot hold minWidth for
// every column the width is split evenly.
func distributeWidths(natural []float64, total, minWidth float64) []float64 {
	n := len(natural)
	widths := make([]float64, n)
	if n == 0 {
		return widths
	}

	if float64(n)*minWidth >= total {
		for i := range widths {
			widths[i] = total / float64(n)
		}
		return widths
	}

	sum := 0.0
	for i, w := range natural {
		widths[i] = max(w, minWidth)
		sum += widths[i]
	}

	if sum <= total {
		scale := total / sum
		for i := range widths {
			widths[i] *= scale
		}
		return widths
	}

	clamped := make([]bool, n)
	for {
		fixed, flexible := 0.0, 0.0
		for i := range widths {
			if clamped[i] {
				fixed += minWidth
			} else {
				flexible += max(natural[i], minWidth)
			}
		}

		scale := (total - fixed) / flexible
		changed := false
		for i := range widths {
			if clamped[i] {
				widths[i] = minWidth
				continue
			}
			widths[i] = max(natural[i], minWidth) * scale
			if widths[i] < minWidth {
				clamped[i] = true
				changed = true
			}
		}
		if !changed {
			return widths
		}
	}
}

// paragraph draws wrapped text line by line, breaking pages between lines.
func (c *canvas) paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.setFont("", bodyFontSize)
	c.setTextColor(colorText)
	lines := c.pdf.SplitLines([]byte(c.tr(text)), contentWidth)
	for _, line := range lines {
		c.ensureSpace(lineHeight)
		c.pdf.SetXY(margin, c.y)
		c.pdf.CellFormat(contentWidth, lineHeight, string(line), "", 0, "L", false, 0, "")
		c.y += lineHeight
	}
	c.y += 2
}

// image draws data fitted inside the w×h box at (x, y), keeping the aspect
// ratio and centering it. A broken image is reported and leaves the
// document usable.
func (c *canvas) image(name string, data []byte, x, y, w, h float64) error {
	kind, err := imageType(data)
	if err != nil {
		return err
	}

	opts := fpdf.ImageOptions{ImageType: kind}
	info := c.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if c.pdf.Err() {
		err := c.pdf.Error()
		c.pdf.ClearError()
		return fmt.Errorf("register image %s: %w", name, err)
	}

	iw, ih := info.Width(), info.Height()
	if iw <= 0 || ih <= 0 {
		return fmt.Errorf("image %s has no size", name)
	}

	scale := min(w/iw, h/ih)
	dw, dh := iw*scale, ih*scale
	c.pdf.ImageOptions(name, x+(w-dw)/2, y+(h-dh)/2, dw, dh, false, opts, 0, "")
	return nil
}

// output serializes the document.
func (c *canvas) output() ([]byte, error) {
	if c.pdf.Err() {
		return nil, fmt.Errorf("render pdf: %w", c.pdf.Error())
	}
	var buf bytes.Buffer
	if err := c.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func nonEmpty(pairs []kv) []kv {
	out := make([]kv, 0, len(pairs))
	for _, p := range pairs {
		if strings.TrimSpace(p.value) != "" {
			out = append(out, p)
		}
	}
	return out
}
