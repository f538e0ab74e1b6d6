package pdf

import (
	"strconv"

	"github.com/deppfellow/aquaservice/internal/model"
)

const remitoTitle = "REMITO"

// Remito renders a service receipt with its line items and total.
func (r *Renderer) Remito(doc *model.RemitoDocument) ([]byte, error) {
	return r.buildRemito(doc).output()
}

func (r *Renderer) buildRemito(doc *model.RemitoDocument) *canvas {
	rem := doc.Remito

	c := newCanvas("Remito " + rem.DisplayNumber())
	r.header(c, remitoTitle, []string{
		"No. " + rem.DisplayNumber(),
		"Date: " + formatDate(rem.IssuedAt),
	})
	c.continuation = r.continuationHeader(c, "Remito "+rem.DisplayNumber())

	workOrder := ""
	if rem.WorkOrderID != nil {
		workOrder = shortID(rem.WorkOrderID)
	}
	c.twoColumnBlock(
		"Client", clientLines(doc.Client),
		"Receipt", []kv{
			{"Number", rem.DisplayNumber()},
			{"Issued", formatDate(rem.IssuedAt)},
			{"Work order", workOrder},
			{"Items", strconv.Itoa(len(rem.Items))},
		},
	)

	c.sectionTitle("Items")
	rows := make([][]string, 0, len(rem.Items)+1)
	for _, item := range rem.Items {
		rows = append(rows, []string{
			item.Description,
			item.Quantity.String(),
			item.UnitPrice.StringFixed(2),
			item.Subtotal().StringFixed(2),
		})
	}
	c.table([]column{
		{"Description", "L"},
		{"Quantity", "R"},
		{"Unit price", "R"},
		{"Subtotal", "R"},
	}, rows)

	c.ensureSpace(rowHeight)
	c.setFillColor(colorHeader)
	c.setTextColor(colorText)
	labelWidth := contentWidth * 0.75
	c.cell(margin, c.y, labelWidth, rowHeight, "TOTAL", "B", "R", "1", true, bodyFontSize)
	c.cell(margin+labelWidth, c.y, contentWidth-labelWidth, rowHeight, rem.Total().StringFixed(2), "B", "R", "1", true, bodyFontSize)
	c.y += rowHeight + 2

	if rem.Notes != "" {
		c.sectionTitle("Notes")
		c.paragraph(rem.Notes)
	}

	r.signatures(c, []signatureBox{
		{caption: "Delivered by", name: r.branding.CompanyName},
		{caption: "Received by", name: doc.Client.Name},
	})

	return c
}
