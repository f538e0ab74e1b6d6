package pdf

import (
	"fmt"
	"strconv"

	"github.com/deppfellow/aquaservice/internal/model"
)

const maintenanceTitle = "MAINTENANCE REPORT"

// MaintenanceReport renders a report with its equipment, client and
// technician. The type-specific section follows the equipment type.
func (r *Renderer) MaintenanceReport(doc *model.ReportDocument) ([]byte, error) {
	if err := doc.Report.Data.CheckEquipmentType(doc.Equipment.Type); err != nil {
		return nil, err
	}
	return r.buildMaintenanceReport(doc).output()
}

func (r *Renderer) buildMaintenanceReport(doc *model.ReportDocument) *canvas {
	report, data := doc.Report, doc.Report.Data

	c := newCanvas(fmt.Sprintf("Maintenance report %s", shortID(report.ID)))
	r.header(c, maintenanceTitle, []string{
		"No. " + shortID(report.ID),
		"Service date: " + formatDate(report.ServiceDate),
	})
	c.continuation = r.continuationHeader(c, "Maintenance report "+shortID(report.ID))

	c.twoColumnBlock(
		"Client", clientLines(doc.Client),
		"Equipment", []kv{
			{"Type", doc.Equipment.Type.Label()},
			{"Brand / model", joinNonEmpty(" / ", doc.Equipment.Brand, doc.Equipment.Model)},
			{"Serial", doc.Equipment.SerialNumber},
			{"Location", doc.Equipment.Location},
			{"Installed", formatDatePtr(doc.Equipment.InstalledAt)},
			{"Technician", doc.Technician.Name},
		},
	)

	if len(data.Measurements) > 0 {
		c.sectionTitle("Measurements")
		rows := make([][]string, 0, len(data.Measurements))
		for _, m := range data.Measurements {
			rows = append(rows, []string{m.Parameter, m.Unit, orDash(formatFloat(m.AsFound)), orDash(formatFloat(m.AsLeft))})
		}
		c.table([]column{
			{"Parameter", "L"},
			{"Unit", "C"},
			{"As Found", "R"},
			{"As Left", "R"},
		}, rows)
	}

	switch doc.Equipment.Type {
	case model.EquipmentSoftener:
		if data.Softener != nil {
			softenerSection(c, data.Softener)
		}
	case model.EquipmentReverseOsmosis:
		if data.ReverseOsmosis != nil {
			reverseOsmosisSection(c, data.ReverseOsmosis)
		}
	}

	if len(data.Checklist) > 0 {
		c.sectionTitle("Checklist")
		rows := make([][]string, 0, len(data.Checklist))
		for _, item := range data.Checklist {
			status := "--"
			if item.Done {
				status = "OK"
			}
			rows = append(rows, []string{item.Label, status, item.Note})
		}
		c.table([]column{{"Task", "L"}, {"Status", "C"}, {"Note", "L"}}, rows)
	}

	if len(data.PartsReplaced) > 0 {
		c.sectionTitle("Parts replaced")
		rows := make([][]string, 0, len(data.PartsReplaced))
		for _, p := range data.PartsReplaced {
			q := p.Quantity
			rows = append(rows, []string{p.Name, orDash(p.Code), formatFloat(&q)})
		}
		c.table([]column{{"Part", "L"}, {"Code", "L"}, {"Quantity", "R"}}, rows)
	}

	if data.Observations != "" {
		c.sectionTitle("Observations")
		c.paragraph(data.Observations)
	}

	if data.Recommendations != "" {
		c.sectionTitle("Recommendations")
		c.paragraph(data.Recommendations)
	}

	r.signatures(c, []signatureBox{
		{caption: "Technician", name: doc.Technician.Name, image: data.TechnicianSignature},
		{caption: "Client", name: data.ClientSignerName, image: data.ClientSignature},
	})

	return c
}

func softenerSection(c *canvas, s *model.SoftenerSection) {
	pairs := []kv{
		{"Resin type", s.ResinType},
		{"Salt level", withUnit(formatFloat(s.SaltLevelPct), "%")},
		{"Regeneration", s.RegenerationCycle},
		{"Brine tank cleaned", yesNo(s.BrineTankCleaned)},
		{"Hardness in", withUnit(formatFloat(s.HardnessIn), "ppm")},
		{"Hardness out", withUnit(formatFloat(s.HardnessOut), "ppm")},
	}
	if s.HardnessIn != nil && s.HardnessOut != nil && *s.HardnessIn > 0 {
		pairs = append(pairs, kv{"Hardness removal", formatPct((*s.HardnessIn - *s.HardnessOut) / *s.HardnessIn * 100)})
	}

	c.sectionTitle("Water softener")
	c.keyValueGrid(pairs)
}

func reverseOsmosisSection(c *canvas, ro *model.ReverseOsmosisSection) {
	c.sectionTitle("Reverse osmosis")

	pairs := []kv{
		{"Prefilter changed", yesNo(ro.PrefilterChanged)},
		{"Postfilter changed", yesNo(ro.PostfilterChanged)},
		{"Permeate flow", withUnit(formatFloat(ro.PermeateFlowLPM), "L/min")},
		{"Reject flow", withUnit(formatFloat(ro.RejectFlowLPM), "L/min")},
		{"Feed TDS", withUnit(formatFloat(ro.FeedTDS), "ppm")},
		{"Permeate TDS", withUnit(formatFloat(ro.PermeateTDS), "ppm")},
	}
	if v, ok := ro.RecoveryPct(); ok {
		pairs = append(pairs, kv{"Recovery", formatPct(v)})
	}
	if v, ok := ro.RejectionPct(); ok {
		pairs = append(pairs, kv{"Salt rejection", formatPct(v)})
	}
	c.keyValueGrid(pairs)

	if len(ro.Membranes) > 0 {
		rows := make([][]string, 0, len(ro.Membranes))
		for _, m := range ro.Membranes {
			status := "Kept"
			if m.Replaced {
				status = "Replaced"
			}
			rows = append(rows, []string{strconv.Itoa(m.Position), orDash(m.Serial), status})
		}
		c.y += 2
		c.table([]column{{"Membrane", "C"}, {"Serial", "L"}, {"Status", "C"}}, rows)
	}
}

func clientLines(cl model.Client) []kv {
	taxID := ""
	if cl.TaxID != nil {
		taxID = *cl.TaxID
	}
	return []kv{
		{"Name", cl.Name},
		{"Tax ID", taxID},
		{"Address", cl.Address},
		{"City", cl.City},
		{"Phone", cl.Phone},
		{"Email", cl.Email},
	}
}

func withUnit(v, unit string) string {
	if v == "" {
		return ""
	}
	return v + " " + unit
}

func joinNonEmpty(sep string, parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += p
	}
	return out
}
