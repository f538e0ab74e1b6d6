package pdf

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deppfellow/aquaservice/internal/config"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 60, 20))
	for x := 0; x < 60; x++ {
		img.Set(x, 10, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func fp(v float64) *float64 { return &v }

func reportDocument(t *testing.T, eqType model.EquipmentType) *model.ReportDocument {
	t.Helper()
	signature := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))
	taxID := "30-12345678-9"

	doc := &model.ReportDocument{
		Client: model.Client{
			Name: "Lácteos del Sur S.A.", TaxID: &taxID,
			Address: "Ruta 8 km 42", City: "Pilar", Phone: "+54 11 5555 0000", Email: "planta@lacteos.example",
		},
		Technician: model.Technician{Name: "Martín Gómez"},
		Equipment: model.Equipment{
			Type: eqType, Brand: "Culligan", Model: "HE 1.5", SerialNumber: "SN-998877", Location: "Sala de calderas",
		},
	}
	doc.Report.ID = uuid.New()
	doc.Report.ServiceDate = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	doc.Report.Data = model.ReportData{
		Measurements: []model.Measurement{
			{Parameter: "Hardness", Unit: "ppm", AsFound: fp(180), AsLeft: fp(4)},
			{Parameter: "Pressure", Unit: "bar", AsFound: fp(3.2)},
		},
		Checklist: []model.ChecklistItem{
			{Label: "Valve inspected", Done: true},
			{Label: "Bypass tested", Done: false, Note: "Stuck, to be replaced"},
		},
		PartsReplaced:       []model.Part{{Name: "O-ring kit", Code: "OR-12", Quantity: 2}},
		Observations:        strings.Repeat("Unit running within parameters. ", 20),
		Recommendations:     "Replace bypass valve next visit.",
		TechnicianSignature: signature,
		ClientSignature:     "not-base64!!",
		ClientSignerName:    "Ana Pérez",
	}

	switch eqType {
	case model.EquipmentSoftener:
		doc.Report.Data.Softener = &model.SoftenerSection{
			ResinType: "Cation", SaltLevelPct: fp(60), HardnessIn: fp(200), HardnessOut: fp(5), BrineTankCleaned: true,
		}
	case model.EquipmentReverseOsmosis:
		doc.Report.Data.ReverseOsmosis = &model.ReverseOsmosisSection{
			Membranes:       []model.Membrane{{Position: 1, Serial: "M-1", Replaced: true}, {Position: 2}},
			PermeateFlowLPM: fp(3), RejectFlowLPM: fp(1), FeedTDS: fp(600), PermeateTDS: fp(30),
		}
	}
	return doc
}

func render(t *testing.T, c *canvas) string {
	t.Helper()
	c.pdf.SetCompression(false)
	out, err := c.output()
	if err != nil {
		t.Fatalf("output: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF")
	}
	return string(out)
}

func TestMaintenanceReportSoftener(t *testing.T) {
	r := NewRendererWithBranding(Branding{CompanyName: "Aqua Service", Logo: pngBytes(t)}, nil)
	out := render(t, r.buildMaintenanceReport(reportDocument(t, model.EquipmentSoftener)))

	for _, want := range []string{"MAINTENANCE REPORT", "As Found", "As Left", "Water softener", "Hardness removal", "Checklist", "(OK)", "(--)", "Parts replaced"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered report missing %q", want)
		}
	}
	if strings.Contains(out, "Reverse osmosis") {
		t.Errorf("softener report must not contain the reverse osmosis section")
	}
}

func TestMaintenanceReportReverseOsmosis(t *testing.T) {
	r := NewRendererWithBranding(Branding{CompanyName: "Aqua Service"}, nil)
	out := render(t, r.buildMaintenanceReport(reportDocument(t, model.EquipmentReverseOsmosis)))

	for _, want := range []string{"Reverse osmosis", "Recovery", "75.0 %", "Salt rejection", "95.0 %", "Membrane"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered report missing %q", want)
		}
	}
	if strings.Contains(out, "Water softener") {
		t.Errorf("RO report must not contain the softener section")
	}
}

func TestMaintenanceReportSkipsAbsentSections(t *testing.T) {
	doc := reportDocument(t, model.EquipmentSoftener)
	doc.Report.Data = model.ReportData{}

	r := NewRendererWithBranding(Branding{CompanyName: "Aqua Service"}, nil)
	out := render(t, r.buildMaintenanceReport(doc))
	for _, absent := range []string{"Measurements", "Checklist", "Parts replaced", "Observations", "Water softener"} {
		if strings.Contains(out, absent) {
			t.Errorf("empty report should not contain %q", absent)
		}
	}
}

func TestMaintenanceReportOverflowsToNewPages(t *testing.T) {
	doc := reportDocument(t, model.EquipmentSoftener)
	for i := 0; i < 120; i++ {
		doc.Report.Data.Measurements = append(doc.Report.Data.Measurements,
			model.Measurement{Parameter: "Sample point", Unit: "ppm", AsFound: fp(float64(i))})
	}

	r := NewRendererWithBranding(Branding{CompanyName: "Aqua Service"}, nil)
	c := r.buildMaintenanceReport(doc)
	if c.pdf.PageNo() < 3 {
		t.Fatalf("pages = %d, expected overflow", c.pdf.PageNo())
	}
	out := render(t, c)
	if !strings.Contains(out, "Aqua Service - Maintenance report") {
		t.Fatalf("continuation header missing")
	}
}

func TestMaintenanceReportRejectsMismatchedSection(t *testing.T) {
	doc := reportDocument(t, model.EquipmentSoftener)
	doc.Report.Data.ReverseOsmosis = &model.ReverseOsmosisSection{}

	r := NewRendererWithBranding(Branding{CompanyName: "Aqua Service"}, nil)
	if _, err := r.MaintenanceReport(doc); err == nil {
		t.Fatalf("expected error for mismatched section")
	}
}

func TestRemito(t *testing.T) {
	wo := uuid.New()
	doc := &model.RemitoDocument{
		Client: model.Client{Name: "Hotel Central"},
		Remito: model.Remito{
			Number:      7,
			WorkOrderID: &wo,
			IssuedAt:    time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
			Items: []model.RemitoItem{
				{Description: "Salt 25kg", Quantity: decimal.NewFromInt(4), UnitPrice: decimal.RequireFromString("9.90")},
				{Description: "Service visit", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)},
			},
			Notes: "Delivered to maintenance staff.",
		},
	}

	r := NewRendererWithBranding(Branding{CompanyName: "Aqua Service"}, nil)
	out := render(t, r.buildRemito(doc))
	for _, want := range []string{"REMITO", "R-000007", "39.60", "89.60", "Received by"} {
		if !strings.Contains(out, want) {
			t.Errorf("remito missing %q", want)
		}
	}

	pdfBytes, err := r.Remito(doc)
	if err != nil || len(pdfBytes) == 0 {
		t.Fatalf("Remito: %v", err)
	}
}

func TestNewRendererLoadsLogo(t *testing.T) {
	dir := t.TempDir()
	logo := filepath.Join(dir, "logo.png")
	if err := os.WriteFile(logo, pngBytes(t), 0o600); err != nil {
		t.Fatalf("write logo: %v", err)
	}

	r, err := NewRenderer(&config.ReportConfig{CompanyName: "Aqua", LogoPath: logo}, nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	if len(r.branding.Logo) == 0 {
		t.Fatalf("logo not loaded")
	}

	bad := filepath.Join(dir, "logo.txt")
	_ = os.WriteFile(bad, []byte("not an image"), 0o600)
	if _, err := NewRenderer(&config.ReportConfig{CompanyName: "Aqua", LogoPath: bad}, nil); err == nil {
		t.Fatalf("expected error for a non-image logo")
	}
}

func TestDecodeDataURL(t *testing.T) {
	raw := pngBytes(t)
	enc := base64.StdEncoding.EncodeToString(raw)

	for _, in := range []string{enc, "data:image/png;base64," + enc, " " + enc[:10] + "\n" + enc[10:]} {
		got, err := decodeDataURL(in)
		if err != nil || !bytes.Equal(got, raw) {
			t.Fatalf("decodeDataURL(%.20q...) failed: %v", in, err)
		}
	}
	if _, err := decodeDataURL(""); err == nil {
		t.Fatalf("empty input must fail")
	}
	if kind, err := imageType(raw); err != nil || kind != "PNG" {
		t.Fatalf("imageType = %q, %v", kind, err)
	}
	if _, err := imageType([]byte("hello")); err == nil {
		t.Fatalf("text is not an image")
	}
}
