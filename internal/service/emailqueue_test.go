package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/deppfellow/aquaservice/internal/lib/email"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/shopspring/decimal"
)

func TestEnqueueRejectsUnknownTemplate(t *testing.T) {
	f := newFixture(t)
	_, err := f.emails.Enqueue(context.Background(), email.Message{To: "a@b.c", Template: "invoice"})
	if !errors.Is(err, email.ErrUnknownTemplate) {
		t.Fatalf("got %v", err)
	}
	if f.scheduler.calls != 0 {
		t.Fatalf("nothing should be scheduled")
	}
}

func TestEnqueueRequiresRecipient(t *testing.T) {
	f := newFixture(t)
	_, err := f.emails.Enqueue(context.Background(), email.WelcomeMessage("", "Ana", "https://app.example.com/login"))
	if httpStatus(t, err) != http.StatusUnprocessableEntity {
		t.Fatalf("got %v", err)
	}
}

func TestDrainSendsSequentiallyAndCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, to := range []string{"one@example.com", "bounce@example.com", "two@example.com"} {
		if _, err := f.emails.Enqueue(ctx, email.WelcomeMessage(to, to, "https://app.example.com/login")); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	f.mailer.failFor["bounce@example.com"] = true

	res, err := f.emails.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	want := model.DrainResult{Processed: 3, Sent: 2, Retrying: 1}
	if res != want {
		t.Fatalf("result = %+v, want %+v", res, want)
	}
	if f.mailer.sent[0].msg.To != "one@example.com" || f.mailer.sent[1].msg.To != "two@example.com" {
		t.Fatalf("send order = %+v", f.mailer.sent)
	}

	// The bounced message keeps failing until it runs out of attempts.
	for i := 0; i < 2; i++ {
		if res, err = f.emails.Drain(ctx); err != nil {
			t.Fatalf("Drain: %v", err)
		}
	}
	if res.Failed != 1 || res.Processed != 1 {
		t.Fatalf("final result = %+v", res)
	}

	failed, _ := f.queue.List(ctx, model.EmailFailed, model.Page{})
	if failed.Total != 1 || failed.Items[0].Attempts != 3 {
		t.Fatalf("failed = %+v", failed)
	}

	res, err = f.emails.Drain(ctx)
	if err != nil || res.Processed != 0 {
		t.Fatalf("empty drain = %+v %v", res, err)
	}
}

func TestDrainHonoursBatchSize(t *testing.T) {
	f := newFixture(t)
	f.emails.batchSize = 2
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := f.emails.Enqueue(ctx, email.WelcomeMessage("x@example.com", "x", "u")); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	res, err := f.emails.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if res.Processed != 2 || len(f.mailer.sent) != 2 {
		t.Fatalf("processed %d, sent %d", res.Processed, len(f.mailer.sent))
	}
}

func TestRetryResetsFailedMessage(t *testing.T) {
	f := newFixture(t)
	f.emails.maxAttempts = 1
	f.mailer.failFor["bounce@example.com"] = true
	ctx := context.Background()

	msg, err := f.emails.Enqueue(ctx, email.WelcomeMessage("bounce@example.com", "b", "u"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if res, _ := f.emails.Drain(ctx); res.Failed != 1 {
		t.Fatalf("expected failure, got %+v", res)
	}

	calls := f.scheduler.calls
	retried, err := f.emails.Retry(ctx, msg.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.Status != model.EmailPending || retried.Attempts != 0 {
		t.Fatalf("retried = %+v", retried)
	}
	if f.scheduler.calls != calls+1 {
		t.Fatalf("retry must schedule a drain")
	}

	if _, err := f.emails.Retry(ctx, msg.ID); err == nil {
		t.Fatalf("retrying a pending message must fail")
	}
}

func TestReportEmailAttachesPDF(t *testing.T) {
	f := newFixture(t)
	report, err := f.reportSvc.Create(asTechnician(f.ana.ID), &CreateReportInput{
		EquipmentID: f.unit.ID,
		ServiceDate: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		Data:        model.ReportData{ReverseOsmosis: &model.ReverseOsmosisSection{PrefilterChanged: true}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.reportSvc.Email(asAdmin(), report.ID); err != nil {
		t.Fatalf("Email: %v", err)
	}
	if _, err := f.emails.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	if len(f.mailer.sent) != 1 {
		t.Fatalf("sent = %d", len(f.mailer.sent))
	}
	atts := f.mailer.sent[0].attachments
	if len(atts) != 1 || atts[0].Filename != ReportFilename(report.ID) {
		t.Fatalf("attachments = %+v", atts)
	}
	if !strings.HasPrefix(string(atts[0].Content), "%PDF") {
		t.Fatalf("attachment is not the rendered report")
	}
}

func TestRemitoEmailMarksRemitoEmailed(t *testing.T) {
	f := newFixture(t)
	ctx := asAdmin()

	in := &CreateRemitoInput{
		ClientID: f.client.ID,
		Items: []model.RemitoItem{
			{Description: "Membrane", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("150.50")},
			{Description: "Labour", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("80")},
		},
	}
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	remito, err := f.remitoSvc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if remito.Number != 1 || !remito.Total().Equal(decimal.RequireFromString("381")) {
		t.Fatalf("remito = %+v total %s", remito, remito.Total())
	}

	queued, err := f.remitoSvc.Send(ctx, remito.ID)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if queued.Data["Total"] != "$ 381.00" || queued.Subject != "Remito R-000001" {
		t.Fatalf("queued = %+v", queued)
	}

	if _, err := f.emails.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if _, ok := f.remitos.emailed[remito.ID]; !ok {
		t.Fatalf("remito not marked emailed")
	}
	if atts := f.mailer.sent[0].attachments; len(atts) != 1 || atts[0].Filename != "remito-R-000001.pdf" {
		t.Fatalf("attachments = %+v", atts)
	}
}

func TestCreateRemitoValidatesItems(t *testing.T) {
	in := &CreateRemitoInput{
		ClientID: newFixture(t).client.ID,
		Items:    []model.RemitoItem{{Description: "Salt", Quantity: decimal.Zero, UnitPrice: decimal.NewFromInt(-1)}},
	}
	if err := in.Validate(); err == nil {
		t.Fatalf("expected quantity and price errors")
	}
}

func TestPreviewUnknownTemplate(t *testing.T) {
	f := newFixture(t)
	if _, err := f.emails.Preview("nope"); httpStatus(t, err) != http.StatusNotFound {
		t.Fatalf("got %v", err)
	}
	html, err := f.emails.Preview(email.TemplateWelcome)
	if err != nil || !strings.Contains(html, "welcome") {
		t.Fatalf("preview = %q %v", html, err)
	}
}
