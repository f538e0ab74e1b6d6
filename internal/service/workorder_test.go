package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/deppfellow/aquaservice/internal/config"
	"github.com/deppfellow/aquaservice/internal/errs"
	"github.com/deppfellow/aquaservice/internal/lib/email"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/repository"
	"github.com/google/uuid"
)

type fixture struct {
	clients     *memClients
	techs       *memTechnicians
	equipment   *memEquipment
	orders      *memWorkOrders
	reports     *memReports
	remitos     *memRemitos
	queue       *memEmailQueue
	mailer      *fakeMailer
	scheduler   *fakeScheduler
	emails      *EmailQueueService
	workOrders  *WorkOrderService
	reportSvc   *ReportService
	remitoSvc   *RemitoService
	technicians *TechnicianService

	client model.Client
	ana    model.Technician
	bruno  model.Technician
	unit   model.Equipment
}

func ptr[T any](v T) *T { return &v }

func newTestJobsConfig() config.JobsConfig {
	return config.JobsConfig{EmailBatchSize: 50, EmailMaxAttempts: 3}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	client := model.Client{
		Base: model.Base{ID: uuid.New()}, Name: "Hotel Sur", Email: "admin@hotelsur.example",
		Address: "San Martin 100", City: "Cordoba", Latitude: ptr(-31.4167), Longitude: ptr(-64.1833),
	}
	ana := model.Technician{
		Base: model.Base{ID: uuid.New()}, Name: "Ana", Email: "ana@example.com", Active: true,
		Skills: []string{"osmosis", "softener"}, Latitude: ptr(-31.42), Longitude: ptr(-64.19),
	}
	bruno := model.Technician{
		Base: model.Base{ID: uuid.New()}, Name: "Bruno", Email: "bruno@example.com", Active: true,
		Skills: []string{"softener"}, Latitude: ptr(-31.0), Longitude: ptr(-64.5),
	}
	unit := model.Equipment{Base: model.Base{ID: uuid.New()}, ClientID: client.ID, Type: model.EquipmentReverseOsmosis, Brand: "Aqua", Model: "RO-400"}

	f := &fixture{
		clients:   newMemClients(client),
		techs:     newMemTechnicians(ana, bruno),
		equipment: newMemEquipment(unit),
		reports:   newMemReports(),
		remitos:   newMemRemitos(),
		queue:     &memEmailQueue{},
		mailer:    &fakeMailer{failFor: map[string]bool{}},
		scheduler: &fakeScheduler{},
		client:    client,
		ana:       ana,
		bruno:     bruno,
		unit:      unit,
	}
	f.orders = newMemWorkOrders(f.clients, f.techs)

	f.emails = NewEmailQueueService(f.queue, f.mailer, f.scheduler, newTestJobsConfig(), &nopLogger)
	f.technicians = NewTechnicianService(f.techs, nil, &nopLogger)
	f.workOrders = NewWorkOrderService(f.orders, f.clients, f.equipment, f.technicians, f.emails, "https://app.example.com/", &nopLogger)
	f.reportSvc = NewReportService(f.reports, f.equipment, f.clients, f.techs, f.orders, fakeRenderer{}, f.emails, &nopLogger)
	f.remitoSvc = NewRemitoService(f.remitos, f.clients, f.orders, fakeRenderer{}, f.emails, &nopLogger)
	f.emails.SetDocuments(f.reportSvc, f.remitoSvc)
	return f
}

func (f *fixture) createOrder(t *testing.T, technician *uuid.UUID) *model.WorkOrder {
	t.Helper()
	wo, err := f.workOrders.Create(context.Background(), &CreateWorkOrderInput{
		ClientID:       f.client.ID,
		EquipmentID:    &f.unit.ID,
		TechnicianID:   technician,
		ScheduledFor:   time.Date(2026, 11, 3, 9, 30, 0, 0, time.UTC),
		Description:    "Membrane replacement",
		RequiredSkills: []string{" Osmosis "},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return wo
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *errs.HTTPError, got %T (%v)", err, err)
	}
	return httpErr.Status
}

func TestCreateWorkOrderQueuesConfirmationEmail(t *testing.T) {
	f := newFixture(t)
	wo := f.createOrder(t, &f.ana.ID)

	if wo.Status != model.WorkOrderPending {
		t.Fatalf("status = %s", wo.Status)
	}
	if wo.DurationMinutes != 60 {
		t.Fatalf("default duration = %d", wo.DurationMinutes)
	}
	if len(wo.ConfirmationToken) < 32 {
		t.Fatalf("token too short: %q", wo.ConfirmationToken)
	}
	if len(wo.RequiredSkills) != 1 || wo.RequiredSkills[0] != "osmosis" {
		t.Fatalf("skills = %v", wo.RequiredSkills)
	}

	queued := f.queue.byTemplate(email.TemplateWorkOrderConfirmation)
	if len(queued) != 1 {
		t.Fatalf("confirmation emails = %d", len(queued))
	}
	want := "https://app.example.com/confirm/" + wo.ConfirmationToken
	if queued[0].Data["ConfirmURL"] != want {
		t.Fatalf("confirm url = %q, want %q", queued[0].Data["ConfirmURL"], want)
	}
	if f.scheduler.calls != 1 {
		t.Fatalf("drain scheduled %d times", f.scheduler.calls)
	}
}

func TestCreateWorkOrderRejectsForeignEquipment(t *testing.T) {
	f := newFixture(t)
	other := model.Equipment{Base: model.Base{ID: uuid.New()}, ClientID: uuid.New(), Type: model.EquipmentSoftener}
	f.equipment.rows[other.ID] = other

	_, err := f.workOrders.Create(context.Background(), &CreateWorkOrderInput{
		ClientID: f.client.ID, EquipmentID: &other.ID, ScheduledFor: time.Now(),
	})
	if httpStatus(t, err) != http.StatusBadRequest {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestWorkOrderConfirmationFlow(t *testing.T) {
	f := newFixture(t)
	wo := f.createOrder(t, &f.ana.ID)

	if _, err := f.workOrders.ConfirmByTechnician(asTechnician(f.bruno.ID), wo.ID); httpStatus(t, err) != http.StatusForbidden {
		t.Fatalf("another technician must not confirm, got %v", err)
	}

	got, err := f.workOrders.ConfirmByTechnician(asTechnician(f.ana.ID), wo.ID)
	if err != nil {
		t.Fatalf("ConfirmByTechnician: %v", err)
	}
	if got.Status != model.WorkOrderTechnicianConfirmed {
		t.Fatalf("status = %s", got.Status)
	}

	if _, err := f.workOrders.ConfirmByTechnician(asTechnician(f.ana.ID), wo.ID); httpStatus(t, err) != http.StatusConflict {
		t.Fatalf("second confirmation must conflict, got %v", err)
	}

	got, err = f.workOrders.ConfirmByClient(context.Background(), wo.ConfirmationToken)
	if err != nil {
		t.Fatalf("ConfirmByClient: %v", err)
	}
	if got.Status != model.WorkOrderConfirmed {
		t.Fatalf("status = %s", got.Status)
	}

	confirmed := f.queue.byTemplate(email.TemplateWorkOrderConfirmed)
	if len(confirmed) != 1 || confirmed[0].Data["TechnicianName"] != "Ana" {
		t.Fatalf("confirmed email = %+v", confirmed)
	}

	ctx := asTechnician(f.ana.ID)
	if got, err = f.workOrders.Start(ctx, wo.ID); err != nil || got.Status != model.WorkOrderInProgress {
		t.Fatalf("Start: %v %v", got, err)
	}
	if got, err = f.workOrders.Complete(ctx, wo.ID); err != nil || got.Status != model.WorkOrderCompleted {
		t.Fatalf("Complete: %v %v", got, err)
	}

	_, err = f.workOrders.Cancel(asAdmin(), wo.ID, &CancelWorkOrderInput{Reason: "too late"})
	if httpStatus(t, err) != http.StatusConflict {
		t.Fatalf("cancel after completion must conflict, got %v", err)
	}
}

// interleavedOrders hands out a snapshot on the first token lookup and only
// then lets interleave run, so the caller writes a stale copy.
type interleavedOrders struct {
	*memWorkOrders
	interleave func()
}

func (o *interleavedOrders) GetByToken(ctx context.Context, token string) (*model.WorkOrder, error) {
	snapshot, err := o.memWorkOrders.GetByToken(ctx, token)
	if o.interleave != nil {
		run := o.interleave
		o.interleave = nil
		run()
	}
	return snapshot, err
}

func TestConcurrentConfirmationsBothLand(t *testing.T) {
	f := newFixture(t)
	wo := f.createOrder(t, &f.ana.ID)

	orders := &interleavedOrders{memWorkOrders: f.orders}
	orders.interleave = func() {
		if _, err := f.workOrders.ConfirmByTechnician(asTechnician(f.ana.ID), wo.ID); err != nil {
			t.Fatalf("ConfirmByTechnician: %v", err)
		}
	}
	clientSide := NewWorkOrderService(orders, f.clients, f.equipment, f.technicians, f.emails, "https://app.example.com/", &nopLogger)

	got, err := clientSide.ConfirmByClient(context.Background(), wo.ConfirmationToken)
	if err != nil {
		t.Fatalf("ConfirmByClient: %v", err)
	}
	if got.Status != model.WorkOrderConfirmed {
		t.Fatalf("status = %s, want confirmed", got.Status)
	}
	if got.TechnicianConfirmedAt == nil || got.ClientConfirmedAt == nil {
		t.Fatalf("confirmations = %v / %v", got.TechnicianConfirmedAt, got.ClientConfirmedAt)
	}

	stored, _ := f.orders.Get(context.Background(), wo.ID)
	if stored.Status != model.WorkOrderConfirmed || stored.TechnicianConfirmedAt == nil {
		t.Fatalf("stored = %s, technician confirmed at %v", stored.Status, stored.TechnicianConfirmedAt)
	}
	if confirmed := f.queue.byTemplate(email.TemplateWorkOrderConfirmed); len(confirmed) != 1 {
		t.Fatalf("confirmed emails = %d, want 1", len(confirmed))
	}
}

type alwaysStaleOrders struct {
	*memWorkOrders
	updates int
}

func (o *alwaysStaleOrders) Update(context.Context, *model.WorkOrder) (*model.WorkOrder, error) {
	o.updates++
	return nil, repository.ErrStaleWorkOrder
}

func TestTransitionRetriesOnceThenConflicts(t *testing.T) {
	f := newFixture(t)
	wo := f.createOrder(t, &f.ana.ID)

	orders := &alwaysStaleOrders{memWorkOrders: f.orders}
	svc := NewWorkOrderService(orders, f.clients, f.equipment, f.technicians, f.emails, "https://app.example.com/", &nopLogger)

	_, err := svc.Cancel(asAdmin(), wo.ID, &CancelWorkOrderInput{Reason: "client away"})
	if httpStatus(t, err) != http.StatusConflict {
		t.Fatalf("want 409, got %v", err)
	}
	if orders.updates != 2 {
		t.Fatalf("updates = %d, want 2", orders.updates)
	}
}

func TestClientConfirmUnknownToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.workOrders.ConfirmByClient(context.Background(), "nope")
	if err == nil {
		t.Fatalf("expected not found")
	}
}

func TestStartBeforeConfirmationConflicts(t *testing.T) {
	f := newFixture(t)
	wo := f.createOrder(t, &f.ana.ID)

	_, err := f.workOrders.Start(asTechnician(f.ana.ID), wo.ID)
	if httpStatus(t, err) != http.StatusConflict {
		t.Fatalf("got %v", err)
	}
}

func TestRescheduleRotatesTokenAndClearsConfirmations(t *testing.T) {
	f := newFixture(t)
	wo := f.createOrder(t, &f.ana.ID)
	oldToken := wo.ConfirmationToken

	if _, err := f.workOrders.ConfirmByClient(context.Background(), oldToken); err != nil {
		t.Fatalf("ConfirmByClient: %v", err)
	}

	next := wo.ScheduledFor.Add(48 * time.Hour)
	got, err := f.workOrders.Reschedule(asAdmin(), wo.ID, &RescheduleWorkOrderInput{ScheduledFor: next})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if got.Status != model.WorkOrderPending || got.ClientConfirmedAt != nil {
		t.Fatalf("confirmations not cleared: %+v", got)
	}
	if got.ConfirmationToken == oldToken {
		t.Fatalf("token was not rotated")
	}
	if !got.ScheduledFor.Equal(next) {
		t.Fatalf("scheduled for = %v", got.ScheduledFor)
	}
	if _, err := f.workOrders.ConfirmByClient(context.Background(), oldToken); err == nil {
		t.Fatalf("old token must stop working")
	}
	if n := len(f.queue.byTemplate(email.TemplateWorkOrderConfirmation)); n != 2 {
		t.Fatalf("confirmation emails = %d, want 2", n)
	}
}

func TestCancelStoresReason(t *testing.T) {
	f := newFixture(t)
	wo := f.createOrder(t, nil)

	got, err := f.workOrders.Cancel(asAdmin(), wo.ID, &CancelWorkOrderInput{Reason: "  client travelling "})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != model.WorkOrderCancelled || got.CancelReason == nil || *got.CancelReason != "client travelling" {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestAssignClearsTechnicianConfirmation(t *testing.T) {
	f := newFixture(t)
	wo := f.createOrder(t, &f.ana.ID)
	if _, err := f.workOrders.ConfirmByTechnician(asTechnician(f.ana.ID), wo.ID); err != nil {
		t.Fatalf("ConfirmByTechnician: %v", err)
	}

	got, err := f.workOrders.Assign(asAdmin(), wo.ID, &AssignWorkOrderInput{TechnicianID: f.bruno.ID})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if *got.TechnicianID != f.bruno.ID || got.TechnicianConfirmedAt != nil || got.Status != model.WorkOrderPending {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestAssignRejectsInactiveTechnician(t *testing.T) {
	f := newFixture(t)
	retired := model.Technician{Base: model.Base{ID: uuid.New()}, Name: "Carla", Active: false}
	f.techs.rows[retired.ID] = retired
	wo := f.createOrder(t, nil)

	_, err := f.workOrders.Assign(asAdmin(), wo.ID, &AssignWorkOrderInput{TechnicianID: retired.ID})
	if httpStatus(t, err) != http.StatusBadRequest {
		t.Fatalf("got %v", err)
	}
}

func TestMatchesRanksBySkillThenDistance(t *testing.T) {
	f := newFixture(t)
	wo := f.createOrder(t, nil)

	matches, err := f.workOrders.Matches(asAdmin(), wo.ID, 5)
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d", len(matches))
	}
	if matches[0].Technician.ID != f.ana.ID || !matches[0].HasAllSkills {
		t.Fatalf("first match = %+v", matches[0])
	}
	if matches[1].HasAllSkills || len(matches[1].MissingSkills) != 1 {
		t.Fatalf("second match = %+v", matches[1])
	}
}

func TestMatchesNeedsClientCoordinates(t *testing.T) {
	f := newFixture(t)
	c := f.clients.rows[f.client.ID]
	c.Latitude, c.Longitude = nil, nil
	f.clients.rows[c.ID] = c
	wo := f.createOrder(t, nil)

	_, err := f.workOrders.Matches(asAdmin(), wo.ID, 5)
	if httpStatus(t, err) != http.StatusUnprocessableEntity {
		t.Fatalf("got %v", err)
	}
}

func TestTechnicianSeesOnlyOwnWorkOrders(t *testing.T) {
	f := newFixture(t)
	f.createOrder(t, &f.ana.ID)
	other := f.createOrder(t, &f.bruno.ID)

	list, err := f.workOrders.List(asTechnician(f.ana.ID), &WorkOrderQuery{TechnicianID: &f.bruno.ID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list.Total != 1 || *list.Items[0].TechnicianID != f.ana.ID {
		t.Fatalf("list = %+v", list)
	}

	if _, err := f.workOrders.Get(asTechnician(f.ana.ID), other.ID); httpStatus(t, err) != http.StatusForbidden {
		t.Fatalf("got %v", err)
	}
}

func TestExportXLSXRange(t *testing.T) {
	f := newFixture(t)
	f.createOrder(t, &f.ana.ID)

	q := &ExportQuery{
		From: time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := q.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	out, err := f.workOrders.ExportXLSX(context.Background(), q)
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}
	if !strings.HasPrefix(string(out), "PK") {
		t.Fatalf("export is not a zip container")
	}

	tooLong := &ExportQuery{From: q.From, To: q.From.AddDate(2, 0, 0)}
	if err := tooLong.Validate(); err == nil {
		t.Fatalf("expected range error")
	}
}
