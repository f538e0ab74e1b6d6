package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/deppfellow/aquaservice/internal/lib/auth"
	"github.com/deppfellow/aquaservice/internal/lib/email"
	"github.com/deppfellow/aquaservice/internal/lib/geocode"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/repository"
	"github.com/deppfellow/aquaservice/internal/sqlerr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

var nopLogger = zerolog.Nop()

func asTechnician(techID uuid.UUID) context.Context {
	return auth.WithPrincipal(context.Background(), &auth.Principal{
		UserID: uuid.New(), Role: model.RoleTechnician, TechnicianID: &techID,
	})
}

func asAdmin() context.Context {
	return auth.WithPrincipal(context.Background(), &auth.Principal{UserID: uuid.New(), Role: model.RoleAdmin})
}

func notFound(table string) error {
	return sqlerr.NotFoundIn(table, pgx.ErrNoRows)
}

func stamp(b *model.Base) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func page[T any](items []T, p model.Page) model.List[T] {
	p = p.Normalize()
	total := len(items)
	start := min(p.Offset, total)
	end := min(start+p.Limit, total)
	return model.List[T]{Items: items[start:end], Total: total, Limit: p.Limit, Offset: p.Offset}
}

type memClients struct {
	rows map[uuid.UUID]model.Client
}

func newMemClients(clients ...model.Client) *memClients {
	m := &memClients{rows: map[uuid.UUID]model.Client{}}
	for _, c := range clients {
		m.rows[c.ID] = c
	}
	return m
}

func (m *memClients) List(_ context.Context, _ string, p model.Page) (model.List[model.Client], error) {
	var out []model.Client
	for _, c := range m.rows {
		out = append(out, c)
	}
	return page(out, p), nil
}

func (m *memClients) Get(_ context.Context, id uuid.UUID) (*model.Client, error) {
	c, ok := m.rows[id]
	if !ok {
		return nil, notFound("clients")
	}
	return &c, nil
}

func (m *memClients) Create(_ context.Context, c *model.Client) (*model.Client, error) {
	for _, existing := range m.rows {
		if c.TaxID != nil && existing.TaxID != nil && *c.TaxID == *existing.TaxID {
			return nil, &pgconn.PgError{Code: "23505", TableName: "clients", ConstraintName: "clients_tax_id_key"}
		}
	}
	stamp(&c.Base)
	m.rows[c.ID] = *c
	return c, nil
}

func (m *memClients) Update(_ context.Context, c *model.Client) (*model.Client, error) {
	if _, ok := m.rows[c.ID]; !ok {
		return nil, notFound("clients")
	}
	stamp(&c.Base)
	m.rows[c.ID] = *c
	return c, nil
}

func (m *memClients) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.rows, id)
	return nil
}

type memTechnicians struct {
	rows map[uuid.UUID]model.Technician
}

func newMemTechnicians(techs ...model.Technician) *memTechnicians {
	m := &memTechnicians{rows: map[uuid.UUID]model.Technician{}}
	for _, t := range techs {
		m.rows[t.ID] = t
	}
	return m
}

func (m *memTechnicians) List(_ context.Context, _ repository.TechnicianFilter, p model.Page) (model.List[model.Technician], error) {
	var out []model.Technician
	for _, t := range m.rows {
		out = append(out, t)
	}
	return page(out, p), nil
}

func (m *memTechnicians) ListActive(context.Context) ([]model.Technician, error) {
	var out []model.Technician
	for _, t := range m.rows {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTechnicians) Get(_ context.Context, id uuid.UUID) (*model.Technician, error) {
	t, ok := m.rows[id]
	if !ok {
		return nil, notFound("technicians")
	}
	return &t, nil
}

func (m *memTechnicians) Create(_ context.Context, t *model.Technician) (*model.Technician, error) {
	stamp(&t.Base)
	m.rows[t.ID] = *t
	return t, nil
}

func (m *memTechnicians) Update(_ context.Context, t *model.Technician) (*model.Technician, error) {
	stamp(&t.Base)
	m.rows[t.ID] = *t
	return t, nil
}

func (m *memTechnicians) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.rows, id)
	return nil
}

type memEquipment struct {
	rows map[uuid.UUID]model.Equipment
}

func newMemEquipment(items ...model.Equipment) *memEquipment {
	m := &memEquipment{rows: map[uuid.UUID]model.Equipment{}}
	for _, e := range items {
		m.rows[e.ID] = e
	}
	return m
}

func (m *memEquipment) List(_ context.Context, _ *uuid.UUID, p model.Page) (model.List[model.Equipment], error) {
	var out []model.Equipment
	for _, e := range m.rows {
		out = append(out, e)
	}
	return page(out, p), nil
}

func (m *memEquipment) Get(_ context.Context, id uuid.UUID) (*model.Equipment, error) {
	e, ok := m.rows[id]
	if !ok {
		return nil, notFound("equipment")
	}
	return &e, nil
}

func (m *memEquipment) Create(_ context.Context, e *model.Equipment) (*model.Equipment, error) {
	stamp(&e.Base)
	m.rows[e.ID] = *e
	return e, nil
}

func (m *memEquipment) Update(_ context.Context, e *model.Equipment) (*model.Equipment, error) {
	stamp(&e.Base)
	m.rows[e.ID] = *e
	return e, nil
}

func (m *memEquipment) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.rows, id)
	return nil
}

type memWorkOrders struct {
	rows    map[uuid.UUID]model.WorkOrder
	clients *memClients
	techs   *memTechnicians
}

func newMemWorkOrders(clients *memClients, techs *memTechnicians) *memWorkOrders {
	return &memWorkOrders{rows: map[uuid.UUID]model.WorkOrder{}, clients: clients, techs: techs}
}

func (m *memWorkOrders) detail(w model.WorkOrder) model.WorkOrderDetail {
	d := model.WorkOrderDetail{WorkOrder: w}
	if c, ok := m.clients.rows[w.ClientID]; ok {
		d.ClientName = c.Name
		d.ClientAddress = c.FullAddress()
	}
	if w.TechnicianID != nil {
		if t, ok := m.techs.rows[*w.TechnicianID]; ok {
			name := t.Name
			d.TechnicianName = &name
		}
	}
	return d
}

func (m *memWorkOrders) ListAll(_ context.Context, f repository.WorkOrderFilter) ([]model.WorkOrderDetail, error) {
	out := []model.WorkOrderDetail{}
	for _, w := range m.rows {
		if f.TechnicianID != nil && (w.TechnicianID == nil || *w.TechnicianID != *f.TechnicianID) {
			continue
		}
		if f.From != nil && w.ScheduledFor.Before(*f.From) {
			continue
		}
		if f.To != nil && !w.ScheduledFor.Before(*f.To) {
			continue
		}
		out = append(out, m.detail(w))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

func (m *memWorkOrders) List(ctx context.Context, f repository.WorkOrderFilter, p model.Page) (model.List[model.WorkOrderDetail], error) {
	all, _ := m.ListAll(ctx, f)
	return page(all, p), nil
}

func (m *memWorkOrders) Get(_ context.Context, id uuid.UUID) (*model.WorkOrder, error) {
	w, ok := m.rows[id]
	if !ok {
		return nil, notFound("work_orders")
	}
	return &w, nil
}

func (m *memWorkOrders) GetDetail(_ context.Context, id uuid.UUID) (*model.WorkOrderDetail, error) {
	w, ok := m.rows[id]
	if !ok {
		return nil, notFound("work_orders")
	}
	d := m.detail(w)
	return &d, nil
}

func (m *memWorkOrders) GetByToken(_ context.Context, token string) (*model.WorkOrder, error) {
	for _, w := range m.rows {
		if w.ConfirmationToken == token {
			return &w, nil
		}
	}
	return nil, notFound("work_orders")
}

func (m *memWorkOrders) Create(_ context.Context, w *model.WorkOrder) (*model.WorkOrder, error) {
	stamp(&w.Base)
	w.Version = 1
	m.rows[w.ID] = *w
	return w, nil
}

func (m *memWorkOrders) Update(_ context.Context, w *model.WorkOrder) (*model.WorkOrder, error) {
	stored, ok := m.rows[w.ID]
	if !ok || stored.Version != w.Version {
		return nil, repository.ErrStaleWorkOrder
	}
	stamp(&w.Base)
	w.Version++
	m.rows[w.ID] = *w
	return w, nil
}

func (m *memWorkOrders) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.rows, id)
	return nil
}

type memReports struct {
	rows map[uuid.UUID]model.MaintenanceReport
}

func newMemReports() *memReports {
	return &memReports{rows: map[uuid.UUID]model.MaintenanceReport{}}
}

func (m *memReports) List(_ context.Context, f repository.ReportFilter, p model.Page) (model.List[model.MaintenanceReport], error) {
	var out []model.MaintenanceReport
	for _, r := range m.rows {
		if f.TechnicianID != nil && r.TechnicianID != *f.TechnicianID {
			continue
		}
		out = append(out, r)
	}
	return page(out, p), nil
}

func (m *memReports) Get(_ context.Context, id uuid.UUID) (*model.MaintenanceReport, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, notFound("maintenance_reports")
	}
	return &r, nil
}

func (m *memReports) Create(_ context.Context, r *model.MaintenanceReport) (*model.MaintenanceReport, error) {
	stamp(&r.Base)
	m.rows[r.ID] = *r
	return r, nil
}

func (m *memReports) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.rows, id)
	return nil
}

type memRemitos struct {
	rows    map[uuid.UUID]model.Remito
	next    int64
	emailed map[uuid.UUID]time.Time
}

func newMemRemitos() *memRemitos {
	return &memRemitos{rows: map[uuid.UUID]model.Remito{}, emailed: map[uuid.UUID]time.Time{}}
}

func (m *memRemitos) List(_ context.Context, _ *uuid.UUID, p model.Page) (model.List[model.Remito], error) {
	var out []model.Remito
	for _, r := range m.rows {
		out = append(out, r)
	}
	return page(out, p), nil
}

func (m *memRemitos) Get(_ context.Context, id uuid.UUID) (*model.Remito, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, notFound("remitos")
	}
	return &r, nil
}

func (m *memRemitos) Create(_ context.Context, r *model.Remito) (*model.Remito, error) {
	m.next++
	r.Number = m.next
	stamp(&r.Base)
	m.rows[r.ID] = *r
	return r, nil
}

func (m *memRemitos) MarkEmailed(_ context.Context, id uuid.UUID, at time.Time) error {
	r, ok := m.rows[id]
	if !ok {
		return notFound("remitos")
	}
	r.EmailedAt = &at
	m.rows[id] = r
	m.emailed[id] = at
	return nil
}

type memEmailQueue struct {
	mu   sync.Mutex
	rows []*model.EmailMessage
}

func (m *memEmailQueue) Enqueue(_ context.Context, to, subject, template string, data map[string]string) (*model.EmailMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := &model.EmailMessage{To: to, Subject: subject, Template: template, Data: data, Status: model.EmailPending}
	stamp(&msg.Base)
	m.rows = append(m.rows, msg)
	return msg, nil
}

func (m *memEmailQueue) Claim(_ context.Context, limit int, _ time.Duration) ([]model.EmailMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.EmailMessage
	for _, r := range m.rows {
		if r.Status == model.EmailPending && len(out) < limit {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memEmailQueue) find(id uuid.UUID) *model.EmailMessage {
	for _, r := range m.rows {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (m *memEmailQueue) MarkSent(_ context.Context, id uuid.UUID, providerID string, at time.Time) error {
	r := m.find(id)
	if r == nil {
		return notFound("email_queue")
	}
	r.Status, r.ProviderID, r.SentAt = model.EmailSent, &providerID, &at
	return nil
}

func (m *memEmailQueue) MarkAttemptFailed(_ context.Context, id uuid.UUID, message string, maxAttempts int) (model.EmailStatus, error) {
	r := m.find(id)
	if r == nil {
		return "", notFound("email_queue")
	}
	r.Attempts++
	r.LastError = &message
	if r.Attempts >= maxAttempts {
		r.Status = model.EmailFailed
	}
	return r.Status, nil
}

func (m *memEmailQueue) List(_ context.Context, status model.EmailStatus, p model.Page) (model.List[model.EmailMessage], error) {
	var out []model.EmailMessage
	for _, r := range m.rows {
		if status == "" || r.Status == status {
			out = append(out, *r)
		}
	}
	return page(out, p), nil
}

func (m *memEmailQueue) Retry(_ context.Context, id uuid.UUID) (*model.EmailMessage, error) {
	r := m.find(id)
	if r == nil || r.Status != model.EmailFailed {
		return nil, notFound("email_queue")
	}
	r.Status, r.Attempts, r.LastError = model.EmailPending, 0, nil
	return r, nil
}

func (m *memEmailQueue) byTemplate(t email.Template) []*model.EmailMessage {
	var out []*model.EmailMessage
	for _, r := range m.rows {
		if r.Template == string(t) {
			out = append(out, r)
		}
	}
	return out
}

type sentMail struct {
	msg         email.Message
	attachments []email.Attachment
}

type fakeMailer struct {
	sent    []sentMail
	failFor map[string]bool
}

func (f *fakeMailer) Send(_ context.Context, msg email.Message, attachments ...email.Attachment) (string, error) {
	if f.failFor[msg.To] {
		return "", errors.New("provider rejected recipient")
	}
	f.sent = append(f.sent, sentMail{msg: msg, attachments: attachments})
	return "re_" + uuid.NewString()[:8], nil
}

func (f *fakeMailer) Preview(name email.Template) (string, error) {
	return "<p>" + string(name) + "</p>", nil
}

type fakeScheduler struct{ calls int }

func (f *fakeScheduler) EnqueueEmailDrain(context.Context) error {
	f.calls++
	return nil
}

type fakeRenderer struct{}

func (fakeRenderer) MaintenanceReport(doc *model.ReportDocument) ([]byte, error) {
	return []byte("%PDF report " + doc.Report.ID.String()), nil
}

func (fakeRenderer) Remito(doc *model.RemitoDocument) ([]byte, error) {
	return []byte("%PDF remito " + doc.Remito.DisplayNumber()), nil
}

type fakeGeocoder struct {
	results map[string]geocode.Result
	calls   int
}

func (f *fakeGeocoder) Geocode(_ context.Context, address string) (*geocode.Result, error) {
	f.calls++
	r, ok := f.results[address]
	if !ok {
		return nil, geocode.ErrNotFound
	}
	return &r, nil
}
