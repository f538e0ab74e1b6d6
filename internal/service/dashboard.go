package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/deppfellow/aquaservice/internal/errs"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	adminDashboardKey = "dashboard:admin"
	adminDashboardTTL = 60 * time.Second

	upcomingWindow  = 14 * 24 * time.Hour
	upcomingLimit   = 20
	recentWindow    = 30 * 24 * time.Hour
	recentLimit     = 10
	dashboardCounts = 7
)

// DashboardCounters is the read side the dashboards aggregate.
type DashboardCounters struct {
	Clients interface {
		Count(ctx context.Context) (int, error)
	}
	Technicians interface {
		CountActive(ctx context.Context) (int, error)
	}
	Equipment interface {
		Count(ctx context.Context) (int, error)
	}
	WorkOrders interface {
		CountByStatus(ctx context.Context) (map[model.WorkOrderStatus]int, error)
		Upcoming(ctx context.Context, from, to time.Time, technicianID *uuid.UUID, limit int) ([]model.WorkOrder, error)
	}
	Reports interface {
		CountSince(ctx context.Context, since time.Time) (int, error)
		RecentByTechnician(ctx context.Context, technicianID uuid.UUID, since time.Time, limit int) ([]model.MaintenanceReport, error)
	}
	Emails interface {
		CountByStatus(ctx context.Context, status model.EmailStatus) (int, error)
	}
}

type DashboardService struct {
	counters DashboardCounters
	cache    Cache
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewDashboardService(counters DashboardCounters, cache Cache, logger *zerolog.Logger) *DashboardService {
	return &DashboardService{counters: counters, cache: cache, now: time.Now, logger: logger}
}

// Admin returns the admin summary, served from a short-lived cache.
func (s *DashboardService) Admin(ctx context.Context) (*model.AdminDashboard, error) {
	if cached, ok := s.cachedAdmin(ctx); ok {
		return cached, nil
	}

	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	d := &model.AdminDashboard{GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dashboardCounts)
	g.Go(func() (err error) {
		d.Clients, err = s.counters.Clients.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.ActiveTechnicians, err = s.counters.Technicians.CountActive(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.Equipment, err = s.counters.Equipment.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.WorkOrdersByStatus, err = s.counters.WorkOrders.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.Upcoming, err = s.counters.WorkOrders.Upcoming(gctx, now, now.Add(upcomingWindow), nil, upcomingLimit)
		return err
	})
	g.Go(func() (err error) {
		d.ReportsThisMonth, err = s.counters.Reports.CountSince(gctx, monthStart)
		return err
	})
	g.Go(func() (err error) {
		if d.PendingEmails, err = s.counters.Emails.CountByStatus(gctx, model.EmailPending); err != nil {
			return err
		}
		d.FailedEmails, err = s.counters.Emails.CountByStatus(gctx, model.EmailFailed)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.storeAdmin(ctx, d)
	return d, nil
}

func (s *DashboardService) cachedAdmin(ctx context.Context) (*model.AdminDashboard, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, adminDashboardKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("dashboard cache read failed")
		}
		return nil, false
	}

	var d model.AdminDashboard
	if err := json.Unmarshal(raw, &d); err != nil {
		s.logger.Warn().Err(err).Msg("dashboard cache entry is corrupt")
		return nil, false
	}
	return &d, true
}

func (s *DashboardService) storeAdmin(ctx context.Context, d *model.AdminDashboard) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, adminDashboardKey, raw, adminDashboardTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("dashboard cache write failed")
	}
}

// Technician returns the caller's upcoming visits and recent reports.
func (s *DashboardService) Technician(ctx context.Context) (*model.TechnicianDashboard, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if p.TechnicianID == nil {
		return nil, errs.NewForbiddenError("Only technicians have a technician dashboard", true)
	}

	now := s.now()
	d := &model.TechnicianDashboard{GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Upcoming, err = s.counters.WorkOrders.Upcoming(gctx, now, now.Add(upcomingWindow), p.TechnicianID, upcomingLimit)
		return err
	})
	g.Go(func() (err error) {
		d.RecentReports, err = s.counters.Reports.RecentByTechnician(gctx, *p.TechnicianID, now.Add(-recentWindow), recentLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
