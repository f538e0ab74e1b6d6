package service

import (
	"fmt"
	"time"

	"github.com/deppfellow/aquaservice/internal/lib/auth"
	"github.com/deppfellow/aquaservice/internal/lib/email"
	"github.com/deppfellow/aquaservice/internal/lib/geocode"
	"github.com/deppfellow/aquaservice/internal/lib/job"
	"github.com/deppfellow/aquaservice/internal/lib/pdf"
	"github.com/deppfellow/aquaservice/internal/repository"
	"github.com/deppfellow/aquaservice/internal/server"
)

type Services struct {
	Auth        *AuthService
	Clients     *ClientService
	Technicians *TechnicianService
	Equipment   *EquipmentService
	WorkOrders  *WorkOrderService
	Reports     *ReportService
	Remitos     *RemitoService
	Emails      *EmailQueueService
	Dashboard   *DashboardService
	Import      *ImportService
	Tokens      *auth.TokenManager
	Job         *job.JobService
}

func NewServices(s *server.Server, repos *repository.Repositories) (*Services, error) {
	cfg := s.Config
	logger := s.Logger

	renderer, err := pdf.NewRenderer(&cfg.Report, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create pdf renderer: %w", err)
	}
	mailer, err := email.NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create email client: %w", err)
	}

	tokens := auth.NewTokenManager(cfg.Auth.SecretKey, cfg.Auth.Issuer, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	geocoder := geocode.NewClient(&cfg.Integration, s.Redis, logger)

	emails := NewEmailQueueService(repos.EmailQueue, mailer, s.Job, cfg.Jobs, logger)

	clients := NewClientService(repos.Clients, geocoder, logger)
	technicians := NewTechnicianService(repos.Technicians, geocoder, logger)
	reports := NewReportService(repos.Reports, repos.Equipment, repos.Clients, repos.Technicians, repos.WorkOrders, renderer, emails, logger)
	remitos := NewRemitoService(repos.Remitos, repos.Clients, repos.WorkOrders, renderer, emails, logger)
	emails.SetDocuments(reports, remitos)
	s.Job.SetEmailDrainer(emails)

	return &Services{
		Auth:        NewAuthService(repos.Users, tokens, emails, cfg.Integration.PublicBaseURL, logger),
		Clients:     clients,
		Technicians: technicians,
		Equipment:   NewEquipmentService(repos.Equipment),
		WorkOrders:  NewWorkOrderService(repos.WorkOrders, repos.Clients, repos.Equipment, technicians, emails, cfg.Integration.PublicBaseURL, logger),
		Reports:     reports,
		Remitos:     remitos,
		Emails:      emails,
		Dashboard: NewDashboardService(DashboardCounters{
			Clients:     repos.Clients,
			Technicians: repos.Technicians,
			Equipment:   repos.Equipment,
			WorkOrders:  repos.WorkOrders,
			Reports:     repos.Reports,
			Emails:      repos.EmailQueue,
		}, s.Redis, logger),
		Import: NewImportService(clients, technicians, logger),
		Tokens: tokens,
		Job:    s.Job,
	}, nil
}
