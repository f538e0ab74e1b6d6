package main

import (
	"context"
	"fmt"

	"github.com/deppfellow/aquaservice/internal/config"
	"github.com/deppfellow/aquaservice/internal/logger"
	"github.com/deppfellow/aquaservice/internal/repository"
	"github.com/deppfellow/aquaservice/internal/server"
	"github.com/deppfellow/aquaservice/internal/service"
	"github.com/rs/zerolog"
)

// app is the wired application shared by every command that touches the
// database.
type app struct {
	cfg      *config.Config
	log      *zerolog.Logger
	server   *server.Server
	services *service.Services
}

// loadConfig reads the config and builds the logger.
func loadConfig() (*config.Config, *logger.LoggerService, *zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	loggerService, nrErr := logger.NewLoggerService(cfg.Observability)
	log := logger.NewLoggerWithService(cfg.Observability, loggerService)
	if nrErr != nil {
		log.Warn().Err(nrErr).Msg("continuing without New Relic")
	}
	return cfg, loggerService, &log, nil
}

func bootstrap() (*app, error) {
	cfg, loggerService, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	s, err := server.New(cfg, log, loggerService)
	if err != nil {
		return nil, fmt.Errorf("initialize server: %w", err)
	}

	services, err := service.NewServices(s, repository.NewRepositories(s.DB.Pool))
	if err != nil {
		_ = s.Shutdown(context.Background())
		return nil, fmt.Errorf("initialize services: %w", err)
	}

	return &app{cfg: cfg, log: log, server: s, services: services}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Error().Err(err).Msg("shutdown finished with errors")
	}
}
