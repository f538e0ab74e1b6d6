package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/deppfellow/aquaservice/internal/database"
	"github.com/deppfellow/aquaservice/internal/handler"
	"github.com/deppfellow/aquaservice/internal/router"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the job workers and the email drain scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on start (they never run in the local env)")
	return cmd
}

func runServe(ctx context.Context, skipMigrations bool) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	if !skipMigrations && !a.cfg.IsLocal() {
		if err := database.Migrate(ctx, a.log, a.cfg.Database.DSN(), -1); err != nil {
			a.close(context.Background())
			return err
		}
	}

	if err := a.server.StartJobs(); err != nil {
		a.close(context.Background())
		return err
	}

	h := handler.NewHandlers(a.server, a.services)
	a.server.SetupHTTPServer(router.NewRouter(a.server, h, a.services))

	serveErr := make(chan error, 1)
	go func() {
		defer close(serveErr)
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down")
	case err = <-serveErr:
		if err != nil {
			a.log.Error().Err(err).Msg("server stopped unexpectedly")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.close(shutdownCtx)

	return err
}
