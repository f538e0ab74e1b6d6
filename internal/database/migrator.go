package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	tern "github.com/jackc/tern/v2/migrate"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrations embed.FS

// versionTable stores the applied migration version.
const versionTable = "schema_version"

// Migrate applies the embedded migrations to the database at dsn, up to
// targetVersion. A negative targetVersion migrates to the latest version.
func Migrate(ctx context.Context, logger *zerolog.Logger, dsn string, targetVersion int32) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connecting for migrations: %w", err)
	}
	defer conn.Close(ctx)

	m, err := tern.NewMigrator(ctx, conn, versionTable)
	if err != nil {
		return fmt.Errorf("constructing database migrator: %w", err)
	}

	subtree, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("retrieving database migrations subtree: %w", err)
	}

	if err := m.LoadMigrations(subtree); err != nil {
		return fmt.Errorf("loading database migrations: %w", err)
	}

	from, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("retrieving current database migration version: %w", err)
	}

	latest := int32(len(m.Migrations))
	if targetVersion < 0 || targetVersion > latest {
		targetVersion = latest
	}

	if from == targetVersion {
		logger.Info().Msgf("database schema up to date, version %d", from)
		return nil
	}

	if err := m.MigrateTo(ctx, targetVersion); err != nil {
		return fmt.Errorf("migrating from %d to %d: %w", from, targetVersion, err)
	}

	logger.Info().Msgf("migrated database schema, from %d to %d", from, targetVersion)
	return nil
}
