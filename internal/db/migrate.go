// ABOUTME: Versioned MySQL schema migrations run through goose
// ABOUTME: The embedded backend bootstraps its own schema on open and needs no migrations

package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/mysql/*.sql
var mysqlMigrations embed.FS

// Migrate applies all pending MySQL migrations to sqlDB.
func Migrate(ctx context.Context, sqlDB *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	fsys, err := fs.Sub(mysqlMigrations, "migrations/mysql")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectMySQL, sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	for _, r := range results {
		logger.Info("applied migration", "version", r.Source.Version, "duration", r.Duration)
	}
	if len(results) == 0 {
		logger.Info("schema up to date")
	}
	return nil
}

// Migrate brings the gateway's schema up to date. For SQLite this only opens the
// file, which runs the embedded bootstrap.
func (g *Gateway) Migrate(ctx context.Context) error {
	sqlDB, err := g.DB(ctx)
	if err != nil {
		return err
	}
	if g.backend == BackendSQLite {
		g.logger.Info("embedded schema bootstrapped on open")
		return nil
	}
	return Migrate(ctx, sqlDB, g.logger)
}
