// ABOUTME: Embedded single-file backend using modernc.org/sqlite (pure Go, no cgo)
// ABOUTME: Creates the schema, applies column migrations, and seeds the first admin on open

package db

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// Bootstrap account created when an embedded database has no users.
const (
	DefaultAdminEmail    = "admin@local"
	DefaultAdminPassword = "admin123"
	DefaultAdminName     = "Admin"
)

//go:embed schema/sqlite.sql
var sqliteSchema string

// openSQLite opens (creating if needed) the database file and brings the schema
// up to date. Every step is idempotent, so repeated opens are safe.
func openSQLite(ctx context.Context, path string, logger *slog.Logger) (*sqlx.DB, error) {
	if path == "" {
		path = DefaultSQLitePath()
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One writer; the file handle is the only connection.
	conn.SetMaxOpenConns(1)

	if err := bootstrapSQLite(ctx, conn, logger); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Info("SQLite store initialized", "path", path)
	return conn, nil
}

func bootstrapSQLite(ctx context.Context, conn *sqlx.DB, logger *slog.Logger) error {
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	if err := runSQLiteMigrations(ctx, conn, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if err := seedAdmin(ctx, conn, logger); err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}
	return nil
}

// runSQLiteMigrations adds columns introduced after a file was first created.
func runSQLiteMigrations(ctx context.Context, conn *sqlx.DB, logger *slog.Logger) error {
	migrations := []struct {
		table  string
		column string
		apply  string
	}{
		{
			table:  "registrations",
			column: "address",
			apply:  `ALTER TABLE registrations ADD COLUMN address TEXT`,
		},
		{
			table:  "horoscope_sends",
			column: "file_path",
			apply:  `ALTER TABLE horoscope_sends ADD COLUMN file_path TEXT`,
		},
		{
			table:  "app_settings",
			column: "updated_at",
			apply:  `ALTER TABLE app_settings ADD COLUMN updated_at TEXT`,
		},
	}

	for _, m := range migrations {
		var exists int
		err := conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, m.table, m.column,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("inspecting %s: %w", m.table, err)
		}
		if exists > 0 {
			continue
		}
		if _, err := conn.ExecContext(ctx, m.apply); err != nil {
			return fmt.Errorf("adding %s.%s: %w", m.table, m.column, err)
		}
		logger.Info("applied migration", "column", m.column, "table", m.table)
	}
	return nil
}

// seedAdmin creates the default admin when the users table is empty.
func seedAdmin(ctx context.Context, conn *sqlx.DB, logger *slog.Logger) error {
	var count int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if _, err := conn.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, name, role) VALUES (?, ?, ?, 'admin')`,
		DefaultAdminEmail, string(hash), DefaultAdminName,
	); err != nil {
		return err
	}

	logger.Warn("created default admin account, change its password after first login",
		"email", DefaultAdminEmail)
	return nil
}
