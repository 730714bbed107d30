// ABOUTME: migrate and seed-user commands for schema upkeep and staff accounts
// ABOUTME: seed-user creates or replaces an account by email

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389/horoscope-desk/internal/auth"
	"github.com/2389/horoscope-desk/internal/config"
)

func migrateCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Long: `Apply the embedded schema migrations. For MySQL this runs the versioned
migrations; for SQLite the schema is bootstrapped when the file is opened.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger := setupLogger(cfg.Logging, os.Stderr)
			a := newApp(cfg, logger)
			defer a.gateway.Close()

			if err := a.gateway.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrating: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Schema up to date (%s)\n", a.gateway.Backend())
			return nil
		},
	}
}

type seedUserFlags struct {
	email    string
	name     string
	role     string
	password string
}

func seedUserCmd(configPath func() string) *cobra.Command {
	var f seedUserFlags
	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Create or update a staff account",
		Long: `Create a staff account, or replace the name, role and password of the
account with the same email. Reads the password from stdin when --password is
not given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger := setupLogger(cfg.Logging, os.Stderr)
			a := newApp(cfg, logger)
			defer a.gateway.Close()

			if f.password == "" {
				f.password, err = readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			return seedUser(cmd, a, f)
		},
	}
	cmd.Flags().StringVar(&f.email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&f.name, "name", "", "display name (defaults to the email)")
	cmd.Flags().StringVar(&f.role, "role", string(auth.RoleViewer), "admin or viewer")
	cmd.Flags().StringVar(&f.password, "password", "", "password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func readPassword(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, 1024))
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func seedUser(cmd *cobra.Command, a *app, f seedUserFlags) error {
	role := auth.Role(f.role)
	if !role.Valid() {
		return fmt.Errorf("role must be admin or viewer, got %q", f.role)
	}
	if len(f.password) < auth.MinPasswordLength {
		return auth.ErrWeakPassword
	}
	name := f.name
	if name == "" {
		name = f.email
	}

	hash, err := auth.HashPassword(f.password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	created, err := a.store.UpsertUser(cmd.Context(), f.email, name, string(role), hash)
	if err != nil {
		return fmt.Errorf("saving user: %w", err)
	}

	verb := "Updated"
	if created {
		verb = "Created"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %s account %s\n", verb, role, f.email)
	return nil
}
