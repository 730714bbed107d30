// ABOUTME: serve command: loads config, prints the startup banner, runs the HTTP server
// ABOUTME: Blocks until SIGINT/SIGTERM, then shuts down gracefully

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/horoscope-desk/internal/config"
	"github.com/2389/horoscope-desk/internal/db"
	"github.com/2389/horoscope-desk/internal/server"
)

func serveCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath()

			cyan := color.New(color.FgCyan)
			cyan.Print(banner)
			gray := color.New(color.FgHiBlack)
			gray.Printf("    version: %s\n\n", version)

			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger := setupLogger(cfg.Logging, os.Stdout)

			a := newApp(cfg, logger)
			printStartup(cfg, path, a.gateway.Backend())

			logger.Info("starting horoscope-desk",
				"config", path,
				"http_addr", cfg.Server.HTTPAddr,
				"backend", a.gateway.Backend(),
			)

			srv, err := server.New(cfg, a.api, a.gateway, a.registry, logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			return srv.Run(cmd.Context())
		},
	}
}

func printStartup(cfg *config.Config, path string, backend db.Backend) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	line := func(label, value string) {
		green.Print("    ▶ ")
		fmt.Printf("%-10s %s\n", label+":", value)
	}

	line("Config", path)
	line("HTTP", cfg.Server.HTTPAddr)
	line("Public", cfg.Server.BaseURL)
	switch backend {
	case db.BackendSQLite:
		sqlitePath := cfg.Database.SQLitePath
		if sqlitePath == "" {
			sqlitePath = db.DefaultSQLitePath()
		}
		line("Database", "sqlite "+sqlitePath)
	default:
		my := cfg.Database.MySQL
		line("Database", fmt.Sprintf("mysql %s@%s:%d/%s", my.User, my.Host, my.Port, my.Database))
	}
	line("Uploads", cfg.Uploads.Dir)
	if cfg.WhatsApp.AccessToken == "" || cfg.WhatsApp.PhoneNumberID == "" {
		green.Print("    ▶ ")
		fmt.Print("WhatsApp:  ")
		yellow.Println("chat links only (Cloud API not configured)")
	} else {
		line("WhatsApp", "Cloud API "+cfg.WhatsApp.PhoneNumberID)
	}
	if cfg.Metrics.Enabled {
		line("Metrics", cfg.Metrics.Path)
	}
	fmt.Println()
}
