// ABOUTME: init command: interactive config file generation
// ABOUTME: Prompts for backend, listener and WhatsApp settings and writes YAML

package main

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/2389/horoscope-desk/internal/config"
	"github.com/2389/horoscope-desk/internal/db"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive config file setup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.InOrStdin(), cmd.OutOrStdout(), getConfigPath(), db.AppDataDir())
		},
	}
}

func runInit(in io.Reader, out io.Writer, defaultConfigPath, defaultDataDir string) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "horoscope-desk configuration setup")
	fmt.Fprintln(out, "==================================")
	fmt.Fprintln(out)

	outputFile := prompt(reader, out, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, out, "File exists. Overwrite?", "no")) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	cfg := config.Default()
	cfg.Server.ShutdownTimeoutRaw = cfg.Server.ShutdownTimeout.String()
	cfg.WhatsApp.TimeoutRaw = cfg.WhatsApp.Timeout.String()

	fmt.Fprintln(out, "\n--- Server Configuration ---")
	cfg.Server.HTTPAddr = prompt(reader, out, "HTTP address", cfg.Server.HTTPAddr)
	cfg.Server.BaseURL = prompt(reader, out, "Public base URL", cfg.Server.BaseURL)

	fmt.Fprintln(out, "\n--- Database Configuration ---")
	backend := strings.ToLower(prompt(reader, out, "Database type (sqlite/mysql)", string(db.BackendSQLite)))
	var dataDirs []string
	switch backend {
	case string(db.BackendMySQL):
		cfg.Database.Type = string(db.BackendMySQL)
		my := &cfg.Database.MySQL
		my.Host = prompt(reader, out, "MySQL host", my.Host)
		port, err := strconv.Atoi(prompt(reader, out, "MySQL port", strconv.Itoa(my.Port)))
		if err != nil {
			return fmt.Errorf("invalid MySQL port: %w", err)
		}
		my.Port = port
		my.User = prompt(reader, out, "MySQL user", my.User)
		my.Password = prompt(reader, out, "MySQL password (use ${MYSQL_PASSWORD} to read from env)", "${MYSQL_PASSWORD}")
		my.Database = prompt(reader, out, "MySQL database", my.Database)
	case string(db.BackendSQLite), "sqlite3":
		cfg.Database.Type = string(db.BackendSQLite)
		cfg.Database.SQLitePath = prompt(reader, out, "SQLite database path", filepath.Join(defaultDataDir, "horoscope.db"))
		dataDirs = append(dataDirs, filepath.Dir(cfg.Database.SQLitePath))
	default:
		return fmt.Errorf("database type must be sqlite or mysql, got %q", backend)
	}

	cfg.Uploads.Dir = prompt(reader, out, "Uploads directory", filepath.Join(defaultDataDir, "uploads"))
	dataDirs = append(dataDirs, cfg.Uploads.Dir)

	fmt.Fprintln(out, "\n--- Session Configuration ---")
	secret, err := newSessionSecret()
	if err != nil {
		return err
	}
	cfg.Auth.SessionSecret = secret
	secureDefault := "no"
	if cfg.Database.Type == string(db.BackendMySQL) {
		secureDefault = "yes"
	}
	secure := yes(prompt(reader, out, "Serve behind HTTPS (secure cookies)?", secureDefault))
	cfg.Auth.SecureCookie = &secure

	fmt.Fprintln(out, "\n--- WhatsApp Cloud API (leave empty for chat links only) ---")
	cfg.WhatsApp.AccessToken = prompt(reader, out, "Access token", "")
	if cfg.WhatsApp.AccessToken != "" {
		cfg.WhatsApp.PhoneNumberID = prompt(reader, out, "Phone number ID", "")
	}

	fmt.Fprintln(out, "\n--- Logging Configuration ---")
	cfg.Logging.Level = prompt(reader, out, "Log level (debug/info/warn/error)", cfg.Logging.Level)
	cfg.Logging.Format = prompt(reader, out, "Log format (text/json)", cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return err
	}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	content := "# horoscope-desk configuration\n# Generated by horoscope-desk init\n\n" + string(body)

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// The file carries the session secret.
	if err := os.WriteFile(outputFile, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	for _, dir := range dataDirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintln(out, "\nTo start the server:")
	fmt.Fprintf(out, "  horoscope-desk --config %s serve\n", outputFile)
	return nil
}

func newSessionSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func yes(answer string) bool {
	a := strings.ToLower(answer)
	return a == "yes" || a == "y"
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		// On EOF or error, return default
		fmt.Fprintln(out)
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
