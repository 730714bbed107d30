// ABOUTME: Configuration loading and parsing for horoscope-desk
// ABOUTME: YAML or TOML files with ${VAR} expansion, env overrides, and duration parsing

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the complete horoscope-desk configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Uploads  UploadsConfig  `yaml:"uploads" toml:"uploads"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp" toml:"whatsapp"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
	// BaseURL is the public URL used to build links to uploaded files
	BaseURL string `yaml:"base_url" toml:"base_url"`
	// Debug exposes error detail on diagnostic endpoints
	Debug bool `yaml:"debug" toml:"debug"`

	ShutdownTimeout    time.Duration `yaml:"-" toml:"-"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// DatabaseConfig selects and configures the storage backend
type DatabaseConfig struct {
	// Type is "mysql" or "sqlite"; a SQLite path alone also selects sqlite
	Type       string      `yaml:"type" toml:"type"`
	SQLitePath string      `yaml:"sqlite_path" toml:"sqlite_path"`
	MySQL      MySQLConfig `yaml:"mysql" toml:"mysql"`
}

// MySQLConfig holds relational-server connection parameters
type MySQLConfig struct {
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	User     string `yaml:"user" toml:"user"`
	Password string `yaml:"password" toml:"password"`
	Database string `yaml:"database" toml:"database"`
	PoolSize int    `yaml:"pool_size" toml:"pool_size"`
}

// AuthConfig holds session cookie configuration
type AuthConfig struct {
	// SessionSecret signs session cookies. Empty falls back to the legacy
	// unsigned cookie format.
	SessionSecret string `yaml:"session_secret" toml:"session_secret"`
	LegacyCookie  bool   `yaml:"legacy_cookie" toml:"legacy_cookie"`
	// SecureCookie sets the Secure attribute. Unset means on for a MySQL
	// deployment and off for the embedded SQLite build.
	SecureCookie *bool `yaml:"secure_cookie" toml:"secure_cookie"`
}

// UploadsConfig holds the horoscope file storage location
type UploadsConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// WhatsAppConfig holds Cloud API credentials
type WhatsAppConfig struct {
	AccessToken   string `yaml:"access_token" toml:"access_token"`
	PhoneNumberID string `yaml:"phone_number_id" toml:"phone_number_id"`
	APIBase       string `yaml:"api_base" toml:"api_base"`

	Timeout    time.Duration `yaml:"-" toml:"-"`
	TimeoutRaw string        `yaml:"timeout" toml:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:        ":3000",
			BaseURL:         "http://localhost:3000",
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			MySQL: MySQLConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Database: "wedding_horoscope",
				PoolSize: 10,
			},
		},
		Uploads: UploadsConfig{Dir: "uploads"},
		WhatsApp: WhatsAppConfig{
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// A missing file yields Default(). Environment variables in the format ${VAR_NAME}
// are expanded, then the well-known environment overrides are applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Defaults plus environment only
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		// Expand environment variables in the raw content
		expanded := expandEnvVars(string(data))
		if strings.HasSuffix(strings.ToLower(path), ".toml") {
			if _, err := toml.Decode(expanded, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		} else if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// envVarRe matches ${VAR_NAME}
var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarRe.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyEnvOverrides applies the deployment environment variables the desktop
// packager and hosted setup rely on. Set variables win over file values.
func applyEnvOverrides(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s %q: %w", name, v, err)
		}
		*dst = n
		return nil
	}

	str("DATABASE_TYPE", &cfg.Database.Type)
	str("SQLITE_PATH", &cfg.Database.SQLitePath)
	str("MYSQL_HOST", &cfg.Database.MySQL.Host)
	if err := num("MYSQL_PORT", &cfg.Database.MySQL.Port); err != nil {
		return err
	}
	str("MYSQL_USER", &cfg.Database.MySQL.User)
	str("MYSQL_PASSWORD", &cfg.Database.MySQL.Password)
	str("MYSQL_DATABASE", &cfg.Database.MySQL.Database)
	str("UPLOADS_DIR", &cfg.Uploads.Dir)
	str("APP_URL", &cfg.Server.BaseURL)
	str("NEXT_PUBLIC_APP_URL", &cfg.Server.BaseURL)
	str("WHATSAPP_ACCESS_TOKEN", &cfg.WhatsApp.AccessToken)
	str("WHATSAPP_PHONE_NUMBER_ID", &cfg.WhatsApp.PhoneNumberID)
	str("SESSION_SECRET", &cfg.Auth.SessionSecret)

	var port int
	if err := num("PORT", &port); err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.HTTPAddr = ":" + strconv.Itoa(port)
	}
	return nil
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	switch strings.ToLower(c.Database.Type) {
	case "", "mysql", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("database.type must be mysql or sqlite, got %q", c.Database.Type)
	}

	if c.Database.MySQL.Port < 0 || c.Database.MySQL.Port > 65535 {
		return fmt.Errorf("database.mysql.port %d out of range", c.Database.MySQL.Port)
	}

	if c.Uploads.Dir == "" {
		return fmt.Errorf("uploads.dir is required")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Server.ShutdownTimeoutRaw != "" {
		cfg.Server.ShutdownTimeout, err = time.ParseDuration(cfg.Server.ShutdownTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing shutdown_timeout %q: %w", cfg.Server.ShutdownTimeoutRaw, err)
		}
	}

	if cfg.WhatsApp.TimeoutRaw != "" {
		cfg.WhatsApp.Timeout, err = time.ParseDuration(cfg.WhatsApp.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing whatsapp timeout %q: %w", cfg.WhatsApp.TimeoutRaw, err)
		}
	}

	return nil
}
