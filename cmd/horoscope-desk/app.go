// ABOUTME: Component wiring shared by the CLI commands
// ABOUTME: Builds the data gateway, session gate, settings, WhatsApp client and API from config

package main

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/2389/horoscope-desk/internal/api"
	"github.com/2389/horoscope-desk/internal/auth"
	"github.com/2389/horoscope-desk/internal/config"
	"github.com/2389/horoscope-desk/internal/db"
	"github.com/2389/horoscope-desk/internal/settings"
	"github.com/2389/horoscope-desk/internal/store"
	"github.com/2389/horoscope-desk/internal/whatsapp"
)

// app holds the wired components for one process.
type app struct {
	gateway  *db.Gateway
	store    *store.Store
	gate     *auth.Gate
	api      *api.Handler
	registry *prometheus.Registry
}

func gatewayOptions(cfg *config.Config, logger *slog.Logger, metrics *db.Metrics) db.Options {
	my := cfg.Database.MySQL
	return db.Options{
		Backend: db.SelectBackend(cfg.Database.Type, cfg.Database.SQLitePath),
		MySQL: db.MySQLOptions{
			Host:     my.Host,
			Port:     my.Port,
			User:     my.User,
			Password: my.Password,
			Database: my.Database,
			PoolSize: my.PoolSize,
		},
		SQLitePath: cfg.Database.SQLitePath,
		Logger:     logger,
		Metrics:    metrics,
	}
}

// sessionCodec picks the cookie format. A secret yields signed cookies unless
// the legacy unsigned format is explicitly requested.
func sessionCodec(cfg config.AuthConfig, logger *slog.Logger) auth.Codec {
	switch {
	case cfg.LegacyCookie:
		logger.Warn("auth.legacy_cookie is set: session cookies are unsigned and can be forged by clients")
		return auth.LegacyCodec{}
	case cfg.SessionSecret == "":
		logger.Warn("auth.session_secret is empty: falling back to unsigned session cookies; set SESSION_SECRET")
		return auth.LegacyCodec{}
	default:
		return auth.NewSignedCodec([]byte(cfg.SessionSecret))
	}
}

// secureCookie resolves auth.secure_cookie. When unset, server deployments
// (MySQL) get Secure cookies and the embedded SQLite build does not.
func secureCookie(cfg *config.Config) bool {
	if v := cfg.Auth.SecureCookie; v != nil {
		return *v
	}
	return db.SelectBackend(cfg.Database.Type, cfg.Database.SQLitePath) == db.BackendMySQL
}

func newApp(cfg *config.Config, logger *slog.Logger) *app {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var metrics *db.Metrics
	if cfg.Metrics.Enabled {
		metrics = db.NewMetrics(reg)
	}
	gw := db.New(gatewayOptions(cfg, logger, metrics))
	st := store.New(gw)

	gate := auth.NewGate(st, sessionCodec(cfg.Auth, logger), auth.GateOptions{
		SecureCookie: secureCookie(cfg),
		Logger:       logger,
	})

	wa := whatsapp.NewClient(whatsapp.Config{
		AccessToken:   cfg.WhatsApp.AccessToken,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		APIBase:       cfg.WhatsApp.APIBase,
		HTTPClient:    &http.Client{Timeout: cfg.WhatsApp.Timeout},
		Logger:        logger,
	})

	handler := api.New(api.Options{
		Gate:       gate,
		Store:      st,
		Settings:   settings.New(gw, logger),
		WhatsApp:   wa,
		UploadsDir: cfg.Uploads.Dir,
		BaseURL:    cfg.Server.BaseURL,
		Debug:      cfg.Server.Debug,
		Logger:     logger,
	})

	return &app{
		gateway:  gw,
		store:    st,
		gate:     gate,
		api:      handler,
		registry: reg,
	}
}
