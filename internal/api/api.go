// ABOUTME: JSON HTTP API for the matchmaking desk: profiles, shares, reminders, sends
// ABOUTME: Routes are wrapped by the session gate; admin-only routes also require the admin role

package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/2389/horoscope-desk/internal/auth"
	"github.com/2389/horoscope-desk/internal/settings"
	"github.com/2389/horoscope-desk/internal/store"
)

// DefaultMaxUploadBytes caps horoscope uploads when Options leaves it unset.
const DefaultMaxUploadBytes = 32 << 20

// maxJSONBytes caps JSON request bodies.
const maxJSONBytes = 1 << 20

// Messenger sends WhatsApp messages. *whatsapp.Client satisfies it.
type Messenger interface {
	Configured() bool
	SendDocument(ctx context.Context, to, documentURL, filename, caption string) error
	SendText(ctx context.Context, to, text string) (string, error)
}

// Options configures a Handler.
type Options struct {
	Gate     *auth.Gate
	Store    *store.Store
	Settings *settings.Service
	WhatsApp Messenger

	// UploadsDir is where horoscope files are written and served from.
	UploadsDir string
	// BaseURL prefixes upload paths to build shareable links.
	BaseURL string
	// MaxUploadBytes caps multipart uploads. Zero means DefaultMaxUploadBytes.
	MaxUploadBytes int64
	// Debug allows ?debug=1 on the lookup endpoint to return error detail.
	Debug bool

	Logger *slog.Logger
}

// Handler serves the /api routes.
type Handler struct {
	gate      *auth.Gate
	store     *store.Store
	settings  *settings.Service
	messenger Messenger

	uploadsDir string
	baseURL    string
	maxUpload  int64
	debug      bool

	logger *slog.Logger
}

// New creates a Handler.
func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Handler{
		gate:       opts.Gate,
		store:      opts.Store,
		settings:   opts.Settings,
		messenger:  opts.WhatsApp,
		uploadsDir: opts.UploadsDir,
		baseURL:    opts.BaseURL,
		maxUpload:  maxUpload,
		debug:      opts.Debug,
		logger:     logger.With("component", "api"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	authed := func(fn http.HandlerFunc) http.Handler {
		return h.gate.RequireAuth(fn)
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return h.gate.RequireAuth(h.gate.RequireAdmin(fn))
	}

	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", h.handleLogout)
	mux.Handle("POST /api/auth/change-password", authed(h.handleChangePassword))
	mux.Handle("GET /api/me", authed(h.handleMe))

	mux.Handle("GET /api/registrations", authed(h.handleListRegistrations))
	mux.Handle("POST /api/registrations", admin(h.handleCreateRegistration))
	mux.Handle("GET /api/registrations/{id}", authed(h.handleGetRegistration))
	mux.Handle("PATCH /api/registrations/{id}", admin(h.handleUpdateRegistration))

	mux.Handle("POST /api/shares", admin(h.handleRecordShare))

	mux.Handle("GET /api/follow-ups", authed(h.handleListFollowUps))
	mux.Handle("POST /api/follow-ups", admin(h.handleCreateFollowUp))
	mux.Handle("PATCH /api/follow-ups/{id}", admin(h.handleUpdateFollowUp))

	mux.Handle("GET /api/lookup", authed(h.handleLookup))

	mux.Handle("GET /api/settings/viewer-menus", authed(h.handleGetViewerMenus))
	mux.Handle("PUT /api/settings/viewer-menus", admin(h.handleSetViewerMenus))

	mux.Handle("POST /api/send-profile-details", admin(h.handleSendProfileDetails))
	mux.Handle("POST /api/upload-horoscope", admin(h.handleUploadHoroscope))
	mux.Handle("GET /api/serve-upload/{filename}", authed(h.handleServeUpload))
	// Public: this URL is handed to WhatsApp and to recipients. Names are
	// random UUIDs.
	mux.HandleFunc("GET /uploads/{filename}", h.handleServeUpload)
	mux.Handle("GET /api/whatsapp-status", authed(h.handleWhatsAppStatus))
}

// Routes returns a mux with every route mounted.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}
