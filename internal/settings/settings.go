// ABOUTME: Settings-backed menu filter deciding which dashboard routes viewers see
// ABOUTME: Reads fall back to the default route list; writes fail loudly when unavailable

package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/horoscope-desk/internal/db"
)

// KeyViewerMenus is the app_settings key holding the viewer allow-list.
const KeyViewerMenus = "viewer_allowed_menus"

// DefaultViewerMenus is used whenever the stored allow-list cannot be read.
var DefaultViewerMenus = []string{
	"/dashboard",
	"/dashboard/lookup",
	"/dashboard/registrations",
	"/dashboard/record-share",
	"/dashboard/follow-ups",
	"/dashboard/upload",
	"/dashboard/send-profile-details",
}

// ErrUnavailable is returned when settings cannot be written, normally because
// the app_settings table has not been created yet.
var ErrUnavailable = errors.New("settings table not found: run `horoscope-desk migrate` to create app_settings")

// Service reads and writes application settings.
type Service struct {
	db     db.Executor
	logger *slog.Logger
}

// New creates a settings Service.
func New(exec db.Executor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: exec, logger: logger.With("component", "settings")}
}

// Defaults returns a fresh copy of DefaultViewerMenus.
func Defaults() []string {
	out := make([]string, len(DefaultViewerMenus))
	copy(out, DefaultViewerMenus)
	return out
}

// AllowedMenus returns the route identifiers viewers may see. It never fails:
// a missing row, missing table, empty value or value that is not a JSON list
// of strings all yield Defaults().
func (s *Service) AllowedMenus(ctx context.Context) []string {
	res, err := s.db.Execute(ctx, "SELECT value FROM app_settings WHERE `key` = ?", KeyViewerMenus)
	if err != nil {
		s.logger.Warn("reading viewer menus failed, using defaults", "error", err)
		return Defaults()
	}
	rec, ok := res.First()
	if !ok {
		return Defaults()
	}
	value := rec.String("value")
	if value == "" {
		return Defaults()
	}

	var menus []string
	if err := json.Unmarshal([]byte(value), &menus); err != nil || menus == nil {
		s.logger.Warn("stored viewer menus are not a list, using defaults", "value", value)
		return Defaults()
	}
	return menus
}

// SetAllowedMenus stores the viewer allow-list, preserving order. A nil list
// is stored as an empty one. Any failure is reported as ErrUnavailable.
func (s *Service) SetAllowedMenus(ctx context.Context, menus []string) error {
	if menus == nil {
		menus = []string{}
	}
	value, err := json.Marshal(menus)
	if err != nil {
		return fmt.Errorf("encoding menus: %w", err)
	}

	if _, err := s.db.Execute(ctx,
		"INSERT INTO app_settings (`key`, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)",
		KeyViewerMenus, string(value),
	); err != nil {
		s.logger.Error("writing viewer menus failed", "error", err)
		return fmt.Errorf("%w (%v)", ErrUnavailable, err)
	}
	s.logger.Info("viewer menus updated", "count", len(menus))
	return nil
}
