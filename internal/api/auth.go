// ABOUTME: Login, logout, password change and current-session handlers
// ABOUTME: Login failures never reveal whether the email exists

package api

import (
	"errors"
	"net/http"

	"github.com/2389/horoscope-desk/internal/auth"
	"github.com/2389/horoscope-desk/internal/settings"
	"github.com/2389/horoscope-desk/internal/store"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	OK   bool      `json:"ok"`
	Role auth.Role `json:"role"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type meResponse struct {
	UserID int64           `json:"userId"`
	Role   auth.Role       `json:"role"`
	Links  []settings.Link `json:"links"`
}

// handleLogin handles POST /api/auth/login.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		sendJSONError(w, http.StatusBadRequest, "Email and password required")
		return
	}

	s, err := h.gate.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.gate.IssueCookie(w, s); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Info("login", "user_id", s.UserID, "role", s.Role)
	writeJSON(w, http.StatusOK, loginResponse{OK: true, Role: s.Role})
}

// handleLogout handles POST /api/auth/logout. It succeeds without a session.
func (h *Handler) handleLogout(w http.ResponseWriter, _ *http.Request) {
	h.gate.Logout(w)
	writeOK(w)
}

// handleChangePassword handles POST /api/auth/change-password.
func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	s := auth.MustFromContext(r.Context())

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		sendJSONError(w, http.StatusBadRequest, "Current password and new password required")
		return
	}

	err := h.gate.ChangePassword(r.Context(), s, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		writeOK(w)
	case errors.Is(err, store.ErrNotFound):
		sendJSONError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, auth.ErrInvalidCredentials):
		sendJSONError(w, http.StatusUnauthorized, "Current password is incorrect")
	default:
		h.writeError(w, r, err)
	}
}

// handleMe handles GET /api/me: the session role and the navigation it may see.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	s := auth.MustFromContext(r.Context())

	var allowed []string
	if !s.IsAdmin() {
		allowed = h.settings.AllowedMenus(r.Context())
	}
	writeJSON(w, http.StatusOK, meResponse{
		UserID: s.UserID,
		Role:   s.Role,
		Links:  settings.VisibleLinks(s.Role, allowed),
	})
}
