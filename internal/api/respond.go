// ABOUTME: JSON response helpers and the single error-to-status mapping
// ABOUTME: Unknown failures are logged and collapse to a generic "Server error"

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/2389/horoscope-desk/internal/auth"
	"github.com/2389/horoscope-desk/internal/db"
	"github.com/2389/horoscope-desk/internal/settings"
	"github.com/2389/horoscope-desk/internal/store"
)

const (
	msgServerError       = "Server error"
	msgInvalidJSON       = "Invalid JSON body"
	msgNotFound          = "Not found"
	msgProfileIDUnknown  = "Profile ID not found. Add the profile first."
	msgDuplicateID       = "This Profile ID is already in use. Profile ID must be unique."
	msgDuplicatePhone    = "This phone number is already registered"
	msgDuplicateWhatsApp = "This WhatsApp number is already registered"
	msgDuplicateOther    = "Duplicate value; Profile ID must be unique."
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// sendJSONError writes a JSON error response.
func sendJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSON reads a size-capped JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		sendJSONError(w, http.StatusBadRequest, msgInvalidJSON)
		return false
	}
	return true
}

func duplicateMessage(field string) string {
	switch field {
	case store.FieldRegistrationID:
		return msgDuplicateID
	case store.FieldPhone:
		return msgDuplicatePhone
	case store.FieldWhatsApp:
		return msgDuplicateWhatsApp
	default:
		return msgDuplicateOther
	}
}

// statusFor maps an error to its response status and message. ok is false
// for unclassified failures.
func statusFor(err error) (status int, message string, ok bool) {
	var dup *store.DuplicateError
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized", true
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "Forbidden", true
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password", true
	case errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, "New password must be at least 6 characters", true
	case errors.As(err, &dup):
		return http.StatusConflict, duplicateMessage(dup.Field), true
	case errors.Is(err, db.ErrDuplicateKey):
		return http.StatusConflict, msgDuplicateOther, true
	case errors.Is(err, db.ErrForeignKey):
		return http.StatusBadRequest, msgProfileIDUnknown, true
	case errors.Is(err, settings.ErrUnavailable):
		return http.StatusServiceUnavailable, settings.ErrUnavailable.Error(), true
	case errors.Is(err, store.ErrNothingToUpdate):
		return http.StatusBadRequest, "Nothing to update", true
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, msgNotFound, true
	}
	return http.StatusInternalServerError, msgServerError, false
}

// writeError maps err through statusFor. Unclassified errors are logged with
// the request and answered with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.writeErrorDetail(w, r, err, false)
}

// writeErrorDetail is writeError with the option of exposing the cause of an
// unclassified failure.
func (h *Handler) writeErrorDetail(w http.ResponseWriter, r *http.Request, err error, detail bool) {
	status, message, ok := statusFor(err)
	if ok {
		sendJSONError(w, status, message)
		return
	}
	h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	resp := errorResponse{Error: message}
	if detail {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}
