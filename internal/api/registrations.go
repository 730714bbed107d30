// ABOUTME: Profile handlers: search, exact lookup, create and partial update
// ABOUTME: Duplicate profile IDs, phones and WhatsApp numbers answer 409

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/2389/horoscope-desk/internal/store"
)

// Accepted profile genders.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

func validGender(v string) bool {
	return v == GenderMale || v == GenderFemale
}

type listRegistrationsResponse struct {
	Registrations []store.Registration `json:"registrations"`
}

type createdResponse struct {
	ID int64 `json:"id"`
	OK bool  `json:"ok"`
}

// pathID parses the {id} path value. Malformed ids report false.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// handleListRegistrations handles GET /api/registrations. With
// ?registration_id= it returns that single profile instead of a list.
func (h *Handler) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if exact := strings.TrimSpace(q.Get("registration_id")); exact != "" {
		reg, err := h.store.GetRegistrationByProfileID(r.Context(), exact)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reg)
		return
	}

	regs, err := h.store.ListRegistrations(r.Context(), store.RegistrationFilter{
		Search: q.Get("search"),
		Prefix: q.Get("prefix"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listRegistrationsResponse{Registrations: regs})
}

// handleCreateRegistration handles POST /api/registrations.
func (h *Handler) handleCreateRegistration(w http.ResponseWriter, r *http.Request) {
	var req store.NewRegistration
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RegistrationID) == "" || strings.TrimSpace(req.Name) == "" || req.Role == "" {
		sendJSONError(w, http.StatusBadRequest, "Profile ID, name and gender are required")
		return
	}
	if !validGender(req.Role) {
		sendJSONError(w, http.StatusBadRequest, "Gender must be male or female")
		return
	}

	id, err := h.store.CreateRegistration(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Info("registration created", "id", id, "registration_id", strings.TrimSpace(req.RegistrationID))
	writeJSON(w, http.StatusOK, createdResponse{ID: id, OK: true})
}

// handleGetRegistration handles GET /api/registrations/{id}.
func (h *Handler) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		sendJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}
	reg, err := h.store.GetRegistration(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// handleUpdateRegistration handles PATCH /api/registrations/{id}.
func (h *Handler) handleUpdateRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		sendJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}

	var patch store.RegistrationPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.Role.Set && !validGender(patch.Role.Value) {
		sendJSONError(w, http.StatusBadRequest, "Gender must be male or female")
		return
	}
	if patch.RegistrationID.Set && strings.TrimSpace(patch.RegistrationID.Value) == "" {
		sendJSONError(w, http.StatusBadRequest, "Profile ID cannot be empty")
		return
	}
	if patch.Name.Set && strings.TrimSpace(patch.Name.Value) == "" {
		sendJSONError(w, http.StatusBadRequest, "Name cannot be empty")
		return
	}

	if _, err := h.store.GetRegistration(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.store.UpdateRegistration(r.Context(), id, patch); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w)
}
